package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const ctxSchoolID = "school_id"

// SchoolContext resolves the :schoolId path segment and verifies the tenant
// exists before any handler runs.
func (s *Server) SchoolContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param("schoolId"))
		schoolID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("schoolId", "invalid_school_id", "invalid school id"))
			return
		}

		if _, err := s.schoolRepo.FindSchool(c.Request.Context(), s.db, schoolID); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(ctxSchoolID, schoolID)
		c.Next()
	}
}

func (s *Server) schoolID(c *gin.Context) snowflake.ID {
	if value, ok := c.Get(ctxSchoolID); ok {
		if id, ok := value.(snowflake.ID); ok {
			return id
		}
	}
	return 0
}
