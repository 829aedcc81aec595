package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
)

func (s *Server) CreateFeeStructure(c *gin.Context) {
	var req feedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feeSvc.Create(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListFeeStructures(c *gin.Context) {
	yearID := strings.TrimSpace(c.Query("academic_year_id"))
	if yearID == "" {
		AbortWithError(c, newValidationError("academic_year_id", "invalid_academic_year_id", "academic_year_id is required"))
		return
	}

	resp, err := s.feeSvc.ListByYear(c.Request.Context(), s.schoolID(c), yearID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFeeStructureByID(c *gin.Context) {
	resp, err := s.feeSvc.Get(c.Request.Context(), s.schoolID(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFeeStructure(c *gin.Context) {
	var req feedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feeSvc.Update(c.Request.Context(), s.schoolID(c), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFeeStructure(c *gin.Context) {
	if err := s.feeSvc.Delete(c.Request.Context(), s.schoolID(c), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
