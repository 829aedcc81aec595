package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
)

func (s *Server) ListPromotionCriteria(c *gin.Context) {
	criteria, err := s.promotionSvc.ListCriteria(c.Request.Context(), s.schoolID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": criteria})
}

func (s *Server) CreatePromotionCriteria(c *gin.Context) {
	var req promotiondomain.CriteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	criteria, err := s.promotionSvc.CreateCriteria(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": criteria})
}

func (s *Server) UpdatePromotionCriteria(c *gin.Context) {
	var req promotiondomain.CriteriaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	criteria, err := s.promotionSvc.UpdateCriteria(c.Request.Context(), s.schoolID(c), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": criteria})
}

func (s *Server) CreateClassProgression(c *gin.Context) {
	var req promotiondomain.ProgressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	progression, err := s.promotionSvc.CreateProgression(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": progression})
}

func (s *Server) ListClassProgressions(c *gin.Context) {
	progressions, err := s.promotionSvc.ListProgressions(c.Request.Context(), s.schoolID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progressions})
}

func (s *Server) ListPromotionLogs(c *gin.Context) {
	logs, err := s.promotionSvc.ListLogs(c.Request.Context(), s.schoolID(c), strings.TrimSpace(c.Param("studentId")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) EvaluatePromotion(c *gin.Context) {
	var req promotiondomain.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.promotionSvc.Evaluate(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) PromoteClass(c *gin.Context) {
	var req promotiondomain.PromoteClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.promotionSvc.PromoteClass(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) PromoteSchool(c *gin.Context) {
	var req promotiondomain.PromoteSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.promotionSvc.PromoteSchool(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
