package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	"github.com/shulekit/shulekit/internal/providers/pdf"
)

func (s *Server) GetStudentBalances(c *gin.Context) {
	var req ledgerdomain.BalanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.StudentID = strings.TrimSpace(c.Param("studentId"))

	resp, err := s.ledgerSvc.Balances(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStudentStatement(c *gin.Context) {
	var req ledgerdomain.StatementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.StudentID = strings.TrimSpace(c.Param("studentId"))

	resp, err := s.ledgerSvc.Statement(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if strings.EqualFold(strings.TrimSpace(c.Query("format")), "pdf") {
		s.renderStatementPDF(c, resp)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) renderStatementPDF(c *gin.Context, stmt *ledgerdomain.StatementResult) {
	school, err := s.schoolRepo.FindSchool(c.Request.Context(), s.db, s.schoolID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdfProvider.RenderStatement(c.Request.Context(), pdf.StatementData{
		SchoolName: school.Name,
		Statement:  stmt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="statement-`+stmt.AdmissionNo+`.pdf"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, doc)
}
