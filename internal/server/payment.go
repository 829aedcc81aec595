package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	"github.com/shulekit/shulekit/internal/providers/pdf"
)

func (s *Server) ApplyPayment(c *gin.Context) {
	var req paymentdomain.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.Apply(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) ListStudentPayments(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))
	yearID := strings.TrimSpace(c.Query("academic_year_id"))

	payments, err := s.paymentSvc.ListByStudent(c.Request.Context(), s.schoolID(c), studentID, yearID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Server) ListPaymentsByDateRange(c *gin.Context) {
	payments, err := s.paymentSvc.ListByDateRange(c.Request.Context(), s.schoolID(c), c.Query("from"), c.Query("to"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Server) ListStudentReceipts(c *gin.Context) {
	studentID := strings.TrimSpace(c.Param("studentId"))

	receipts, err := s.paymentSvc.ListReceipts(c.Request.Context(), s.schoolID(c), studentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": receipts})
}

func (s *Server) GetReceipt(c *gin.Context) {
	receiptNo := strings.TrimSpace(c.Param("receiptNo"))

	receipt, err := s.paymentSvc.GetReceipt(c.Request.Context(), s.schoolID(c), receiptNo)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": receipt})
}

func (s *Server) RenderReceiptPDF(c *gin.Context) {
	ctx := c.Request.Context()
	schoolID := s.schoolID(c)
	receiptNo := strings.TrimSpace(c.Param("receiptNo"))

	receipt, err := s.paymentSvc.GetReceipt(ctx, schoolID, receiptNo)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	school, err := s.schoolRepo.FindSchool(ctx, s.db, schoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	student, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, receipt.StudentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, err := s.schoolRepo.FindYear(ctx, s.db, schoolID, receipt.AcademicYearID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	term, err := s.schoolRepo.FindTerm(ctx, s.db, receipt.TermID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdfProvider.RenderReceipt(ctx, pdf.ReceiptData{
		SchoolName:  school.Name,
		Currency:    school.Currency,
		ReceiptNo:   receipt.ReceiptNo,
		StudentName: student.FirstName + " " + student.LastName,
		AdmissionNo: student.AdmissionNo,
		YearLabel:   year.Label,
		TermName:    term.Name,
		Method:      string(receipt.Method),
		ReceivedBy:  receipt.ReceivedBy,
		IssuedAt:    receipt.IssuedAt.Format("2006-01-02 15:04"),

		Amount:            receipt.Amount,
		TermBalanceBefore: receipt.TermBalanceBefore,
		TermBalanceAfter:  receipt.TermBalanceAfter,
		YearBalanceBefore: receipt.YearBalanceBefore,
		YearBalanceAfter:  receipt.YearBalanceAfter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+receipt.ReceiptNo+`.pdf"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, doc)
}

func (s *Server) CloseYear(c *gin.Context) {
	var req paymentdomain.CloseYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.CloseYear(c.Request.Context(), s.schoolID(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
