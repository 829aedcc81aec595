package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Apply allocates a payment across the student's unpaid terms in term
	// order. All resulting payment and receipt rows commit atomically.
	Apply(ctx context.Context, schoolID snowflake.ID, req ApplyRequest) (*AllocationResult, error)
	ListByStudent(ctx context.Context, schoolID snowflake.ID, studentID string, yearID string) ([]PaymentResponse, error)
	// ListByDateRange returns the school's payments between two dates, both
	// inclusive, for daily and periodic collection reports.
	ListByDateRange(ctx context.Context, schoolID snowflake.ID, from, to string) ([]PaymentResponse, error)
	ListReceipts(ctx context.Context, schoolID snowflake.ID, studentID string) ([]ReceiptResponse, error)
	GetReceipt(ctx context.Context, schoolID snowflake.ID, receiptNo string) (*ReceiptResponse, error)
	// CloseYear snapshots every active student's closing balance for the
	// year and posts carry-forward entries into the following year. Running
	// it twice for the same year is rejected per student, not re-posted.
	CloseYear(ctx context.Context, schoolID snowflake.ID, req CloseYearRequest) (*CloseYearResult, error)
}

type ApplyRequest struct {
	StudentID      string     `json:"student_id"`
	AcademicYearID string     `json:"academic_year_id"`
	StartingTermID string     `json:"starting_term_id"`
	Amount         int64      `json:"amount"`
	Method         Method     `json:"method"`
	ReferenceNo    string     `json:"reference_no"`
	Description    string     `json:"description"`
	PaymentDate    *time.Time `json:"payment_date"`
	ReceivedBy     string     `json:"received_by"`
}

// AllocationResult reports every ledger entry the allocator created.
// Unallocated is the excess beyond all outstanding terms; it still posts to
// the ledger as an overpayment and is reported here so callers can flag it
// for year-end carry forward.
type AllocationResult struct {
	Payments    []PaymentResponse `json:"payments"`
	Receipts    []ReceiptResponse `json:"receipts"`
	Allocated   int64             `json:"allocated"`
	Unallocated int64             `json:"unallocated"`
}

type PaymentResponse struct {
	ID             snowflake.ID `json:"id"`
	StudentID      snowflake.ID `json:"student_id"`
	AcademicYearID snowflake.ID `json:"academic_year_id"`
	TermID         snowflake.ID `json:"term_id"`
	Amount         int64        `json:"amount"`
	Method         Method       `json:"method"`
	ReferenceNo    string       `json:"reference_no,omitempty"`
	ReceiptNo      string       `json:"receipt_no,omitempty"`
	Description    string       `json:"description,omitempty"`
	PaymentDate    time.Time    `json:"payment_date"`
	ReceivedBy     string       `json:"received_by"`
	CreatedAt      time.Time    `json:"created_at"`
}

type ReceiptResponse struct {
	ID                snowflake.ID `json:"id"`
	PaymentID         snowflake.ID `json:"payment_id"`
	StudentID         snowflake.ID `json:"student_id"`
	AcademicYearID    snowflake.ID `json:"academic_year_id"`
	TermID            snowflake.ID `json:"term_id"`
	ReceiptNo         string       `json:"receipt_no"`
	Amount            int64        `json:"amount"`
	Method            Method       `json:"method,omitempty"`
	ReceivedBy        string       `json:"received_by,omitempty"`
	TermBalanceBefore int64        `json:"term_balance_before"`
	TermBalanceAfter  int64        `json:"term_balance_after"`
	YearBalanceBefore int64        `json:"year_balance_before"`
	YearBalanceAfter  int64        `json:"year_balance_after"`
	IssuedAt          time.Time    `json:"issued_at"`
}

type CloseYearRequest struct {
	AcademicYearID string `json:"academic_year_id"`
	ClosedBy       string `json:"closed_by"`
}

type CloseYearResult struct {
	Closed  []snowflake.ID     `json:"closed"`
	Skipped []SkippedYearClose `json:"skipped"`
	Errors  []string           `json:"errors"`
}

type SkippedYearClose struct {
	StudentID snowflake.ID `json:"student_id"`
	Reason    string       `json:"reason"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidDateRange   = errors.New("invalid_date_range")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidMethod      = errors.New("invalid_method")
	ErrMissingReceivedBy  = errors.New("missing_received_by")
	ErrNoFeeStructures    = errors.New("fee_structure_not_found")
	ErrReceiptNotFound    = errors.New("receipt_not_found")
	ErrNextYearNotFound   = errors.New("next_year_not_found")
	ErrNextYearHasNoTerms = errors.New("next_year_has_no_terms")
)
