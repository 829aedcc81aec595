package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Balances recomputes the student's ledger on demand. AcademicYearID is
	// optional; it defaults to the active year. TermID scopes TermOutstanding.
	Balances(ctx context.Context, schoolID snowflake.ID, req BalanceRequest) (*BalanceResult, error)
	Statement(ctx context.Context, schoolID snowflake.ID, req StatementRequest) (*StatementResult, error)
}

type BalanceRequest struct {
	StudentID      string `form:"-" json:"student_id"`
	AcademicYearID string `form:"academic_year_id" json:"academic_year_id"`
	TermID         string `form:"term_id" json:"term_id"`
	// ExcludeCarryForward views the year in isolation: the inherited
	// opening balance and any carry-forward entries are left out, so the
	// numbers reflect the year's own charges and collections only.
	ExcludeCarryForward bool `form:"exclude_carry_forward" json:"exclude_carry_forward"`
}

type StatementRequest struct {
	StudentID      string `form:"-" json:"student_id"`
	AcademicYearID string `form:"academic_year_id" json:"academic_year_id"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrYearAlreadyClosed = errors.New("year_already_closed")
)
