// Package domain contains the derived transaction ledger: the unified
// debit/credit view of fee structures and payments from which every balance
// and statement is computed. Balances are never stored as mutable fields;
// the only persisted artifact here is the write-once year close snapshot.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TransactionKind string

const (
	TransactionCharge       TransactionKind = "charge"
	TransactionPayment      TransactionKind = "payment"
	TransactionCarryForward TransactionKind = "carry_forward"
)

// Transaction is one derived ledger line. Exactly one of Debit or Credit is
// non-zero, except for carry-forward entries which may be either side.
// Balance is the running balance immediately after this line.
type Transaction struct {
	Seq            int             `json:"seq"`
	Kind           TransactionKind `json:"kind"`
	Date           time.Time       `json:"date"`
	TermID         snowflake.ID    `json:"term_id"`
	AcademicYearID snowflake.ID    `json:"academic_year_id"`
	Reference      string          `json:"reference,omitempty"`
	Description    string          `json:"description"`
	Debit          int64           `json:"debit"`
	Credit         int64           `json:"credit"`
	Balance        int64           `json:"balance"`
}

// TermBalance is the slice view of one term: charges and payments tagged to
// the term only, independent of the global running balance.
type TermBalance struct {
	TermID         snowflake.ID `json:"term_id"`
	TermName       string       `json:"term_name"`
	Position       int          `json:"position"`
	AcademicYearID snowflake.ID `json:"academic_year_id"`
	TotalCharged   int64        `json:"total_charged"`
	TotalPaid      int64        `json:"total_paid"`
	Outstanding    int64        `json:"outstanding"`
}

// BalanceResult is the full computation output. TermOutstanding is only
// meaningful when the request scoped a term. A negative outstanding is an
// overpayment.
type BalanceResult struct {
	OpeningBalance  int64         `json:"opening_balance"`
	YearOutstanding int64         `json:"year_outstanding"`
	TermOutstanding int64         `json:"term_outstanding"`
	TermBalances    []TermBalance `json:"term_balances"`
	Transactions    []Transaction `json:"transactions"`
}

type StatementRowKind string

const (
	RowEntry          StatementRowKind = "entry"
	RowTermHeader     StatementRowKind = "term_header"
	RowTermClosing    StatementRowKind = "term_closing"
	RowBroughtForward StatementRowKind = "brought_forward"
)

// StatementRow is one printable line. Marker rows (everything except
// RowEntry) carry no debit or credit, only a labeled balance snapshot.
type StatementRow struct {
	Seq         int              `json:"seq"`
	Kind        StatementRowKind `json:"kind"`
	Reference   string           `json:"reference,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Description string           `json:"description"`
	Debit       int64            `json:"debit"`
	Credit      int64            `json:"credit"`
	Balance     int64            `json:"balance"`
}

type StatementResult struct {
	StudentID   snowflake.ID   `json:"student_id"`
	StudentName string         `json:"student_name"`
	AdmissionNo string         `json:"admission_no"`
	YearLabel   string         `json:"year_label"`
	Currency    string         `json:"currency"`
	Rows        []StatementRow `json:"rows"`
	Outstanding int64          `json:"outstanding"`
}

// YearClose is the write-once closing balance snapshot persisted at
// year-transition time. It bootstraps the next year's opening balance.
type YearClose struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID       snowflake.ID `gorm:"not null;index" json:"school_id"`
	StudentID      snowflake.ID `gorm:"not null;uniqueIndex:idx_year_closes_student_year,priority:1" json:"student_id"`
	AcademicYearID snowflake.ID `gorm:"not null;uniqueIndex:idx_year_closes_student_year,priority:2" json:"academic_year_id"`
	ClosingBalance int64        `gorm:"not null" json:"closing_balance"`
	ClosedBy       string       `gorm:"type:text;not null" json:"closed_by"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (YearClose) TableName() string { return "year_closes" }
