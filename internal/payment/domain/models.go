// Package domain contains payment and receipt records. Both are append-only:
// a posted payment is never mutated, corrections happen through compensating
// entries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodMobileMoney  Method = "mobile_money"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
	// MethodCarryForward marks a system-generated entry moving a balance
	// between academic years. It is the only method whose amount may be
	// negative: positive carries an overpayment credit in, negative carries
	// arrears in as a synthetic charge.
	MethodCarryForward Method = "carry_forward"
)

type Payment struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID       snowflake.ID `gorm:"not null;index" json:"school_id"`
	StudentID      snowflake.ID `gorm:"not null;index:idx_payments_student_year,priority:1" json:"student_id"`
	AcademicYearID snowflake.ID `gorm:"not null;index:idx_payments_student_year,priority:2" json:"academic_year_id"`
	TermID         snowflake.ID `gorm:"not null;index" json:"term_id"`
	Amount         int64        `gorm:"not null" json:"amount"`
	Method         Method       `gorm:"type:text;not null" json:"method"`
	ReferenceNo    string       `gorm:"type:text" json:"reference_no"`
	ReceiptNo      string       `gorm:"type:text;index" json:"receipt_no"`
	Description    string       `gorm:"type:text" json:"description"`
	PaymentDate    time.Time    `gorm:"not null;index" json:"payment_date"`
	ReceivedBy     string       `gorm:"type:text;not null" json:"received_by"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// Receipt captures the before/after balances at the moment of allocation so
// the audit trail survives later recomputation.
type Receipt struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID          snowflake.ID `gorm:"not null;index:idx_receipts_school_no,priority:1" json:"school_id"`
	PaymentID         snowflake.ID `gorm:"not null;uniqueIndex" json:"payment_id"`
	StudentID         snowflake.ID `gorm:"not null;index" json:"student_id"`
	AcademicYearID    snowflake.ID `gorm:"not null;index" json:"academic_year_id"`
	TermID            snowflake.ID `gorm:"not null;index" json:"term_id"`
	ReceiptNo         string       `gorm:"type:text;not null;uniqueIndex:idx_receipts_school_no,priority:2" json:"receipt_no"`
	Amount            int64        `gorm:"not null" json:"amount"`
	TermBalanceBefore int64        `gorm:"not null" json:"term_balance_before"`
	TermBalanceAfter  int64        `gorm:"not null" json:"term_balance_after"`
	YearBalanceBefore int64        `gorm:"not null" json:"year_balance_before"`
	YearBalanceAfter  int64        `gorm:"not null" json:"year_balance_after"`
	IssuedAt          time.Time    `gorm:"not null" json:"issued_at"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Receipt) TableName() string { return "receipts" }
