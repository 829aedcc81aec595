package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	InsertReceipt(ctx context.Context, db *gorm.DB, receipt *Receipt) error

	// ListByStudentYear returns payments ordered by payment date then
	// creation, the order the balance calculator expects for tie-breaks.
	ListByStudentYear(ctx context.Context, db *gorm.DB, schoolID, studentID, yearID snowflake.ID) ([]Payment, error)
	ListByStudent(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]Payment, error)
	ListByDateRange(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, from, to time.Time) ([]Payment, error)
	HasCarryForward(ctx context.Context, db *gorm.DB, schoolID, studentID, yearID snowflake.ID) (bool, error)
	FindPayment(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*Payment, error)

	FindReceiptByNo(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, receiptNo string) (*Receipt, error)
	ListReceiptsByStudent(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]Receipt, error)
}
