package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *paymentdomain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, school_id, student_id, academic_year_id, term_id,
			amount, method, reference_no, receipt_no, description,
			payment_date, received_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.SchoolID,
		p.StudentID,
		p.AcademicYearID,
		p.TermID,
		p.Amount,
		p.Method,
		p.ReferenceNo,
		p.ReceiptNo,
		p.Description,
		p.PaymentDate,
		p.ReceivedBy,
		p.CreatedAt,
	).Error
}

func (r *repo) InsertReceipt(ctx context.Context, db *gorm.DB, receipt *paymentdomain.Receipt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO receipts (
			id, school_id, payment_id, student_id, academic_year_id, term_id,
			receipt_no, amount, term_balance_before, term_balance_after,
			year_balance_before, year_balance_after, issued_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID,
		receipt.SchoolID,
		receipt.PaymentID,
		receipt.StudentID,
		receipt.AcademicYearID,
		receipt.TermID,
		receipt.ReceiptNo,
		receipt.Amount,
		receipt.TermBalanceBefore,
		receipt.TermBalanceAfter,
		receipt.YearBalanceBefore,
		receipt.YearBalanceAfter,
		receipt.IssuedAt,
		receipt.CreatedAt,
	).Error
}

func (r *repo) ListByStudentYear(ctx context.Context, db *gorm.DB, schoolID, studentID, yearID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("school_id = ? AND student_id = ? AND academic_year_id = ?", schoolID, studentID, yearID).
		Order("payment_date asc, created_at asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListByStudent(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Order("payment_date asc, created_at asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListByDateRange(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, from, to time.Time) ([]paymentdomain.Payment, error) {
	var payments []paymentdomain.Payment
	err := db.WithContext(ctx).
		Where("school_id = ? AND payment_date >= ? AND payment_date < ?", schoolID, from, to).
		Order("payment_date asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) HasCarryForward(ctx context.Context, db *gorm.DB, schoolID, studentID, yearID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("school_id = ? AND student_id = ? AND academic_year_id = ? AND method = ?",
			schoolID, studentID, yearID, paymentdomain.MethodCarryForward).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, student_id, academic_year_id, term_id,
		 amount, method, reference_no, receipt_no, description,
		 payment_date, received_by, created_at
		 FROM payments WHERE school_id = ? AND id = ?`,
		schoolID,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindReceiptByNo(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, receiptNo string) (*paymentdomain.Receipt, error) {
	var receipt paymentdomain.Receipt
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, payment_id, student_id, academic_year_id, term_id,
		 receipt_no, amount, term_balance_before, term_balance_after,
		 year_balance_before, year_balance_after, issued_at, created_at
		 FROM receipts WHERE school_id = ? AND receipt_no = ?`,
		schoolID,
		receiptNo,
	).Scan(&receipt).Error
	if err != nil {
		return nil, err
	}
	if receipt.ID == 0 {
		return nil, nil
	}
	return &receipt, nil
}

func (r *repo) ListReceiptsByStudent(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]paymentdomain.Receipt, error) {
	var receipts []paymentdomain.Receipt
	err := db.WithContext(ctx).
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Order("issued_at asc, id asc").
		Find(&receipts).Error
	if err != nil {
		return nil, err
	}
	return receipts, nil
}
