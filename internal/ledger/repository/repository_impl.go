package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) InsertYearClose(ctx context.Context, db *gorm.DB, close *ledgerdomain.YearClose) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO year_closes (
			id, school_id, student_id, academic_year_id,
			closing_balance, closed_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		close.ID,
		close.SchoolID,
		close.StudentID,
		close.AcademicYearID,
		close.ClosingBalance,
		close.ClosedBy,
		close.CreatedAt,
	).Error
}

func (r *repo) FindYearClose(ctx context.Context, db *gorm.DB, schoolID, studentID, yearID snowflake.ID) (*ledgerdomain.YearClose, error) {
	var close ledgerdomain.YearClose
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, student_id, academic_year_id,
		 closing_balance, closed_by, created_at
		 FROM year_closes
		 WHERE school_id = ? AND student_id = ? AND academic_year_id = ?`,
		schoolID,
		studentID,
		yearID,
	).Scan(&close).Error
	if err != nil {
		return nil, err
	}
	if close.ID == 0 {
		return nil, nil
	}
	return &close, nil
}

func (r *repo) ListYearCloses(ctx context.Context, db *gorm.DB, schoolID, yearID snowflake.ID) ([]ledgerdomain.YearClose, error) {
	var closes []ledgerdomain.YearClose
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, student_id, academic_year_id,
		 closing_balance, closed_by, created_at
		 FROM year_closes
		 WHERE school_id = ? AND academic_year_id = ?
		 ORDER BY created_at ASC, id ASC`,
		schoolID,
		yearID,
	).Scan(&closes).Error
	if err != nil {
		return nil, err
	}
	return closes, nil
}
