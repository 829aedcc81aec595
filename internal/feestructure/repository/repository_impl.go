package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() feedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, f *feedomain.FeeStructure) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_structures (
			id, school_id, academic_year_id, term_id, grade_id,
			name, total_amount, breakdown, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID,
		f.SchoolID,
		f.AcademicYearID,
		f.TermID,
		f.GradeID,
		f.Name,
		f.TotalAmount,
		f.Breakdown,
		f.CreatedAt,
		f.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*feedomain.FeeStructure, error) {
	var f feedomain.FeeStructure
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, academic_year_id, term_id, grade_id,
		 name, total_amount, breakdown, created_at, updated_at
		 FROM fee_structures WHERE school_id = ? AND id = ?`,
		schoolID,
		id,
	).Scan(&f).Error
	if err != nil {
		return nil, err
	}
	if f.ID == 0 {
		return nil, nil
	}
	return &f, nil
}

func (r *repo) ListByYearGrade(ctx context.Context, db *gorm.DB, schoolID, yearID, gradeID snowflake.ID) ([]feedomain.FeeStructure, error) {
	var items []feedomain.FeeStructure
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, academic_year_id, term_id, grade_id,
		 name, total_amount, breakdown, created_at, updated_at
		 FROM fee_structures
		 WHERE school_id = ? AND academic_year_id = ? AND grade_id = ?
		 ORDER BY created_at ASC, id ASC`,
		schoolID,
		yearID,
		gradeID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByYear(ctx context.Context, db *gorm.DB, schoolID, yearID snowflake.ID) ([]feedomain.FeeStructure, error) {
	var items []feedomain.FeeStructure
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, academic_year_id, term_id, grade_id,
		 name, total_amount, breakdown, created_at, updated_at
		 FROM fee_structures
		 WHERE school_id = ? AND academic_year_id = ?
		 ORDER BY created_at ASC, id ASC`,
		schoolID,
		yearID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, f *feedomain.FeeStructure) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_structures
		 SET name = ?, total_amount = ?, breakdown = ?, updated_at = ?
		 WHERE school_id = ? AND id = ?`,
		f.Name,
		f.TotalAmount,
		f.Breakdown,
		f.UpdatedAt,
		f.SchoolID,
		f.ID,
	).Error
}

func (r *repo) InUse(ctx context.Context, db *gorm.DB, f *feedomain.FeeStructure) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM payments p
		 JOIN students s ON s.id = p.student_id
		 WHERE p.school_id = ? AND p.academic_year_id = ? AND p.term_id = ? AND s.grade_id = ?`,
		f.SchoolID,
		f.AcademicYearID,
		f.TermID,
		f.GradeID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM fee_structures WHERE school_id = ? AND id = ?`,
		schoolID,
		id,
	).Error
}
