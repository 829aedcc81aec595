package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() promotiondomain.Repository {
	return &repo{}
}

func (r *repo) InsertCriteria(ctx context.Context, db *gorm.DB, c *promotiondomain.PromotionCriteria) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO promotion_criteria (
			id, school_id, class_level, name, custom_criteria,
			priority, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.SchoolID,
		c.ClassLevel,
		c.Name,
		c.CustomCriteria,
		c.Priority,
		c.IsActive,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) ListActiveCriteria(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, classLevel int) ([]promotiondomain.PromotionCriteria, error) {
	var sets []promotiondomain.PromotionCriteria
	err := db.WithContext(ctx).
		Where("school_id = ? AND class_level = ? AND is_active = ?", schoolID, classLevel, true).
		Order("priority asc, created_at asc").
		Find(&sets).Error
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *repo) ListCriteria(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]promotiondomain.PromotionCriteria, error) {
	var sets []promotiondomain.PromotionCriteria
	err := db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("class_level asc, priority asc").
		Find(&sets).Error
	if err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *repo) FindCriteria(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*promotiondomain.PromotionCriteria, error) {
	var criteria promotiondomain.PromotionCriteria
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, class_level, name, custom_criteria,
		 priority, is_active, created_at, updated_at
		 FROM promotion_criteria WHERE school_id = ? AND id = ?`,
		schoolID,
		id,
	).Scan(&criteria).Error
	if err != nil {
		return nil, err
	}
	if criteria.ID == 0 {
		return nil, nil
	}
	return &criteria, nil
}

func (r *repo) UpdateCriteria(ctx context.Context, db *gorm.DB, c *promotiondomain.PromotionCriteria) error {
	c.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE promotion_criteria
		 SET class_level = ?, name = ?, custom_criteria = ?, priority = ?, is_active = ?, updated_at = ?
		 WHERE school_id = ? AND id = ?`,
		c.ClassLevel,
		c.Name,
		c.CustomCriteria,
		c.Priority,
		c.IsActive,
		c.UpdatedAt,
		c.SchoolID,
		c.ID,
	).Error
}

func (r *repo) InsertProgression(ctx context.Context, db *gorm.DB, p *promotiondomain.ClassProgression) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO class_progressions (
			id, school_id, from_class_room_id, to_class_room_id, created_at
		) VALUES (?, ?, ?, ?, ?)`,
		p.ID,
		p.SchoolID,
		p.FromClassRoomID,
		p.ToClassRoomID,
		p.CreatedAt,
	).Error
}

func (r *repo) ListProgressions(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]promotiondomain.ClassProgression, error) {
	var progressions []promotiondomain.ClassProgression
	err := db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("created_at asc, id asc").
		Find(&progressions).Error
	if err != nil {
		return nil, err
	}
	return progressions, nil
}

func (r *repo) FindProgressionFrom(ctx context.Context, db *gorm.DB, schoolID, fromClassRoomID snowflake.ID) (*promotiondomain.ClassProgression, error) {
	var progression promotiondomain.ClassProgression
	err := db.WithContext(ctx).Raw(
		`SELECT id, school_id, from_class_room_id, to_class_room_id, created_at
		 FROM class_progressions WHERE school_id = ? AND from_class_room_id = ?`,
		schoolID,
		fromClassRoomID,
	).Scan(&progression).Error
	if err != nil {
		return nil, err
	}
	if progression.ID == 0 {
		return nil, nil
	}
	return &progression, nil
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, entry *promotiondomain.PromotionLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO promotion_logs (
			id, school_id, student_id, from_class_room_id, to_class_room_id,
			from_grade_id, to_grade_id, from_year_id, to_year_id,
			criteria_used, manual_override, override_reason, notes, promoted_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SchoolID,
		entry.StudentID,
		entry.FromClassRoomID,
		entry.ToClassRoomID,
		entry.FromGradeID,
		entry.ToGradeID,
		entry.FromYearID,
		entry.ToYearID,
		entry.CriteriaUsed,
		entry.ManualOverride,
		entry.OverrideReason,
		entry.Notes,
		entry.PromotedBy,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListLogsByStudent(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]promotiondomain.PromotionLog, error) {
	var logs []promotiondomain.PromotionLog
	err := db.WithContext(ctx).
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Order("created_at asc, id asc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
