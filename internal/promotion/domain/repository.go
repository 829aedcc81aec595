package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCriteria(ctx context.Context, db *gorm.DB, criteria *PromotionCriteria) error
	// ListActiveCriteria returns a class level's active sets ordered by
	// priority; the first passing set becomes the primary reason.
	ListActiveCriteria(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, classLevel int) ([]PromotionCriteria, error)
	ListCriteria(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]PromotionCriteria, error)
	FindCriteria(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*PromotionCriteria, error)
	UpdateCriteria(ctx context.Context, db *gorm.DB, criteria *PromotionCriteria) error

	InsertProgression(ctx context.Context, db *gorm.DB, progression *ClassProgression) error
	ListProgressions(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]ClassProgression, error)
	FindProgressionFrom(ctx context.Context, db *gorm.DB, schoolID, fromClassRoomID snowflake.ID) (*ClassProgression, error)

	InsertLog(ctx context.Context, db *gorm.DB, log *PromotionLog) error
	ListLogsByStudent(ctx context.Context, db *gorm.DB, schoolID, studentID snowflake.ID) ([]PromotionLog, error)
}
