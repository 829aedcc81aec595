package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertYearClose(ctx context.Context, db *gorm.DB, close *YearClose) error
	FindYearClose(ctx context.Context, db *gorm.DB, schoolID, studentID, yearID snowflake.ID) (*YearClose, error)
	ListYearCloses(ctx context.Context, db *gorm.DB, schoolID, yearID snowflake.ID) ([]YearClose, error)
}
