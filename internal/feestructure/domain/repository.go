package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, structure *FeeStructure) error
	FindByID(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*FeeStructure, error)
	// ListByYearGrade returns the structures for a grade across one academic
	// year, ordered by creation so first-seen-per-term is deterministic.
	ListByYearGrade(ctx context.Context, db *gorm.DB, schoolID, yearID, gradeID snowflake.ID) ([]FeeStructure, error)
	ListByYear(ctx context.Context, db *gorm.DB, schoolID, yearID snowflake.ID) ([]FeeStructure, error)
	Update(ctx context.Context, db *gorm.DB, structure *FeeStructure) error
	Delete(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) error
	// InUse reports whether any payment has been posted against the
	// structure's term for students of its grade. Charged structures are
	// frozen so historical balances stay reproducible.
	InUse(ctx context.Context, db *gorm.DB, structure *FeeStructure) (bool, error)
}
