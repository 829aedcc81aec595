package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, schoolID snowflake.ID, req CreateRequest) (*Response, error)
	Get(ctx context.Context, schoolID snowflake.ID, id string) (*Response, error)
	ListByYear(ctx context.Context, schoolID snowflake.ID, yearID string) ([]Response, error)
	Update(ctx context.Context, schoolID snowflake.ID, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, schoolID snowflake.ID, id string) error
}

type CreateRequest struct {
	AcademicYearID string          `json:"academic_year_id"`
	TermID         string          `json:"term_id"`
	GradeID        string          `json:"grade_id"`
	Name           string          `json:"name"`
	TotalAmount    int64           `json:"total_amount"`
	Breakdown      []BreakdownItem `json:"breakdown"`
}

type UpdateRequest struct {
	Name        *string         `json:"name"`
	TotalAmount *int64          `json:"total_amount"`
	Breakdown   []BreakdownItem `json:"breakdown"`
}

type Response struct {
	ID             snowflake.ID    `json:"id"`
	SchoolID       snowflake.ID    `json:"school_id"`
	AcademicYearID snowflake.ID    `json:"academic_year_id"`
	TermID         snowflake.ID    `json:"term_id"`
	GradeID        snowflake.ID    `json:"grade_id"`
	Name           string          `json:"name"`
	TotalAmount    int64           `json:"total_amount"`
	Breakdown      []BreakdownItem `json:"breakdown,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrBreakdownMismatch = errors.New("breakdown_total_mismatch")
	ErrInUse             = errors.New("fee_structure_in_use")
	ErrNotFound          = errors.New("not_found")
)
