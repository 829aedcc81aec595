package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateCriteria(ctx context.Context, schoolID snowflake.ID, req CriteriaRequest) (*PromotionCriteria, error)
	ListCriteria(ctx context.Context, schoolID snowflake.ID) ([]PromotionCriteria, error)
	UpdateCriteria(ctx context.Context, schoolID snowflake.ID, id string, req CriteriaRequest) (*PromotionCriteria, error)
	CreateProgression(ctx context.Context, schoolID snowflake.ID, req ProgressionRequest) (*ClassProgression, error)
	ListProgressions(ctx context.Context, schoolID snowflake.ID) ([]ClassProgression, error)
	ListLogs(ctx context.Context, schoolID snowflake.ID, studentID string) ([]PromotionLog, error)

	Evaluate(ctx context.Context, schoolID snowflake.ID, req EvaluateRequest) (*EligibilityResult, error)
	PromoteClass(ctx context.Context, schoolID snowflake.ID, req PromoteClassRequest) (*PromotionResult, error)
	PromoteSchool(ctx context.Context, schoolID snowflake.ID, req PromoteSchoolRequest) (*PromotionResult, error)
}

type CriteriaRequest struct {
	ClassLevel int            `json:"class_level"`
	Name       string         `json:"name"`
	Items      []CriteriaItem `json:"items"`
	Priority   int            `json:"priority"`
	IsActive   *bool          `json:"is_active"`
}

type ProgressionRequest struct {
	FromClassRoomID string `json:"from_class_room_id"`
	ToClassRoomID   string `json:"to_class_room_id"`
}

type EvaluateRequest struct {
	StudentID      string `json:"student_id"`
	AcademicYearID string `json:"academic_year_id"`
}

type ItemResult struct {
	Type   CriteriaType `json:"type"`
	Name   string       `json:"name"`
	Passed bool         `json:"passed"`
	Reason string       `json:"reason,omitempty"`
}

type CriteriaResult struct {
	CriteriaID snowflake.ID `json:"criteria_id"`
	Name       string       `json:"name"`
	Passed     bool         `json:"passed"`
	Items      []ItemResult `json:"items"`
}

// EligibilityResult reports the overall verdict plus every set's item-level
// outcome so a failed student sees each reason. DefaultAllowed is true when
// the class level has no configured sets and the manual-promotion fallback
// applied.
type EligibilityResult struct {
	IsEligible     bool             `json:"is_eligible"`
	DefaultAllowed bool             `json:"default_allowed"`
	PrimarySetID   snowflake.ID     `json:"primary_set_id,omitempty"`
	Results        []CriteriaResult `json:"results"`
}

type PromoteClassRequest struct {
	ClassRoomID    string   `json:"class_room_id"`
	AcademicYearID string   `json:"academic_year_id"`
	ToYearID       string   `json:"to_year_id"`
	StudentIDs     []string `json:"student_ids"`
	ManualOverride bool     `json:"manual_override"`
	OverrideReason string   `json:"override_reason"`
	Notes          string   `json:"notes"`
	PromotedBy     string   `json:"promoted_by"`
}

type PromoteSchoolRequest struct {
	AcademicYearID string `json:"academic_year_id"`
	ToYearID       string `json:"to_year_id"`
	Notes          string `json:"notes"`
	PromotedBy     string `json:"promoted_by"`
}

type Exclusion struct {
	StudentID snowflake.ID `json:"student_id"`
	Reason    string       `json:"reason"`
}

// PromotionResult is the batch breakdown: one student's failure never fails
// the request.
type PromotionResult struct {
	Promoted []snowflake.ID `json:"promoted"`
	Excluded []Exclusion    `json:"excluded"`
	Errors   []string       `json:"errors"`
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidClassLevel = errors.New("invalid_class_level")
	ErrInvalidCriteria   = errors.New("invalid_criteria")
	ErrMissingPromotedBy = errors.New("missing_promoted_by")
	ErrCriteriaNotFound  = errors.New("criteria_not_found")
	ErrRunInProgress     = errors.New("promotion_run_in_progress")
	ErrMissingOverride   = errors.New("missing_override_reason")
)
