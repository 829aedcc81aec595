// Package domain contains promotion criteria, progression rules, and the
// immutable promotion audit log.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CriteriaType string

const (
	CriteriaGrade        CriteriaType = "grade"
	CriteriaFeeBalance   CriteriaType = "fee_balance"
	CriteriaAttendance   CriteriaType = "attendance"
	CriteriaDisciplinary CriteriaType = "disciplinary"
	// CriteriaCustom is a school-defined rule with no automatic fact source.
	// It is recorded in the evaluation; a required custom item holds the
	// student until a manual override.
	CriteriaCustom CriteriaType = "custom"
)

// CriteriaItem is one rule inside a criteria set. Limit is interpreted per
// type: a minimum for grade and attendance, a maximum for fee balance (minor
// currency units) and disciplinary cases. IsRequired tightens fee items to
// "full payment required" and disciplinary items to "clean record required".
type CriteriaItem struct {
	Type       CriteriaType `json:"type"`
	Name       string       `json:"name"`
	Limit      float64      `json:"limit"`
	Unit       string       `json:"unit,omitempty"`
	IsRequired bool         `json:"is_required"`
}

// PromotionCriteria is one criteria set for a class level. A student passes
// a set only when every item passes; sets across a level are alternatives.
type PromotionCriteria struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	SchoolID       snowflake.ID   `gorm:"not null;index:idx_promotion_criteria_school_level,priority:1" json:"school_id"`
	ClassLevel     int            `gorm:"not null;index:idx_promotion_criteria_school_level,priority:2" json:"class_level"`
	Name           string         `gorm:"type:text;not null" json:"name"`
	CustomCriteria datatypes.JSON `gorm:"type:jsonb;not null" json:"custom_criteria"`
	Priority       int            `gorm:"not null;default:0" json:"priority"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PromotionCriteria) TableName() string { return "promotion_criteria" }

// Items decodes the stored criteria items.
func (c *PromotionCriteria) Items() ([]CriteriaItem, error) {
	if len(c.CustomCriteria) == 0 {
		return nil, nil
	}
	var items []CriteriaItem
	if err := json.Unmarshal(c.CustomCriteria, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ClassProgression maps a class to its successor. When absent, promotion
// falls back to the next grade level with the same stream.
type ClassProgression struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID        snowflake.ID `gorm:"not null;index" json:"school_id"`
	FromClassRoomID snowflake.ID `gorm:"not null;uniqueIndex" json:"from_class_room_id"`
	ToClassRoomID   snowflake.ID `gorm:"not null" json:"to_class_room_id"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ClassProgression) TableName() string { return "class_progressions" }

// PromotionLog is written once per promoted student per promotion event.
type PromotionLog struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	SchoolID        snowflake.ID   `gorm:"not null;index" json:"school_id"`
	StudentID       snowflake.ID   `gorm:"not null;index" json:"student_id"`
	FromClassRoomID *snowflake.ID  `json:"from_class_room_id"`
	ToClassRoomID   *snowflake.ID  `json:"to_class_room_id"`
	FromGradeID     snowflake.ID   `gorm:"not null" json:"from_grade_id"`
	ToGradeID       snowflake.ID   `gorm:"not null" json:"to_grade_id"`
	FromYearID      snowflake.ID   `gorm:"not null;index" json:"from_year_id"`
	ToYearID        snowflake.ID   `gorm:"not null" json:"to_year_id"`
	CriteriaUsed    datatypes.JSON `gorm:"type:jsonb" json:"criteria_used"`
	ManualOverride  bool           `gorm:"not null;default:false" json:"manual_override"`
	OverrideReason  string         `gorm:"type:text" json:"override_reason"`
	Notes           string         `gorm:"type:text" json:"notes"`
	PromotedBy      string         `gorm:"type:text;not null" json:"promoted_by"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PromotionLog) TableName() string { return "promotion_logs" }
