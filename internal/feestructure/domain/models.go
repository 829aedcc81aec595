// Package domain contains the fee structure catalog: what a student in a
// given grade owes per term.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// FeeStructure is the charge applied to every student of a grade for one
// term. TotalAmount and all breakdown amounts are in minor currency units.
type FeeStructure struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	SchoolID       snowflake.ID   `gorm:"not null;index" json:"school_id"`
	AcademicYearID snowflake.ID   `gorm:"not null;index" json:"academic_year_id"`
	TermID         snowflake.ID   `gorm:"not null;index:idx_fee_structures_term_grade,priority:1" json:"term_id"`
	GradeID        snowflake.ID   `gorm:"not null;index:idx_fee_structures_term_grade,priority:2" json:"grade_id"`
	Name           string         `gorm:"type:text;not null" json:"name"`
	TotalAmount    int64          `gorm:"not null" json:"total_amount"`
	Breakdown      datatypes.JSON `gorm:"type:jsonb" json:"breakdown"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (FeeStructure) TableName() string { return "fee_structures" }

// BreakdownItem is one labelled component of a fee structure, e.g. tuition
// or boarding.
type BreakdownItem struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// BreakdownItems decodes the stored breakdown. A missing or empty column
// decodes to nil.
func (f *FeeStructure) BreakdownItems() ([]BreakdownItem, error) {
	if len(f.Breakdown) == 0 {
		return nil, nil
	}
	var items []BreakdownItem
	if err := json.Unmarshal(f.Breakdown, &items); err != nil {
		return nil, err
	}
	return items, nil
}
