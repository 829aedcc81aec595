// Package domain contains persistence models for the school catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// School is a tenant. Every other record is scoped to a school.
type School struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Currency  string       `gorm:"type:text;not null" json:"currency"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (School) TableName() string { return "schools" }

// AcademicYear is a billing and promotion cycle, e.g. "2026".
type AcademicYear struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID  snowflake.ID `gorm:"not null;index" json:"school_id"`
	Label     string       `gorm:"type:text;not null" json:"label"`
	StartsOn  time.Time    `gorm:"not null" json:"starts_on"`
	EndsOn    time.Time    `gorm:"not null" json:"ends_on"`
	IsActive  bool         `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AcademicYear) TableName() string { return "academic_years" }

// Term is one of the ordered periods within an academic year.
type Term struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID       snowflake.ID `gorm:"not null;index" json:"school_id"`
	AcademicYearID snowflake.ID `gorm:"not null;index" json:"academic_year_id"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	Position       int          `gorm:"not null" json:"position"`
	StartsOn       time.Time    `gorm:"not null" json:"starts_on"`
	EndsOn         time.Time    `gorm:"not null" json:"ends_on"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Term) TableName() string { return "terms" }

// Grade is an academic level. The Alumni sentinel grade (IsAlumni=true) is
// seeded at school initialization so terminal promotions never have to create
// it mid-transaction.
type Grade struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID   snowflake.ID `gorm:"not null;index" json:"school_id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	Level      int          `gorm:"not null" json:"level"`
	IsTerminal bool         `gorm:"not null;default:false" json:"is_terminal"`
	IsAlumni   bool         `gorm:"not null;default:false" json:"is_alumni"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Grade) TableName() string { return "grades" }

// ClassRoom is a named class within a grade, e.g. "Grade 4 East".
type ClassRoom struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID  snowflake.ID `gorm:"not null;index" json:"school_id"`
	GradeID   snowflake.ID `gorm:"not null;index" json:"grade_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Stream    string       `gorm:"type:text" json:"stream"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ClassRoom) TableName() string { return "class_rooms" }

// Student class membership transitions only through promotion: either to the
// next class or to Alumni (ClassRoomID cleared, IsActive false).
type Student struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	SchoolID    snowflake.ID  `gorm:"not null;index" json:"school_id"`
	GradeID     snowflake.ID  `gorm:"not null;index" json:"grade_id"`
	ClassRoomID *snowflake.ID `gorm:"index" json:"class_room_id"`
	FirstName   string        `gorm:"type:text;not null" json:"first_name"`
	LastName    string        `gorm:"type:text;not null" json:"last_name"`
	AdmissionNo string        `gorm:"type:text;not null;index" json:"admission_no"`
	IsActive    bool          `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Student) TableName() string { return "students" }

// Alumni is the write-once record created when a student graduates.
type Alumni struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID        snowflake.ID `gorm:"not null;index" json:"school_id"`
	StudentID       snowflake.ID `gorm:"not null;uniqueIndex" json:"student_id"`
	GraduatedYearID snowflake.ID `gorm:"not null;index" json:"graduated_year_id"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Alumni) TableName() string { return "alumni" }

// StudentAcademics is the read-side academic summary consumed by promotion
// eligibility. It is produced by the grading subsystem, which is outside this
// service; we only read it.
type StudentAcademics struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID          snowflake.ID `gorm:"not null;index" json:"school_id"`
	StudentID         snowflake.ID `gorm:"not null;index:idx_academics_student_year,priority:1" json:"student_id"`
	AcademicYearID    snowflake.ID `gorm:"not null;index:idx_academics_student_year,priority:2" json:"academic_year_id"`
	AverageGrade      float64      `gorm:"not null;default:0" json:"average_grade"`
	AttendanceRate    float64      `gorm:"not null;default:0" json:"attendance_rate"`
	DisciplinaryCases int          `gorm:"not null;default:0" json:"disciplinary_cases"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (StudentAcademics) TableName() string { return "student_academics" }
