package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrSchoolNotFound  = errors.New("school_not_found")
	ErrStudentNotFound = errors.New("student_not_found")
	ErrClassNotFound   = errors.New("class_not_found")
	ErrGradeNotFound   = errors.New("grade_not_found")
	ErrYearNotFound    = errors.New("academic_year_not_found")
	ErrTermNotFound    = errors.New("term_not_found")
)

type Repository interface {
	FindSchool(ctx context.Context, db *gorm.DB, id snowflake.ID) (*School, error)
	FindYear(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*AcademicYear, error)
	FindActiveYear(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) (*AcademicYear, error)
	// FindPreviousYear returns the academic year ending immediately before
	// the given year, or nil when it is the first year on record.
	FindPreviousYear(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, year *AcademicYear) (*AcademicYear, error)
	// FindNextYear returns the academic year starting on or after the given
	// year's end, or nil when none is configured yet.
	FindNextYear(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, year *AcademicYear) (*AcademicYear, error)
	ListTerms(ctx context.Context, db *gorm.DB, yearID snowflake.ID) ([]Term, error)
	FindTerm(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Term, error)

	FindGrade(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*Grade, error)
	FindGradeByLevel(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, level int) (*Grade, error)
	FindAlumniGrade(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) (*Grade, error)
	FindClassRoom(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*ClassRoom, error)
	FindClassRoomByGradeStream(ctx context.Context, db *gorm.DB, schoolID, gradeID snowflake.ID, stream string) (*ClassRoom, error)

	FindStudent(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*Student, error)
	ListActiveStudentsByClass(ctx context.Context, db *gorm.DB, schoolID, classRoomID snowflake.ID) ([]Student, error)
	ListActiveStudents(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]Student, error)
	UpdateStudentClass(ctx context.Context, db *gorm.DB, student *Student) error
	InsertAlumni(ctx context.Context, db *gorm.DB, alumni *Alumni) error

	FindAcademics(ctx context.Context, db *gorm.DB, studentID, yearID snowflake.ID) (*StudentAcademics, error)
}
