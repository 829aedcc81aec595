package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shulekit/shulekit/internal/school/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindSchool(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.School, error) {
	var school domain.School
	err := db.WithContext(ctx).First(&school, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSchoolNotFound
		}
		return nil, err
	}
	return &school, nil
}

func (r *repo) FindYear(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.AcademicYear, error) {
	var year domain.AcademicYear
	err := db.WithContext(ctx).First(&year, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrYearNotFound
		}
		return nil, err
	}
	return &year, nil
}

func (r *repo) FindActiveYear(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) (*domain.AcademicYear, error) {
	var year domain.AcademicYear
	err := db.WithContext(ctx).
		Where("school_id = ? AND is_active = ?", schoolID, true).
		Order("starts_on desc").
		First(&year).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrYearNotFound
		}
		return nil, err
	}
	return &year, nil
}

func (r *repo) FindPreviousYear(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, year *domain.AcademicYear) (*domain.AcademicYear, error) {
	if year == nil {
		return nil, domain.ErrYearNotFound
	}
	var previous domain.AcademicYear
	err := db.WithContext(ctx).
		Where("school_id = ? AND ends_on <= ?", schoolID, year.StartsOn).
		Order("ends_on desc").
		First(&previous).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &previous, nil
}

func (r *repo) FindNextYear(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, year *domain.AcademicYear) (*domain.AcademicYear, error) {
	if year == nil {
		return nil, domain.ErrYearNotFound
	}
	var next domain.AcademicYear
	err := db.WithContext(ctx).
		Where("school_id = ? AND starts_on >= ? AND id <> ?", schoolID, year.EndsOn, year.ID).
		Order("starts_on asc").
		First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &next, nil
}

func (r *repo) ListTerms(ctx context.Context, db *gorm.DB, yearID snowflake.ID) ([]domain.Term, error) {
	var terms []domain.Term
	err := db.WithContext(ctx).
		Where("academic_year_id = ?", yearID).
		Order("position asc").
		Find(&terms).Error
	if err != nil {
		return nil, err
	}
	return terms, nil
}

func (r *repo) FindTerm(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Term, error) {
	var term domain.Term
	err := db.WithContext(ctx).First(&term, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTermNotFound
		}
		return nil, err
	}
	return &term, nil
}

func (r *repo) FindGrade(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.Grade, error) {
	var grade domain.Grade
	err := db.WithContext(ctx).First(&grade, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGradeNotFound
		}
		return nil, err
	}
	return &grade, nil
}

func (r *repo) FindGradeByLevel(ctx context.Context, db *gorm.DB, schoolID snowflake.ID, level int) (*domain.Grade, error) {
	var grade domain.Grade
	err := db.WithContext(ctx).
		Where("school_id = ? AND level = ? AND is_alumni = ?", schoolID, level, false).
		First(&grade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGradeNotFound
		}
		return nil, err
	}
	return &grade, nil
}

func (r *repo) FindAlumniGrade(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) (*domain.Grade, error) {
	var grade domain.Grade
	err := db.WithContext(ctx).
		Where("school_id = ? AND is_alumni = ?", schoolID, true).
		First(&grade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGradeNotFound
		}
		return nil, err
	}
	return &grade, nil
}

func (r *repo) FindClassRoom(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.ClassRoom, error) {
	var class domain.ClassRoom
	err := db.WithContext(ctx).First(&class, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrClassNotFound
		}
		return nil, err
	}
	return &class, nil
}

func (r *repo) FindClassRoomByGradeStream(ctx context.Context, db *gorm.DB, schoolID, gradeID snowflake.ID, stream string) (*domain.ClassRoom, error) {
	var class domain.ClassRoom
	err := db.WithContext(ctx).
		Where("school_id = ? AND grade_id = ? AND stream = ?", schoolID, gradeID, stream).
		First(&class).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrClassNotFound
		}
		return nil, err
	}
	return &class, nil
}

func (r *repo) FindStudent(ctx context.Context, db *gorm.DB, schoolID, id snowflake.ID) (*domain.Student, error) {
	var student domain.Student
	err := db.WithContext(ctx).First(&student, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (r *repo) ListActiveStudentsByClass(ctx context.Context, db *gorm.DB, schoolID, classRoomID snowflake.ID) ([]domain.Student, error) {
	var students []domain.Student
	err := db.WithContext(ctx).
		Where("school_id = ? AND class_room_id = ? AND is_active = ?", schoolID, classRoomID, true).
		Order("admission_no asc").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repo) ListActiveStudents(ctx context.Context, db *gorm.DB, schoolID snowflake.ID) ([]domain.Student, error) {
	var students []domain.Student
	err := db.WithContext(ctx).
		Where("school_id = ? AND is_active = ?", schoolID, true).
		Order("admission_no asc").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *repo) UpdateStudentClass(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	student.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.Student{}).
		Where("id = ?", student.ID).
		Updates(map[string]interface{}{
			"grade_id":      student.GradeID,
			"class_room_id": student.ClassRoomID,
			"is_active":     student.IsActive,
			"updated_at":    student.UpdatedAt,
		}).Error
}

func (r *repo) InsertAlumni(ctx context.Context, db *gorm.DB, alumni *domain.Alumni) error {
	return db.WithContext(ctx).Create(alumni).Error
}

func (r *repo) FindAcademics(ctx context.Context, db *gorm.DB, studentID, yearID snowflake.ID) (*domain.StudentAcademics, error) {
	var academics domain.StudentAcademics
	err := db.WithContext(ctx).
		Where("student_id = ? AND academic_year_id = ?", studentID, yearID).
		First(&academics).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &academics, nil
}
