// Package seed bootstraps a usable school on first startup so local and
// self-hosted deployments work out of the box.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoSchoolName = "Mbogo Hill Academy"
	demoCurrency   = "UGX"
)

// EnsureSchoolWithID seeds a school under a fixed ID, used when the
// deployment pins DEFAULT_SCHOOL. Only the school row and its Alumni
// sentinel grade are created; catalog data comes from the API.
func EnsureSchoolWithID(db *gorm.DB, id int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var school schooldomain.School
		err := tx.WithContext(ctx).Where("id = ?", id).First(&school).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		school = schooldomain.School{
			ID:        snowflake.ID(id),
			Name:      "Main",
			Code:      "main",
			Currency:  demoCurrency,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&school).Error; err != nil {
			return err
		}
		_, err = ensureAlumniGradeTx(ctx, tx, node, school.ID)
		return err
	})
}

// EnsureDemoSchool seeds a complete demo school: an active academic year
// with three terms, grades P1 through P7 with one class each, fee structures
// for every term and grade, and a small student roster. Safe to run on every
// startup.
func EnsureDemoSchool(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		school, created, err := ensureDemoSchoolTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		if _, err := ensureAlumniGradeTx(ctx, tx, node, school.ID); err != nil {
			return err
		}

		year, terms, err := seedAcademicYearTx(ctx, tx, node, school.ID)
		if err != nil {
			return err
		}

		grades, classes, err := seedGradesTx(ctx, tx, node, school.ID)
		if err != nil {
			return err
		}

		if err := seedFeeStructuresTx(ctx, tx, node, school.ID, year.ID, terms, grades); err != nil {
			return err
		}

		if err := seedStudentsTx(ctx, tx, node, school.ID, grades, classes); err != nil {
			return err
		}

		return seedPromotionCriteriaTx(ctx, tx, node, school.ID, grades)
	})
}

func ensureDemoSchoolTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (schooldomain.School, bool, error) {
	code := slug.Make(demoSchoolName)

	var school schooldomain.School
	err := tx.WithContext(ctx).Where("code = ?", code).First(&school).Error
	if err == nil {
		return school, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return school, false, err
	}

	now := time.Now().UTC()
	school = schooldomain.School{
		ID:        node.Generate(),
		Name:      demoSchoolName,
		Code:      code,
		Currency:  demoCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&school).Error; err != nil {
		return school, false, err
	}
	return school, true, nil
}

func ensureAlumniGradeTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, schoolID snowflake.ID) (schooldomain.Grade, error) {
	var grade schooldomain.Grade
	err := tx.WithContext(ctx).
		Where("school_id = ? AND is_alumni = ?", schoolID, true).
		First(&grade).Error
	if err == nil {
		return grade, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return grade, err
	}

	grade = schooldomain.Grade{
		ID:        node.Generate(),
		SchoolID:  schoolID,
		Name:      "Alumni",
		Level:     0,
		IsAlumni:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&grade).Error; err != nil {
		return grade, err
	}
	return grade, nil
}

func seedAcademicYearTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, schoolID snowflake.ID) (schooldomain.AcademicYear, []schooldomain.Term, error) {
	now := time.Now().UTC()

	year := schooldomain.AcademicYear{
		ID:        node.Generate(),
		SchoolID:  schoolID,
		Label:     fmt.Sprintf("%d", now.Year()),
		StartsOn:  time.Date(now.Year(), time.February, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:    time.Date(now.Year(), time.December, 5, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
		CreatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&year).Error; err != nil {
		return year, nil, err
	}

	// Ugandan school calendar: three terms with holiday gaps.
	windows := []struct {
		name       string
		start, end time.Time
	}{
		{"Term 1", year.StartsOn, time.Date(now.Year(), time.May, 3, 0, 0, 0, 0, time.UTC)},
		{"Term 2", time.Date(now.Year(), time.May, 25, 0, 0, 0, 0, time.UTC), time.Date(now.Year(), time.August, 21, 0, 0, 0, 0, time.UTC)},
		{"Term 3", time.Date(now.Year(), time.September, 14, 0, 0, 0, 0, time.UTC), year.EndsOn},
	}

	terms := make([]schooldomain.Term, 0, len(windows))
	for i, w := range windows {
		term := schooldomain.Term{
			ID:             node.Generate(),
			SchoolID:       schoolID,
			AcademicYearID: year.ID,
			Name:           w.name,
			Position:       i + 1,
			StartsOn:       w.start,
			EndsOn:         w.end,
			CreatedAt:      now,
		}
		if err := tx.WithContext(ctx).Create(&term).Error; err != nil {
			return year, nil, err
		}
		terms = append(terms, term)
	}
	return year, terms, nil
}

func seedGradesTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, schoolID snowflake.ID) ([]schooldomain.Grade, []schooldomain.ClassRoom, error) {
	now := time.Now().UTC()

	grades := make([]schooldomain.Grade, 0, 7)
	classes := make([]schooldomain.ClassRoom, 0, 7)
	for level := 1; level <= 7; level++ {
		grade := schooldomain.Grade{
			ID:         node.Generate(),
			SchoolID:   schoolID,
			Name:       fmt.Sprintf("P%d", level),
			Level:      level,
			IsTerminal: level == 7,
			CreatedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&grade).Error; err != nil {
			return nil, nil, err
		}
		grades = append(grades, grade)

		class := schooldomain.ClassRoom{
			ID:        node.Generate(),
			SchoolID:  schoolID,
			GradeID:   grade.ID,
			Name:      fmt.Sprintf("%s East", grade.Name),
			Stream:    "East",
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).Create(&class).Error; err != nil {
			return nil, nil, err
		}
		classes = append(classes, class)
	}
	return grades, classes, nil
}

func seedFeeStructuresTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, schoolID, yearID snowflake.ID, terms []schooldomain.Term, grades []schooldomain.Grade) error {
	now := time.Now().UTC()

	for _, grade := range grades {
		// Upper primary pays more for boarding and exam preparation.
		tuition := int64(450_000)
		if grade.Level >= 5 {
			tuition = 600_000
		}
		breakdown := datatypes.JSON(fmt.Sprintf(
			`[{"label":"Tuition","amount":%d},{"label":"Lunch","amount":120000},{"label":"Development","amount":30000}]`,
			tuition,
		))
		total := tuition + 120_000 + 30_000

		for _, term := range terms {
			fee := feedomain.FeeStructure{
				ID:             node.Generate(),
				SchoolID:       schoolID,
				AcademicYearID: yearID,
				TermID:         term.ID,
				GradeID:        grade.ID,
				Name:           fmt.Sprintf("%s %s Fees", grade.Name, term.Name),
				TotalAmount:    total,
				Breakdown:      breakdown,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.WithContext(ctx).Create(&fee).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func seedPromotionCriteriaTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, schoolID snowflake.ID, grades []schooldomain.Grade) error {
	now := time.Now().UTC()

	items, err := json.Marshal([]promotiondomain.CriteriaItem{
		{Type: promotiondomain.CriteriaGrade, Name: "Average grade", Limit: 50, Unit: "percent"},
		{Type: promotiondomain.CriteriaAttendance, Name: "Attendance", Limit: 75, Unit: "percent"},
	})
	if err != nil {
		return err
	}

	for _, grade := range grades {
		criteria := promotiondomain.PromotionCriteria{
			ID:             node.Generate(),
			SchoolID:       schoolID,
			ClassLevel:     grade.Level,
			Name:           "Standard Promotion",
			CustomCriteria: datatypes.JSON(items),
			Priority:       1,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.WithContext(ctx).Create(&criteria).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedStudentsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, schoolID snowflake.ID, grades []schooldomain.Grade, classes []schooldomain.ClassRoom) error {
	now := time.Now().UTC()

	names := []struct{ first, last string }{
		{"Amina", "Nakato"},
		{"Brian", "Okello"},
		{"Catherine", "Achen"},
		{"David", "Mugisha"},
		{"Esther", "Namutebi"},
		{"Frank", "Ssentongo"},
		{"Grace", "Atim"},
	}

	admission := 1
	for i, grade := range grades {
		class := classes[i]
		for _, n := range names {
			classID := class.ID
			student := schooldomain.Student{
				ID:          node.Generate(),
				SchoolID:    schoolID,
				GradeID:     grade.ID,
				ClassRoomID: &classID,
				FirstName:   n.first,
				LastName:    n.last,
				AdmissionNo: fmt.Sprintf("ADM-%04d", admission),
				IsActive:    true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&student).Error; err != nil {
				return err
			}
			admission++
		}
	}
	return nil
}
