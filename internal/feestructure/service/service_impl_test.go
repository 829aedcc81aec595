package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shulekit/shulekit/internal/cache"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	feerepo "github.com/shulekit/shulekit/internal/feestructure/repository"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	schoolrepo "github.com/shulekit/shulekit/internal/school/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type feeEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      feedomain.Service
	schoolID snowflake.ID
	year     *schooldomain.AcademicYear
	term     schooldomain.Term
	grade    *schooldomain.Grade
}

func newFeeEnv(t *testing.T) *feeEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&schooldomain.School{},
		&schooldomain.AcademicYear{},
		&schooldomain.Term{},
		&schooldomain.Grade{},
		&schooldomain.Student{},
		&feedomain.FeeStructure{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	env := &feeEnv{db: db, node: node}
	env.svc = New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       feerepo.Provide(),
		SchoolRepo: schoolrepo.Provide(),
		Catalog:    cache.NewFeeCatalogCache(),
	})

	env.schoolID = node.Generate()
	require.NoError(t, db.Create(&schooldomain.School{
		ID: env.schoolID, Name: "Hillside Primary", Code: "hillside-primary", Currency: "UGX",
	}).Error)

	starts := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	env.year = &schooldomain.AcademicYear{
		ID: node.Generate(), SchoolID: env.schoolID, Label: "2026",
		StartsOn: starts, EndsOn: starts.AddDate(0, 11, 0), IsActive: true,
	}
	require.NoError(t, db.Create(env.year).Error)

	env.term = schooldomain.Term{
		ID: node.Generate(), SchoolID: env.schoolID, AcademicYearID: env.year.ID,
		Name: "Term 1", Position: 1, StartsOn: starts, EndsOn: starts.AddDate(0, 3, 0),
	}
	require.NoError(t, db.Create(&env.term).Error)

	env.grade = &schooldomain.Grade{ID: node.Generate(), SchoolID: env.schoolID, Name: "Grade 4", Level: 4}
	require.NoError(t, db.Create(env.grade).Error)

	return env
}

func (e *feeEnv) createRequest(total int64, breakdown []feedomain.BreakdownItem) feedomain.CreateRequest {
	return feedomain.CreateRequest{
		AcademicYearID: e.year.ID.String(),
		TermID:         e.term.ID.String(),
		GradeID:        e.grade.ID.String(),
		Name:           "Term 1 Fees",
		TotalAmount:    total,
		Breakdown:      breakdown,
	}
}

func TestCreateFeeStructure(t *testing.T) {
	env := newFeeEnv(t)
	ctx := context.Background()

	resp, err := env.svc.Create(ctx, env.schoolID, env.createRequest(600_000, []feedomain.BreakdownItem{
		{Label: "Tuition", Amount: 450_000},
		{Label: "Lunch", Amount: 150_000},
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(600_000), resp.TotalAmount)
	assert.Len(t, resp.Breakdown, 2)

	fetched, err := env.svc.Get(ctx, env.schoolID, resp.ID.String())
	require.NoError(t, err)
	assert.Equal(t, resp.ID, fetched.ID)
	assert.Equal(t, "Term 1 Fees", fetched.Name)
}

func TestCreateFeeStructureValidation(t *testing.T) {
	env := newFeeEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.schoolID, env.createRequest(0, nil))
	assert.ErrorIs(t, err, feedomain.ErrInvalidAmount)

	req := env.createRequest(600_000, []feedomain.BreakdownItem{{Label: "Tuition", Amount: 450_000}})
	_, err = env.svc.Create(ctx, env.schoolID, req)
	assert.ErrorIs(t, err, feedomain.ErrBreakdownMismatch)

	req = env.createRequest(600_000, nil)
	req.Name = "  "
	_, err = env.svc.Create(ctx, env.schoolID, req)
	assert.ErrorIs(t, err, feedomain.ErrInvalidName)

	req = env.createRequest(600_000, nil)
	req.TermID = "not-a-number"
	_, err = env.svc.Create(ctx, env.schoolID, req)
	assert.ErrorIs(t, err, feedomain.ErrInvalidID)
}

func TestCreateFeeStructureRejectsTermFromOtherYear(t *testing.T) {
	env := newFeeEnv(t)
	ctx := context.Background()

	otherYear := &schooldomain.AcademicYear{
		ID: env.node.Generate(), SchoolID: env.schoolID, Label: "2027",
		StartsOn: env.year.EndsOn.AddDate(0, 2, 0), EndsOn: env.year.EndsOn.AddDate(1, 1, 0),
	}
	require.NoError(t, env.db.Create(otherYear).Error)

	req := env.createRequest(600_000, nil)
	req.AcademicYearID = otherYear.ID.String()
	_, err := env.svc.Create(ctx, env.schoolID, req)
	assert.ErrorIs(t, err, schooldomain.ErrTermNotFound)
}

func TestUpdateFeeStructure(t *testing.T) {
	env := newFeeEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, env.schoolID, env.createRequest(600_000, nil))
	require.NoError(t, err)

	newName := "Term 1 Fees (Revised)"
	newTotal := int64(650_000)
	updated, err := env.svc.Update(ctx, env.schoolID, created.ID.String(), feedomain.UpdateRequest{
		Name:        &newName,
		TotalAmount: &newTotal,
		Breakdown: []feedomain.BreakdownItem{
			{Label: "Tuition", Amount: 500_000},
			{Label: "Lunch", Amount: 150_000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, newTotal, updated.TotalAmount)
	assert.Len(t, updated.Breakdown, 2)

	// The stored breakdown must keep summing to the new total.
	badTotal := int64(1_000_000)
	_, err = env.svc.Update(ctx, env.schoolID, created.ID.String(), feedomain.UpdateRequest{TotalAmount: &badTotal})
	assert.ErrorIs(t, err, feedomain.ErrBreakdownMismatch)
}

func TestListFeeStructuresByYear(t *testing.T) {
	env := newFeeEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.schoolID, env.createRequest(600_000, nil))
	require.NoError(t, err)

	items, err := env.svc.ListByYear(ctx, env.schoolID, env.year.ID.String())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	otherSchool := env.node.Generate()
	items, err = env.svc.ListByYear(ctx, otherSchool, env.year.ID.String())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteFeeStructure(t *testing.T) {
	env := newFeeEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, env.schoolID, env.createRequest(600_000, nil))
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, env.schoolID, created.ID.String()))

	_, err = env.svc.Get(ctx, env.schoolID, created.ID.String())
	assert.ErrorIs(t, err, feedomain.ErrNotFound)

	err = env.svc.Delete(ctx, env.schoolID, created.ID.String())
	assert.ErrorIs(t, err, feedomain.ErrNotFound)
}

func TestChargedFeeStructureIsFrozen(t *testing.T) {
	env := newFeeEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, env.schoolID, env.createRequest(600_000, nil))
	require.NoError(t, err)

	student := &schooldomain.Student{
		ID: env.node.Generate(), SchoolID: env.schoolID, GradeID: env.grade.ID,
		FirstName: "Amina", LastName: "Nakato", AdmissionNo: "ADM-0001", IsActive: true,
	}
	require.NoError(t, env.db.Create(student).Error)

	require.NoError(t, env.db.Create(&paymentdomain.Payment{
		ID:             env.node.Generate(),
		SchoolID:       env.schoolID,
		StudentID:      student.ID,
		AcademicYearID: env.year.ID,
		TermID:         env.term.ID,
		Amount:         200_000,
		Method:         paymentdomain.MethodCash,
		PaymentDate:    env.term.StartsOn.AddDate(0, 0, 7),
		ReceivedBy:     "bursar",
	}).Error)

	newTotal := int64(900_000)
	_, err = env.svc.Update(ctx, env.schoolID, created.ID.String(), feedomain.UpdateRequest{TotalAmount: &newTotal})
	assert.ErrorIs(t, err, feedomain.ErrInUse)

	err = env.svc.Delete(ctx, env.schoolID, created.ID.String())
	assert.ErrorIs(t, err, feedomain.ErrInUse)

	// The charged structure survives untouched.
	fetched, err := env.svc.Get(ctx, env.schoolID, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(600_000), fetched.TotalAmount)

	// A structure nobody has paid against stays editable.
	otherGrade := &schooldomain.Grade{ID: env.node.Generate(), SchoolID: env.schoolID, Name: "Grade 5", Level: 5}
	require.NoError(t, env.db.Create(otherGrade).Error)

	req := env.createRequest(500_000, nil)
	req.GradeID = otherGrade.ID.String()
	untouched, err := env.svc.Create(ctx, env.schoolID, req)
	require.NoError(t, err)

	_, err = env.svc.Update(ctx, env.schoolID, untouched.ID.String(), feedomain.UpdateRequest{TotalAmount: &newTotal})
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, env.schoolID, untouched.ID.String()))
}
