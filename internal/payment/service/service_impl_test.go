package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shulekit/shulekit/internal/cache"
	"github.com/shulekit/shulekit/internal/config"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	feerepo "github.com/shulekit/shulekit/internal/feestructure/repository"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	ledgerrepo "github.com/shulekit/shulekit/internal/ledger/repository"
	ledgerservice "github.com/shulekit/shulekit/internal/ledger/service"
	"github.com/shulekit/shulekit/internal/observability/metrics"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	paymentrepo "github.com/shulekit/shulekit/internal/payment/repository"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	schoolrepo "github.com/shulekit/shulekit/internal/school/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type paymentEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      paymentdomain.Service
	ledger   ledgerdomain.Service
	schoolID snowflake.ID
	student  *schooldomain.Student
	grade    *schooldomain.Grade
	year     *schooldomain.AcademicYear
	terms    []schooldomain.Term
}

func newPaymentEnv(t *testing.T, termCount int) *paymentEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&schooldomain.School{},
		&schooldomain.AcademicYear{},
		&schooldomain.Term{},
		&schooldomain.Grade{},
		&schooldomain.ClassRoom{},
		&schooldomain.Student{},
		&feedomain.FeeStructure{},
		&paymentdomain.Payment{},
		&paymentdomain.Receipt{},
		&ledgerdomain.YearClose{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	schoolRepo := schoolrepo.Provide()
	payRepo := paymentrepo.Provide()
	ledgerRepo := ledgerrepo.Provide()
	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	defaults := config.StaticSchoolDefaultsHolder(config.DefaultSchoolDefaults())

	env := &paymentEnv{db: db, node: node}

	env.ledger = ledgerservice.New(ledgerservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		Repo:        ledgerRepo,
		FeeRepo:     feerepo.Provide(),
		PaymentRepo: payRepo,
		SchoolRepo:  schoolRepo,
		Catalog:     cache.NewFeeCatalogCache(),
		Defaults:    defaults,
		Metrics:     m,
	})
	env.svc = New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       payRepo,
		LedgerRepo: ledgerRepo,
		Ledger:     env.ledger,
		SchoolRepo: schoolRepo,
		Defaults:   defaults,
		Metrics:    m,
	})

	env.schoolID = node.Generate()
	require.NoError(t, db.Create(&schooldomain.School{
		ID: env.schoolID, Name: "Hillside Primary", Code: "hillside-primary", Currency: "UGX",
	}).Error)

	env.year = env.createYear(t, "2026", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), termCount, true)
	env.terms = env.termsOf(t, env.year)

	env.grade = &schooldomain.Grade{ID: node.Generate(), SchoolID: env.schoolID, Name: "Grade 4", Level: 4}
	require.NoError(t, db.Create(env.grade).Error)

	class := &schooldomain.ClassRoom{ID: node.Generate(), SchoolID: env.schoolID, GradeID: env.grade.ID, Name: "Grade 4 East", Stream: "East"}
	require.NoError(t, db.Create(class).Error)

	env.student = &schooldomain.Student{
		ID: node.Generate(), SchoolID: env.schoolID, GradeID: env.grade.ID, ClassRoomID: &class.ID,
		FirstName: "Amina", LastName: "Okello", AdmissionNo: "ADM-001", IsActive: true,
	}
	require.NoError(t, db.Create(env.student).Error)

	return env
}

func (e *paymentEnv) createYear(t *testing.T, label string, startsOn time.Time, termCount int, active bool) *schooldomain.AcademicYear {
	t.Helper()
	year := &schooldomain.AcademicYear{
		ID: e.node.Generate(), SchoolID: e.schoolID, Label: label,
		StartsOn: startsOn, EndsOn: startsOn.AddDate(0, 11, 0), IsActive: active,
	}
	require.NoError(t, e.db.Create(year).Error)
	for i := 0; i < termCount; i++ {
		require.NoError(t, e.db.Create(&schooldomain.Term{
			ID: e.node.Generate(), SchoolID: e.schoolID, AcademicYearID: year.ID,
			Name: fmt.Sprintf("Term %d", i+1), Position: i + 1,
			StartsOn: startsOn.AddDate(0, 4*i, 0), EndsOn: startsOn.AddDate(0, 4*i+3, 0),
		}).Error)
	}
	return year
}

func (e *paymentEnv) termsOf(t *testing.T, year *schooldomain.AcademicYear) []schooldomain.Term {
	t.Helper()
	var terms []schooldomain.Term
	require.NoError(t, e.db.Where("academic_year_id = ?", year.ID).Order("position asc").Find(&terms).Error)
	return terms
}

func (e *paymentEnv) addFee(t *testing.T, year *schooldomain.AcademicYear, term schooldomain.Term, amount int64) {
	t.Helper()
	require.NoError(t, e.db.Create(&feedomain.FeeStructure{
		ID: e.node.Generate(), SchoolID: e.schoolID, AcademicYearID: year.ID,
		TermID: term.ID, GradeID: e.grade.ID, Name: "Tuition", TotalAmount: amount,
		CreatedAt: term.StartsOn, UpdatedAt: term.StartsOn,
	}).Error)
}

func TestApplySplitsAcrossTerms(t *testing.T) {
	env := newPaymentEnv(t, 2)
	env.addFee(t, env.year, env.terms[0], 10_000)
	env.addFee(t, env.year, env.terms[1], 10_000)

	result, err := env.svc.Apply(context.Background(), env.schoolID, paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         15_000,
		Method:         paymentdomain.MethodMobileMoney,
		ReceivedBy:     "bursar",
	})
	require.NoError(t, err)

	require.Len(t, result.Payments, 2)
	assert.Equal(t, int64(10_000), result.Payments[0].Amount)
	assert.Equal(t, int64(5_000), result.Payments[1].Amount)
	assert.Equal(t, int64(15_000), result.Allocated)
	assert.Zero(t, result.Unallocated)

	require.Len(t, result.Receipts, 2)
	first := result.Receipts[0]
	assert.Equal(t, int64(10_000), first.TermBalanceBefore)
	assert.Zero(t, first.TermBalanceAfter)
	assert.Equal(t, int64(20_000), first.YearBalanceBefore)
	assert.Equal(t, int64(10_000), first.YearBalanceAfter)
	second := result.Receipts[1]
	assert.Equal(t, int64(10_000), second.TermBalanceBefore)
	assert.Equal(t, int64(5_000), second.TermBalanceAfter)
	assert.Equal(t, int64(5_000), second.YearBalanceAfter)
	assert.NotEmpty(t, first.ReceiptNo)
	assert.NotEqual(t, first.ReceiptNo, second.ReceiptNo)

	balances, err := env.ledger.Balances(context.Background(), env.schoolID, ledgerdomain.BalanceRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), balances.YearOutstanding)
}

func TestApplyConservesMoneyOnOverpayment(t *testing.T) {
	env := newPaymentEnv(t, 1)
	env.addFee(t, env.year, env.terms[0], 10_000)

	result, err := env.svc.Apply(context.Background(), env.schoolID, paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         13_000,
		Method:         paymentdomain.MethodCash,
		ReceivedBy:     "bursar",
	})
	require.NoError(t, err)

	var total int64
	for _, p := range result.Payments {
		total += p.Amount
	}
	assert.Equal(t, int64(13_000), total)
	assert.Equal(t, int64(3_000), result.Unallocated)

	balances, err := env.ledger.Balances(context.Background(), env.schoolID, ledgerdomain.BalanceRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		TermID:         env.terms[0].ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-3_000), balances.TermOutstanding)
	assert.Equal(t, int64(-3_000), balances.YearOutstanding)
}

func TestApplyFailsWithoutFeeStructures(t *testing.T) {
	env := newPaymentEnv(t, 2)

	_, err := env.svc.Apply(context.Background(), env.schoolID, paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         5_000,
		Method:         paymentdomain.MethodCash,
		ReceivedBy:     "bursar",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrNoFeeStructures)

	var count int64
	require.NoError(t, env.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApplyValidation(t *testing.T) {
	env := newPaymentEnv(t, 1)

	_, err := env.svc.Apply(context.Background(), env.schoolID, paymentdomain.ApplyRequest{
		StudentID: env.student.ID.String(), Amount: 0,
		Method: paymentdomain.MethodCash, ReceivedBy: "bursar",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidAmount)

	_, err = env.svc.Apply(context.Background(), env.schoolID, paymentdomain.ApplyRequest{
		StudentID: env.student.ID.String(), Amount: 1_000,
		Method: paymentdomain.MethodCarryForward, ReceivedBy: "bursar",
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidMethod)

	_, err = env.svc.Apply(context.Background(), env.schoolID, paymentdomain.ApplyRequest{
		StudentID: env.student.ID.String(), Amount: 1_000,
		Method: paymentdomain.MethodCash,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrMissingReceivedBy)
}

func TestApplyRerunOnSettledTermsIsNoOp(t *testing.T) {
	env := newPaymentEnv(t, 2)
	env.addFee(t, env.year, env.terms[0], 10_000)
	env.addFee(t, env.year, env.terms[1], 10_000)

	ctx := context.Background()
	req := paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         10_000,
		Method:         paymentdomain.MethodCash,
		ReceivedBy:     "bursar",
	}
	first, err := env.svc.Apply(ctx, env.schoolID, req)
	require.NoError(t, err)
	require.Len(t, first.Payments, 1)
	assert.Equal(t, env.terms[0].ID, first.Payments[0].TermID)

	// A second allocation skips the settled term entirely and lands on
	// the next one, even when told to start from the settled term.
	req.StartingTermID = env.terms[0].ID.String()
	second, err := env.svc.Apply(ctx, env.schoolID, req)
	require.NoError(t, err)
	require.Len(t, second.Payments, 1)
	assert.Equal(t, env.terms[1].ID, second.Payments[0].TermID)
	assert.Zero(t, second.Unallocated)

	var termOneRows int64
	require.NoError(t, env.db.Model(&paymentdomain.Payment{}).
		Where("term_id = ?", env.terms[0].ID).Count(&termOneRows).Error)
	assert.Equal(t, int64(1), termOneRows)

	balances, err := env.ledger.Balances(ctx, env.schoolID, ledgerdomain.BalanceRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		TermID:         env.terms[0].ID.String(),
	})
	require.NoError(t, err)
	assert.Zero(t, balances.TermOutstanding)
	assert.Zero(t, balances.YearOutstanding)
}

func TestCloseYearCarriesArrearsForward(t *testing.T) {
	env := newPaymentEnv(t, 1)
	env.addFee(t, env.year, env.terms[0], 10_000)

	ctx := context.Background()
	_, err := env.svc.Apply(ctx, env.schoolID, paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         4_000,
		Method:         paymentdomain.MethodCash,
		ReceivedBy:     "bursar",
	})
	require.NoError(t, err)

	nextYear := env.createYear(t, "2027", time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), 1, false)

	result, err := env.svc.CloseYear(ctx, env.schoolID, paymentdomain.CloseYearRequest{
		AcademicYearID: env.year.ID.String(),
		ClosedBy:       "head teacher",
	})
	require.NoError(t, err)
	require.Len(t, result.Closed, 1)
	assert.Empty(t, result.Errors)

	// Next year opens owing the 6,000 arrears via the carry-forward charge.
	balances, err := env.ledger.Balances(ctx, env.schoolID, ledgerdomain.BalanceRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: nextYear.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6_000), balances.YearOutstanding)

	var carry paymentdomain.Payment
	require.NoError(t, env.db.Where("method = ?", paymentdomain.MethodCarryForward).First(&carry).Error)
	assert.Equal(t, int64(-6_000), carry.Amount)
	assert.Equal(t, nextYear.ID, carry.AcademicYearID)
}

func TestCloseYearIsWriteOnce(t *testing.T) {
	env := newPaymentEnv(t, 1)
	env.addFee(t, env.year, env.terms[0], 10_000)
	env.createYear(t, "2027", time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), 1, false)

	ctx := context.Background()
	req := paymentdomain.CloseYearRequest{AcademicYearID: env.year.ID.String(), ClosedBy: "head teacher"}

	first, err := env.svc.CloseYear(ctx, env.schoolID, req)
	require.NoError(t, err)
	require.Len(t, first.Closed, 1)

	second, err := env.svc.CloseYear(ctx, env.schoolID, req)
	require.NoError(t, err)
	assert.Empty(t, second.Closed)
	require.Len(t, second.Skipped, 1)
	assert.Equal(t, env.student.ID, second.Skipped[0].StudentID)

	var count int64
	require.NoError(t, env.db.Model(&paymentdomain.Payment{}).
		Where("method = ?", paymentdomain.MethodCarryForward).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCloseYearCarriesOverpaymentAsCredit(t *testing.T) {
	env := newPaymentEnv(t, 1)
	env.addFee(t, env.year, env.terms[0], 10_000)
	nextYear := env.createYear(t, "2027", time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), 1, false)
	nextTerms := env.termsOf(t, nextYear)
	env.addFee(t, nextYear, nextTerms[0], 12_000)

	ctx := context.Background()
	_, err := env.svc.Apply(ctx, env.schoolID, paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         13_000,
		Method:         paymentdomain.MethodCash,
		ReceivedBy:     "bursar",
	})
	require.NoError(t, err)

	_, err = env.svc.CloseYear(ctx, env.schoolID, paymentdomain.CloseYearRequest{
		AcademicYearID: env.year.ID.String(),
		ClosedBy:       "head teacher",
	})
	require.NoError(t, err)

	balances, err := env.ledger.Balances(ctx, env.schoolID, ledgerdomain.BalanceRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: nextYear.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9_000), balances.YearOutstanding)
}

func TestBalancesExcludeCarryForwardViewsYearInIsolation(t *testing.T) {
	env := newPaymentEnv(t, 1)
	env.addFee(t, env.year, env.terms[0], 10_000)
	nextYear := env.createYear(t, "2027", time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), 1, false)
	nextTerms := env.termsOf(t, nextYear)
	env.addFee(t, nextYear, nextTerms[0], 12_000)

	ctx := context.Background()
	_, err := env.svc.Apply(ctx, env.schoolID, paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         4_000,
		Method:         paymentdomain.MethodCash,
		ReceivedBy:     "bursar",
	})
	require.NoError(t, err)

	_, err = env.svc.CloseYear(ctx, env.schoolID, paymentdomain.CloseYearRequest{
		AcademicYearID: env.year.ID.String(),
		ClosedBy:       "head teacher",
	})
	require.NoError(t, err)

	// The default view includes the 6,000 arrears carried in.
	balances, err := env.ledger.Balances(ctx, env.schoolID, ledgerdomain.BalanceRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: nextYear.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(18_000), balances.YearOutstanding)

	// The isolated view shows only the new year's own charges.
	balances, err = env.ledger.Balances(ctx, env.schoolID, ledgerdomain.BalanceRequest{
		StudentID:           env.student.ID.String(),
		AcademicYearID:      nextYear.ID.String(),
		ExcludeCarryForward: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12_000), balances.YearOutstanding)
}

func TestPaymentListingsOmitCarryForwardRows(t *testing.T) {
	env := newPaymentEnv(t, 1)
	env.addFee(t, env.year, env.terms[0], 10_000)
	env.createYear(t, "2027", time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC), 1, false)

	ctx := context.Background()
	paidOn := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := env.svc.Apply(ctx, env.schoolID, paymentdomain.ApplyRequest{
		StudentID:      env.student.ID.String(),
		AcademicYearID: env.year.ID.String(),
		Amount:         4_000,
		Method:         paymentdomain.MethodCash,
		PaymentDate:    &paidOn,
		ReceivedBy:     "bursar",
	})
	require.NoError(t, err)

	_, err = env.svc.CloseYear(ctx, env.schoolID, paymentdomain.CloseYearRequest{
		AcademicYearID: env.year.ID.String(),
		ClosedBy:       "head teacher",
	})
	require.NoError(t, err)

	var rows int64
	require.NoError(t, env.db.Model(&paymentdomain.Payment{}).
		Where("method = ?", paymentdomain.MethodCarryForward).Count(&rows).Error)
	require.Equal(t, int64(1), rows)

	// Listings show money received, not the synthetic carry-forward entry.
	listed, err := env.svc.ListByStudent(ctx, env.schoolID, env.student.ID.String(), "")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, paymentdomain.MethodCash, listed[0].Method)

	ranged, err := env.svc.ListByDateRange(ctx, env.schoolID, "2026-01-01", "2027-12-31")
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, paymentdomain.MethodCash, ranged[0].Method)
}
