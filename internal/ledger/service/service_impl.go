package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shulekit/shulekit/internal/cache"
	"github.com/shulekit/shulekit/internal/config"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	"github.com/shulekit/shulekit/internal/observability/metrics"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        ledgerdomain.Repository
	FeeRepo     feedomain.Repository
	PaymentRepo paymentdomain.Repository
	SchoolRepo  schooldomain.Repository
	Catalog     cache.FeeCatalogCache
	Defaults    *config.SchoolDefaultsHolder
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        ledgerdomain.Repository
	feeRepo     feedomain.Repository
	paymentRepo paymentdomain.Repository
	schoolRepo  schooldomain.Repository
	catalog     cache.FeeCatalogCache
	defaults    *config.SchoolDefaultsHolder
	metrics     *metrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		repo:        p.Repo,
		feeRepo:     p.FeeRepo,
		paymentRepo: p.PaymentRepo,
		schoolRepo:  p.SchoolRepo,
		catalog:     p.Catalog,
		defaults:    p.Defaults,
		metrics:     p.Metrics,
	}
}

func (s *Service) Balances(ctx context.Context, schoolID snowflake.ID, req ledgerdomain.BalanceRequest) (*ledgerdomain.BalanceResult, error) {
	studentID, err := parseID(req.StudentID)
	if err != nil {
		return nil, ledgerdomain.ErrInvalidID
	}

	student, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, studentID)
	if err != nil {
		return nil, err
	}

	year, err := s.resolveYear(ctx, schoolID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}

	var scopeTermID snowflake.ID
	if strings.TrimSpace(req.TermID) != "" {
		scopeTermID, err = parseID(req.TermID)
		if err != nil {
			return nil, ledgerdomain.ErrInvalidID
		}
	}

	input, err := s.loadComputeInput(ctx, schoolID, student, year)
	if err != nil {
		return nil, err
	}
	input.ScopeTermID = scopeTermID
	if req.ExcludeCarryForward {
		input.ExcludeCarryForward = true
		input.OpeningBalance = 0
	}

	result := Compute(input)
	s.metrics.RecordBalanceComputation(ctx)
	return &result, nil
}

func (s *Service) Statement(ctx context.Context, schoolID snowflake.ID, req ledgerdomain.StatementRequest) (*ledgerdomain.StatementResult, error) {
	studentID, err := parseID(req.StudentID)
	if err != nil {
		return nil, ledgerdomain.ErrInvalidID
	}

	student, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	school, err := s.schoolRepo.FindSchool(ctx, s.db, schoolID)
	if err != nil {
		return nil, err
	}

	year, err := s.resolveYear(ctx, schoolID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}

	input, err := s.loadComputeInput(ctx, schoolID, student, year)
	if err != nil {
		return nil, err
	}

	result := Compute(input)
	rows := BuildStatement(result, input.Terms)

	currency := school.Currency
	if currency == "" {
		currency = s.defaults.Get().Currency
	}

	s.metrics.RecordStatement(ctx, "json")
	return &ledgerdomain.StatementResult{
		StudentID:   student.ID,
		StudentName: student.FirstName + " " + student.LastName,
		AdmissionNo: student.AdmissionNo,
		YearLabel:   year.Label,
		Currency:    currency,
		Rows:        rows,
		Outstanding: result.YearOutstanding,
	}, nil
}

// loadComputeInput gathers the year's term layout, the grade's fee
// structures, the student's payments, and the opening balance inherited from
// the previous year's close. When a carry-forward entry has already been
// posted into the year, the opening balance stays zero so the inherited
// amount is not counted twice.
func (s *Service) loadComputeInput(ctx context.Context, schoolID snowflake.ID, student *schooldomain.Student, year *schooldomain.AcademicYear) (ComputeInput, error) {
	terms, ok := s.catalog.GetTerms(year.ID)
	if !ok {
		loaded, err := s.schoolRepo.ListTerms(ctx, s.db, year.ID)
		if err != nil {
			return ComputeInput{}, err
		}
		terms = loaded
		s.catalog.SetTerms(year.ID, terms)
	}

	fees, ok := s.catalog.GetGradeFees(schoolID, year.ID, student.GradeID)
	if !ok {
		loaded, err := s.feeRepo.ListByYearGrade(ctx, s.db, schoolID, year.ID, student.GradeID)
		if err != nil {
			return ComputeInput{}, err
		}
		fees = loaded
		s.catalog.SetGradeFees(schoolID, year.ID, student.GradeID, fees)
	}

	payments, err := s.paymentRepo.ListByStudentYear(ctx, s.db, schoolID, student.ID, year.ID)
	if err != nil {
		return ComputeInput{}, err
	}

	opening, err := s.openingBalance(ctx, schoolID, student.ID, year)
	if err != nil {
		return ComputeInput{}, err
	}

	return ComputeInput{
		OpeningBalance: opening,
		Terms:          terms,
		FeeStructures:  fees,
		Payments:       payments,
		FilterYearID:   year.ID,
	}, nil
}

func (s *Service) openingBalance(ctx context.Context, schoolID, studentID snowflake.ID, year *schooldomain.AcademicYear) (int64, error) {
	hasCarry, err := s.paymentRepo.HasCarryForward(ctx, s.db, schoolID, studentID, year.ID)
	if err != nil {
		return 0, err
	}
	if hasCarry {
		return 0, nil
	}

	previous, err := s.schoolRepo.FindPreviousYear(ctx, s.db, schoolID, year)
	if err != nil || previous == nil {
		return 0, err
	}

	snapshot, err := s.repo.FindYearClose(ctx, s.db, schoolID, studentID, previous.ID)
	if err != nil || snapshot == nil {
		return 0, err
	}
	return snapshot.ClosingBalance, nil
}

func (s *Service) resolveYear(ctx context.Context, schoolID snowflake.ID, raw string) (*schooldomain.AcademicYear, error) {
	if strings.TrimSpace(raw) == "" {
		return s.schoolRepo.FindActiveYear(ctx, s.db, schoolID)
	}
	yearID, err := parseID(raw)
	if err != nil {
		return nil, ledgerdomain.ErrInvalidID
	}
	return s.schoolRepo.FindYear(ctx, s.db, schoolID, yearID)
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
