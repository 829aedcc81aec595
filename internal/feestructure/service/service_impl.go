package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shulekit/shulekit/internal/cache"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       feedomain.Repository
	SchoolRepo schooldomain.Repository
	Catalog    cache.FeeCatalogCache
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       feedomain.Repository
	schoolRepo schooldomain.Repository
	catalog    cache.FeeCatalogCache
}

func New(p Params) feedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("feestructure.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		schoolRepo: p.SchoolRepo,
		catalog:    p.Catalog,
	}
}

func (s *Service) Create(ctx context.Context, schoolID snowflake.ID, req feedomain.CreateRequest) (*feedomain.Response, error) {
	yearID, err := parseID(req.AcademicYearID)
	if err != nil {
		return nil, feedomain.ErrInvalidID
	}
	termID, err := parseID(req.TermID)
	if err != nil {
		return nil, feedomain.ErrInvalidID
	}
	gradeID, err := parseID(req.GradeID)
	if err != nil {
		return nil, feedomain.ErrInvalidID
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, feedomain.ErrInvalidName
	}
	if err := validateAmounts(req.TotalAmount, req.Breakdown); err != nil {
		return nil, err
	}

	if _, err := s.schoolRepo.FindYear(ctx, s.db, schoolID, yearID); err != nil {
		return nil, err
	}
	term, err := s.schoolRepo.FindTerm(ctx, s.db, termID)
	if err != nil {
		return nil, err
	}
	if term.AcademicYearID != yearID {
		return nil, schooldomain.ErrTermNotFound
	}
	if _, err := s.schoolRepo.FindGrade(ctx, s.db, schoolID, gradeID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entity := &feedomain.FeeStructure{
		ID:             s.genID.Generate(),
		SchoolID:       schoolID,
		AcademicYearID: yearID,
		TermID:         termID,
		GradeID:        gradeID,
		Name:           name,
		TotalAmount:    req.TotalAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(req.Breakdown) > 0 {
		raw, err := json.Marshal(req.Breakdown)
		if err != nil {
			return nil, err
		}
		entity.Breakdown = datatypes.JSON(raw)
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}
	s.catalog.InvalidateGradeFees(schoolID, yearID, gradeID)

	s.log.Info("fee structure created",
		zap.Int64("fee_structure_id", entity.ID.Int64()),
		zap.Int64("term_id", termID.Int64()),
		zap.Int64("grade_id", gradeID.Int64()),
		zap.Int64("total_amount", entity.TotalAmount),
	)

	return toResponse(entity)
}

func (s *Service) Get(ctx context.Context, schoolID snowflake.ID, id string) (*feedomain.Response, error) {
	feeID, err := parseID(id)
	if err != nil {
		return nil, feedomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, schoolID, feeID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, feedomain.ErrNotFound
	}
	return toResponse(entity)
}

func (s *Service) ListByYear(ctx context.Context, schoolID snowflake.ID, yearID string) ([]feedomain.Response, error) {
	id, err := parseID(yearID)
	if err != nil {
		return nil, feedomain.ErrInvalidID
	}

	items, err := s.repo.ListByYear(ctx, s.db, schoolID, id)
	if err != nil {
		return nil, err
	}

	resp := make([]feedomain.Response, 0, len(items))
	for i := range items {
		item, err := toResponse(&items[i])
		if err != nil {
			return nil, err
		}
		resp = append(resp, *item)
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, schoolID snowflake.ID, id string, req feedomain.UpdateRequest) (*feedomain.Response, error) {
	feeID, err := parseID(id)
	if err != nil {
		return nil, feedomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, schoolID, feeID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, feedomain.ErrNotFound
	}

	// A structure that payments were allocated against is frozen; editing
	// it would rewrite balances already printed on receipts.
	inUse, err := s.repo.InUse(ctx, s.db, entity)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, feedomain.ErrInUse
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, feedomain.ErrInvalidName
		}
		entity.Name = name
	}
	if req.TotalAmount != nil {
		entity.TotalAmount = *req.TotalAmount
	}
	if req.Breakdown != nil {
		raw, err := json.Marshal(req.Breakdown)
		if err != nil {
			return nil, err
		}
		entity.Breakdown = datatypes.JSON(raw)
	}

	breakdown, err := entity.BreakdownItems()
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(entity.TotalAmount, breakdown); err != nil {
		return nil, err
	}

	entity.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, entity); err != nil {
		return nil, err
	}
	s.catalog.InvalidateGradeFees(schoolID, entity.AcademicYearID, entity.GradeID)

	return toResponse(entity)
}

func (s *Service) Delete(ctx context.Context, schoolID snowflake.ID, id string) error {
	feeID, err := parseID(id)
	if err != nil {
		return feedomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, schoolID, feeID)
	if err != nil {
		return err
	}
	if entity == nil {
		return feedomain.ErrNotFound
	}

	inUse, err := s.repo.InUse(ctx, s.db, entity)
	if err != nil {
		return err
	}
	if inUse {
		return feedomain.ErrInUse
	}

	if err := s.repo.Delete(ctx, s.db, schoolID, feeID); err != nil {
		return err
	}
	s.catalog.InvalidateGradeFees(schoolID, entity.AcademicYearID, entity.GradeID)
	return nil
}

// validateAmounts rejects non-positive totals and breakdowns that do not sum
// to the total. An empty breakdown is allowed.
func validateAmounts(total int64, breakdown []feedomain.BreakdownItem) error {
	if total <= 0 {
		return feedomain.ErrInvalidAmount
	}
	if len(breakdown) == 0 {
		return nil
	}

	var sum int64
	for _, item := range breakdown {
		if item.Amount < 0 {
			return feedomain.ErrInvalidAmount
		}
		sum += item.Amount
	}
	if sum != total {
		return feedomain.ErrBreakdownMismatch
	}
	return nil
}

func toResponse(f *feedomain.FeeStructure) (*feedomain.Response, error) {
	breakdown, err := f.BreakdownItems()
	if err != nil {
		return nil, err
	}
	return &feedomain.Response{
		ID:             f.ID,
		SchoolID:       f.SchoolID,
		AcademicYearID: f.AcademicYearID,
		TermID:         f.TermID,
		GradeID:        f.GradeID,
		Name:           f.Name,
		TotalAmount:    f.TotalAmount,
		Breakdown:      breakdown,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
