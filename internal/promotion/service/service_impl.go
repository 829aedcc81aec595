package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	"github.com/shulekit/shulekit/internal/observability/metrics"
	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
	"github.com/shulekit/shulekit/internal/promotion/lock"
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
	Repo       promotiondomain.Repository
	SchoolRepo schooldomain.Repository
	Ledger     ledgerdomain.Service
	Guard      *lock.RunGuard
	Metrics    *metrics.Metrics
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       promotiondomain.Repository
	schoolRepo schooldomain.Repository
	ledger     ledgerdomain.Service
	guard      *lock.RunGuard
	metrics    *metrics.Metrics
}

func New(p Params) promotiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("promotion.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		schoolRepo: p.SchoolRepo,
		ledger:     p.Ledger,
		guard:      p.Guard,
		metrics:    p.Metrics,
	}
}

func (s *Service) CreateCriteria(ctx context.Context, schoolID snowflake.ID, req promotiondomain.CriteriaRequest) (*promotiondomain.PromotionCriteria, error) {
	if req.ClassLevel <= 0 {
		return nil, promotiondomain.ErrInvalidClassLevel
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(req.Items)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := time.Now().UTC()
	criteria := &promotiondomain.PromotionCriteria{
		ID:             s.genID.Generate(),
		SchoolID:       schoolID,
		ClassLevel:     req.ClassLevel,
		Name:           strings.TrimSpace(req.Name),
		CustomCriteria: datatypes.JSON(raw),
		Priority:       req.Priority,
		IsActive:       active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if criteria.Name == "" {
		return nil, promotiondomain.ErrInvalidCriteria
	}

	if err := s.repo.InsertCriteria(ctx, s.db, criteria); err != nil {
		return nil, err
	}
	return criteria, nil
}

func (s *Service) ListCriteria(ctx context.Context, schoolID snowflake.ID) ([]promotiondomain.PromotionCriteria, error) {
	return s.repo.ListCriteria(ctx, s.db, schoolID)
}

func (s *Service) UpdateCriteria(ctx context.Context, schoolID snowflake.ID, id string, req promotiondomain.CriteriaRequest) (*promotiondomain.PromotionCriteria, error) {
	criteriaID, err := parseID(id)
	if err != nil {
		return nil, promotiondomain.ErrInvalidID
	}

	criteria, err := s.repo.FindCriteria(ctx, s.db, schoolID, criteriaID)
	if err != nil {
		return nil, err
	}
	if criteria == nil {
		return nil, promotiondomain.ErrCriteriaNotFound
	}

	if req.ClassLevel > 0 {
		criteria.ClassLevel = req.ClassLevel
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		criteria.Name = name
	}
	if req.Items != nil {
		if err := validateItems(req.Items); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(req.Items)
		if err != nil {
			return nil, err
		}
		criteria.CustomCriteria = datatypes.JSON(raw)
	}
	criteria.Priority = req.Priority
	if req.IsActive != nil {
		criteria.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateCriteria(ctx, s.db, criteria); err != nil {
		return nil, err
	}
	return criteria, nil
}

func (s *Service) CreateProgression(ctx context.Context, schoolID snowflake.ID, req promotiondomain.ProgressionRequest) (*promotiondomain.ClassProgression, error) {
	fromID, err := parseID(req.FromClassRoomID)
	if err != nil {
		return nil, promotiondomain.ErrInvalidID
	}
	toID, err := parseID(req.ToClassRoomID)
	if err != nil {
		return nil, promotiondomain.ErrInvalidID
	}

	if _, err := s.schoolRepo.FindClassRoom(ctx, s.db, schoolID, fromID); err != nil {
		return nil, err
	}
	if _, err := s.schoolRepo.FindClassRoom(ctx, s.db, schoolID, toID); err != nil {
		return nil, err
	}

	progression := &promotiondomain.ClassProgression{
		ID:              s.genID.Generate(),
		SchoolID:        schoolID,
		FromClassRoomID: fromID,
		ToClassRoomID:   toID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.InsertProgression(ctx, s.db, progression); err != nil {
		return nil, err
	}
	return progression, nil
}

func (s *Service) ListProgressions(ctx context.Context, schoolID snowflake.ID) ([]promotiondomain.ClassProgression, error) {
	return s.repo.ListProgressions(ctx, s.db, schoolID)
}

func (s *Service) ListLogs(ctx context.Context, schoolID snowflake.ID, studentID string) ([]promotiondomain.PromotionLog, error) {
	id, err := parseID(studentID)
	if err != nil {
		return nil, promotiondomain.ErrInvalidID
	}
	if _, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, id); err != nil {
		return nil, err
	}
	return s.repo.ListLogsByStudent(ctx, s.db, schoolID, id)
}

func (s *Service) Evaluate(ctx context.Context, schoolID snowflake.ID, req promotiondomain.EvaluateRequest) (*promotiondomain.EligibilityResult, error) {
	studentID, err := parseID(req.StudentID)
	if err != nil {
		return nil, promotiondomain.ErrInvalidID
	}
	student, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	grade, err := s.schoolRepo.FindGrade(ctx, s.db, schoolID, student.GradeID)
	if err != nil {
		return nil, err
	}

	year, err := s.resolveYear(ctx, schoolID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}

	return s.evaluateStudent(ctx, schoolID, student, grade, year)
}

func (s *Service) evaluateStudent(ctx context.Context, schoolID snowflake.ID, student *schooldomain.Student, grade *schooldomain.Grade, year *schooldomain.AcademicYear) (*promotiondomain.EligibilityResult, error) {
	sets, err := s.repo.ListActiveCriteria(ctx, s.db, schoolID, grade.Level)
	if err != nil {
		return nil, err
	}

	facts := studentFacts{SkipFeeItems: grade.IsTerminal}

	academics, err := s.schoolRepo.FindAcademics(ctx, s.db, student.ID, year.ID)
	if err != nil {
		return nil, err
	}
	if academics != nil {
		facts.AverageGrade = academics.AverageGrade
		facts.AttendanceRate = academics.AttendanceRate
		facts.DisciplinaryCases = academics.DisciplinaryCases
	}

	if needsFeeBalance(sets) && !facts.SkipFeeItems {
		balances, err := s.ledger.Balances(ctx, schoolID, ledgerdomain.BalanceRequest{
			StudentID:      student.ID.String(),
			AcademicYearID: year.ID.String(),
		})
		if err != nil {
			return nil, err
		}
		facts.FeeOutstanding = balances.YearOutstanding
	}

	return evaluateSets(sets, facts)
}

func needsFeeBalance(sets []promotiondomain.PromotionCriteria) bool {
	for i := range sets {
		items, err := sets[i].Items()
		if err != nil {
			continue
		}
		for _, item := range items {
			if item.Type == promotiondomain.CriteriaFeeBalance {
				return true
			}
		}
	}
	return false
}

func (s *Service) PromoteClass(ctx context.Context, schoolID snowflake.ID, req promotiondomain.PromoteClassRequest) (*promotiondomain.PromotionResult, error) {
	promotedBy := strings.TrimSpace(req.PromotedBy)
	if promotedBy == "" {
		return nil, promotiondomain.ErrMissingPromotedBy
	}
	if req.ManualOverride && strings.TrimSpace(req.OverrideReason) == "" {
		return nil, promotiondomain.ErrMissingOverride
	}

	classID, err := parseID(req.ClassRoomID)
	if err != nil {
		return nil, promotiondomain.ErrInvalidID
	}
	if _, err := s.schoolRepo.FindClassRoom(ctx, s.db, schoolID, classID); err != nil {
		return nil, err
	}

	fromYear, err := s.resolveYear(ctx, schoolID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}
	toYear, err := s.resolveTargetYear(ctx, schoolID, fromYear, req.ToYearID)
	if err != nil {
		return nil, err
	}

	students, err := s.selectStudents(ctx, schoolID, classID, req.StudentIDs)
	if err != nil {
		return nil, err
	}

	opts := promoteOptions{
		manualOverride: req.ManualOverride,
		overrideReason: strings.TrimSpace(req.OverrideReason),
		notes:          strings.TrimSpace(req.Notes),
		promotedBy:     promotedBy,
	}
	result := s.promoteBatch(ctx, schoolID, students, fromYear, toYear, opts)

	s.metrics.RecordPromotionRun(ctx, "class")
	s.metrics.RecordPromotionOutcome(ctx, len(result.Promoted), len(result.Excluded))
	return result, nil
}

func (s *Service) PromoteSchool(ctx context.Context, schoolID snowflake.ID, req promotiondomain.PromoteSchoolRequest) (*promotiondomain.PromotionResult, error) {
	promotedBy := strings.TrimSpace(req.PromotedBy)
	if promotedBy == "" {
		return nil, promotiondomain.ErrMissingPromotedBy
	}

	token, acquired, err := s.guard.TryLockSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, promotiondomain.ErrRunInProgress
	}
	defer func() {
		if err := s.guard.ReleaseSchool(ctx, schoolID, token); err != nil {
			s.log.Warn("failed to release promotion run lock", zap.Error(err))
		}
	}()

	fromYear, err := s.resolveYear(ctx, schoolID, req.AcademicYearID)
	if err != nil {
		return nil, err
	}
	toYear, err := s.resolveTargetYear(ctx, schoolID, fromYear, req.ToYearID)
	if err != nil {
		return nil, err
	}

	students, err := s.schoolRepo.ListActiveStudents(ctx, s.db, schoolID)
	if err != nil {
		return nil, err
	}

	opts := promoteOptions{notes: strings.TrimSpace(req.Notes), promotedBy: promotedBy}
	result := s.promoteBatch(ctx, schoolID, students, fromYear, toYear, opts)

	s.metrics.RecordPromotionRun(ctx, "school")
	s.metrics.RecordPromotionOutcome(ctx, len(result.Promoted), len(result.Excluded))
	return result, nil
}

type promoteOptions struct {
	manualOverride bool
	overrideReason string
	notes          string
	promotedBy     string
}

// promoteBatch processes students sequentially with per-student isolation:
// one student's failure is recorded and the rest of the batch proceeds.
func (s *Service) promoteBatch(ctx context.Context, schoolID snowflake.ID, students []schooldomain.Student, fromYear, toYear *schooldomain.AcademicYear, opts promoteOptions) *promotiondomain.PromotionResult {
	result := &promotiondomain.PromotionResult{}
	for i := range students {
		student := &students[i]
		reason, err := s.promoteStudent(ctx, schoolID, student, fromYear, toYear, opts)
		switch {
		case err != nil:
			s.log.Error("promotion failed for student",
				zap.Int64("student_id", student.ID.Int64()),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("student %d: %v", student.ID.Int64(), err))
		case reason != "":
			result.Excluded = append(result.Excluded, promotiondomain.Exclusion{
				StudentID: student.ID,
				Reason:    reason,
			})
		default:
			result.Promoted = append(result.Promoted, student.ID)
		}
	}
	return result
}

// promoteStudent runs the eligibility check and executes the class change.
// The student update and the audit log commit atomically; an exclusion is
// reported through the reason return, not an error.
func (s *Service) promoteStudent(ctx context.Context, schoolID snowflake.ID, student *schooldomain.Student, fromYear, toYear *schooldomain.AcademicYear, opts promoteOptions) (string, error) {
	grade, err := s.schoolRepo.FindGrade(ctx, s.db, schoolID, student.GradeID)
	if err != nil {
		return "", err
	}
	if grade.IsAlumni || !student.IsActive {
		return "already alumni", nil
	}

	var criteriaUsed datatypes.JSON
	if !opts.manualOverride {
		eligibility, err := s.evaluateStudent(ctx, schoolID, student, grade, fromYear)
		if err != nil {
			return "", err
		}
		if !eligibility.IsEligible {
			return "not eligible: " + firstFailureReason(eligibility), nil
		}
		if raw, err := json.Marshal(eligibility); err == nil {
			criteriaUsed = datatypes.JSON(raw)
		}
	}

	if grade.IsTerminal {
		return s.promoteToAlumni(ctx, schoolID, student, grade, fromYear, toYear, opts, criteriaUsed)
	}
	return s.promoteToNextClass(ctx, schoolID, student, grade, fromYear, toYear, opts, criteriaUsed)
}

func (s *Service) promoteToAlumni(ctx context.Context, schoolID snowflake.ID, student *schooldomain.Student, grade *schooldomain.Grade, fromYear, toYear *schooldomain.AcademicYear, opts promoteOptions, criteriaUsed datatypes.JSON) (string, error) {
	alumniGrade, err := s.schoolRepo.FindAlumniGrade(ctx, s.db, schoolID)
	if err != nil {
		return "", err
	}

	fromClass := student.ClassRoomID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student.GradeID = alumniGrade.ID
		student.ClassRoomID = nil
		student.IsActive = false
		if err := s.schoolRepo.UpdateStudentClass(ctx, tx, student); err != nil {
			return err
		}
		if err := s.schoolRepo.InsertAlumni(ctx, tx, &schooldomain.Alumni{
			ID:              s.genID.Generate(),
			SchoolID:        schoolID,
			StudentID:       student.ID,
			GraduatedYearID: fromYear.ID,
			CreatedAt:       time.Now().UTC(),
		}); err != nil {
			return err
		}
		return s.repo.InsertLog(ctx, tx, s.newLog(schoolID, student, fromClass, nil, grade.ID, alumniGrade.ID, fromYear, toYear, opts, criteriaUsed))
	})
	if err != nil {
		return "", err
	}

	s.log.Info("student promoted to alumni",
		zap.Int64("student_id", student.ID.Int64()),
		zap.Int64("graduated_year_id", fromYear.ID.Int64()),
	)
	return "", nil
}

func (s *Service) promoteToNextClass(ctx context.Context, schoolID snowflake.ID, student *schooldomain.Student, grade *schooldomain.Grade, fromYear, toYear *schooldomain.AcademicYear, opts promoteOptions, criteriaUsed datatypes.JSON) (string, error) {
	if student.ClassRoomID == nil {
		return "no class assignment", nil
	}

	target, reason, err := s.resolveTargetClass(ctx, schoolID, student, grade)
	if err != nil || reason != "" {
		return reason, err
	}

	fromClass := student.ClassRoomID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		student.GradeID = target.GradeID
		student.ClassRoomID = &target.ID
		if err := s.schoolRepo.UpdateStudentClass(ctx, tx, student); err != nil {
			return err
		}
		return s.repo.InsertLog(ctx, tx, s.newLog(schoolID, student, fromClass, &target.ID, grade.ID, target.GradeID, fromYear, toYear, opts, criteriaUsed))
	})
	if err != nil {
		return "", err
	}
	return "", nil
}

// resolveTargetClass prefers an explicit progression rule and falls back to
// the next grade level with the same stream.
func (s *Service) resolveTargetClass(ctx context.Context, schoolID snowflake.ID, student *schooldomain.Student, grade *schooldomain.Grade) (*schooldomain.ClassRoom, string, error) {
	progression, err := s.repo.FindProgressionFrom(ctx, s.db, schoolID, *student.ClassRoomID)
	if err != nil {
		return nil, "", err
	}
	if progression != nil {
		target, err := s.schoolRepo.FindClassRoom(ctx, s.db, schoolID, progression.ToClassRoomID)
		if errors.Is(err, schooldomain.ErrClassNotFound) {
			return nil, "target class missing", nil
		}
		if err != nil {
			return nil, "", err
		}
		return target, "", nil
	}

	nextGrade, err := s.schoolRepo.FindGradeByLevel(ctx, s.db, schoolID, grade.Level+1)
	if errors.Is(err, schooldomain.ErrGradeNotFound) {
		return nil, "target grade missing", nil
	}
	if err != nil {
		return nil, "", err
	}
	currentClass, err := s.schoolRepo.FindClassRoom(ctx, s.db, schoolID, *student.ClassRoomID)
	if err != nil {
		return nil, "", err
	}
	target, err := s.schoolRepo.FindClassRoomByGradeStream(ctx, s.db, schoolID, nextGrade.ID, currentClass.Stream)
	if errors.Is(err, schooldomain.ErrClassNotFound) {
		return nil, "target class missing", nil
	}
	if err != nil {
		return nil, "", err
	}
	return target, "", nil
}

func (s *Service) newLog(schoolID snowflake.ID, student *schooldomain.Student, fromClass, toClass *snowflake.ID, fromGradeID, toGradeID snowflake.ID, fromYear, toYear *schooldomain.AcademicYear, opts promoteOptions, criteriaUsed datatypes.JSON) *promotiondomain.PromotionLog {
	return &promotiondomain.PromotionLog{
		ID:              s.genID.Generate(),
		SchoolID:        schoolID,
		StudentID:       student.ID,
		FromClassRoomID: fromClass,
		ToClassRoomID:   toClass,
		FromGradeID:     fromGradeID,
		ToGradeID:       toGradeID,
		FromYearID:      fromYear.ID,
		ToYearID:        toYear.ID,
		CriteriaUsed:    criteriaUsed,
		ManualOverride:  opts.manualOverride,
		OverrideReason:  opts.overrideReason,
		Notes:           opts.notes,
		PromotedBy:      opts.promotedBy,
		CreatedAt:       time.Now().UTC(),
	}
}

func (s *Service) selectStudents(ctx context.Context, schoolID, classID snowflake.ID, studentIDs []string) ([]schooldomain.Student, error) {
	students, err := s.schoolRepo.ListActiveStudentsByClass(ctx, s.db, schoolID, classID)
	if err != nil {
		return nil, err
	}
	if len(studentIDs) == 0 {
		return students, nil
	}

	wanted := make(map[snowflake.ID]bool, len(studentIDs))
	for _, raw := range studentIDs {
		id, err := parseID(raw)
		if err != nil {
			return nil, promotiondomain.ErrInvalidID
		}
		wanted[id] = true
	}

	selected := make([]schooldomain.Student, 0, len(wanted))
	for i := range students {
		if wanted[students[i].ID] {
			selected = append(selected, students[i])
		}
	}
	return selected, nil
}

func (s *Service) resolveYear(ctx context.Context, schoolID snowflake.ID, raw string) (*schooldomain.AcademicYear, error) {
	if strings.TrimSpace(raw) == "" {
		return s.schoolRepo.FindActiveYear(ctx, s.db, schoolID)
	}
	yearID, err := parseID(raw)
	if err != nil {
		return nil, promotiondomain.ErrInvalidID
	}
	return s.schoolRepo.FindYear(ctx, s.db, schoolID, yearID)
}

// resolveTargetYear picks the year the promotion lands in: an explicit
// target, the configured following year, or the source year itself when no
// following year exists yet.
func (s *Service) resolveTargetYear(ctx context.Context, schoolID snowflake.ID, fromYear *schooldomain.AcademicYear, raw string) (*schooldomain.AcademicYear, error) {
	if strings.TrimSpace(raw) != "" {
		yearID, err := parseID(raw)
		if err != nil {
			return nil, promotiondomain.ErrInvalidID
		}
		return s.schoolRepo.FindYear(ctx, s.db, schoolID, yearID)
	}

	next, err := s.schoolRepo.FindNextYear(ctx, s.db, schoolID, fromYear)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return fromYear, nil
	}
	return next, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
