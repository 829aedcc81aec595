package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shulekit/shulekit/internal/config"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	"github.com/shulekit/shulekit/internal/observability/metrics"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	pkgdb "github.com/shulekit/shulekit/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	LedgerRepo ledgerdomain.Repository
	Ledger     ledgerdomain.Service
	SchoolRepo schooldomain.Repository
	Defaults   *config.SchoolDefaultsHolder
	Metrics    *metrics.Metrics
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	ledgerRepo ledgerdomain.Repository
	ledger     ledgerdomain.Service
	schoolRepo schooldomain.Repository
	defaults   *config.SchoolDefaultsHolder
	metrics    *metrics.Metrics
}

func New(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		ledgerRepo: p.LedgerRepo,
		ledger:     p.Ledger,
		schoolRepo: p.SchoolRepo,
		defaults:   p.Defaults,
		metrics:    p.Metrics,
	}
}

func (s *Service) Apply(ctx context.Context, schoolID snowflake.ID, req paymentdomain.ApplyRequest) (*paymentdomain.AllocationResult, error) {
	if req.Amount <= 0 {
		return nil, paymentdomain.ErrInvalidAmount
	}
	method, err := parseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	receivedBy := strings.TrimSpace(req.ReceivedBy)
	if receivedBy == "" {
		return nil, paymentdomain.ErrMissingReceivedBy
	}

	studentID, err := parseID(req.StudentID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}
	student, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, studentID)
	if err != nil {
		return nil, err
	}

	balances, err := s.ledger.Balances(ctx, schoolID, ledgerdomain.BalanceRequest{
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
	})
	if err != nil {
		return nil, err
	}
	if !hasCharges(balances.TermBalances) {
		return nil, paymentdomain.ErrNoFeeStructures
	}

	startPos, err := startingPosition(balances.TermBalances, req.StartingTermID)
	if err != nil {
		return nil, err
	}

	paymentDate := time.Now().UTC()
	if req.PaymentDate != nil {
		paymentDate = req.PaymentDate.UTC()
	}

	allocations, excess := planAllocations(balances, startPos, req.Amount)

	result := &paymentdomain.AllocationResult{
		Payments:    make([]paymentdomain.PaymentResponse, 0, len(allocations)),
		Receipts:    make([]paymentdomain.ReceiptResponse, 0, len(allocations)),
		Unallocated: excess,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, alloc := range allocations {
			receiptNo := s.nextReceiptNo()
			now := time.Now().UTC()

			payment := &paymentdomain.Payment{
				ID:             s.genID.Generate(),
				SchoolID:       schoolID,
				StudentID:      student.ID,
				AcademicYearID: alloc.yearID,
				TermID:         alloc.termID,
				Amount:         alloc.amount,
				Method:         method,
				ReferenceNo:    strings.TrimSpace(req.ReferenceNo),
				ReceiptNo:      receiptNo,
				Description:    strings.TrimSpace(req.Description),
				PaymentDate:    paymentDate,
				ReceivedBy:     receivedBy,
				CreatedAt:      now,
			}
			if err := s.repo.Insert(ctx, tx, payment); err != nil {
				return err
			}

			receipt := &paymentdomain.Receipt{
				ID:                s.genID.Generate(),
				SchoolID:          schoolID,
				PaymentID:         payment.ID,
				StudentID:         student.ID,
				AcademicYearID:    alloc.yearID,
				TermID:            alloc.termID,
				ReceiptNo:         receiptNo,
				Amount:            alloc.amount,
				TermBalanceBefore: alloc.termBefore,
				TermBalanceAfter:  alloc.termBefore - alloc.amount,
				YearBalanceBefore: alloc.yearBefore,
				YearBalanceAfter:  alloc.yearBefore - alloc.amount,
				IssuedAt:          now,
				CreatedAt:         now,
			}
			if err := s.repo.InsertReceipt(ctx, tx, receipt); err != nil {
				return err
			}

			result.Payments = append(result.Payments, toPaymentResponse(payment))
			receiptResp := toReceiptResponse(receipt)
			receiptResp.Method = method
			receiptResp.ReceivedBy = receivedBy
			result.Receipts = append(result.Receipts, receiptResp)
			result.Allocated += alloc.amount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(ctx, string(method))
	for range result.Receipts {
		s.metrics.RecordReceipt(ctx)
	}

	if result.Unallocated > 0 {
		s.log.Warn("payment exceeds outstanding, excess awaits year-end carry forward",
			zap.Int64("student_id", student.ID.Int64()),
			zap.Int64("unallocated", result.Unallocated),
		)
	}

	return result, nil
}

type allocation struct {
	termID     snowflake.ID
	yearID     snowflake.ID
	amount     int64
	termBefore int64
	yearBefore int64
}

// planAllocations walks terms in position order from startPos, allocating
// min(remaining, outstanding) to each term that still owes. Money is
// conserved: the planned amounts always sum to the paid amount. An excess
// beyond all outstanding posts as an overpayment on the last chargeable term
// so it stays on the ledger until year close carries it forward; the excess
// figure is returned for reporting.
func planAllocations(balances *ledgerdomain.BalanceResult, startPos int, amount int64) ([]allocation, int64) {
	remaining := amount
	yearOutstanding := balances.YearOutstanding

	var plan []allocation
	for _, tb := range balances.TermBalances {
		if remaining <= 0 {
			break
		}
		if tb.Position < startPos || tb.Outstanding <= 0 {
			continue
		}

		alloc := tb.Outstanding
		if remaining < alloc {
			alloc = remaining
		}
		plan = append(plan, allocation{
			termID:     tb.TermID,
			yearID:     tb.AcademicYearID,
			amount:     alloc,
			termBefore: tb.Outstanding,
			yearBefore: yearOutstanding,
		})
		remaining -= alloc
		yearOutstanding -= alloc
	}

	excess := remaining
	if remaining > 0 {
		if len(plan) > 0 {
			plan[len(plan)-1].amount += remaining
		} else if target, ok := lastChargeableTerm(balances.TermBalances, startPos); ok {
			plan = append(plan, allocation{
				termID:     target.TermID,
				yearID:     target.AcademicYearID,
				amount:     remaining,
				termBefore: target.Outstanding,
				yearBefore: yearOutstanding,
			})
		}
	}
	return plan, excess
}

func lastChargeableTerm(terms []ledgerdomain.TermBalance, startPos int) (ledgerdomain.TermBalance, bool) {
	var target ledgerdomain.TermBalance
	found := false
	for _, tb := range terms {
		if tb.TotalCharged <= 0 {
			continue
		}
		if !found || tb.Position >= startPos {
			target = tb
			found = true
		}
	}
	return target, found
}

func hasCharges(terms []ledgerdomain.TermBalance) bool {
	for _, tb := range terms {
		if tb.TotalCharged > 0 {
			return true
		}
	}
	return false
}

func startingPosition(terms []ledgerdomain.TermBalance, startingTermID string) (int, error) {
	if strings.TrimSpace(startingTermID) == "" {
		return 0, nil
	}
	termID, err := parseID(startingTermID)
	if err != nil {
		return 0, paymentdomain.ErrInvalidID
	}
	for _, tb := range terms {
		if tb.TermID == termID {
			return tb.Position, nil
		}
	}
	return 0, schooldomain.ErrTermNotFound
}

func (s *Service) ListByStudent(ctx context.Context, schoolID snowflake.ID, studentID string, yearID string) ([]paymentdomain.PaymentResponse, error) {
	sid, err := parseID(studentID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}
	if _, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, sid); err != nil {
		return nil, err
	}

	var payments []paymentdomain.Payment
	if strings.TrimSpace(yearID) == "" {
		payments, err = s.repo.ListByStudent(ctx, s.db, schoolID, sid)
	} else {
		var yid snowflake.ID
		yid, err = parseID(yearID)
		if err != nil {
			return nil, paymentdomain.ErrInvalidID
		}
		payments, err = s.repo.ListByStudentYear(ctx, s.db, schoolID, sid, yid)
	}
	if err != nil {
		return nil, err
	}

	// Carry-forward rows are ledger bookkeeping, not money received, so
	// payment listings leave them out.
	resp := make([]paymentdomain.PaymentResponse, 0, len(payments))
	for i := range payments {
		if payments[i].Method == paymentdomain.MethodCarryForward {
			continue
		}
		resp = append(resp, toPaymentResponse(&payments[i]))
	}
	return resp, nil
}

func (s *Service) ListByDateRange(ctx context.Context, schoolID snowflake.ID, from, to string) ([]paymentdomain.PaymentResponse, error) {
	fromDate, err := time.Parse("2006-01-02", strings.TrimSpace(from))
	if err != nil {
		return nil, paymentdomain.ErrInvalidDateRange
	}
	toDate, err := time.Parse("2006-01-02", strings.TrimSpace(to))
	if err != nil {
		return nil, paymentdomain.ErrInvalidDateRange
	}
	if toDate.Before(fromDate) {
		return nil, paymentdomain.ErrInvalidDateRange
	}

	// The end date is inclusive for callers pulling daily collection reports.
	payments, err := s.repo.ListByDateRange(ctx, s.db, schoolID, fromDate, toDate.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	resp := make([]paymentdomain.PaymentResponse, 0, len(payments))
	for i := range payments {
		if payments[i].Method == paymentdomain.MethodCarryForward {
			continue
		}
		resp = append(resp, toPaymentResponse(&payments[i]))
	}
	return resp, nil
}

func (s *Service) ListReceipts(ctx context.Context, schoolID snowflake.ID, studentID string) ([]paymentdomain.ReceiptResponse, error) {
	sid, err := parseID(studentID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}
	if _, err := s.schoolRepo.FindStudent(ctx, s.db, schoolID, sid); err != nil {
		return nil, err
	}

	receipts, err := s.repo.ListReceiptsByStudent(ctx, s.db, schoolID, sid)
	if err != nil {
		return nil, err
	}

	resp := make([]paymentdomain.ReceiptResponse, 0, len(receipts))
	for i := range receipts {
		resp = append(resp, toReceiptResponse(&receipts[i]))
	}
	return resp, nil
}

func (s *Service) GetReceipt(ctx context.Context, schoolID snowflake.ID, receiptNo string) (*paymentdomain.ReceiptResponse, error) {
	receiptNo = strings.TrimSpace(receiptNo)
	if receiptNo == "" {
		return nil, paymentdomain.ErrReceiptNotFound
	}

	receipt, err := s.repo.FindReceiptByNo(ctx, s.db, schoolID, receiptNo)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, paymentdomain.ErrReceiptNotFound
	}

	resp := toReceiptResponse(receipt)
	payment, err := s.repo.FindPayment(ctx, s.db, schoolID, receipt.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		resp.Method = payment.Method
		resp.ReceivedBy = payment.ReceivedBy
	}
	return &resp, nil
}

func (s *Service) CloseYear(ctx context.Context, schoolID snowflake.ID, req paymentdomain.CloseYearRequest) (*paymentdomain.CloseYearResult, error) {
	yearID, err := parseID(req.AcademicYearID)
	if err != nil {
		return nil, paymentdomain.ErrInvalidID
	}
	closedBy := strings.TrimSpace(req.ClosedBy)
	if closedBy == "" {
		return nil, paymentdomain.ErrMissingReceivedBy
	}

	year, err := s.schoolRepo.FindYear(ctx, s.db, schoolID, yearID)
	if err != nil {
		return nil, err
	}
	next, err := s.schoolRepo.FindNextYear(ctx, s.db, schoolID, year)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, paymentdomain.ErrNextYearNotFound
	}
	nextTerms, err := s.schoolRepo.ListTerms(ctx, s.db, next.ID)
	if err != nil {
		return nil, err
	}
	if len(nextTerms) == 0 {
		return nil, paymentdomain.ErrNextYearHasNoTerms
	}
	firstTerm := nextTerms[0]

	students, err := s.schoolRepo.ListActiveStudents(ctx, s.db, schoolID)
	if err != nil {
		return nil, err
	}

	result := &paymentdomain.CloseYearResult{}
	for i := range students {
		student := &students[i]
		if err := s.closeStudentYear(ctx, schoolID, student, year, next, firstTerm, closedBy); err != nil {
			switch {
			case errors.Is(err, ledgerdomain.ErrYearAlreadyClosed):
				result.Skipped = append(result.Skipped, paymentdomain.SkippedYearClose{
					StudentID: student.ID,
					Reason:    "year already closed",
				})
			default:
				s.log.Error("year close failed for student",
					zap.Int64("student_id", student.ID.Int64()),
					zap.Error(err),
				)
				result.Errors = append(result.Errors, fmt.Sprintf("student %d: %v", student.ID.Int64(), err))
			}
			continue
		}
		result.Closed = append(result.Closed, student.ID)
	}

	s.log.Info("year close completed",
		zap.Int64("academic_year_id", year.ID.Int64()),
		zap.Int("closed", len(result.Closed)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// closeStudentYear snapshots one student's closing balance and posts the
// carry-forward entry into the next year. Both writes commit atomically; a
// duplicate snapshot means another run already closed this student.
func (s *Service) closeStudentYear(
	ctx context.Context,
	schoolID snowflake.ID,
	student *schooldomain.Student,
	year, next *schooldomain.AcademicYear,
	firstTerm schooldomain.Term,
	closedBy string,
) error {
	existing, err := s.ledgerRepo.FindYearClose(ctx, s.db, schoolID, student.ID, year.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ledgerdomain.ErrYearAlreadyClosed
	}

	balances, err := s.ledger.Balances(ctx, schoolID, ledgerdomain.BalanceRequest{
		StudentID:      student.ID.String(),
		AcademicYearID: year.ID.String(),
	})
	if err != nil {
		return err
	}
	closing := balances.YearOutstanding

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		snapshot := &ledgerdomain.YearClose{
			ID:             s.genID.Generate(),
			SchoolID:       schoolID,
			StudentID:      student.ID,
			AcademicYearID: year.ID,
			ClosingBalance: closing,
			ClosedBy:       closedBy,
			CreatedAt:      now,
		}
		if err := s.ledgerRepo.InsertYearClose(ctx, tx, snapshot); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return ledgerdomain.ErrYearAlreadyClosed
			}
			return err
		}

		if closing == 0 {
			return nil
		}

		// Positive closing balance is arrears: a negative carry-forward
		// amount posts as a synthetic charge in the next year. Negative
		// closing is an overpayment carried in as credit.
		carry := &paymentdomain.Payment{
			ID:             s.genID.Generate(),
			SchoolID:       schoolID,
			StudentID:      student.ID,
			AcademicYearID: next.ID,
			TermID:         firstTerm.ID,
			Amount:         -closing,
			Method:         paymentdomain.MethodCarryForward,
			Description:    "Balance carried forward from " + year.Label,
			PaymentDate:    now,
			ReceivedBy:     closedBy,
			CreatedAt:      now,
		}
		if err := s.repo.Insert(ctx, tx, carry); err != nil {
			return err
		}

		direction := "debit"
		if closing < 0 {
			direction = "credit"
		}
		s.metrics.RecordCarryForward(ctx, direction)
		return nil
	})
}

func (s *Service) nextReceiptNo() string {
	prefix := s.defaults.Get().ReceiptPrefix
	if prefix == "" {
		prefix = "RCT"
	}
	return prefix + "-" + ulid.Make().String()
}

func toPaymentResponse(p *paymentdomain.Payment) paymentdomain.PaymentResponse {
	return paymentdomain.PaymentResponse{
		ID:             p.ID,
		StudentID:      p.StudentID,
		AcademicYearID: p.AcademicYearID,
		TermID:         p.TermID,
		Amount:         p.Amount,
		Method:         p.Method,
		ReferenceNo:    p.ReferenceNo,
		ReceiptNo:      p.ReceiptNo,
		Description:    p.Description,
		PaymentDate:    p.PaymentDate,
		ReceivedBy:     p.ReceivedBy,
		CreatedAt:      p.CreatedAt,
	}
}

func toReceiptResponse(r *paymentdomain.Receipt) paymentdomain.ReceiptResponse {
	return paymentdomain.ReceiptResponse{
		ID:                r.ID,
		PaymentID:         r.PaymentID,
		StudentID:         r.StudentID,
		AcademicYearID:    r.AcademicYearID,
		TermID:            r.TermID,
		ReceiptNo:         r.ReceiptNo,
		Amount:            r.Amount,
		TermBalanceBefore: r.TermBalanceBefore,
		TermBalanceAfter:  r.TermBalanceAfter,
		YearBalanceBefore: r.YearBalanceBefore,
		YearBalanceAfter:  r.YearBalanceAfter,
		IssuedAt:          r.IssuedAt,
	}
}

func parseMethod(value paymentdomain.Method) (paymentdomain.Method, error) {
	switch paymentdomain.Method(strings.ToLower(strings.TrimSpace(string(value)))) {
	case paymentdomain.MethodCash:
		return paymentdomain.MethodCash, nil
	case paymentdomain.MethodMobileMoney:
		return paymentdomain.MethodMobileMoney, nil
	case paymentdomain.MethodBankTransfer:
		return paymentdomain.MethodBankTransfer, nil
	case paymentdomain.MethodCheque:
		return paymentdomain.MethodCheque, nil
	default:
		// Carry-forward entries are system-generated only.
		return "", paymentdomain.ErrInvalidMethod
	}
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
