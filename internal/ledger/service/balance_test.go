package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNode, _ = snowflake.NewNode(1)

type ledgerFixture struct {
	yearID snowflake.ID
	terms  []schooldomain.Term
}

func newLedgerFixture(termCount int) *ledgerFixture {
	f := &ledgerFixture{yearID: testNode.Generate()}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < termCount; i++ {
		f.terms = append(f.terms, schooldomain.Term{
			ID:             testNode.Generate(),
			AcademicYearID: f.yearID,
			Name:           "Term " + string(rune('1'+i)),
			Position:       i + 1,
			StartsOn:       start.AddDate(0, 4*i, 0),
			EndsOn:         start.AddDate(0, 4*i+3, 0),
		})
	}
	return f
}

func (f *ledgerFixture) fee(term int, amount int64, createdAt time.Time) feedomain.FeeStructure {
	return feedomain.FeeStructure{
		ID:             testNode.Generate(),
		AcademicYearID: f.yearID,
		TermID:         f.terms[term].ID,
		GradeID:        testNode.Generate(),
		Name:           "Tuition",
		TotalAmount:    amount,
		CreatedAt:      createdAt,
	}
}

func (f *ledgerFixture) payment(term int, amount int64, date time.Time) paymentdomain.Payment {
	return paymentdomain.Payment{
		ID:             testNode.Generate(),
		AcademicYearID: f.yearID,
		TermID:         f.terms[term].ID,
		Amount:         amount,
		Method:         paymentdomain.MethodCash,
		PaymentDate:    date,
	}
}

func (f *ledgerFixture) carryForward(term int, amount int64, date time.Time) paymentdomain.Payment {
	p := f.payment(term, amount, date)
	p.Method = paymentdomain.MethodCarryForward
	return p
}

func TestComputeEmptyInputs(t *testing.T) {
	f := newLedgerFixture(3)
	result := Compute(ComputeInput{Terms: f.terms, FilterYearID: f.yearID})

	assert.Zero(t, result.YearOutstanding)
	assert.Empty(t, result.Transactions)
	require.Len(t, result.TermBalances, 3)
	for _, tb := range result.TermBalances {
		assert.Zero(t, tb.Outstanding)
	}
}

func TestComputeSinglePaymentClearsTerm(t *testing.T) {
	f := newLedgerFixture(1)
	charged := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		Terms:         f.terms,
		FeeStructures: []feedomain.FeeStructure{f.fee(0, 10_000, charged)},
		Payments:      []paymentdomain.Payment{f.payment(0, 10_000, charged.AddDate(0, 0, 7))},
		FilterYearID:  f.yearID,
		ScopeTermID:   f.terms[0].ID,
	})

	assert.Zero(t, result.YearOutstanding)
	assert.Zero(t, result.TermOutstanding)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, int64(10_000), result.Transactions[0].Balance)
	assert.Zero(t, result.Transactions[1].Balance)
}

func TestComputeDuplicateFeeStructuresFirstSeenWins(t *testing.T) {
	f := newLedgerFixture(1)
	charged := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	first := f.fee(0, 10_000, charged)
	duplicate := f.fee(0, 99_000, charged.Add(time.Hour))

	result := Compute(ComputeInput{
		Terms:         f.terms,
		FeeStructures: []feedomain.FeeStructure{first, duplicate},
		FilterYearID:  f.yearID,
	})

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, int64(10_000), result.YearOutstanding)
}

func TestComputePaymentWithoutFeePostsOverpayment(t *testing.T) {
	f := newLedgerFixture(2)

	result := Compute(ComputeInput{
		Terms:        f.terms,
		Payments:     []paymentdomain.Payment{f.payment(0, 3_000, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))},
		FilterYearID: f.yearID,
		ScopeTermID:  f.terms[0].ID,
	})

	assert.Equal(t, int64(-3_000), result.YearOutstanding)
	assert.Equal(t, int64(-3_000), result.TermOutstanding)
}

func TestComputeRunningBalanceAcrossTerms(t *testing.T) {
	f := newLedgerFixture(2)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		Terms: f.terms,
		FeeStructures: []feedomain.FeeStructure{
			f.fee(0, 10_000, base),
			f.fee(1, 10_000, base.AddDate(0, 4, 0)),
		},
		Payments:     []paymentdomain.Payment{f.payment(0, 15_000, base.AddDate(0, 0, 10))},
		FilterYearID: f.yearID,
	})

	assert.Equal(t, int64(5_000), result.YearOutstanding)

	require.Len(t, result.TermBalances, 2)
	assert.Equal(t, int64(-5_000), result.TermBalances[0].Outstanding)
	assert.Equal(t, int64(10_000), result.TermBalances[1].Outstanding)
}

func TestComputeTermSliceIndependentOfGlobalOrder(t *testing.T) {
	f := newLedgerFixture(2)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Term 1's payment lands after term 2's charge in the global order; the
	// term slice must still read term 1 as settled.
	result := Compute(ComputeInput{
		Terms: f.terms,
		FeeStructures: []feedomain.FeeStructure{
			f.fee(0, 10_000, base),
			f.fee(1, 12_000, base.AddDate(0, 4, 0)),
		},
		Payments:     []paymentdomain.Payment{f.payment(0, 10_000, base.AddDate(0, 5, 0))},
		FilterYearID: f.yearID,
		ScopeTermID:  f.terms[0].ID,
	})

	assert.Zero(t, result.TermOutstanding)
	assert.Equal(t, int64(12_000), result.YearOutstanding)
}

func TestComputeStableSortBreaksTiesByInputOrder(t *testing.T) {
	f := newLedgerFixture(1)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		Terms:         f.terms,
		FeeStructures: []feedomain.FeeStructure{f.fee(0, 10_000, at)},
		Payments: []paymentdomain.Payment{
			f.payment(0, 4_000, at),
			f.payment(0, 6_000, at),
		},
		FilterYearID: f.yearID,
	})

	require.Len(t, result.Transactions, 3)
	assert.Equal(t, ledgerdomain.TransactionCharge, result.Transactions[0].Kind)
	assert.Equal(t, int64(4_000), result.Transactions[1].Credit)
	assert.Equal(t, int64(6_000), result.Transactions[2].Credit)
	assert.Zero(t, result.YearOutstanding)
}

func TestComputeOpeningBalanceInheritedWhenYearEmpty(t *testing.T) {
	f := newLedgerFixture(3)

	result := Compute(ComputeInput{
		OpeningBalance: 7_500,
		Terms:          f.terms,
		FilterYearID:   f.yearID,
	})

	assert.Equal(t, int64(7_500), result.YearOutstanding)
}

func TestComputeCarryForwardEntries(t *testing.T) {
	f := newLedgerFixture(1)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	credit := Compute(ComputeInput{
		Terms:         f.terms,
		FeeStructures: []feedomain.FeeStructure{f.fee(0, 10_000, at)},
		Payments:      []paymentdomain.Payment{f.carryForward(0, 2_000, at)},
		FilterYearID:  f.yearID,
	})
	assert.Equal(t, int64(8_000), credit.YearOutstanding)

	arrears := Compute(ComputeInput{
		Terms:        f.terms,
		Payments:     []paymentdomain.Payment{f.carryForward(0, -5_000, at)},
		FilterYearID: f.yearID,
	})
	require.Len(t, arrears.Transactions, 1)
	assert.Equal(t, ledgerdomain.TransactionCarryForward, arrears.Transactions[0].Kind)
	assert.Equal(t, int64(5_000), arrears.Transactions[0].Debit)
	assert.Equal(t, int64(5_000), arrears.YearOutstanding)
}

func TestComputeExcludeCarryForward(t *testing.T) {
	f := newLedgerFixture(1)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		Terms:               f.terms,
		FeeStructures:       []feedomain.FeeStructure{f.fee(0, 10_000, at)},
		Payments:            []paymentdomain.Payment{f.carryForward(0, 2_000, at)},
		FilterYearID:        f.yearID,
		ExcludeCarryForward: true,
	})

	require.Len(t, result.Transactions, 1)
	assert.Equal(t, int64(10_000), result.YearOutstanding)
}

func TestComputeTermSlicesSumToYearOutstanding(t *testing.T) {
	f := newLedgerFixture(3)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		Terms: f.terms,
		FeeStructures: []feedomain.FeeStructure{
			f.fee(0, 10_000, base),
			f.fee(1, 12_000, base.AddDate(0, 4, 0)),
			f.fee(2, 14_000, base.AddDate(0, 8, 0)),
		},
		Payments: []paymentdomain.Payment{
			f.payment(0, 10_000, base.AddDate(0, 0, 3)),
			f.payment(1, 4_000, base.AddDate(0, 4, 3)),
		},
		FilterYearID: f.yearID,
	})

	var sum int64
	for _, tb := range result.TermBalances {
		sum += tb.Outstanding
	}
	assert.Equal(t, result.YearOutstanding, sum)
}
