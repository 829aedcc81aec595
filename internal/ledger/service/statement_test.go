package service

import (
	"testing"
	"time"

	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStatementGroupsByTerm(t *testing.T) {
	f := newLedgerFixture(2)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		Terms: f.terms,
		FeeStructures: []feedomain.FeeStructure{
			f.fee(0, 10_000, base),
			f.fee(1, 12_000, base.AddDate(0, 4, 0)),
		},
		Payments:     []paymentdomain.Payment{f.payment(0, 10_000, base.AddDate(0, 0, 5))},
		FilterYearID: f.yearID,
	})

	rows := BuildStatement(result, f.terms)

	// Term 1: header, charge, payment, closing. Term 2: header, charge, closing.
	require.Len(t, rows, 7)
	assert.Equal(t, ledgerdomain.RowTermHeader, rows[0].Kind)
	assert.Equal(t, "Term 1", rows[0].Description)
	assert.Equal(t, ledgerdomain.RowEntry, rows[1].Kind)
	assert.Equal(t, int64(10_000), rows[1].Debit)
	assert.Equal(t, ledgerdomain.RowEntry, rows[2].Kind)
	assert.Equal(t, int64(10_000), rows[2].Credit)
	assert.Equal(t, ledgerdomain.RowTermClosing, rows[3].Kind)
	assert.Zero(t, rows[3].Balance)
	assert.Equal(t, ledgerdomain.RowTermHeader, rows[4].Kind)
	assert.Equal(t, ledgerdomain.RowTermClosing, rows[6].Kind)
	assert.Equal(t, int64(12_000), rows[6].Balance)

	for i, row := range rows {
		assert.Equal(t, i+1, row.Seq)
	}
}

func TestBuildStatementMarkerRowsCarryNoAmounts(t *testing.T) {
	f := newLedgerFixture(1)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		OpeningBalance: 4_000,
		Terms:          f.terms,
		FeeStructures:  []feedomain.FeeStructure{f.fee(0, 10_000, base)},
		FilterYearID:   f.yearID,
	})

	rows := BuildStatement(result, f.terms)

	require.NotEmpty(t, rows)
	assert.Equal(t, ledgerdomain.RowBroughtForward, rows[0].Kind)
	assert.Equal(t, int64(4_000), rows[0].Balance)

	for _, row := range rows {
		if row.Kind == ledgerdomain.RowEntry {
			continue
		}
		assert.Zero(t, row.Debit)
		assert.Zero(t, row.Credit)
		assert.Nil(t, row.Date)
	}
}

func TestBuildStatementEmptyLedger(t *testing.T) {
	f := newLedgerFixture(3)

	rows := BuildStatement(Compute(ComputeInput{Terms: f.terms, FilterYearID: f.yearID}), f.terms)

	assert.Empty(t, rows)
}

func TestBuildStatementOrphanedTermEntriesStillAppear(t *testing.T) {
	f := newLedgerFixture(1)
	other := newLedgerFixture(1)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	result := Compute(ComputeInput{
		Terms:    f.terms,
		Payments: []paymentdomain.Payment{other.payment(0, 1_000, base)},
	})

	rows := BuildStatement(result, f.terms)

	require.Len(t, rows, 1)
	assert.Equal(t, ledgerdomain.RowEntry, rows[0].Kind)
	assert.Equal(t, int64(1_000), rows[0].Credit)
}
