package service

import (
	"sort"
	"strconv"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	paymentdomain "github.com/shulekit/shulekit/internal/payment/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
)

// ComputeInput carries everything the balance calculation needs, already
// loaded. Fee structures and payments must arrive in creation order; that
// order is the tie-break for same-date transactions.
type ComputeInput struct {
	OpeningBalance int64
	Terms          []schooldomain.Term
	FeeStructures  []feedomain.FeeStructure
	Payments       []paymentdomain.Payment

	// FilterYearID scopes the year outstanding to the given year's last
	// transaction. Zero means "latest overall".
	FilterYearID snowflake.ID
	// ScopeTermID selects which term's slice fills TermOutstanding.
	ScopeTermID snowflake.ID
	// ExcludeCarryForward drops synthetic carry-forward entries. Year close
	// uses it to recompute a year's own activity without double-counting the
	// balance it inherited.
	ExcludeCarryForward bool
}

// Compute derives the running-balance ledger from fee structures (debits)
// and payments (credits). A student with no inputs yields a zero result, not
// an error.
func Compute(in ComputeInput) ledgerdomain.BalanceResult {
	transactions := buildTransactions(in)

	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Date.Before(transactions[j].Date)
	})

	running := in.OpeningBalance
	for i := range transactions {
		running += transactions[i].Debit - transactions[i].Credit
		transactions[i].Seq = i + 1
		transactions[i].Balance = running
	}

	result := ledgerdomain.BalanceResult{
		OpeningBalance:  in.OpeningBalance,
		YearOutstanding: yearOutstanding(transactions, in.FilterYearID, in.OpeningBalance),
		TermBalances:    termBalances(transactions, in.Terms),
		Transactions:    transactions,
	}
	if in.ScopeTermID != 0 {
		result.TermOutstanding = termSlice(transactions, in.ScopeTermID)
	}
	return result
}

func buildTransactions(in ComputeInput) []ledgerdomain.Transaction {
	transactions := make([]ledgerdomain.Transaction, 0, len(in.FeeStructures)+len(in.Payments))

	// Administrative duplicates happen; the first structure created for a
	// term wins.
	seen := make(map[snowflake.ID]bool, len(in.FeeStructures))
	for i := range in.FeeStructures {
		f := &in.FeeStructures[i]
		if seen[f.TermID] {
			continue
		}
		seen[f.TermID] = true
		transactions = append(transactions, ledgerdomain.Transaction{
			Kind:           ledgerdomain.TransactionCharge,
			Date:           f.CreatedAt,
			TermID:         f.TermID,
			AcademicYearID: f.AcademicYearID,
			Reference:      strconv.FormatInt(f.ID.Int64(), 10),
			Description:    f.Name,
			Debit:          f.TotalAmount,
		})
	}

	for i := range in.Payments {
		p := &in.Payments[i]
		txn := ledgerdomain.Transaction{
			Kind:           ledgerdomain.TransactionPayment,
			Date:           p.PaymentDate,
			TermID:         p.TermID,
			AcademicYearID: p.AcademicYearID,
			Reference:      p.ReceiptNo,
			Description:    p.Description,
			Credit:         p.Amount,
		}
		if txn.Reference == "" {
			txn.Reference = p.ReferenceNo
		}
		if p.Method == paymentdomain.MethodCarryForward {
			if in.ExcludeCarryForward {
				continue
			}
			txn.Kind = ledgerdomain.TransactionCarryForward
			if p.Amount < 0 {
				txn.Credit = 0
				txn.Debit = -p.Amount
			}
		}
		transactions = append(transactions, txn)
	}
	return transactions
}

func yearOutstanding(transactions []ledgerdomain.Transaction, yearID snowflake.ID, opening int64) int64 {
	outstanding := opening
	for i := range transactions {
		if yearID != 0 && transactions[i].AcademicYearID != yearID {
			continue
		}
		outstanding = transactions[i].Balance
	}
	return outstanding
}

func termBalances(transactions []ledgerdomain.Transaction, terms []schooldomain.Term) []ledgerdomain.TermBalance {
	balances := make([]ledgerdomain.TermBalance, 0, len(terms))
	for i := range terms {
		term := &terms[i]
		balance := ledgerdomain.TermBalance{
			TermID:         term.ID,
			TermName:       term.Name,
			Position:       term.Position,
			AcademicYearID: term.AcademicYearID,
		}
		for j := range transactions {
			if transactions[j].TermID != term.ID {
				continue
			}
			balance.TotalCharged += transactions[j].Debit
			balance.TotalPaid += transactions[j].Credit
		}
		balance.Outstanding = balance.TotalCharged - balance.TotalPaid
		balances = append(balances, balance)
	}
	return balances
}

// termSlice sums debits minus credits tagged to the term, independent of the
// global running balance. A term paid out of order still reads correctly.
func termSlice(transactions []ledgerdomain.Transaction, termID snowflake.ID) int64 {
	var outstanding int64
	for i := range transactions {
		if transactions[i].TermID != termID {
			continue
		}
		outstanding += transactions[i].Debit - transactions[i].Credit
	}
	return outstanding
}
