package service

import (
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
)

// BuildStatement groups an already-computed transaction stream into printable
// rows: a header and closing marker per term, plus a brought-forward marker
// when an opening balance exists. It formats, it never recomputes; entry rows
// keep the running balance stamped by Compute.
func BuildStatement(result ledgerdomain.BalanceResult, terms []schooldomain.Term) []ledgerdomain.StatementRow {
	rows := make([]ledgerdomain.StatementRow, 0, len(result.Transactions)+2*len(terms)+1)
	seq := 0
	next := func() int {
		seq++
		return seq
	}

	snapshot := result.OpeningBalance
	if result.OpeningBalance != 0 {
		rows = append(rows, ledgerdomain.StatementRow{
			Seq:         next(),
			Kind:        ledgerdomain.RowBroughtForward,
			Description: "Balance brought forward",
			Balance:     result.OpeningBalance,
		})
	}

	emitted := make([]bool, len(result.Transactions))
	for t := range terms {
		term := &terms[t]

		first := true
		for i := range result.Transactions {
			txn := &result.Transactions[i]
			if txn.TermID != term.ID {
				continue
			}
			if first {
				rows = append(rows, ledgerdomain.StatementRow{
					Seq:         next(),
					Kind:        ledgerdomain.RowTermHeader,
					Description: term.Name,
					Balance:     snapshot,
				})
				first = false
			}
			rows = append(rows, entryRow(next(), txn))
			emitted[i] = true
			snapshot = txn.Balance
		}
		if !first {
			rows = append(rows, ledgerdomain.StatementRow{
				Seq:         next(),
				Kind:        ledgerdomain.RowTermClosing,
				Description: term.Name + " closing balance",
				Balance:     snapshot,
			})
		}
	}

	// Entries tagged outside the supplied term layout (old years, orphaned
	// terms) still appear rather than silently vanishing.
	for i := range result.Transactions {
		if emitted[i] {
			continue
		}
		txn := &result.Transactions[i]
		rows = append(rows, entryRow(next(), txn))
		snapshot = txn.Balance
	}

	return rows
}

func entryRow(seq int, txn *ledgerdomain.Transaction) ledgerdomain.StatementRow {
	date := txn.Date
	description := txn.Description
	if description == "" {
		switch txn.Kind {
		case ledgerdomain.TransactionPayment:
			description = "Payment received"
		case ledgerdomain.TransactionCarryForward:
			description = "Carry forward"
		default:
			description = "Fee charge"
		}
	}
	return ledgerdomain.StatementRow{
		Seq:         seq,
		Kind:        ledgerdomain.RowEntry,
		Reference:   txn.Reference,
		Date:        &date,
		Description: description,
		Debit:       txn.Debit,
		Credit:      txn.Credit,
		Balance:     txn.Balance,
	}
}
