// Package pdf renders printable receipts and fee statements.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
)

// ReceiptData carries everything a printed receipt shows. Balances are the
// values captured at allocation time, not recomputed.
type ReceiptData struct {
	SchoolName  string
	Currency    string
	ReceiptNo   string
	StudentName string
	AdmissionNo string
	YearLabel   string
	TermName    string
	Method      string
	ReceivedBy  string
	IssuedAt    string

	Amount            int64
	TermBalanceBefore int64
	TermBalanceAfter  int64
	YearBalanceBefore int64
	YearBalanceAfter  int64
}

// StatementData wraps the computed statement with the school header.
type StatementData struct {
	SchoolName string
	Statement  *ledgerdomain.StatementResult
}

type Provider interface {
	RenderReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
	RenderStatement(ctx context.Context, data StatementData) (io.Reader, error)
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

// formatMoney renders minor units with thousands separators, e.g.
// "UGX 1,250,000". Negative amounts keep the sign ahead of the currency.
func formatMoney(currency string, amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	currency = strings.TrimSpace(currency)
	if currency == "" {
		return sign + b.String()
	}
	return sign + currency + " " + b.String()
}
