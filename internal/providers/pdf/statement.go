package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	ledgerdomain "github.com/shulekit/shulekit/internal/ledger/domain"
)

func (p *PDFProvider) RenderStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	stmt := data.Statement

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, data.SchoolName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Fee Statement "+stmt.YearLabel, props.Text{
			Size:  12,
			Align: align.Right,
		}),
	)

	m.AddRow(15,
		col.New(12).Add(
			text.New("Student: "+stmt.StudentName, props.Text{Top: 0}),
			text.New("Admission no: "+stmt.AdmissionNo, props.Text{Top: 4}),
		),
	)

	m.AddRow(10,
		text.NewCol(2, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Charged", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Paid", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Balance", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for i := range stmt.Rows {
		m.AddRow(8, statementCols(stmt.Currency, &stmt.Rows[i])...)
	}

	m.AddRow(12,
		col.New(8),
		text.NewCol(4, "Outstanding: "+formatMoney(stmt.Currency, stmt.Outstanding), props.Text{
			Style: fontstyle.Bold,
			Size:  11,
			Align: align.Right,
			Top:   4,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func statementCols(currency string, row *ledgerdomain.StatementRow) []core.Col {
	switch row.Kind {
	case ledgerdomain.RowEntry:
		date := ""
		if row.Date != nil {
			date = row.Date.Format("2006-01-02")
		}
		return []core.Col{
			text.NewCol(2, date, props.Text{Size: 9}),
			text.NewCol(4, row.Description, props.Text{Size: 9}),
			text.NewCol(2, amountCell(currency, row.Debit), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, amountCell(currency, row.Credit), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, formatMoney(currency, row.Balance), props.Text{Size: 9, Align: align.Right}),
		}
	case ledgerdomain.RowTermHeader:
		return []core.Col{
			text.NewCol(12, row.Description, props.Text{Size: 10, Style: fontstyle.Bold, Top: 2}),
		}
	default:
		// Term closing and brought-forward lines show only the balance.
		return []core.Col{
			col.New(2),
			text.NewCol(8, row.Description, props.Text{Size: 9, Style: fontstyle.Italic}),
			text.NewCol(2, formatMoney(currency, row.Balance), props.Text{Size: 9, Align: align.Right}),
		}
	}
}

func amountCell(currency string, amount int64) string {
	if amount == 0 {
		return ""
	}
	return formatMoney(currency, amount)
}
