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
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func (p *PDFProvider) RenderReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
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
		text.NewCol(4, "Official Receipt", props.Text{
			Size:  12,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt no: "+data.ReceiptNo, props.Text{Top: 0}),
			text.New("Date: "+data.IssuedAt, props.Text{Top: 4}),
			text.New("Received by: "+data.ReceivedBy, props.Text{Top: 8}),
		),
		col.New(6).Add(
			text.New("Student: "+data.StudentName, props.Text{Top: 0}),
			text.New("Admission no: "+data.AdmissionNo, props.Text{Top: 4}),
			text.New("Year / term: "+data.YearLabel+" / "+data.TermName, props.Text{Top: 8}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, formatMoney(data.Currency, data.Amount)+" received via "+data.Method, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "", props.Text{Size: 9}),
		text.NewCol(3, "Before", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "After", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, "Term balance", props.Text{Size: 9}),
		text.NewCol(3, formatMoney(data.Currency, data.TermBalanceBefore), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(3, formatMoney(data.Currency, data.TermBalanceAfter), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, "Year balance", props.Text{Size: 9}),
		text.NewCol(3, formatMoney(data.Currency, data.YearBalanceBefore), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(3, formatMoney(data.Currency, data.YearBalanceAfter), props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
