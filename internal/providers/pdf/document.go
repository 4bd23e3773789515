package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func newDocument(landscape bool) core.Maroto {
	builder := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		})
	if landscape {
		builder = builder.WithOrientation(orientation.Horizontal)
	}
	return maroto.New(builder.Build())
}

// RenderStayDocument renders an invoice or receipt for a checked-out stay.
func (p *PDFProvider) RenderStayDocument(ctx context.Context, doc StayDocument) ([]byte, error) {
	if strings.TrimSpace(doc.Number) == "" {
		return nil, fmt.Errorf("stay document number is empty")
	}

	m := newDocument(false)

	m.AddRow(12,
		text.NewCol(8, doc.HotelName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, doc.Title, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Number: "+doc.Number, props.Text{Top: 0}),
			text.New("Issued: "+doc.IssuedAt, props.Text{Top: 5}),
			text.New("Issued by: "+doc.IssuedBy, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Room: "+doc.RoomNumber, props.Text{Top: 0, Align: align.Right}),
			text.New("Check-in: "+doc.CheckInAt, props.Text{Top: 5, Align: align.Right}),
			text.New("Check-out: "+doc.CheckOutAt, props.Text{Top: 10, Align: align.Right}),
			text.New(fmt.Sprintf("Nights: %d", doc.Nights), props.Text{Top: 15, Align: align.Right}),
		),
	)

	billTo := col.New(12).Add(
		text.New("Guest", props.Text{Style: fontstyle.Bold}),
		text.New(doc.GuestName+"  ("+doc.GuestDocument+")", props.Text{Top: 5}),
	)
	if doc.TaxID != "" {
		billTo.Add(text.New("Tax ID: "+doc.TaxID+"  "+doc.BusinessName, props.Text{Top: 10}))
	}
	m.AddRow(18, billTo)

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range doc.Lines {
		m.AddRow(7,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Cost, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(2, line.NewCol(12))

	totals := []struct {
		label string
		value string
		bold  bool
	}{
		{label: "Room", value: doc.RoomCost},
		{label: "Services", value: doc.Consumption},
		{label: "Carried balance", value: doc.Carried},
		{label: "Total due", value: doc.TotalDue, bold: true},
		{label: "Paid", value: doc.TotalPaid},
		{label: "Balance", value: doc.Balance, bold: true},
	}
	for _, row := range totals {
		style := fontstyle.Normal
		if row.bold {
			style = fontstyle.Bold
		}
		m.AddRow(6,
			col.New(7),
			text.NewCol(3, row.label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, row.value, props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}
	if doc.Waived {
		m.AddRow(6, text.NewCol(12, "Late checkout night waived", props.Text{Size: 8, Style: fontstyle.Italic}))
	}

	if len(doc.Payments) > 0 {
		m.AddRow(10, text.NewCol(12, "Payments", props.Text{Style: fontstyle.Bold, Size: 10, Top: 4}))
		for _, payment := range doc.Payments {
			m.AddRow(6,
				text.NewCol(3, payment.Date, props.Text{Size: 8}),
				text.NewCol(2, payment.Method, props.Text{Size: 8}),
				text.NewCol(2, payment.Direction, props.Text{Size: 8}),
				text.NewCol(3, payment.Description, props.Text{Size: 8}),
				text.NewCol(2, payment.Amount, props.Text{Size: 8, Align: align.Right}),
			)
		}
	}

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return generated.GetBytes(), nil
}
