package pdf

import (
	"context"

	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var registerColumns = []struct {
	title string
	size  int
}{
	{"Room", 1},
	{"Guest", 2},
	{"Nationality", 1},
	{"ID", 1},
	{"Issued", 1},
	{"Civil status", 1},
	{"Age", 1},
	{"Profession", 1},
	{"Origin", 1},
	{"Check-in", 2},
}

// RenderRegister renders the daily guest register in landscape.
func (p *PDFProvider) RenderRegister(ctx context.Context, doc RegisterDocument) ([]byte, error) {
	m := newDocument(true)

	m.AddRow(12,
		text.NewCol(8, doc.HotelName, props.Text{Size: 14, Style: fontstyle.Bold}),
		text.NewCol(4, "Guest register "+doc.Date, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)

	m.AddRow(8, registerRow(func(i int) string { return registerColumns[i].title }, fontstyle.Bold)...)
	m.AddRow(2, line.NewCol(12))

	for _, entry := range doc.Entries {
		values := []string{
			entry.RoomNumber,
			entry.GuestName + roleSuffix(entry.Role),
			entry.Nationality,
			entry.IdentificationNumber,
			entry.IssuedIn,
			entry.CivilStatus,
			entry.Age,
			entry.Profession,
			entry.Origin,
			entry.CheckInAt,
		}
		m.AddRow(6, registerRow(func(i int) string { return values[i] }, fontstyle.Normal)...)
	}

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return generated.GetBytes(), nil
}

func registerRow(value func(i int) string, style fontstyle.Type) []core.Col {
	cols := make([]core.Col, 0, len(registerColumns))
	for i, column := range registerColumns {
		cols = append(cols, text.NewCol(column.size, value(i), props.Text{Size: 7, Style: style}))
	}
	return cols
}

func roleSuffix(role string) string {
	if role == "" || role == "holder" {
		return ""
	}
	return " (" + role + ")"
}
