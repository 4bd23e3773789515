package pdf

import (
	"context"
)

// Provider lays out computed front-desk documents onto printable pages.
type Provider interface {
	RenderStayDocument(ctx context.Context, doc StayDocument) ([]byte, error)
	RenderRegister(ctx context.Context, doc RegisterDocument) ([]byte, error)
}

type StayDocument struct {
	HotelName     string
	Title         string
	Number        string
	IssuedAt      string
	IssuedBy      string
	GuestName     string
	GuestDocument string
	TaxID         string
	BusinessName  string
	RoomNumber    string
	CheckInAt     string
	CheckOutAt    string
	Nights        int
	Lines         []DocumentLine
	RoomCost      string
	Consumption   string
	Carried       string
	TotalDue      string
	TotalPaid     string
	Balance       string
	Payments      []DocumentPayment
	Waived        bool
}

type DocumentLine struct {
	Description string
	Quantity    int64
	UnitPrice   string
	Cost        string
}

type DocumentPayment struct {
	Date        string
	Method      string
	Direction   string
	Amount      string
	Description string
}

type RegisterDocument struct {
	HotelName string
	Date      string
	Entries   []RegisterEntry
}

type RegisterEntry struct {
	RoomNumber           string
	GuestName            string
	Role                 string
	Nationality          string
	IdentificationNumber string
	IssuedIn             string
	CivilStatus          string
	Age                  string
	Profession           string
	Origin               string
	CheckInAt            string
}
