package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderStayDocument(t *testing.T) {
	provider := New()

	out, err := provider.RenderStayDocument(context.Background(), StayDocument{
		HotelName:  "Hotel Central",
		Title:      "RECEIPT",
		Number:     "REC-20260101-0001",
		IssuedAt:   "2026-01-01 11:00",
		GuestName:  "Ana Rojas",
		RoomNumber: "101",
		Nights:     2,
		Lines: []DocumentLine{
			{Description: "Lodging", Quantity: 2, UnitPrice: "150.00", Cost: "300.00"},
			{Description: "Laundry", Quantity: 1, UnitPrice: "20.00", Cost: "20.00"},
		},
		TotalDue: "320.00",
		Payments: []DocumentPayment{{Date: "2026-01-01", Method: "cash", Direction: "income", Amount: "320.00"}},
	})
	require.NoError(t, err)
	require.True(t, len(out) > 4)
	require.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderStayDocumentRequiresNumber(t *testing.T) {
	_, err := New().RenderStayDocument(context.Background(), StayDocument{})
	require.Error(t, err)
}

func TestRenderRegister(t *testing.T) {
	out, err := New().RenderRegister(context.Background(), RegisterDocument{
		HotelName: "Hotel Central",
		Date:      "2026-01-01",
		Entries: []RegisterEntry{
			{RoomNumber: "101", GuestName: "Ana Rojas", Role: "holder", Nationality: "BO", Age: "34"},
			{RoomNumber: "101", GuestName: "Luis Rojas", Role: "companion", Nationality: "BO", Age: "36"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(out[:4]))
}
