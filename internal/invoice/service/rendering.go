package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/billing"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	"github.com/smallbiznis/frontdesk/pkg/money"
	"go.uber.org/zap"
)

const displayLayout = "2006-01-02 15:04"

// Render produces the printable PDF for an issued document.
func (s *Service) Render(ctx context.Context, id snowflake.ID) ([]byte, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stay, err := s.loadStayContext(ctx, invoice.StayID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByStay(ctx, nil, invoice.StayID)
	if err != nil {
		return nil, err
	}

	policy := s.policy.Get()
	doc := buildStayDocument(policy.HotelName, invoice, *stay, payments, policy.Location())
	out, err := s.pdf.RenderStayDocument(ctx, doc)
	if err != nil {
		s.log.Error("failed to render document", zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func buildStayDocument(
	hotel string,
	invoice invoicedomain.Invoice,
	stay invoicedomain.StayContext,
	payments []paymentdomain.Payment,
	loc *time.Location,
) pdf.StayDocument {
	currency := invoice.Currency
	doc := pdf.StayDocument{
		HotelName:     hotel,
		Title:         strings.ToUpper(string(invoice.DocumentType)),
		Number:        invoice.Number,
		IssuedAt:      invoice.IssuedAt.In(loc).Format(displayLayout),
		IssuedBy:      invoice.IssuedBy,
		GuestName:     strings.TrimSpace(stay.FirstName + " " + stay.LastName),
		GuestDocument: stay.IdentificationNumber,
		TaxID:         invoice.TaxID,
		BusinessName:  invoice.BusinessName,
		RoomNumber:    stay.RoomNumber,
		CheckInAt:     stay.CheckInAt.In(loc).Format(displayLayout),
		TotalDue:      money.Format(invoice.TotalAmount, currency),
		Waived:        invoice.Waived,
	}
	if stay.CheckOutAt != nil {
		doc.CheckOutAt = stay.CheckOutAt.In(loc).Format(displayLayout)
	}

	var roomCost, carried, consumption int64
	for _, detail := range invoice.Details {
		switch {
		case detail.ServiceID != nil:
			consumption += detail.Cost
		case detail.Description == billing.CarriedDescription:
			carried += detail.Cost
		default:
			roomCost += detail.Cost
			doc.Nights = int(detail.Quantity)
		}
		doc.Lines = append(doc.Lines, pdf.DocumentLine{
			Description: detail.Description,
			Quantity:    detail.Quantity,
			UnitPrice:   money.Format(detail.UnitPrice, ""),
			Cost:        money.Format(detail.Cost, ""),
		})
	}

	paid := stay.AdvancePayment
	if stay.AdvancePayment > 0 {
		doc.Payments = append(doc.Payments, pdf.DocumentPayment{
			Date:        stay.CheckInAt.In(loc).Format(displayLayout),
			Method:      stay.AdvanceMethod,
			Direction:   string(paymentdomain.DirectionIncome),
			Amount:      money.Format(stay.AdvancePayment, ""),
			Description: "Advance",
		})
	}
	for _, p := range payments {
		amount := p.Amount
		if p.Direction == paymentdomain.DirectionRefund {
			amount = -amount
		}
		paid += amount
		doc.Payments = append(doc.Payments, pdf.DocumentPayment{
			Date:        p.CreatedAt.In(loc).Format(displayLayout),
			Method:      string(p.Method),
			Direction:   string(p.Direction),
			Amount:      money.Format(p.Amount, ""),
			Description: p.Description,
		})
	}

	doc.RoomCost = money.Format(roomCost, currency)
	doc.Consumption = money.Format(consumption, currency)
	doc.Carried = money.Format(carried, currency)
	doc.TotalPaid = money.Format(paid, currency)
	doc.Balance = money.Format(invoice.TotalAmount-paid, currency)
	return doc
}
