// Package billing computes what a stay owes. Everything here is pure: the
// stay ledger loads the inputs and persists the results.
package billing

import (
	"errors"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/pkg/money"
)

const (
	DirectionIncome = "income"
	DirectionRefund = "refund"
)

const (
	LodgingDescription = "Lodging"
	CarriedDescription = "Carried balance"
)

var ErrWaiverNotPermitted = errors.New("waiver_not_permitted")

// ElapsedNights is the number of started 24h periods since check-in, never
// less than one.
func ElapsedNights(checkIn, now time.Time) int {
	elapsed := now.Sub(checkIn)
	if elapsed <= 0 {
		return 1
	}
	nights := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) != 0 {
		nights++
	}
	if nights < 1 {
		return 1
	}
	return nights
}

type RateInput struct {
	AgreedRate   *int64
	CapturedRate int64
	LiveRate     int64
	Frozen       bool
}

// ResolveRate picks the nightly rate: an agreed reservation rate first, then
// the rate captured at check-in when rates are frozen, else the live price.
func ResolveRate(in RateInput) int64 {
	if in.AgreedRate != nil && *in.AgreedRate > 0 {
		return *in.AgreedRate
	}
	if in.Frozen && in.CapturedRate > 0 {
		return in.CapturedRate
	}
	return in.LiveRate
}

type ConsumptionLine struct {
	ServiceID   snowflake.ID
	ServiceName string
	Quantity    int64
	UnitPrice   int64
}

type PaymentEntry struct {
	Amount    int64
	Direction string
}

type Input struct {
	CheckInAt      time.Time
	Now            time.Time
	Rate           int64
	Consumptions   []ConsumptionLine
	CarriedBalance int64
	AdvancePayment int64
	Payments       []PaymentEntry
	// Waive forgives one night; callers check the waiver window first.
	Waive bool
}

type ServiceTotal struct {
	ServiceID   snowflake.ID `json:"service_id"`
	ServiceName string       `json:"service_name"`
	Quantity    int64        `json:"quantity"`
	UnitPrice   int64        `json:"unit_price"`
	Cost        int64        `json:"cost"`
}

type Summary struct {
	ElapsedNights   int            `json:"elapsed_nights"`
	Nights          int            `json:"nights"`
	Rate            int64          `json:"rate"`
	RoomCost        int64          `json:"room_cost"`
	Consumption     []ServiceTotal `json:"consumption"`
	ConsumptionCost int64          `json:"consumption_cost"`
	CarriedBalance  int64          `json:"carried_balance"`
	TotalDue        int64          `json:"total_due"`
	AdvancePayment  int64          `json:"advance_payment"`
	PaymentsIn      int64          `json:"payments_in"`
	PaymentsOut     int64          `json:"payments_out"`
	TotalPaid       int64          `json:"total_paid"`
	Balance         int64          `json:"balance"`
	Waived          bool           `json:"waived"`
}

// Compute aggregates room nights, consumption, carried balance and payments.
// A negative balance is a refund owed to the guest.
func Compute(in Input) Summary {
	elapsed := ElapsedNights(in.CheckInAt, in.Now)
	nights := elapsed
	waived := false
	if in.Waive && nights > 1 {
		nights--
		waived = true
	}

	summary := Summary{
		ElapsedNights:  elapsed,
		Nights:         nights,
		Rate:           in.Rate,
		RoomCost:       money.Multiply(in.Rate, int64(nights)),
		Consumption:    groupConsumption(in.Consumptions),
		CarriedBalance: in.CarriedBalance,
		AdvancePayment: in.AdvancePayment,
		Waived:         waived,
	}
	for _, line := range summary.Consumption {
		summary.ConsumptionCost += line.Cost
	}
	summary.TotalDue = summary.RoomCost + summary.ConsumptionCost + summary.CarriedBalance

	for _, p := range in.Payments {
		switch p.Direction {
		case DirectionRefund:
			summary.PaymentsOut += p.Amount
		default:
			summary.PaymentsIn += p.Amount
		}
	}
	summary.TotalPaid = summary.AdvancePayment + summary.PaymentsIn - summary.PaymentsOut
	summary.Balance = summary.TotalDue - summary.TotalPaid
	return summary
}

// groupConsumption folds every line of a service into one, ordered by
// service name. Cost is exact; UnitPrice is the quantity-weighted average
// rounded half up, so it only equals each snapshot price when they agree.
func groupConsumption(lines []ConsumptionLine) []ServiceTotal {
	index := map[snowflake.ID]int{}
	out := []ServiceTotal{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		i, ok := index[line.ServiceID]
		if !ok {
			i = len(out)
			index[line.ServiceID] = i
			out = append(out, ServiceTotal{
				ServiceID:   line.ServiceID,
				ServiceName: line.ServiceName,
			})
		}
		out[i].Quantity += line.Quantity
		out[i].Cost += money.Multiply(line.UnitPrice, line.Quantity)
	}
	for i := range out {
		out[i].UnitPrice = averageUnitPrice(out[i].Cost, out[i].Quantity)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].ServiceName != out[b].ServiceName {
			return out[a].ServiceName < out[b].ServiceName
		}
		return out[a].ServiceID < out[b].ServiceID
	})
	return out
}

func averageUnitPrice(cost, quantity int64) int64 {
	if quantity <= 0 {
		return 0
	}
	if cost >= 0 {
		return (2*cost + quantity) / (2 * quantity)
	}
	return -((-2*cost + quantity) / (2 * quantity))
}

// Window is the span after the scheduled checkout during which staff may
// waive the extra night.
type Window struct {
	Start time.Time
	End   time.Time
}

func WaiverWindow(scheduledCheckout time.Time, tolerance time.Duration) Window {
	return Window{Start: scheduledCheckout, End: scheduledCheckout.Add(tolerance)}
}

// Permits reports whether now falls in (Start, End].
func (w Window) Permits(now time.Time) bool {
	return now.After(w.Start) && !now.After(w.End)
}

type Line struct {
	ServiceID   *snowflake.ID
	Description string
	Quantity    int64
	UnitPrice   int64
	Cost        int64
}

// InvoiceLines renders a summary as invoice detail lines whose costs add up
// to the summary's total due.
func InvoiceLines(s Summary) []Line {
	lines := []Line{{
		Description: LodgingDescription,
		Quantity:    int64(s.Nights),
		UnitPrice:   s.Rate,
		Cost:        s.RoomCost,
	}}
	if s.CarriedBalance != 0 {
		lines = append(lines, Line{
			Description: CarriedDescription,
			Quantity:    1,
			UnitPrice:   s.CarriedBalance,
			Cost:        s.CarriedBalance,
		})
	}
	for _, item := range s.Consumption {
		serviceID := item.ServiceID
		lines = append(lines, Line{
			ServiceID:   &serviceID,
			Description: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Cost:        item.Cost,
		})
	}
	return lines
}

func SumLines(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		total += line.Cost
	}
	return total
}
