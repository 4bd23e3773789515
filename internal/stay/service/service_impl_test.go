package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditrepository "github.com/smallbiznis/frontdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/frontdesk/internal/audit/service"
	"github.com/smallbiznis/frontdesk/internal/billing"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	guestrepository "github.com/smallbiznis/frontdesk/internal/guest/repository"
	guestservice "github.com/smallbiznis/frontdesk/internal/guest/service"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/frontdesk/internal/invoice/service"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	paymentrepository "github.com/smallbiznis/frontdesk/internal/payment/repository"
	paymentservice "github.com/smallbiznis/frontdesk/internal/payment/service"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
	referenceservice "github.com/smallbiznis/frontdesk/internal/reference/service"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	roomrepository "github.com/smallbiznis/frontdesk/internal/room/repository"
	roomservice "github.com/smallbiznis/frontdesk/internal/room/service"
	"github.com/smallbiznis/frontdesk/internal/stay/domain"
	"github.com/smallbiznis/frontdesk/internal/stay/repository"
	"github.com/smallbiznis/frontdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	clock     *clock.FakeClock
	policy    *config.PolicyHolder
	svc       domain.Service
	rooms     roomdomain.Service
	guests    guestdomain.Service
	invoices  invoicedomain.Service
	room101   roomdomain.Room // rate 100, capacity 2
	room102   roomdomain.Room // rate 80, capacity 2
	room103   roomdomain.Room // rate 80, capacity 2
	single    roomdomain.Room // rate 80, capacity 1
	breakfast referencedomain.ServiceItem
	schedule  referencedomain.Schedule
	price100  referencedomain.Price
}

func newFixture(t *testing.T, policy config.Policy) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(start)
	holder := config.NewStaticPolicyHolder(policy)
	log := zap.NewNop()

	refs := referenceservice.New(referenceservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Policy: holder})
	audits := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide()})
	rooms := roomservice.New(roomservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Policy: holder,
		Repo: roomrepository.Provide(), References: refs, AuditSvc: audits,
	})
	guests := guestservice.New(guestservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: guestrepository.Provide(), AuditSvc: audits,
	})
	payments := paymentservice.New(paymentservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Policy: holder, Repo: paymentrepository.Provide(),
	})
	invoices := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk, Policy: holder, Payments: payments, PDF: pdf.New(),
	})
	svc := New(Params{
		DB: db, Log: log, GenID: node, Clock: clk, Policy: holder,
		Repo: repository.Provide(), Rooms: rooms, Guests: guests, References: refs,
		Payments: payments, Invoices: invoices, AuditSvc: audits,
	})

	ctx := context.Background()
	double, err := refs.CreateRoomType(ctx, referencedomain.CreateRoomTypeRequest{Name: "Double", Capacity: 2})
	require.NoError(t, err)
	single, err := refs.CreateRoomType(ctx, referencedomain.CreateRoomTypeRequest{Name: "Single", Capacity: 1})
	require.NoError(t, err)
	p100, err := refs.CreatePrice(ctx, referencedomain.CreatePriceRequest{Label: "Standard", Amount: 10000})
	require.NoError(t, err)
	p80, err := refs.CreatePrice(ctx, referencedomain.CreatePriceRequest{Label: "Economy", Amount: 8000})
	require.NoError(t, err)
	breakfast, err := refs.CreateService(ctx, referencedomain.CreateServiceRequest{Name: "Breakfast", Price: 3500})
	require.NoError(t, err)
	schedule, err := refs.CreateSchedule(ctx, referencedomain.CreateScheduleRequest{
		Name: "Standard", CheckInTime: "14:00", CheckOutTime: "12:00", ExitToleranceMinutes: 60,
	})
	require.NoError(t, err)

	newRoom := func(number string, typeID, priceID snowflake.ID) roomdomain.Room {
		room, err := rooms.Create(ctx, roomdomain.CreateRoomRequest{Number: number, RoomTypeID: typeID, PriceID: priceID})
		require.NoError(t, err)
		return room
	}

	return &fixture{
		db:        db,
		clock:     clk,
		policy:    holder,
		svc:       svc,
		rooms:     rooms,
		guests:    guests,
		invoices:  invoices,
		room101:   newRoom("101", double.ID, p100.ID),
		room102:   newRoom("102", double.ID, p80.ID),
		room103:   newRoom("103", double.ID, p80.ID),
		single:    newRoom("201", single.ID, p80.ID),
		breakfast: breakfast,
		schedule:  schedule,
		price100:  p100,
	}
}

func guestAttrs(id string) *guestdomain.Attributes {
	return &guestdomain.Attributes{
		FirstName:            "Guest",
		LastName:             id,
		Nationality:          "BO",
		IdentificationNumber: id,
	}
}

func (f *fixture) checkIn(t *testing.T, room roomdomain.Room, id string, mutate ...func(*domain.CheckInRequest)) domain.Stay {
	t.Helper()
	req := domain.CheckInRequest{Guest: guestAttrs(id), RoomID: room.ID, PlannedNights: 3}
	for _, m := range mutate {
		m(&req)
	}
	stay, err := f.svc.CheckIn(context.Background(), req)
	require.NoError(t, err)
	return stay
}

func (f *fixture) roomStatus(t *testing.T, id snowflake.ID) roomdomain.Status {
	t.Helper()
	detail, err := f.rooms.Get(context.Background(), id)
	require.NoError(t, err)
	return detail.Status
}

func (f *fixture) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM `+table).Scan(&n).Error)
	return n
}

func TestCheckInConsumptionCheckout(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	stay := f.checkIn(t, f.room101, "CI-1")
	assert.Equal(t, domain.StatusActive, stay.Status)
	assert.Equal(t, int64(10000), stay.NightlyRate)
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.room101.ID))

	line, err := f.svc.AddConsumption(ctx, stay.ID, domain.ConsumptionRequest{ServiceID: f.breakfast.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), line.SellingPrice)
	assert.Equal(t, "Breakfast", line.ServiceName)

	f.clock.Advance(24 * time.Hour)
	result, err := f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "receipt"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.Nights)
	assert.Equal(t, int64(10000), result.Summary.RoomCost)
	assert.Equal(t, int64(7000), result.Summary.ConsumptionCost)
	assert.Equal(t, int64(17000), result.Summary.TotalDue)
	assert.Equal(t, int64(17000), result.Summary.Balance)
	assert.Equal(t, domain.StatusFinalized, result.Stay.Status)
	assert.Equal(t, domain.ClosedCheckout, result.Stay.ClosedReason)

	invoice, err := f.invoices.GetByStay(ctx, nil, stay.ID)
	require.NoError(t, err)
	var sum int64
	for _, d := range invoice.Details {
		sum += d.Cost
	}
	assert.Equal(t, invoice.TotalAmount, sum)
	assert.Equal(t, int64(17000), invoice.TotalAmount)
	assert.Nil(t, invoice.Details[0].ServiceID)
	assert.Equal(t, roomdomain.StatusCleaning, f.roomStatus(t, f.room101.ID))
}

func TestPartialPaymentBalance(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	stay := f.checkIn(t, f.room101, "CI-2", func(r *domain.CheckInRequest) {
		r.AdvancePayment = 5000
		r.AdvanceMethod = "efectivo"
	})
	assert.Equal(t, "cash", stay.AdvanceMethod)

	_, err := f.svc.AddConsumption(ctx, stay.ID, domain.ConsumptionRequest{ServiceID: f.breakfast.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.AddPayment(ctx, stay.ID, domain.PaymentRequest{Amount: 2000, Method: "card"})
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	result, err := f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "receipt"})
	require.NoError(t, err)
	assert.Equal(t, int64(17000), result.Summary.TotalDue)
	assert.Equal(t, int64(7000), result.Summary.TotalPaid)
	assert.Equal(t, int64(10000), result.Summary.Balance)
}

func TestTransferCarriesUnpaidBalance(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	companion, err := f.guests.Create(ctx, nil, *guestAttrs("CO-1"))
	require.NoError(t, err)
	stay := f.checkIn(t, f.room102, "CI-3", func(r *domain.CheckInRequest) {
		r.CompanionIDs = []snowflake.ID{companion.ID}
		r.ScheduleID = &f.schedule.ID
	})

	f.clock.Advance(48 * time.Hour)
	result, err := f.svc.Transfer(ctx, stay.ID, f.room103.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(16000), result.Summary.TotalDue)
	assert.Equal(t, result.Summary.TotalDue-result.Summary.TotalPaid, result.Opened.CarriedBalance)
	assert.Equal(t, int64(16000), result.Opened.CarriedBalance)
	assert.Equal(t, 1, result.Opened.PlannedNights)
	assert.Equal(t, stay.ID, *result.Opened.PreviousStayID)
	assert.Equal(t, f.schedule.ID, *result.Opened.ScheduleID)
	assert.Equal(t, []snowflake.ID{companion.ID}, result.Opened.CompanionIDs)
	assert.Equal(t, domain.ClosedTransfer, result.Closed.ClosedReason)
	assert.Equal(t, roomdomain.StatusCleaning, f.roomStatus(t, f.room102.ID))
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.room103.ID))

	f.clock.Advance(time.Hour)
	checkout, err := f.svc.Checkout(ctx, result.Opened.ID, domain.CheckoutRequest{DocumentType: "receipt"})
	require.NoError(t, err)
	assert.Equal(t, int64(8000+16000), checkout.Summary.TotalDue)
}

func TestTransferIsAtomic(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	stay := f.checkIn(t, f.room102, "CI-4")
	f.checkIn(t, f.room103, "CI-5")

	_, err := f.svc.Transfer(ctx, stay.ID, f.room103.ID)
	assert.ErrorIs(t, err, roomdomain.ErrRoomUnavailable)

	current, err := f.svc.Get(ctx, stay.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, current.Status)
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.room102.ID))

	_, err = f.svc.Transfer(ctx, stay.ID, f.room102.ID)
	assert.ErrorIs(t, err, domain.ErrSameRoom)
}

func TestMergeFailsAtCapacity(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	companion, err := f.guests.Create(ctx, nil, *guestAttrs("CO-2"))
	require.NoError(t, err)
	target := f.checkIn(t, f.room101, "CI-6", func(r *domain.CheckInRequest) {
		r.CompanionIDs = []snowflake.ID{companion.ID}
	})
	source := f.checkIn(t, f.room102, "CI-7")

	_, err = f.svc.MergeIntoGroup(ctx, source.ID, target.ID)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	current, err := f.svc.Get(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, current.Status)
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.room102.ID))

	targetNow, err := f.svc.Get(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, targetNow.CompanionIDs, 1)
}

func TestMergeIntoGroup(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	target := f.checkIn(t, f.room101, "CI-8")
	source := f.checkIn(t, f.room102, "CI-9", func(r *domain.CheckInRequest) { r.AdvancePayment = 3000 })

	f.clock.Advance(2 * time.Hour)
	result, err := f.svc.MergeIntoGroup(ctx, source.ID, target.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(8000-3000), result.Summary.Balance)
	assert.Equal(t, int64(5000), result.Target.CarriedBalance)
	assert.Equal(t, domain.ClosedMerge, result.Source.ClosedReason)
	assert.Equal(t, roomdomain.StatusCleaning, f.roomStatus(t, f.room102.ID))

	merged, err := f.svc.Get(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{source.GuestID}, merged.CompanionIDs)
	assert.Equal(t, int64(5000), merged.CarriedBalance)

	_, err = f.svc.MergeIntoGroup(ctx, source.ID, target.ID)
	assert.ErrorIs(t, err, domain.ErrStayFinalized)
}

func TestDuplicateIdentificationCreatesNothing(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	_, err := f.guests.Create(ctx, nil, *guestAttrs("DUP-1"))
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, domain.CheckInRequest{Guest: guestAttrs("DUP-1"), RoomID: f.room101.ID, PlannedNights: 1})
	assert.ErrorIs(t, err, guestdomain.ErrDuplicateIdentification)
	assert.Equal(t, int64(1), f.count(t, "guests"))
	assert.Equal(t, int64(0), f.count(t, "stays"))
	assert.Equal(t, roomdomain.StatusAvailable, f.roomStatus(t, f.room101.ID))

	stay, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
		Guest: guestAttrs("DUP-1"), ReuseExistingGuest: true, RoomID: f.room101.ID, PlannedNights: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.count(t, "guests"))
	assert.NotZero(t, stay.GuestID)
}

func TestCheckoutTwiceConflicts(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	stay := f.checkIn(t, f.room101, "CI-10")
	_, err := f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "receipt"})
	require.NoError(t, err)
	_, err = f.rooms.MarkClean(ctx, f.room101.ID)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "receipt"})
	assert.ErrorIs(t, err, domain.ErrStayFinalized)
	assert.Equal(t, int64(1), f.count(t, "invoices"))
	assert.Equal(t, roomdomain.StatusAvailable, f.roomStatus(t, f.room101.ID))
}

func TestConcurrentCheckoutIssuesOneInvoice(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()
	stay := f.checkIn(t, f.room101, "CI-10b")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "receipt"})
		}(i)
	}
	wg.Wait()

	var succeeded, finalized int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrStayFinalized):
			finalized++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, finalized)
	assert.Equal(t, int64(1), f.count(t, "invoices"))
	assert.Equal(t, roomdomain.StatusCleaning, f.roomStatus(t, f.room101.ID))
}

func TestCheckoutRollsBackOnFailure(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	stay := f.checkIn(t, f.room101, "CI-11")
	_, err := f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{
		DocumentType: "receipt",
		Payment:      &domain.PaymentRequest{Amount: 10000, Method: "qr"},
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidBank)

	current, err := f.svc.Get(ctx, stay.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, current.Status)
	assert.Nil(t, current.CheckOutAt)
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.room101.ID))
	assert.Equal(t, int64(0), f.count(t, "invoices"))
	assert.Equal(t, int64(0), f.count(t, "payments"))
}

func TestCheckoutValidatesDocument(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()
	stay := f.checkIn(t, f.room101, "CI-12")

	_, err := f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidDocumentType)

	_, err = f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "invoice", BusinessName: "ACME"})
	assert.ErrorIs(t, err, invoicedomain.ErrTaxIDRequired)

	result, err := f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{
		DocumentType: "factura", TaxID: "1020304", BusinessName: "ACME SRL",
		Payment: &domain.PaymentRequest{Amount: 10000, Method: "cash"},
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.DocumentInvoice, result.Invoice.DocumentType)
	require.NotNil(t, result.Payment)
	assert.Equal(t, int64(0), result.Summary.Balance)
}

func TestCheckInRejectsUnavailableRoom(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()
	f.checkIn(t, f.room101, "CI-13")

	_, err := f.svc.CheckIn(ctx, domain.CheckInRequest{Guest: guestAttrs("CI-14"), RoomID: f.room101.ID, PlannedNights: 1})
	assert.ErrorIs(t, err, roomdomain.ErrRoomUnavailable)
	assert.Equal(t, int64(1), f.count(t, "guests"))

	_, err = f.svc.CheckIn(ctx, domain.CheckInRequest{Guest: guestAttrs("CI-14"), RoomID: f.room102.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidPlannedNights)

	_, err = f.svc.CheckIn(ctx, domain.CheckInRequest{RoomID: f.room102.ID, PlannedNights: 1})
	assert.ErrorIs(t, err, domain.ErrGuestRequired)

	_, err = f.svc.CheckIn(ctx, domain.CheckInRequest{
		Guest: guestAttrs("CI-15"), Companions: []guestdomain.Attributes{*guestAttrs("CI-16")},
		RoomID: f.single.ID, PlannedNights: 1,
	})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, roomdomain.StatusAvailable, f.roomStatus(t, f.single.ID))
}

func TestCheckInRejectsHousedGuest(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()
	stay := f.checkIn(t, f.room101, "CI-17")

	_, err := f.svc.CheckIn(ctx, domain.CheckInRequest{GuestID: &stay.GuestID, RoomID: f.room102.ID, PlannedNights: 1})
	assert.ErrorIs(t, err, domain.ErrGuestAlreadyHoused)
}

func TestCancelAssignment(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	stay := f.checkIn(t, f.room101, "CI-18")
	f.clock.Advance(5 * time.Minute)
	require.NoError(t, f.svc.CancelAssignment(ctx, stay.ID))
	assert.Equal(t, roomdomain.StatusAvailable, f.roomStatus(t, f.room101.ID))
	_, err := f.svc.Get(ctx, stay.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	late := f.checkIn(t, f.room101, "CI-19")
	f.clock.Advance(11 * time.Minute)
	assert.ErrorIs(t, f.svc.CancelAssignment(ctx, late.ID), domain.ErrCancelWindowElapsed)

	paid := f.checkIn(t, f.room102, "CI-20")
	_, err = f.svc.AddPayment(ctx, paid.ID, domain.PaymentRequest{Amount: 1000, Method: "cash"})
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.CancelAssignment(ctx, paid.ID), domain.ErrHasPayments)
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.room102.ID))
}

func TestConsumptionLifecycle(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()
	stay := f.checkIn(t, f.room101, "CI-21")

	_, err := f.svc.AddConsumption(ctx, stay.ID, domain.ConsumptionRequest{ServiceID: f.breakfast.ID, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	line, err := f.svc.AddConsumption(ctx, stay.ID, domain.ConsumptionRequest{ServiceID: f.breakfast.ID, Quantity: 1})
	require.NoError(t, err)

	// later catalog changes leave the snapshot alone
	require.NoError(t, f.db.Exec(`UPDATE services SET price = 9900 WHERE id = ?`, f.breakfast.ID).Error)
	current, err := f.svc.Get(ctx, stay.ID)
	require.NoError(t, err)
	require.Len(t, current.Consumptions, 1)
	assert.Equal(t, int64(3500), current.Consumptions[0].SellingPrice)

	assert.ErrorIs(t, f.svc.RemoveConsumption(ctx, stay.ID, 12345), domain.ErrConsumptionNotFound)
	require.NoError(t, f.svc.RemoveConsumption(ctx, stay.ID, line.ID))

	_, err = f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "receipt"})
	require.NoError(t, err)
	_, err = f.svc.AddConsumption(ctx, stay.ID, domain.ConsumptionRequest{ServiceID: f.breakfast.ID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrStayFinalized)
	_, err = f.svc.AddPayment(ctx, stay.ID, domain.PaymentRequest{Amount: 100, Method: "cash"})
	assert.ErrorIs(t, err, domain.ErrStayFinalized)
}

func TestPreviewIsIdempotent(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()
	stay := f.checkIn(t, f.room101, "CI-22")
	_, err := f.svc.AddConsumption(ctx, stay.ID, domain.ConsumptionRequest{ServiceID: f.breakfast.ID, Quantity: 2})
	require.NoError(t, err)
	f.clock.Advance(30 * time.Hour)

	first, err := f.svc.Preview(ctx, stay.ID, false)
	require.NoError(t, err)
	second, err := f.svc.Preview(ctx, stay.ID, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, first.Summary.Nights)
	assert.Equal(t, first.Summary.TotalDue, billing.SumLines(first.Lines))
	assert.Equal(t, int64(0), f.count(t, "invoices"))
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.room101.ID))
}

func TestWaiverRequiresWindow(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	stay := f.checkIn(t, f.room101, "CI-23", func(r *domain.CheckInRequest) { r.ScheduleID = &f.schedule.ID })
	plain := f.checkIn(t, f.room102, "CI-24")

	// two days and thirty minutes later: inside 12:00 + 60 minutes
	f.clock.Set(start.Add(48*time.Hour + 30*time.Minute))

	preview, err := f.svc.Preview(ctx, stay.ID, false)
	require.NoError(t, err)
	assert.True(t, preview.WaiverPermitted)
	assert.Equal(t, 3, preview.Summary.Nights)

	_, err = f.svc.Checkout(ctx, plain.ID, domain.CheckoutRequest{DocumentType: "receipt", WaivePenalty: true})
	assert.ErrorIs(t, err, billing.ErrWaiverNotPermitted)

	result, err := f.svc.Checkout(ctx, stay.ID, domain.CheckoutRequest{DocumentType: "receipt", WaivePenalty: true})
	require.NoError(t, err)
	assert.True(t, result.Summary.Waived)
	assert.Equal(t, 2, result.Summary.Nights)
	assert.True(t, result.Invoice.Waived)

	late := f.checkIn(t, f.room103, "CI-25", func(r *domain.CheckInRequest) { r.ScheduleID = &f.schedule.ID })
	_ = late
	f.clock.Set(start.Add(72*time.Hour + 2*time.Hour))
	_, err = f.svc.Checkout(ctx, late.ID, domain.CheckoutRequest{DocumentType: "receipt", WaivePenalty: true})
	assert.ErrorIs(t, err, billing.ErrWaiverNotPermitted)
}

func TestRateModes(t *testing.T) {
	for _, tc := range []struct {
		mode string
		want int64
	}{
		{config.RateModeLive, 12000},
		{config.RateModeFrozen, 10000},
	} {
		t.Run(tc.mode, func(t *testing.T) {
			policy := config.DefaultPolicy()
			policy.RateMode = tc.mode
			f := newFixture(t, policy)
			ctx := context.Background()

			stay := f.checkIn(t, f.room101, "RATE-1")
			require.NoError(t, f.db.Exec(`UPDATE prices SET amount = 12000 WHERE id = ?`, f.price100.ID).Error)

			f.clock.Advance(time.Hour)
			preview, err := f.svc.Preview(ctx, stay.ID, false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, preview.Summary.Rate)
		})
	}
}

func TestListActiveAndPayments(t *testing.T) {
	f := newFixture(t, config.DefaultPolicy())
	ctx := context.Background()

	companion, err := f.guests.Create(ctx, nil, *guestAttrs("CO-3"))
	require.NoError(t, err)
	first := f.checkIn(t, f.room102, "CI-26", func(r *domain.CheckInRequest) {
		r.CompanionIDs = []snowflake.ID{companion.ID}
	})
	f.checkIn(t, f.room101, "CI-27")

	active, err := f.svc.ListActive(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "101", active[0].RoomNumber)
	assert.Equal(t, "102", active[1].RoomNumber)
	assert.Equal(t, 1, active[1].CompanionCount)
	assert.Equal(t, 2, active[1].Capacity)

	_, err = f.svc.AddPayment(ctx, first.ID, domain.PaymentRequest{Amount: 1500, Method: "transfer", IdempotencyKey: "pay-1"})
	require.NoError(t, err)
	_, err = f.svc.AddPayment(ctx, first.ID, domain.PaymentRequest{Amount: 1500, Method: "transfer", IdempotencyKey: "pay-1"})
	require.NoError(t, err)

	payments, err := f.svc.ListPayments(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	_, err = f.svc.ListPayments(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
