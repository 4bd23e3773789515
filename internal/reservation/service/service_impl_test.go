package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditrepository "github.com/smallbiznis/frontdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/frontdesk/internal/audit/service"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	guestrepository "github.com/smallbiznis/frontdesk/internal/guest/repository"
	guestservice "github.com/smallbiznis/frontdesk/internal/guest/service"
	invoiceservice "github.com/smallbiznis/frontdesk/internal/invoice/service"
	paymentrepository "github.com/smallbiznis/frontdesk/internal/payment/repository"
	paymentservice "github.com/smallbiznis/frontdesk/internal/payment/service"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	referencedomain "github.com/smallbiznis/frontdesk/internal/reference/domain"
	referenceservice "github.com/smallbiznis/frontdesk/internal/reference/service"
	"github.com/smallbiznis/frontdesk/internal/reservation/domain"
	"github.com/smallbiznis/frontdesk/internal/reservation/repository"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	roomrepository "github.com/smallbiznis/frontdesk/internal/room/repository"
	roomservice "github.com/smallbiznis/frontdesk/internal/room/service"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	stayrepository "github.com/smallbiznis/frontdesk/internal/stay/repository"
	stayservice "github.com/smallbiznis/frontdesk/internal/stay/service"
	"github.com/smallbiznis/frontdesk/internal/testutil"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var start = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	clock  *clock.FakeClock
	svc    domain.Service
	rooms  roomdomain.Service
	guests guestdomain.Service
	stays  staydomain.Service
	roomA  roomdomain.Room
	roomB  roomdomain.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(start)
	holder := config.NewStaticPolicyHolder(config.DefaultPolicy())
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
	stays := stayservice.New(stayservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Policy: holder,
		Repo: stayrepository.Provide(), Rooms: rooms, Guests: guests, References: refs,
		Payments: payments, Invoices: invoices, AuditSvc: audits,
	})
	svc := New(Params{
		DB: db, Log: log, GenID: node, Clock: clk, Policy: holder,
		Repo: repository.Provide(), Rooms: rooms, Guests: guests, References: refs,
		Payments: payments, Stays: stays, AuditSvc: audits,
	})

	ctx := context.Background()
	double, err := refs.CreateRoomType(ctx, referencedomain.CreateRoomTypeRequest{Name: "Double", Capacity: 2})
	require.NoError(t, err)
	price, err := refs.CreatePrice(ctx, referencedomain.CreatePriceRequest{Label: "Standard", Amount: 9000})
	require.NoError(t, err)
	roomA, err := rooms.Create(ctx, roomdomain.CreateRoomRequest{Number: "301", RoomTypeID: double.ID, PriceID: price.ID})
	require.NoError(t, err)
	roomB, err := rooms.Create(ctx, roomdomain.CreateRoomRequest{Number: "302", RoomTypeID: double.ID, PriceID: price.ID})
	require.NoError(t, err)

	return &fixture{db: db, clock: clk, svc: svc, rooms: rooms, guests: guests, stays: stays, roomA: roomA, roomB: roomB}
}

func (f *fixture) roomStatus(t *testing.T, id snowflake.ID) roomdomain.Status {
	t.Helper()
	detail, err := f.rooms.Get(context.Background(), id)
	require.NoError(t, err)
	return detail.Status
}

func (f *fixture) create(t *testing.T, rooms ...domain.RoomRequest) domain.Reservation {
	t.Helper()
	reservation, err := f.svc.Create(context.Background(), domain.CreateRequest{
		Guest: &guestdomain.Attributes{
			FirstName: "Ana", LastName: "Rojas", Nationality: "BO", IdentificationNumber: "RES-1",
		},
		ArrivalAt:      start.Add(24 * time.Hour),
		Nights:         2,
		GuestCount:     len(rooms),
		AdvancePayment: 4000,
		PaymentMethod:  "card",
		Rooms:          rooms,
	})
	require.NoError(t, err)
	return reservation
}

func TestCreateValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := &guestdomain.Attributes{FirstName: "A", LastName: "B", IdentificationNumber: "V-1"}
	base := func() domain.CreateRequest {
		return domain.CreateRequest{
			Guest: guest, ArrivalAt: start, Nights: 1, GuestCount: 1,
			Rooms: []domain.RoomRequest{{RoomID: f.roomA.ID}},
		}
	}

	req := base()
	req.Guest = nil
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrGuestRequired)

	req = base()
	req.Nights = 0
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidNights)

	req = base()
	req.Rooms = nil
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrRoomsRequired)

	req = base()
	req.Rooms = append(req.Rooms, domain.RoomRequest{RoomID: f.roomA.ID})
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateRoom)

	req = base()
	req.GuestCount = 3
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, staydomain.ErrCapacityExceeded)

	_, err = f.rooms.ToggleActive(ctx, f.roomB.ID, false)
	require.NoError(t, err)
	req = base()
	req.Rooms = []domain.RoomRequest{{RoomID: f.roomB.ID}}
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, roomdomain.ErrRoomInactive)
}

func TestCreateDoesNotTouchRooms(t *testing.T) {
	f := newFixture(t)
	agreed := int64(7500)
	reservation := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID, AgreedRate: &agreed}, domain.RoomRequest{RoomID: f.roomB.ID})

	assert.Equal(t, domain.StatusPending, reservation.Status)
	require.Len(t, reservation.Details, 2)
	assert.Equal(t, int64(7500), reservation.Details[0].AgreedRate)
	assert.Equal(t, int64(9000), reservation.Details[1].AgreedRate)
	assert.Equal(t, roomdomain.StatusAvailable, f.roomStatus(t, f.roomA.ID))

	got, err := f.svc.Get(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Len(t, got.Details, 2)
	assert.NotZero(t, got.GuestID)
}

func TestConfirmAndCancelHoldRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reservation := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID}, domain.RoomRequest{RoomID: f.roomB.ID})

	// an occupied room stays occupied and is not held
	_, err := f.stays.CheckIn(ctx, staydomain.CheckInRequest{
		Guest:  &guestdomain.Attributes{FirstName: "W", LastName: "I", IdentificationNumber: "WALK-1"},
		RoomID: f.roomB.ID, PlannedNights: 1,
	})
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	assert.Equal(t, roomdomain.StatusReserved, f.roomStatus(t, f.roomA.ID))
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.roomB.ID))

	_, err = f.svc.Confirm(ctx, reservation.ID)
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	cancelled, err := f.svc.Cancel(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, roomdomain.StatusAvailable, f.roomStatus(t, f.roomA.ID))
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.roomB.ID))

	_, err = f.svc.Cancel(ctx, reservation.ID)
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
}

func TestSecondConfirmationDoesNotTakeHeldRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID})
	second := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID})

	_, err := f.svc.Confirm(ctx, first.ID)
	require.NoError(t, err)
	confirmed, err := f.svc.Confirm(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, confirmed.Details, 1)
	assert.False(t, confirmed.Details[0].Held)

	got, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Details, 1)
	assert.True(t, got.Details[0].Held)

	_, err = f.svc.Promote(ctx, second.ID, domain.PromoteRequest{})
	assert.ErrorIs(t, err, roomdomain.ErrRoomUnavailable)
	assert.Equal(t, roomdomain.StatusReserved, f.roomStatus(t, f.roomA.ID))

	active, err := f.stays.ListActive(ctx, staydomain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)

	// cancelling the reservation without the hold leaves the room reserved
	_, err = f.svc.Cancel(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, roomdomain.StatusReserved, f.roomStatus(t, f.roomA.ID))

	result, err := f.svc.Promote(ctx, first.ID, domain.PromoteRequest{})
	require.NoError(t, err)
	require.Len(t, result.Stays, 1)
	assert.Equal(t, f.roomA.ID, result.Stays[0].RoomID)
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.roomA.ID))
}

func TestLaterConfirmationHoldsRoomReleasedByFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID})
	second := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID})

	_, err := f.svc.Confirm(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, roomdomain.StatusAvailable, f.roomStatus(t, f.roomA.ID))

	confirmed, err := f.svc.Confirm(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, confirmed.Details, 1)
	assert.True(t, confirmed.Details[0].Held)
	assert.Equal(t, roomdomain.StatusReserved, f.roomStatus(t, f.roomA.ID))

	cancelled, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, cancelled.Details[0].Held)
}

func TestDepositsRequireOpenReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reservation := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID})

	payment, err := f.svc.AddDeposit(ctx, reservation.ID, domain.DepositRequest{Amount: 2500, Method: "cash"})
	require.NoError(t, err)
	require.NotNil(t, payment.ReservationID)
	assert.Equal(t, reservation.ID, *payment.ReservationID)
	assert.Nil(t, payment.StayID)

	_, err = f.svc.Cancel(ctx, reservation.ID)
	require.NoError(t, err)
	_, err = f.svc.AddDeposit(ctx, reservation.ID, domain.DepositRequest{Amount: 100, Method: "cash"})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
}

func TestPromoteOpensStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	agreed := int64(7000)
	reservation := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID, AgreedRate: &agreed}, domain.RoomRequest{RoomID: f.roomB.ID})

	_, err := f.svc.AddDeposit(ctx, reservation.ID, domain.DepositRequest{Amount: 3000, Method: "cash"})
	require.NoError(t, err)

	_, err = f.svc.Promote(ctx, reservation.ID, domain.PromoteRequest{})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	_, err = f.svc.Confirm(ctx, reservation.ID)
	require.NoError(t, err)

	_, err = f.svc.Promote(ctx, reservation.ID, domain.PromoteRequest{})
	assert.ErrorIs(t, err, domain.ErrOccupantRequired)

	f.clock.Advance(24 * time.Hour)
	result, err := f.svc.Promote(ctx, reservation.ID, domain.PromoteRequest{
		Occupants: []domain.Occupant{{
			RoomID: f.roomB.ID,
			Guest:  &guestdomain.Attributes{FirstName: "Luis", LastName: "Rojas", IdentificationNumber: "RES-2"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFinalized, result.Reservation.Status)
	assert.Equal(t, int64(4000+3000), result.Credited)
	require.Len(t, result.Stays, 2)

	first := result.Stays[0]
	assert.Equal(t, f.roomA.ID, first.RoomID)
	assert.Equal(t, reservation.GuestID, first.GuestID)
	assert.Equal(t, int64(7000), first.AdvancePayment)
	assert.Equal(t, "card", first.AdvanceMethod)
	require.NotNil(t, first.AgreedRate)
	assert.Equal(t, int64(7000), *first.AgreedRate)
	assert.Equal(t, reservation.ID, *first.ReservationID)
	assert.Equal(t, 2, first.PlannedNights)

	assert.Equal(t, int64(0), result.Stays[1].AdvancePayment)
	assert.Equal(t, int64(9000), *result.Stays[1].AgreedRate)
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.roomA.ID))
	assert.Equal(t, roomdomain.StatusOccupied, f.roomStatus(t, f.roomB.ID))

	preview, err := f.stays.Preview(ctx, first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), preview.Summary.Rate)
	assert.Equal(t, int64(0), preview.Summary.Balance)

	_, err = f.svc.Promote(ctx, reservation.ID, domain.PromoteRequest{})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)
}

func TestPromoteRollsBackWhenRoomTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reservation := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID})
	_, err := f.svc.Confirm(ctx, reservation.ID)
	require.NoError(t, err)

	_, err = f.rooms.Override(ctx, f.roomA.ID, string(roomdomain.StatusMaintenance))
	require.NoError(t, err)

	_, err = f.svc.Promote(ctx, reservation.ID, domain.PromoteRequest{})
	assert.ErrorIs(t, err, roomdomain.ErrRoomUnavailable)

	got, err := f.svc.Get(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)

	active, err := f.stays.ListActive(ctx, staydomain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, domain.RoomRequest{RoomID: f.roomA.ID})
	f.clock.Advance(time.Minute)
	f.create(t, domain.RoomRequest{RoomID: f.roomB.ID})
	_, err := f.svc.Confirm(ctx, first.ID)
	require.NoError(t, err)

	resp, err := f.svc.List(ctx, domain.ListRequest{Status: "confirmada"})
	require.NoError(t, err)
	require.Len(t, resp.Reservations, 1)
	assert.Equal(t, first.ID, resp.Reservations[0].ID)

	page, err := f.svc.List(ctx, domain.ListRequest{Pagination: pagination.Pagination{PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, page.Reservations, 1)
	assert.True(t, page.HasMore)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "unknown"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
