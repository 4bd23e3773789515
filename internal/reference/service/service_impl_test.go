package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/reference/domain"
	"github.com/smallbiznis/frontdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	return New(Params{
		DB:     testutil.OpenDB(t),
		Log:    zap.NewNop(),
		GenID:  testutil.NewNode(t),
		Clock:  clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
		Policy: config.NewStaticPolicyHolder(config.DefaultPolicy()),
	})
}

func TestCreateRoomTypeDerivesCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rt, err := svc.CreateRoomType(ctx, domain.CreateRoomTypeRequest{Name: "Doble Matrimonial", Capacity: 2})
	require.NoError(t, err)
	assert.Equal(t, "doble-matrimonial", rt.Code)
	assert.True(t, rt.Active)

	_, err = svc.CreateRoomType(ctx, domain.CreateRoomTypeRequest{Name: "doble matrimonial", Capacity: 3})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = svc.CreateRoomType(ctx, domain.CreateRoomTypeRequest{Name: "Suite", Capacity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
}

func TestCreatePriceDefaultsCurrency(t *testing.T) {
	svc := newTestService(t)

	price, err := svc.CreatePrice(context.Background(), domain.CreatePriceRequest{Label: "Standard", Amount: 10000})
	require.NoError(t, err)
	assert.Equal(t, "BOB", price.Currency)

	_, err = svc.CreatePrice(context.Background(), domain.CreatePriceRequest{Label: "Free", Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestCreateScheduleValidatesClock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSchedule(ctx, domain.CreateScheduleRequest{Name: "Day", CheckInTime: "14:00", CheckOutTime: "25:00"})
	assert.ErrorIs(t, err, domain.ErrInvalidCheckOutTime)

	_, err = svc.CreateSchedule(ctx, domain.CreateScheduleRequest{Name: "Day", CheckInTime: "14:00", CheckOutTime: "12:00", ExitToleranceMinutes: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidTolerance)

	sched, err := svc.CreateSchedule(ctx, domain.CreateScheduleRequest{
		Name:                 "Standard",
		CheckInTime:          "14:00",
		CheckOutTime:         "12:00",
		ExitToleranceMinutes: 30,
	})
	require.NoError(t, err)

	got, err := svc.GetSchedule(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, "12:00", got.CheckOutTime)
	assert.Equal(t, 30*time.Minute, got.ExitTolerance())
}

func TestToggleActiveHidesFromActiveList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	breakfast, err := svc.CreateService(ctx, domain.CreateServiceRequest{Name: "Breakfast", Price: 3500})
	require.NoError(t, err)
	_, err = svc.CreateService(ctx, domain.CreateServiceRequest{Name: "Laundry", Price: 2000})
	require.NoError(t, err)

	require.NoError(t, svc.ToggleActive(ctx, domain.KindService, breakfast.ID, false))

	active, err := svc.ListServices(ctx, domain.ListRequest{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Laundry", active[0].Name)

	all, err := svc.ListServices(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, svc.ToggleActive(ctx, domain.KindService, 42, true), domain.ErrNotFound)
	assert.ErrorIs(t, svc.ToggleActive(ctx, domain.Kind("rooms"), breakfast.ID, true), domain.ErrInvalidKind)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetFloor(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduleCheckoutOn(t *testing.T) {
	loc := time.FixedZone("BOT", -4*60*60)

	sched := domain.Schedule{CheckOutTime: "12:00"}
	at, err := sched.CheckoutOn(time.Date(2024, 3, 2, 20, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 16, 0, 0, 0, time.UTC), at.UTC())
}
