package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	registerdomain "github.com/smallbiznis/frontdesk/internal/register/domain"
	reservationdomain "github.com/smallbiznis/frontdesk/internal/reservation/domain"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReservations struct {
	reservationdomain.Service
	byStatus  map[string][]reservationdomain.Reservation
	conflicts map[snowflake.ID]bool
	requests  []reservationdomain.ListRequest
	cancelled []snowflake.ID
}

func (f *fakeReservations) List(_ context.Context, req reservationdomain.ListRequest) (reservationdomain.ListResponse, error) {
	f.requests = append(f.requests, req)
	return reservationdomain.ListResponse{
		PageInfo:     pagination.PageInfo{},
		Reservations: f.byStatus[req.Status],
	}, nil
}

func (f *fakeReservations) Cancel(_ context.Context, id snowflake.ID) (reservationdomain.Reservation, error) {
	if f.conflicts[id] {
		return reservationdomain.Reservation{}, reservationdomain.ErrStatusConflict
	}
	f.cancelled = append(f.cancelled, id)
	return reservationdomain.Reservation{ID: id, Status: reservationdomain.StatusCancelled}, nil
}

type fakeStays struct {
	staydomain.Service
	active []staydomain.ActiveStay
	calls  int
}

func (f *fakeStays) ListActive(context.Context, staydomain.ListFilter) ([]staydomain.ActiveStay, error) {
	f.calls++
	return f.active, nil
}

type fakeRegister struct {
	registerdomain.Service
	result registerdomain.CheckResult
}

func (f *fakeRegister) Check(context.Context) (registerdomain.CheckResult, error) {
	return f.result, nil
}

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, cfg Config, reservations *fakeReservations, stays *fakeStays) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	s, err := New(Params{
		Log:            zap.NewNop(),
		Clock:          clock.NewFakeClock(now),
		GenID:          node,
		ReservationSvc: reservations,
		StaySvc:        stays,
		RegisterSvc:    &fakeRegister{result: registerdomain.CheckResult{CanGenerate: true}},
		Config:         cfg,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	s := newTestScheduler(t, Config{}, &fakeReservations{}, &fakeStays{})

	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)
}

func TestRunJobWrapsFailure(t *testing.T) {
	s := newTestScheduler(t, Config{}, &fakeReservations{}, &fakeStays{})
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "failing_job", 0, time.Second, func(ctx context.Context) error {
		run := jobRunFromContext(ctx)
		require.NotNil(t, run)
		assert.Equal(t, "failing_job", run.job)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing_job")
}

func TestReleaseNoShowsCancelsOverdueReservations(t *testing.T) {
	reservations := &fakeReservations{
		byStatus: map[string][]reservationdomain.Reservation{
			string(reservationdomain.StatusPending): {
				{ID: 11, Status: reservationdomain.StatusPending, ArrivalAt: now.AddDate(0, 0, -3)},
			},
			string(reservationdomain.StatusConfirmed): {
				{ID: 21, Status: reservationdomain.StatusConfirmed, ArrivalAt: now.AddDate(0, 0, -2)},
				{ID: 22, Status: reservationdomain.StatusConfirmed, ArrivalAt: now.AddDate(0, 0, -2)},
			},
		},
		conflicts: map[snowflake.ID]bool{22: true},
	}
	s := newTestScheduler(t, Config{NoShowGrace: 6 * time.Hour}, reservations, &fakeStays{})

	err := s.runJob(context.Background(), JobReleaseNoShows, 10, time.Second, s.ReleaseNoShowsJob)
	require.NoError(t, err)

	assert.Equal(t, []snowflake.ID{11, 21}, reservations.cancelled)
	require.Len(t, reservations.requests, 2)
	for _, req := range reservations.requests {
		require.NotNil(t, req.To)
		assert.True(t, req.To.Equal(now.Add(-6*time.Hour)))
		assert.Nil(t, req.From)
	}
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	reservations := &fakeReservations{}
	stays := &fakeStays{active: make([]staydomain.ActiveStay, 3)}
	s := newTestScheduler(t, Config{EnabledJobs: []string{"OCCUPANCY_SNAPSHOT"}}, reservations, stays)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, 1, stays.calls)
	assert.Empty(t, reservations.requests)
}

func TestDefaultsFillZeroConfig(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
}
