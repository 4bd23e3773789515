package idempotency

import (
	"context"
	"testing"

	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGuardWithoutRedisAdmitsEverything(t *testing.T) {
	guard := NewGuard(config.Config{}, zap.NewNop())
	assert.False(t, guard.Enabled())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ticket, err := guard.Begin(ctx, "checkout", "key-1")
		require.NoError(t, err)
		ticket.Finish(ctx, true)
	}
}

func TestBlankKeyIsAdmitted(t *testing.T) {
	guard := &Guard{enabled: true, log: zap.NewNop()}
	ticket, err := guard.Begin(context.Background(), "payment", "  ")
	require.NoError(t, err)
	assert.NotPanics(t, func() { ticket.Finish(context.Background(), false) })
}

func TestNilLockerIsSafe(t *testing.T) {
	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "k", inFlightTTL)
	assert.Error(t, err)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))
	assert.NoError(t, locker.Complete(context.Background(), "k", "t", inFlightTTL))
	assert.Nil(t, NewLocker(nil))
}

func TestNilTicketFinish(t *testing.T) {
	var ticket *Ticket
	assert.NotPanics(t, func() { ticket.Finish(context.Background(), true) })
}
