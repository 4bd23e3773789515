package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/frontdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) Service {
	t.Helper()
	db := testutil.OpenDB(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
}

func TestClerkPermissions(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "17", "clerk", ObjectStay, ActionStayCheckout))
	assert.NoError(t, svc.Authorize(ctx, "17", "Clerk", ObjectRoom, ActionRoomMarkClean))
	assert.ErrorIs(t, svc.Authorize(ctx, "17", "clerk", ObjectRoom, ActionRoomOverride), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "17", "clerk", ObjectReference, ActionReferenceCreate), ErrForbidden)
}

func TestAdminPermissions(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "1", "admin", ObjectRoom, ActionRoomOverride))
	assert.NoError(t, svc.Authorize(ctx, "1", "admin", ObjectAuditLog, ActionView))
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "5", "admin", ObjectRoom, ActionRoomToggle))
	assert.ErrorIs(t, svc.Authorize(ctx, "5", "clerk", ObjectRoom, ActionRoomToggle), ErrForbidden)
}

func TestInvalidInputs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "clerk", ObjectStay, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "2", "owner", ObjectStay, ActionView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "2", "clerk", "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "2", "clerk", ObjectStay, ""), ErrInvalidAction)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	_, err := NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 19)
}
