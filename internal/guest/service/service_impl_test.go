package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditrepository "github.com/smallbiznis/frontdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/frontdesk/internal/audit/service"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/internal/guest/repository"
	"github.com/smallbiznis/frontdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		AuditSvc: auditservice.NewService(auditservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepository.Provide()}),
	})
}

func completeAttrs(identification string) domain.Attributes {
	return domain.Attributes{
		FirstName:            "Ana",
		LastName:             "Quispe",
		Nationality:          "Boliviana",
		IdentificationNumber: identification,
		IssuedIn:             "CB",
		CivilStatus:          "soltera",
		BirthDate:            "1990-06-15",
		Profession:           "Ingeniera",
		Origin:               "Cochabamba",
	}
}

func TestFindOrCreateExistingWins(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.FindOrCreate(ctx, nil, completeAttrs("4455667"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.ProfileComplete)
	require.NotNil(t, first.Age)
	assert.Equal(t, 33, *first.Age)

	again, created, err := svc.FindOrCreate(ctx, nil, domain.Attributes{
		IdentificationNumber: " 4455 667 ",
		FirstName:            "Someone Else",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Ana", again.FirstName)
}

func TestFindOrCreateRequiresIdentification(t *testing.T) {
	svc := newTestService(t)
	_, _, err := svc.FindOrCreate(context.Background(), nil, domain.Attributes{FirstName: "Ana"})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentificationNumber)
}

func TestCreateRejectsDuplicateIdentification(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, completeAttrs("4455667"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, nil, completeAttrs("4455667"))
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentification)
}

func TestMarkProfileCompleteListsMissingFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	guest, err := svc.Create(ctx, nil, domain.Attributes{IdentificationNumber: "X1", FirstName: "Luis", LastName: "Mamani"})
	require.NoError(t, err)
	assert.False(t, guest.ProfileComplete)

	_, err = svc.MarkProfileComplete(ctx, guest.ID)
	require.ErrorIs(t, err, domain.ErrProfileIncomplete)
	var incomplete *domain.IncompleteProfileError
	require.ErrorAs(t, err, &incomplete)
	assert.Contains(t, incomplete.Missing, "nationality")
	assert.Contains(t, incomplete.Missing, "birth_date")

	_, err = svc.Update(ctx, guest.ID, domain.Attributes{
		Nationality: "Boliviana",
		CivilStatus: "casado",
		BirthDate:   "1985-01-02",
		Profession:  "Chofer",
		Origin:      "Oruro",
	})
	require.NoError(t, err)

	updated, err := svc.MarkProfileComplete(ctx, guest.ID)
	require.NoError(t, err)
	assert.True(t, updated.ProfileComplete)
}

func TestListFiltersByCompleteness(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, completeAttrs("A1"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, nil, domain.Attributes{IdentificationNumber: "B2", FirstName: "Rosa"})
	require.NoError(t, err)

	incomplete := false
	resp, err := svc.List(ctx, domain.ListGuestRequest{Complete: &incomplete})
	require.NoError(t, err)
	require.Len(t, resp.Guests, 1)
	assert.Equal(t, "B2", resp.Guests[0].IdentificationNumber)

	resp, err = svc.List(ctx, domain.ListGuestRequest{Name: "ana"})
	require.NoError(t, err)
	assert.Len(t, resp.Guests, 1)
}

func TestGetManyFailsOnMissingID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	guest, err := svc.Create(ctx, nil, completeAttrs("A1"))
	require.NoError(t, err)

	guests, err := svc.GetMany(ctx, nil, []snowflake.ID{guest.ID, guest.ID})
	require.NoError(t, err)
	assert.Len(t, guests, 1)

	_, err = svc.GetMany(ctx, nil, []snowflake.ID{guest.ID, 77})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
