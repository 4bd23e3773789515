package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"pendiente":  StatusPending,
		"Confirmada": StatusConfirmed,
		"canceled":   StatusCancelled,
		"finalizada": StatusFinalized,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw, nil)
		assert.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	got, err := ParseStatus("booked", map[string]string{"booked": "confirmed"})
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got)

	_, err = ParseStatus("", nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOpen(t *testing.T) {
	assert.True(t, Reservation{Status: StatusPending}.Open())
	assert.True(t, Reservation{Status: StatusConfirmed}.Open())
	assert.False(t, Reservation{Status: StatusFinalized}.Open())
}
