package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Activo ", nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusActive, status)

	status, err = ParseStatus("checked_out", map[string]string{"checked_out": "finalized"})
	assert.NoError(t, err)
	assert.Equal(t, StatusFinalized, status)

	_, err = ParseStatus("pending", nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOccupants(t *testing.T) {
	stay := Stay{GuestID: 1}
	assert.Equal(t, 1, stay.Occupants())
	stay.CompanionIDs = []snowflake.ID{2, 3}
	assert.Equal(t, 3, stay.Occupants())
}
