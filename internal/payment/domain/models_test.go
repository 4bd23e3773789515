package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethodSynonyms(t *testing.T) {
	for raw, want := range map[string]Method{
		"Efectivo":      MethodCash,
		"QR":            MethodQR,
		"tarjeta":       MethodCard,
		"Transferencia": MethodTransfer,
	} {
		got, err := ParseMethod(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseMethod("barter")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestParseDirectionDefaultsToIncome(t *testing.T) {
	got, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionIncome, got)

	got, err = ParseDirection("devolucion")
	require.NoError(t, err)
	assert.Equal(t, DirectionRefund, got)
}
