package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDocumentNumber(t *testing.T) {
	issued := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		template string
		seq      int64
		want     string
	}{
		{DefaultInvoiceTemplate, 42, "FAC-20260307-000042"},
		{DefaultReceiptTemplate, 1, "REC-20260307-000001"},
		{"R{YY}/{SEQ}", 1234, "R26/1234"},
		{"{SEQ3}", 12345, "12345"},
	}
	for _, tc := range cases {
		got, err := FormatDocumentNumber(tc.template, issued, tc.seq)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestFormatDocumentNumberRejects(t *testing.T) {
	issued := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	_, err := FormatDocumentNumber("", issued, 1)
	assert.Error(t, err)

	_, err = FormatDocumentNumber(DefaultInvoiceTemplate, issued, 0)
	assert.Error(t, err)

	_, err = FormatDocumentNumber("FAC-{BRANCH}-{SEQ}", issued, 1)
	assert.Error(t, err)
}
