package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocumentType(t *testing.T) {
	dt, err := ParseDocumentType("")
	assert.NoError(t, err)
	assert.Equal(t, DocumentReceipt, dt)

	dt, err = ParseDocumentType(" Factura ")
	assert.NoError(t, err)
	assert.Equal(t, DocumentInvoice, dt)

	_, err = ParseDocumentType("proforma")
	assert.ErrorIs(t, err, ErrInvalidDocumentType)
}

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(DocumentReceipt, "", ""))
	assert.ErrorIs(t, ValidateDocument(DocumentInvoice, "", "ACME"), ErrTaxIDRequired)
	assert.ErrorIs(t, ValidateDocument(DocumentInvoice, "123", ""), ErrBusinessNameRequired)
	assert.NoError(t, ValidateDocument(DocumentInvoice, "123", "ACME"))
	assert.ErrorIs(t, ValidateDocument("proforma", "", ""), ErrInvalidDocumentType)
}
