package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertPaymentSQLPerDialect(t *testing.T) {
	for _, dialect := range []string{"postgres", "sqlite"} {
		stmt := insertPaymentSQL(dialect)
		assert.Contains(t, stmt, "INSERT INTO payments")
		assert.Contains(t, stmt, "ON CONFLICT (idempotency_key) DO NOTHING", dialect)
	}

	mysql := insertPaymentSQL("mysql")
	assert.Contains(t, mysql, "INSERT IGNORE INTO payments")
	assert.NotContains(t, mysql, "ON CONFLICT")
}
