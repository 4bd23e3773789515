// Package testutil opens an in-memory SQLite database carrying the front-desk
// schema for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// Schema mirrors the postgres migrations closely enough for repository tests.
var Schema = []string{
	`CREATE TABLE room_types (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		code TEXT NOT NULL UNIQUE,
		capacity INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE prices (
		id INTEGER PRIMARY KEY,
		label TEXT NOT NULL UNIQUE,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE floors (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		number INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE blocks (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE services (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		code TEXT NOT NULL UNIQUE,
		price INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE schedules (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		code TEXT NOT NULL UNIQUE,
		check_in_time TEXT NOT NULL,
		check_out_time TEXT NOT NULL,
		entry_tolerance_minutes INTEGER NOT NULL DEFAULT 0,
		exit_tolerance_minutes INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE rooms (
		id INTEGER PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		room_type_id INTEGER NOT NULL,
		price_id INTEGER NOT NULL,
		floor_id INTEGER,
		block_id INTEGER,
		status TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		notes TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE guests (
		id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		nationality TEXT NOT NULL DEFAULT '',
		identification_number TEXT NOT NULL UNIQUE,
		issued_in TEXT NOT NULL DEFAULT '',
		civil_status TEXT NOT NULL DEFAULT '',
		birth_date DATETIME,
		age INTEGER,
		profession TEXT NOT NULL DEFAULT '',
		origin TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		profile_complete BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE stays (
		id INTEGER PRIMARY KEY,
		guest_id INTEGER NOT NULL,
		room_id INTEGER NOT NULL,
		check_in_at DATETIME NOT NULL,
		check_out_at DATETIME,
		planned_nights INTEGER NOT NULL,
		advance_payment INTEGER NOT NULL DEFAULT 0,
		advance_method TEXT NOT NULL DEFAULT '',
		carried_balance INTEGER NOT NULL DEFAULT 0,
		nightly_rate INTEGER NOT NULL DEFAULT 0,
		agreed_rate INTEGER,
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		closed_reason TEXT NOT NULL DEFAULT '',
		schedule_id INTEGER,
		previous_stay_id INTEGER,
		reservation_id INTEGER,
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_stays_active_room ON stays (room_id) WHERE status = 'active'`,
	`CREATE TABLE stay_companions (
		stay_id INTEGER NOT NULL,
		guest_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (stay_id, guest_id)
	)`,
	`CREATE TABLE stay_consumptions (
		id INTEGER PRIMARY KEY,
		stay_id INTEGER NOT NULL,
		service_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		selling_price INTEGER NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY,
		stay_id INTEGER,
		reservation_id INTEGER,
		amount INTEGER NOT NULL,
		method TEXT NOT NULL,
		bank TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE invoices (
		id INTEGER PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		document_type TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		stay_id INTEGER NOT NULL UNIQUE,
		guest_id INTEGER NOT NULL,
		issued_by TEXT NOT NULL DEFAULT '',
		tax_id TEXT NOT NULL DEFAULT '',
		business_name TEXT NOT NULL DEFAULT '',
		issued_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		total_amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		waived BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE (document_type, sequence)
	)`,
	`CREATE TABLE invoice_details (
		id INTEGER PRIMARY KEY,
		invoice_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		service_id INTEGER,
		description TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price INTEGER NOT NULL,
		cost INTEGER NOT NULL
	)`,
	`CREATE TABLE reservations (
		id INTEGER PRIMARY KEY,
		guest_id INTEGER NOT NULL,
		arrival_at DATETIME NOT NULL,
		nights INTEGER NOT NULL,
		guest_count INTEGER NOT NULL,
		advance_payment INTEGER NOT NULL DEFAULT 0,
		payment_method TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		observation TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE reservation_details (
		id INTEGER PRIMARY KEY,
		reservation_id INTEGER NOT NULL,
		room_id INTEGER NOT NULL,
		price_id INTEGER NOT NULL,
		agreed_rate INTEGER NOT NULL,
		held BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		actor_role TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT,
		ip_address TEXT,
		user_agent TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// OpenDB returns an isolated in-memory database with the schema applied.
// Row-lock clauses are stripped since SQLite serializes writers itself.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:frontdesk_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	stripLocks := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	if err := db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripLocks); err != nil {
		t.Fatalf("register query callback: %v", err)
	}
	if err := db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripLocks); err != nil {
		t.Fatalf("register row callback: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range Schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

// NewNode returns a snowflake node for test ID generation.
func NewNode(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}
