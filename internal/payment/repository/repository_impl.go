package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/payment/domain"
	"gorm.io/gorm"
)

const paymentColumns = `id, stay_id, reservation_id, amount, method, bank, description, direction,
	idempotency_key, created_by, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// insertPaymentSQL skips a row whose idempotency key is already stored.
// MySQL has no ON CONFLICT clause.
func insertPaymentSQL(dialect string) string {
	if dialect == "mysql" {
		return `INSERT IGNORE INTO payments (` + paymentColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}
	return `INSERT INTO payments (` + paymentColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (idempotency_key) DO NOTHING`
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) (bool, error) {
	result := db.WithContext(ctx).Exec(
		insertPaymentSQL(db.Dialector.Name()),
		payment.ID,
		payment.StayID,
		payment.ReservationID,
		payment.Amount,
		payment.Method,
		payment.Bank,
		payment.Description,
		payment.Direction,
		payment.IdempotencyKey,
		payment.CreatedBy,
		payment.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = ?`,
		key,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) ListByStay(ctx context.Context, db *gorm.DB, stayID snowflake.ID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE stay_id = ? ORDER BY created_at ASC, id ASC`,
		stayID,
	).Scan(&payments).Error
	return payments, err
}

func (r *repo) ListByReservation(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE reservation_id = ? ORDER BY created_at ASC, id ASC`,
		reservationID,
	).Scan(&payments).Error
	return payments, err
}

func (r *repo) CountByStay(ctx context.Context, db *gorm.DB, stayID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM payments WHERE stay_id = ?`,
		stayID,
	).Scan(&count).Error
	return count, err
}
