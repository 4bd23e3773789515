package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert reports false when the idempotency key already exists.
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Payment, error)
	ListByStay(ctx context.Context, db *gorm.DB, stayID snowflake.ID) ([]*Payment, error)
	ListByReservation(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) ([]*Payment, error)
	CountByStay(ctx context.Context, db *gorm.DB, stayID snowflake.ID) (int64, error)
}
