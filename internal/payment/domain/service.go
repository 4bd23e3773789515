package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RecordRequest struct {
	StayID         *snowflake.ID
	ReservationID  *snowflake.ID
	Amount         int64
	Method         string
	Bank           string
	Description    string
	Direction      string
	IdempotencyKey string
}

type Totals struct {
	In  int64 `json:"in"`
	Out int64 `json:"out"`
}

func (t Totals) Net() int64 {
	return t.In - t.Out
}

type Service interface {
	// Record appends a payment inside tx. A repeated idempotency key returns
	// the original row with replayed set.
	Record(ctx context.Context, tx *gorm.DB, req RecordRequest) (payment Payment, replayed bool, err error)
	ListByStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) ([]Payment, error)
	ListByReservation(ctx context.Context, tx *gorm.DB, reservationID snowflake.ID) ([]Payment, error)
	SumForStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (Totals, error)
	SumForReservation(ctx context.Context, tx *gorm.DB, reservationID snowflake.ID) (Totals, error)
	CountByStay(ctx context.Context, tx *gorm.DB, stayID snowflake.ID) (int64, error)
}

var (
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidMethod    = errors.New("invalid_payment_method")
	ErrInvalidDirection = errors.New("invalid_direction")
	ErrInvalidBank      = errors.New("invalid_bank")
	ErrInvalidTarget    = errors.New("invalid_payment_target")
	ErrIdempotencyReuse = errors.New("idempotency_key_reused")
)
