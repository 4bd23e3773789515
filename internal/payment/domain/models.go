package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodCash     Method = "cash"
	MethodQR       Method = "qr"
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
)

var methodSynonyms = map[string]Method{
	"cash":          MethodCash,
	"efectivo":      MethodCash,
	"qr":            MethodQR,
	"codigo qr":     MethodQR,
	"card":          MethodCard,
	"tarjeta":       MethodCard,
	"transfer":      MethodTransfer,
	"transferencia": MethodTransfer,
	"deposito":      MethodTransfer,
}

func ParseMethod(raw string) (Method, error) {
	method, ok := methodSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrInvalidMethod
	}
	return method, nil
}

type Direction string

const (
	DirectionIncome Direction = "income"
	DirectionRefund Direction = "refund"
)

var directionSynonyms = map[string]Direction{
	"":           DirectionIncome,
	"income":     DirectionIncome,
	"payment":    DirectionIncome,
	"ingreso":    DirectionIncome,
	"pago":       DirectionIncome,
	"refund":     DirectionRefund,
	"egreso":     DirectionRefund,
	"devolucion": DirectionRefund,
}

func ParseDirection(raw string) (Direction, error) {
	direction, ok := directionSynonyms[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrInvalidDirection
	}
	return direction, nil
}

// Payment is an append-only money movement against a stay or a reservation.
type Payment struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	StayID         *snowflake.ID `json:"stay_id,omitempty"`
	ReservationID  *snowflake.ID `json:"reservation_id,omitempty"`
	Amount         int64         `gorm:"not null" json:"amount"`
	Method         Method        `gorm:"not null" json:"method"`
	Bank           string        `json:"bank,omitempty"`
	Description    string        `json:"description,omitempty"`
	Direction      Direction     `gorm:"not null" json:"direction"`
	IdempotencyKey *string       `gorm:"uniqueIndex" json:"idempotency_key,omitempty"`
	CreatedBy      string        `json:"created_by,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
