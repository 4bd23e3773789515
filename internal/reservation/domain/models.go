package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusFinalized Status = "finalized"
)

var statusSynonyms = map[string]Status{
	"pending":    StatusPending,
	"pendiente":  StatusPending,
	"confirmed":  StatusConfirmed,
	"confirmada": StatusConfirmed,
	"confirmado": StatusConfirmed,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"cancelada":  StatusCancelled,
	"anulada":    StatusCancelled,
	"finalized":  StatusFinalized,
	"finalizada": StatusFinalized,
	"checked_in": StatusFinalized,
}

// ParseStatus maps a raw status literal onto a canonical reservation status.
// Entries in extra take precedence over the built-in synonyms.
func ParseStatus(raw string, extra map[string]string) (Status, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := extra[value]; ok {
		value = strings.ToLower(strings.TrimSpace(mapped))
	}
	if status, ok := statusSynonyms[value]; ok {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Reservation holds rooms at an agreed rate ahead of arrival. It never
// occupies a room by itself.
type Reservation struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	GuestID        snowflake.ID `gorm:"not null" json:"guest_id"`
	ArrivalAt      time.Time    `gorm:"not null" json:"arrival_at"`
	Nights         int          `gorm:"not null" json:"nights"`
	GuestCount     int          `gorm:"not null" json:"guest_count"`
	AdvancePayment int64        `gorm:"not null" json:"advance_payment"`
	PaymentMethod  string       `json:"payment_method,omitempty"`
	Status         Status       `gorm:"not null" json:"status"`
	Observation    string       `json:"observation,omitempty"`
	CreatedBy      string       `json:"created_by,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`

	Details []Detail `gorm:"-" json:"details"`
}

func (Reservation) TableName() string { return "reservations" }

// Open reports whether the reservation can still be confirmed or cancelled.
func (r Reservation) Open() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

type Detail struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	ReservationID snowflake.ID `gorm:"not null" json:"reservation_id"`
	RoomID        snowflake.ID `gorm:"not null" json:"room_id"`
	PriceID       snowflake.ID `gorm:"not null" json:"price_id"`
	AgreedRate    int64        `gorm:"not null" json:"agreed_rate"`
	// Held is set when confirmation moved the room to reserved for this
	// reservation. Only a held detail may check in to a reserved room.
	Held bool `gorm:"not null" json:"held"`
}

func (Detail) TableName() string { return "reservation_details" }

type ListFilter struct {
	Status  Status
	GuestID snowflake.ID
	From    *time.Time
	To      *time.Time
}
