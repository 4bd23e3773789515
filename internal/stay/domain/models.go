package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusFinalized Status = "finalized"
)

type ClosedReason string

const (
	ClosedCheckout ClosedReason = "checkout"
	ClosedTransfer ClosedReason = "transfer"
	ClosedMerge    ClosedReason = "merge"
)

var statusSynonyms = map[string]Status{
	"active":     StatusActive,
	"activo":     StatusActive,
	"activa":     StatusActive,
	"en curso":   StatusActive,
	"finalized":  StatusFinalized,
	"finalizado": StatusFinalized,
	"finalizada": StatusFinalized,
	"closed":     StatusFinalized,
	"cerrado":    StatusFinalized,
}

// ParseStatus maps a raw status literal onto a canonical stay status.
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

// Stay is the occupancy of one room by a titular guest and companions.
type Stay struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	GuestID        snowflake.ID  `gorm:"not null" json:"guest_id"`
	RoomID         snowflake.ID  `gorm:"not null" json:"room_id"`
	CheckInAt      time.Time     `gorm:"not null" json:"check_in_at"`
	CheckOutAt     *time.Time    `json:"check_out_at,omitempty"`
	PlannedNights  int           `gorm:"not null" json:"planned_nights"`
	AdvancePayment int64         `gorm:"not null" json:"advance_payment"`
	AdvanceMethod  string        `json:"advance_method,omitempty"`
	CarriedBalance int64         `gorm:"not null" json:"carried_balance"`
	NightlyRate    int64         `gorm:"not null" json:"nightly_rate"`
	AgreedRate     *int64        `json:"agreed_rate,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	Status         Status        `gorm:"not null" json:"status"`
	ClosedReason   ClosedReason  `json:"closed_reason,omitempty"`
	ScheduleID     *snowflake.ID `json:"schedule_id,omitempty"`
	PreviousStayID *snowflake.ID `json:"previous_stay_id,omitempty"`
	ReservationID  *snowflake.ID `json:"reservation_id,omitempty"`
	CreatedBy      string        `json:"created_by,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`

	CompanionIDs []snowflake.ID      `gorm:"-" json:"companion_ids"`
	Consumptions []ConsumptionDetail `gorm:"-" json:"consumptions,omitempty"`
}

func (Stay) TableName() string { return "stays" }

func (s Stay) IsActive() bool {
	return s.Status == StatusActive
}

// Occupants counts the titular guest plus companions.
func (s Stay) Occupants() int {
	return 1 + len(s.CompanionIDs)
}

// Consumption is a service line charged to a stay at the price in force
// when it was recorded.
type Consumption struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	StayID       snowflake.ID `gorm:"not null" json:"stay_id"`
	ServiceID    snowflake.ID `gorm:"not null" json:"service_id"`
	Quantity     int64        `gorm:"not null" json:"quantity"`
	SellingPrice int64        `gorm:"not null" json:"selling_price"`
	CreatedBy    string       `json:"created_by,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
}

func (Consumption) TableName() string { return "stay_consumptions" }

type ConsumptionDetail struct {
	Consumption
	ServiceName string `json:"service_name"`
}

// ActiveStay is an active stay joined with its guest and room.
type ActiveStay struct {
	Stay
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	IdentificationNumber string `json:"identification_number"`
	RoomNumber           string `json:"room_number"`
	RoomTypeName         string `json:"room_type_name"`
	Capacity             int    `json:"capacity"`
	CompanionCount       int    `json:"companion_count"`
}

type ListFilter struct {
	RoomID  snowflake.ID
	GuestID snowflake.ID
}
