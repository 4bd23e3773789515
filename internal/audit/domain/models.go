package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeStaff  ActorType = "staff"
	ActorTypeSystem ActorType = "system"
)

// Actions recorded by the front desk.
const (
	ActionStayCheckIn         = "stay.check_in"
	ActionStayTransfer        = "stay.transfer"
	ActionStayMerge           = "stay.merge"
	ActionStayCancel          = "stay.cancel_assignment"
	ActionStayCheckout        = "stay.checkout"
	ActionPaymentRecorded     = "payment.recorded"
	ActionRoomOverride        = "room.override"
	ActionRoomToggled         = "room.toggle_active"
	ActionReferenceToggled    = "reference.toggle_active"
	ActionReservationConfirm  = "reservation.confirm"
	ActionReservationCancel   = "reservation.cancel"
	ActionReservationPromote  = "reservation.promote"
	ActionGuestProfileUpdated = "guest.profile_updated"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"not null" json:"actor_type"`
	ActorID    *string           `json:"actor_id,omitempty"`
	ActorRole  *string           `json:"actor_role,omitempty"`
	Action     string            `gorm:"not null" json:"action"`
	TargetType string            `gorm:"not null" json:"target_type"`
	TargetID   *string           `json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
