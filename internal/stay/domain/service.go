package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/billing"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	invoicedomain "github.com/smallbiznis/frontdesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"gorm.io/gorm"
)

type CheckInRequest struct {
	// GuestID selects an existing titular guest. Otherwise Guest is created,
	// or reused by identification number when ReuseExistingGuest is set.
	GuestID            *snowflake.ID            `json:"guest_id"`
	Guest              *guestdomain.Attributes  `json:"guest"`
	ReuseExistingGuest bool                     `json:"reuse_existing_guest"`
	CompanionIDs       []snowflake.ID           `json:"companion_ids"`
	Companions         []guestdomain.Attributes `json:"companions"`
	RoomID             snowflake.ID             `json:"room_id"`
	PlannedNights      int                      `json:"planned_nights"`
	AdvancePayment     int64                    `json:"advance_payment"`
	AdvanceMethod      string                   `json:"advance_method"`
	Notes              string                   `json:"notes"`
	ScheduleID         *snowflake.ID            `json:"schedule_id"`

	// Set when a reservation is promoted.
	ReservationID *snowflake.ID `json:"-"`
	AgreedRate    *int64        `json:"-"`
	// HoldsRoom lets the check-in take a room the reservation itself put
	// in reserved. Without it the room must be available.
	HoldsRoom bool `json:"-"`
}

type ConsumptionRequest struct {
	ServiceID snowflake.ID `json:"service_id"`
	Quantity  int64        `json:"quantity"`
}

type PaymentRequest struct {
	Amount         int64  `json:"amount"`
	Method         string `json:"method"`
	Bank           string `json:"bank"`
	Description    string `json:"description"`
	Direction      string `json:"direction"`
	IdempotencyKey string `json:"idempotency_key"`
}

type CheckoutRequest struct {
	WaivePenalty bool            `json:"waive_penalty"`
	DocumentType string          `json:"document_type"`
	TaxID        string          `json:"tax_id"`
	BusinessName string          `json:"business_name"`
	Payment      *PaymentRequest `json:"payment"`
}

type CheckoutResult struct {
	Stay    Stay                   `json:"stay"`
	Invoice invoicedomain.Invoice  `json:"invoice"`
	Summary billing.Summary        `json:"summary"`
	Payment *paymentdomain.Payment `json:"payment,omitempty"`
}

type TransferResult struct {
	Closed  Stay            `json:"closed"`
	Opened  Stay            `json:"opened"`
	Summary billing.Summary `json:"summary"`
}

type MergeResult struct {
	Source  Stay            `json:"source"`
	Target  Stay            `json:"target"`
	Summary billing.Summary `json:"summary"`
}

// Preview is the running bill of an active stay.
type Preview struct {
	Summary         billing.Summary `json:"summary"`
	Lines           []billing.Line  `json:"lines"`
	WaiverWindow    *billing.Window `json:"waiver_window,omitempty"`
	WaiverPermitted bool            `json:"waiver_permitted"`
	ComputedAt      time.Time       `json:"computed_at"`
}

type Service interface {
	CheckIn(ctx context.Context, req CheckInRequest) (Stay, error)
	// CheckInTx runs a check-in inside the caller's transaction without
	// writing the audit entry.
	CheckInTx(ctx context.Context, tx *gorm.DB, req CheckInRequest) (Stay, error)
	AddConsumption(ctx context.Context, stayID snowflake.ID, req ConsumptionRequest) (ConsumptionDetail, error)
	RemoveConsumption(ctx context.Context, stayID, consumptionID snowflake.ID) error
	AddPayment(ctx context.Context, stayID snowflake.ID, req PaymentRequest) (paymentdomain.Payment, error)
	Transfer(ctx context.Context, stayID, newRoomID snowflake.ID) (TransferResult, error)
	MergeIntoGroup(ctx context.Context, stayID, targetStayID snowflake.ID) (MergeResult, error)
	CancelAssignment(ctx context.Context, stayID snowflake.ID) error
	Checkout(ctx context.Context, stayID snowflake.ID, req CheckoutRequest) (CheckoutResult, error)

	Get(ctx context.Context, stayID snowflake.ID) (Stay, error)
	ListActive(ctx context.Context, filter ListFilter) ([]ActiveStay, error)
	ListPayments(ctx context.Context, stayID snowflake.ID) ([]paymentdomain.Payment, error)
	Preview(ctx context.Context, stayID snowflake.ID, waive bool) (Preview, error)
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidStatus        = errors.New("invalid_stay_status")
	ErrGuestRequired        = errors.New("guest_required")
	ErrInvalidPlannedNights = errors.New("invalid_planned_nights")
	ErrInvalidAdvance       = errors.New("invalid_advance_payment")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidService       = errors.New("invalid_service")
	ErrServiceInactive      = errors.New("service_inactive")
	ErrInvalidSchedule      = errors.New("invalid_schedule")
	ErrCompanionIsTitular   = errors.New("companion_is_titular")
	ErrNotFound             = errors.New("stay_not_found")
	ErrConsumptionNotFound  = errors.New("consumption_not_found")
	ErrStayFinalized        = errors.New("stay_finalized")
	ErrGuestAlreadyHoused   = errors.New("guest_already_housed")
	ErrSameRoom             = errors.New("transfer_same_room")
	ErrSameStay             = errors.New("merge_same_stay")
	ErrCapacityExceeded     = errors.New("room_capacity_exceeded")
	ErrCancelWindowElapsed  = errors.New("cancel_window_elapsed")
	ErrHasPayments          = errors.New("stay_has_payments")
)
