package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	staydomain "github.com/smallbiznis/frontdesk/internal/stay/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
)

type RoomRequest struct {
	RoomID     snowflake.ID `json:"room_id"`
	AgreedRate *int64       `json:"agreed_rate,omitempty"`
}

type CreateRequest struct {
	GuestID        *snowflake.ID           `json:"guest_id,omitempty"`
	Guest          *guestdomain.Attributes `json:"guest,omitempty"`
	ArrivalAt      time.Time               `json:"arrival_at"`
	Nights         int                     `json:"nights"`
	GuestCount     int                     `json:"guest_count"`
	AdvancePayment int64                   `json:"advance_payment"`
	PaymentMethod  string                  `json:"payment_method"`
	Observation    string                  `json:"observation"`
	Rooms          []RoomRequest           `json:"rooms"`
}

type DepositRequest struct {
	Amount         int64  `json:"amount"`
	Method         string `json:"method"`
	Bank           string `json:"bank"`
	Description    string `json:"description"`
	Direction      string `json:"direction"`
	IdempotencyKey string `json:"-"`
}

// Occupant names the titular guest of one reserved room on arrival.
type Occupant struct {
	RoomID       snowflake.ID             `json:"room_id"`
	GuestID      *snowflake.ID            `json:"guest_id,omitempty"`
	Guest        *guestdomain.Attributes  `json:"guest,omitempty"`
	CompanionIDs []snowflake.ID           `json:"companion_ids,omitempty"`
	Companions   []guestdomain.Attributes `json:"companions,omitempty"`
}

type PromoteRequest struct {
	// Occupants defaults to the reservation guest for the first room.
	Occupants  []Occupant    `json:"occupants"`
	ScheduleID *snowflake.ID `json:"schedule_id,omitempty"`
	Notes      string        `json:"notes"`
}

type PromoteResult struct {
	Reservation Reservation       `json:"reservation"`
	Stays       []staydomain.Stay `json:"stays"`
	Credited    int64             `json:"credited"`
}

type ListRequest struct {
	pagination.Pagination
	Status  string
	GuestID *snowflake.ID
	From    *time.Time
	To      *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Reservations []Reservation `json:"reservations"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Reservation, error)
	// Confirm holds every listed room that is currently available.
	Confirm(ctx context.Context, id snowflake.ID) (Reservation, error)
	// Cancel releases the rooms this reservation was holding.
	Cancel(ctx context.Context, id snowflake.ID) (Reservation, error)
	AddDeposit(ctx context.Context, id snowflake.ID, req DepositRequest) (paymentdomain.Payment, error)
	// Promote opens one stay per reserved room and finalizes the reservation.
	Promote(ctx context.Context, id snowflake.ID, req PromoteRequest) (PromoteResult, error)
	Get(ctx context.Context, id snowflake.ID) (Reservation, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidStatus     = errors.New("invalid_reservation_status")
	ErrInvalidNights     = errors.New("invalid_nights")
	ErrInvalidGuestCount = errors.New("invalid_guest_count")
	ErrInvalidArrival    = errors.New("invalid_arrival")
	ErrInvalidAdvance    = errors.New("invalid_advance_payment")
	ErrInvalidRate       = errors.New("invalid_agreed_rate")
	ErrGuestRequired     = errors.New("guest_required")
	ErrRoomsRequired     = errors.New("rooms_required")
	ErrDuplicateRoom     = errors.New("duplicate_room")
	ErrOccupantRequired  = errors.New("occupant_required")
	ErrUnknownRoom       = errors.New("room_not_reserved")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrNotFound          = errors.New("reservation_not_found")
	ErrStatusConflict    = errors.New("reservation_status_conflict")
)
