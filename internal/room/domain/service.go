package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateRoomRequest struct {
	Number     string        `json:"number"`
	RoomTypeID snowflake.ID  `json:"room_type_id"`
	PriceID    snowflake.ID  `json:"price_id"`
	FloorID    *snowflake.ID `json:"floor_id"`
	BlockID    *snowflake.ID `json:"block_id"`
	Status     string        `json:"status"`
	Notes      string        `json:"notes"`
}

type ListRoomRequest struct {
	Status     string
	Active     *bool
	FloorID    snowflake.ID
	BlockID    snowflake.ID
	RoomTypeID snowflake.ID
}

type Service interface {
	Create(context.Context, CreateRoomRequest) (Room, error)
	Get(context.Context, snowflake.ID) (RoomDetail, error)
	List(context.Context, ListRoomRequest) ([]RoomDetail, error)
	ListAvailable(context.Context) ([]RoomDetail, error)
	ToggleActive(ctx context.Context, id snowflake.ID, active bool) (Room, error)
	MarkClean(ctx context.Context, id snowflake.ID) (Room, error)
	Override(ctx context.Context, id snowflake.ID, status string) (Room, error)

	// Transition applies event inside the caller's transaction.
	Transition(ctx context.Context, tx *gorm.DB, id snowflake.ID, event Event) (Room, error)
	// LockDetail reads a room row under lock, joined with its rate and capacity.
	LockDetail(ctx context.Context, tx *gorm.DB, id snowflake.ID) (RoomDetail, error)
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidNumber     = errors.New("invalid_number")
	ErrInvalidRoomType   = errors.New("invalid_room_type")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidEvent      = errors.New("invalid_event")
	ErrNotFound          = errors.New("not_found")
	ErrNumberTaken       = errors.New("room_number_taken")
	ErrRoomUnavailable   = errors.New("room_unavailable")
	ErrRoomInactive      = errors.New("room_inactive")
	ErrRoomOccupied      = errors.New("room_occupied")
	ErrInvalidTransition = errors.New("invalid_room_transition")
	ErrStatusConflict    = errors.New("room_status_conflict")
)
