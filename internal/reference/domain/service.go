package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRoomTypeRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description"`
}

type CreatePriceRequest struct {
	Label    string `json:"label"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type CreateFloorRequest struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
}

type CreateBlockRequest struct {
	Name string `json:"name"`
}

type CreateServiceRequest struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Price int64  `json:"price"`
}

type CreateScheduleRequest struct {
	Name                  string `json:"name"`
	Code                  string `json:"code"`
	CheckInTime           string `json:"check_in_time"`
	CheckOutTime          string `json:"check_out_time"`
	EntryToleranceMinutes int    `json:"entry_tolerance_minutes"`
	ExitToleranceMinutes  int    `json:"exit_tolerance_minutes"`
}

type ListRequest struct {
	ActiveOnly bool
}

type Service interface {
	ListRoomTypes(context.Context, ListRequest) ([]RoomType, error)
	GetRoomType(context.Context, snowflake.ID) (RoomType, error)
	CreateRoomType(context.Context, CreateRoomTypeRequest) (RoomType, error)

	ListPrices(context.Context, ListRequest) ([]Price, error)
	GetPrice(context.Context, snowflake.ID) (Price, error)
	CreatePrice(context.Context, CreatePriceRequest) (Price, error)

	ListFloors(context.Context, ListRequest) ([]Floor, error)
	GetFloor(context.Context, snowflake.ID) (Floor, error)
	CreateFloor(context.Context, CreateFloorRequest) (Floor, error)

	ListBlocks(context.Context, ListRequest) ([]Block, error)
	GetBlock(context.Context, snowflake.ID) (Block, error)
	CreateBlock(context.Context, CreateBlockRequest) (Block, error)

	ListServices(context.Context, ListRequest) ([]ServiceItem, error)
	GetService(context.Context, snowflake.ID) (ServiceItem, error)
	CreateService(context.Context, CreateServiceRequest) (ServiceItem, error)

	ListSchedules(context.Context, ListRequest) ([]Schedule, error)
	GetSchedule(context.Context, snowflake.ID) (Schedule, error)
	CreateSchedule(context.Context, CreateScheduleRequest) (Schedule, error)

	ToggleActive(ctx context.Context, kind Kind, id snowflake.ID, active bool) error
}

var (
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidLabel        = errors.New("invalid_label")
	ErrInvalidCode         = errors.New("invalid_code")
	ErrInvalidCapacity     = errors.New("invalid_capacity")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidCheckInTime  = errors.New("invalid_check_in_time")
	ErrInvalidCheckOutTime = errors.New("invalid_check_out_time")
	ErrInvalidTolerance    = errors.New("invalid_tolerance")
	ErrDuplicate           = errors.New("reference_duplicate")
	ErrNotFound            = errors.New("not_found")
)
