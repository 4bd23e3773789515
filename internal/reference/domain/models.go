package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindRoomType Kind = "room_types"
	KindPrice    Kind = "prices"
	KindFloor    Kind = "floors"
	KindBlock    Kind = "blocks"
	KindService  Kind = "services"
	KindSchedule Kind = "schedules"
)

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindRoomType:
		return KindRoomType, nil
	case KindPrice:
		return KindPrice, nil
	case KindFloor:
		return KindFloor, nil
	case KindBlock:
		return KindBlock, nil
	case KindService:
		return KindService, nil
	case KindSchedule:
		return KindSchedule, nil
	default:
		return "", ErrInvalidKind
	}
}

type RoomType struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"not null;uniqueIndex" json:"name"`
	Code        string       `gorm:"not null;uniqueIndex" json:"code"`
	Capacity    int          `gorm:"not null" json:"capacity"`
	Description string       `json:"description,omitempty"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (RoomType) TableName() string { return "room_types" }

// Price is a nightly rate in minor units.
type Price struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Label     string       `gorm:"not null;uniqueIndex" json:"label"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Currency  string       `gorm:"not null" json:"currency"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Price) TableName() string { return "prices" }

type Floor struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null;uniqueIndex" json:"name"`
	Number    int          `gorm:"not null" json:"number"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Floor) TableName() string { return "floors" }

type Block struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null;uniqueIndex" json:"name"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Block) TableName() string { return "blocks" }

// ServiceItem is a billable extra (breakfast, laundry, minibar).
type ServiceItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null;uniqueIndex" json:"name"`
	Code      string       `gorm:"not null;uniqueIndex" json:"code"`
	Price     int64        `gorm:"not null" json:"price"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (ServiceItem) TableName() string { return "services" }

// Schedule defines wall-clock check-in/check-out times and their tolerances.
type Schedule struct {
	ID                    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                  string       `gorm:"not null;uniqueIndex" json:"name"`
	Code                  string       `gorm:"not null;uniqueIndex" json:"code"`
	CheckInTime           string       `gorm:"not null" json:"check_in_time"`
	CheckOutTime          string       `gorm:"not null" json:"check_out_time"`
	EntryToleranceMinutes int          `gorm:"not null;default:0" json:"entry_tolerance_minutes"`
	ExitToleranceMinutes  int          `gorm:"not null;default:0" json:"exit_tolerance_minutes"`
	Active                bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt             time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"not null" json:"updated_at"`
}

func (Schedule) TableName() string { return "schedules" }

// ParseClock parses an "HH:MM" wall-clock time into hour and minute.
func ParseClock(value string) (int, int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", value, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// CheckoutOn returns the scheduled checkout instant on the calendar day of
// ref, evaluated in loc.
func (s Schedule) CheckoutOn(ref time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	hour, minute, err := ParseClock(s.CheckOutTime)
	if err != nil {
		return time.Time{}, err
	}
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc), nil
}

// ExitTolerance is the grace period past the scheduled checkout.
func (s Schedule) ExitTolerance() time.Duration {
	return time.Duration(s.ExitToleranceMinutes) * time.Minute
}
