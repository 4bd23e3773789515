package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Room struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Number     string        `gorm:"not null;uniqueIndex" json:"number"`
	RoomTypeID snowflake.ID  `gorm:"not null" json:"room_type_id"`
	PriceID    snowflake.ID  `gorm:"not null" json:"price_id"`
	FloorID    *snowflake.ID `json:"floor_id,omitempty"`
	BlockID    *snowflake.ID `json:"block_id,omitempty"`
	Status     Status        `gorm:"not null" json:"status"`
	Active     bool          `gorm:"not null;default:true" json:"active"`
	Notes      string        `json:"notes,omitempty"`
	Version    int64         `gorm:"not null;default:0" json:"version"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null" json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }

// RoomDetail is a room joined with its type, price, floor and block.
type RoomDetail struct {
	Room
	RoomTypeName string `json:"room_type_name"`
	Capacity     int    `json:"capacity"`
	PriceLabel   string `json:"price_label"`
	Rate         int64  `json:"rate"`
	Currency     string `json:"currency"`
	FloorName    string `json:"floor_name,omitempty"`
	BlockName    string `json:"block_name,omitempty"`
}

type ListFilter struct {
	Status     Status
	Active     *bool
	FloorID    snowflake.ID
	BlockID    snowflake.ID
	RoomTypeID snowflake.ID
}
