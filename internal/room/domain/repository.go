package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, room *Room) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	FindDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RoomDetail, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*RoomDetail, error)
	CompareAndSetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from Status, version int64, to Status, now time.Time) (int64, error)
	SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, now time.Time) (int64, error)
}
