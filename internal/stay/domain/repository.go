package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, stay *Stay) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Stay, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Stay, error)
	FindActiveByRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (*Stay, error)
	ListActive(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*ActiveStay, error)
	CountActive(ctx context.Context, db *gorm.DB) (int64, error)
	Finalize(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, reason ClosedReason) (int64, error)
	AddCarriedBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertCompanions(ctx context.Context, db *gorm.DB, stayID snowflake.ID, guestIDs []snowflake.ID, at time.Time) error
	ListCompanions(ctx context.Context, db *gorm.DB, stayID snowflake.ID) ([]snowflake.ID, error)
	// FindActiveByGuest returns the active stay housing guestID as titular or companion.
	FindActiveByGuest(ctx context.Context, db *gorm.DB, guestID snowflake.ID) (*Stay, error)

	InsertConsumption(ctx context.Context, db *gorm.DB, line *Consumption) error
	FindConsumption(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Consumption, error)
	DeleteConsumption(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ListConsumptions(ctx context.Context, db *gorm.DB, stayID snowflake.ID) ([]ConsumptionDetail, error)
}
