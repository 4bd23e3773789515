package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reservation *Reservation) error
	InsertDetails(ctx context.Context, db *gorm.DB, details []Detail) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Reservation, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Reservation, error)
	ListDetails(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) ([]Detail, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Reservation, error)
	// UpdateStatus moves the reservation from one of the given statuses to
	// next and returns the number of rows changed.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, next Status, at time.Time) (int64, error)
	// ClaimHold marks detailID as holding roomID and clears any stale hold
	// other details still carry on the same room.
	ClaimHold(ctx context.Context, db *gorm.DB, detailID, roomID snowflake.ID) error
	// ReleaseHolds clears the hold flag on every detail of the reservation.
	ReleaseHolds(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) error
	// CountOtherHolds counts confirmed reservations other than exclude that
	// hold roomID.
	CountOtherHolds(ctx context.Context, db *gorm.DB, roomID, exclude snowflake.ID) (int64, error)
}
