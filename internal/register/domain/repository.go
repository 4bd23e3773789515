package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// ListOccupants returns the holder and companions of every active stay,
	// ordered by room number with the holder first.
	ListOccupants(ctx context.Context, db *gorm.DB) ([]Occupant, error)
}
