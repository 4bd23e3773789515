package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListGuestRequest struct {
	pagination.Pagination
	Name                 string
	IdentificationNumber string
	Complete             *bool
}

type ListGuestResponse struct {
	pagination.PageInfo
	Guests []Guest `json:"guests"`
}

type Service interface {
	// FindOrCreate returns the guest holding the identification number
	// unchanged, or creates one from attrs. tx may be nil.
	FindOrCreate(ctx context.Context, tx *gorm.DB, attrs Attributes) (Guest, bool, error)
	// Create inserts a new guest and fails on a duplicate identification number.
	Create(ctx context.Context, tx *gorm.DB, attrs Attributes) (Guest, error)
	Get(ctx context.Context, id snowflake.ID) (Guest, error)
	GetMany(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]Guest, error)
	List(ctx context.Context, req ListGuestRequest) (ListGuestResponse, error)
	Update(ctx context.Context, id snowflake.ID, attrs Attributes) (Guest, error)
	MarkProfileComplete(ctx context.Context, id snowflake.ID) (Guest, error)
}

var (
	ErrInvalidID                   = errors.New("invalid_id")
	ErrInvalidIdentificationNumber = errors.New("invalid_identification_number")
	ErrInvalidBirthDate            = errors.New("invalid_birth_date")
	ErrInvalidAge                  = errors.New("invalid_age")
	ErrInvalidPageToken            = errors.New("invalid_page_token")
	ErrDuplicateIdentification     = errors.New("guest_identification_taken")
	ErrProfileIncomplete           = errors.New("guest_profile_incomplete")
	ErrNotFound                    = errors.New("not_found")
)

// IncompleteProfileError names the fields still blocking a complete profile.
type IncompleteProfileError struct {
	Missing []string
}

func (e *IncompleteProfileError) Error() string {
	return ErrProfileIncomplete.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteProfileError) Is(target error) bool {
	return target == ErrProfileIncomplete
}
