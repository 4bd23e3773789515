package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize checks whether the staff member acting under role may
	// perform action on object.
	Authorize(ctx context.Context, staffID, role, object, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
