package manager

import (
	"errors"
	"fmt"
)

// The error messages are part of the HTTP contract and must stay stable.
var (
	ErrValidation     = errors.New("incorrect input for booking parameters")
	ErrNoAvailability = errors.New("no rooms available")
	ErrNotFound       = errors.New("booking not found")
	ErrConflict       = errors.New("booking conflicts with an active booking")
	ErrStore          = errors.New("booking store failure")

	ErrDuplicateGuest = fmt.Errorf("%w: guest already holds an active booking", ErrConflict)
	ErrDuplicateRoom  = fmt.Errorf("%w: room is already held by an active booking", ErrConflict)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrStore, err)
}
