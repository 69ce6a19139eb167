package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the base error for missing participations, sessions, and badges.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an operation is not allowed in the current participation state.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation marks malformed input rejected before any value is constructed.
	ErrValidation = errors.New("validation failed")
)

var (
	ErrParticipationNotFound = fmt.Errorf("participation %w", ErrNotFound)
	ErrSessionNotFound       = fmt.Errorf("workout session %w", ErrNotFound)
	ErrBadgeNotFound         = fmt.Errorf("badge %w", ErrNotFound)

	ErrParticipationInactive  = fmt.Errorf("%w: participation is not active", ErrInvalidState)
	ErrCannotAbandonCompleted = fmt.Errorf("%w: cannot abandon a completed challenge", ErrInvalidState)
	ErrAlreadyJoined          = fmt.Errorf("%w: user already participates in challenge", ErrInvalidState)

	// ErrForbidden is returned when a user mutates a participation they do not own.
	ErrForbidden = errors.New("participation belongs to another user")
)

var (
	// ErrAlreadyAwarded is returned by award stores when the (user, badge) pair already exists.
	ErrAlreadyAwarded = errors.New("badge already awarded to user")
	// ErrConcurrentUpdate is returned by participation stores when the stored version moved on.
	ErrConcurrentUpdate = errors.New("participation was modified concurrently")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
