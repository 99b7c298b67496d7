package reservation

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by Service matches at most one of them
// with errors.Is.
var (
	ErrNotFound                 = errors.New("not found")
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrInvalidState             = errors.New("invalid state")
	ErrTryAgain                 = errors.New("booking contention, try again")
)

var (
	ErrSessionNotFound     = fmt.Errorf("session %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
	ErrTicketNotFound      = fmt.Errorf("ticket %w", ErrNotFound)
	ErrAlreadyCanceled     = fmt.Errorf("%w: reservation already canceled", ErrInvalidState)

	// ErrTicketCodeCollision means the generator produced a code that is
	// already stored. It is an internal failure, not a business outcome.
	ErrTicketCodeCollision = errors.New("ticket code collision")
)

// InsufficientAvailabilityError reports a rejected booking together with the
// seats that were left when the decision was made.
type InsufficientAvailabilityError struct {
	SessionID int64
	Requested int
	Available int64
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf(
		"not enough seats for session %d: requested %d, available %d",
		e.SessionID, e.Requested, e.Available,
	)
}

func (e *InsufficientAvailabilityError) Is(target error) bool {
	return target == ErrInsufficientAvailability
}
