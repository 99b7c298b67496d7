package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

var (
	ErrVenueNotFound   = fmt.Errorf("venue %w", ErrNotFound)
	ErrEventNotFound   = fmt.Errorf("event %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)

	ErrSessionHasReservations = fmt.Errorf("%w: session has reservations", ErrConflict)
	ErrEventHasSessions       = fmt.Errorf("%w: event has sessions", ErrConflict)
	ErrVenueHasSessions       = fmt.Errorf("%w: venue has sessions", ErrConflict)
)
