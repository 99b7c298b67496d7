package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidCustomer = errors.New("customer name and email are required")
	ErrAlreadyCanceled = errors.New("reservation already canceled")
	ErrUnknownStatus   = errors.New("unknown reservation status")
	ErrTicketCodeUnset = errors.New("ticket code generator returned nil uuid")
)

// TicketCodeFunc produces ticket codes. Production uses uuid.New.
type TicketCodeFunc func() uuid.UUID

// NewReservation materializes a reservation in its initial ACTIVE state.
// The id is assigned by storage.
func NewReservation(
	sessionID int64,
	customerName, customerEmail string,
	quantity int,
	code TicketCodeFunc,
	now time.Time,
) (Reservation, error) {
	const op = "domain.NewReservation"

	if err := ValidateBooking(customerName, customerEmail, quantity); err != nil {
		return Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	if code == nil {
		code = uuid.New
	}

	ticket := code()
	if ticket == uuid.Nil {
		return Reservation{}, fmt.Errorf("%s:%w", op, ErrTicketCodeUnset)
	}

	return Reservation{
		SessionID:     sessionID,
		CustomerName:  strings.TrimSpace(customerName),
		CustomerEmail: strings.TrimSpace(customerEmail),
		Quantity:      quantity,
		Status:        ReservationActive,
		TicketCode:    ticket,
		CreatedAt:     now,
	}, nil
}

// ValidateBooking checks the structural rules of a booking request. Email
// syntax is left to the caller-facing layer.
func ValidateBooking(customerName, customerEmail string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if strings.TrimSpace(customerName) == "" || strings.TrimSpace(customerEmail) == "" {
		return ErrInvalidCustomer
	}

	return nil
}

// Cancel moves an ACTIVE reservation to CANCELED. Canceling twice is an
// error, not a no-op.
func (r *Reservation) Cancel() error {
	switch r.Status {
	case ReservationActive:
		r.Status = ReservationCanceled
		return nil
	case ReservationCanceled:
		return ErrAlreadyCanceled
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStatus, r.Status)
	}
}

// HoldsSeats reports whether the reservation counts against capacity.
func (r Reservation) HoldsSeats() bool {
	return r.Status == ReservationActive
}
