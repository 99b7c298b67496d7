package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/kirinyoku/culturetix/internal/repository"
)

// Get returns a reservation by ID.
//
// Returns:
//   - error: reservation.ErrReservationNotFound if the reservation does not exist.
func (s *Service) Get(ctx context.Context, id int64) (domain.Reservation, error) {
	const op = "service.reservation.Get"

	res, err := s.tx.Repo().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrReservationNotFound)
		}

		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	return *res, nil
}

// GetByTicketCode returns the reservation a ticket code was issued for.
//
// Returns:
//   - error: reservation.ErrTicketNotFound if no reservation carries the code.
func (s *Service) GetByTicketCode(ctx context.Context, code uuid.UUID) (domain.Reservation, error) {
	const op = "service.reservation.GetByTicketCode"

	if code == uuid.Nil {
		return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
	}

	res, err := s.tx.Repo().GetByTicketCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}

		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	return *res, nil
}

// ListByCustomerEmail returns every reservation made with the email, oldest
// first. An unknown email yields an empty list.
func (s *Service) ListByCustomerEmail(ctx context.Context, email string) ([]domain.Reservation, error) {
	const op = "service.reservation.ListByCustomerEmail"

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%s: %w: email is required", op, ErrInvalidArgument)
	}

	out, err := s.tx.Repo().ListByCustomerEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if out == nil {
		out = []domain.Reservation{}
	}

	return out, nil
}

// List pages through all reservations in creation order.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Reservation, error) {
	const op = "service.reservation.List"

	if limit <= 0 {
		limit = s.cfg.DefaultListLimit
	}

	if limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}

	if offset < 0 {
		offset = 0
	}

	out, err := s.tx.Repo().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if out == nil {
		out = []domain.Reservation{}
	}

	return out, nil
}

// Availability returns the session's capacity, active reserved count and the
// seats still available. It reads committed state and takes no locks.
//
// Returns:
//   - error: reservation.ErrSessionNotFound if the session does not exist.
func (s *Service) Availability(ctx context.Context, sessionID int64) (domain.Availability, error) {
	const op = "service.reservation.Availability"

	a, err := s.tx.Repo().Availability(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Availability{}, fmt.Errorf("%s:%w", op, ErrSessionNotFound)
		}

		return domain.Availability{}, fmt.Errorf("%s:%w", op, err)
	}

	return a, nil
}
