package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/culturetix/internal/clock"
	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/kirinyoku/culturetix/internal/repository"
	"github.com/kirinyoku/culturetix/internal/uow"
)

// Publisher receives reservation changes after they commit.
type Publisher interface {
	PublishReservationChanged(ctx context.Context, change domain.ReservationChange) error
}

type Config struct {
	DefaultListLimit int
	MaxListLimit     int
}

type Service struct {
	tx         Tx
	clock      clock.Clock
	codes      domain.TicketCodeFunc
	publishers []Publisher
	logger     *slog.Logger
	cfg        Config
}

type Option func(*Service)

// WithTicketCodes replaces the ticket code generator.
func WithTicketCodes(fn domain.TicketCodeFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.codes = fn
		}
	}
}

// WithPublisher adds a post-commit change publisher. Nil publishers are ignored.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
}

func New(tx Tx, clk clock.Clock, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = 50
	}

	if cfg.MaxListLimit <= 0 || cfg.MaxListLimit < cfg.DefaultListLimit {
		cfg.MaxListLimit = 500
	}

	if clk == nil {
		clk = clock.NewSystem()
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		tx:     tx,
		clock:  clk,
		codes:  uuid.New,
		logger: logger,
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

type BookInput struct {
	SessionID     int64
	CustomerName  string
	CustomerEmail string
	Quantity      int
}

// Book admits a booking when the session still has room for it and stores
// a new ACTIVE reservation.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: session, customer and quantity to book.
//
// Returns:
//   - domain.Reservation: the stored reservation with its ticket code.
//   - error: reservation.ErrInvalidArgument if the quantity or customer is invalid.
//   - error: reservation.ErrSessionNotFound if the session does not exist.
//   - error: *reservation.InsufficientAvailabilityError if the seats are not available.
//   - error: reservation.ErrTryAgain if storage contention outlasted the retries.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Reservation, error) {
	const op = "service.reservation.Book"

	if err := domain.ValidateBooking(in.CustomerName, in.CustomerEmail, in.Quantity); err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, err)
	}

	var booked domain.Reservation

	err := s.tx.InTx(ctx, func(ctx context.Context, repo Repo, after func(uow.AfterCommit)) error {
		ledger, err := lockLedger(ctx, repo, in.SessionID)
		if err != nil {
			return err
		}

		if !ledger.admits(in.Quantity) {
			return &InsufficientAvailabilityError{
				SessionID: in.SessionID,
				Requested: in.Quantity,
				Available: ledger.Availability().Available,
			}
		}

		res, err := domain.NewReservation(
			in.SessionID,
			in.CustomerName,
			in.CustomerEmail,
			in.Quantity,
			s.codes,
			s.clock.Now(),
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		if err := repo.Insert(ctx, &res); err != nil {
			if errors.Is(err, repository.ErrDuplicateTicketCode) {
				return fmt.Errorf("%w: %w", ErrTicketCodeCollision, err)
			}

			if errors.Is(err, repository.ErrReferenced) {
				return ErrSessionNotFound
			}

			return err
		}

		booked = res

		after(func(ctx context.Context) {
			s.publish(ctx, domain.NewReservationChange(domain.ChangeReservationCreated, res, res.CreatedAt))
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, uow.ErrRetriesExhausted) {
			return domain.Reservation{}, fmt.Errorf("%s: %w: %w", op, ErrTryAgain, err)
		}

		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "reservation booked",
		slog.Int64("reservation_id", booked.ID),
		slog.Int64("session_id", booked.SessionID),
		slog.Int("quantity", booked.Quantity),
	)

	return booked, nil
}

// Cancel moves an ACTIVE reservation to CANCELED, which returns its seats to
// the session's availability.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the reservation to cancel.
//
// Returns:
//   - domain.Reservation: the canceled reservation.
//   - error: reservation.ErrReservationNotFound if the reservation does not exist.
//   - error: reservation.ErrAlreadyCanceled if it was canceled before.
func (s *Service) Cancel(ctx context.Context, id int64) (domain.Reservation, error) {
	const op = "service.reservation.Cancel"

	var canceled domain.Reservation

	err := s.tx.InTx(ctx, func(ctx context.Context, repo Repo, after func(uow.AfterCommit)) error {
		res, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}

			return err
		}

		if err := res.Cancel(); err != nil {
			if errors.Is(err, domain.ErrAlreadyCanceled) {
				return ErrAlreadyCanceled
			}

			return err
		}

		if err := repo.UpdateStatus(ctx, res.ID, res.Status); err != nil {
			return err
		}

		canceled = *res
		at := s.clock.Now()

		after(func(ctx context.Context) {
			s.publish(ctx, domain.NewReservationChange(domain.ChangeReservationCanceled, canceled, at))
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, uow.ErrRetriesExhausted) {
			return domain.Reservation{}, fmt.Errorf("%s: %w: %w", op, ErrTryAgain, err)
		}

		return domain.Reservation{}, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.InfoContext(ctx, "reservation canceled",
		slog.Int64("reservation_id", canceled.ID),
		slog.Int64("session_id", canceled.SessionID),
		slog.Int("quantity", canceled.Quantity),
	)

	return canceled, nil
}

func (s *Service) publish(ctx context.Context, change domain.ReservationChange) {
	for _, p := range s.publishers {
		if err := p.PublishReservationChanged(ctx, change); err != nil {
			s.logger.WarnContext(ctx, "publish reservation change",
				slog.String("type", string(change.Type)),
				slog.Int64("reservation_id", change.ReservationID),
				slog.Any("error", err),
			)
		}
	}
}
