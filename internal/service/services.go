package service

import (
	"log/slog"

	"github.com/kirinyoku/culturetix/internal/clock"
	postgres "github.com/kirinyoku/culturetix/internal/repository/postgres"
	redis "github.com/kirinyoku/culturetix/internal/repository/redis"
	"github.com/kirinyoku/culturetix/internal/service/catalog"
	"github.com/kirinyoku/culturetix/internal/service/reservation"
)

type Services struct {
	Reservation *reservation.Service
	Catalog     *catalog.Service
}

type Config struct {
	Reservation reservation.Config
	Catalog     catalog.Config
	// BookingRetries is how many more times a booking transaction runs after
	// a serialization failure or deadlock. Zero means a single attempt.
	BookingRetries int
}

// bookingAttempts counts the first run plus its retries.
func (c Config) bookingAttempts() int {
	if c.BookingRetries < 0 {
		return 1
	}
	return c.BookingRetries + 1
}

// Publishers are the optional post-commit sinks. Any of them may be nil.
type Publishers struct {
	Catalog      catalog.Publisher
	Reservations []reservation.Publisher
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubs Publishers,
	logger *slog.Logger,
	cfg Config,
) *Services {
	opts := make([]reservation.Option, 0, len(pubs.Reservations))
	for _, p := range pubs.Reservations {
		opts = append(opts, reservation.WithPublisher(p))
	}

	return &Services{
		Reservation: reservation.New(
			reservation.NewPostgresTx(store, cfg.bookingAttempts()),
			clock.NewSystem(),
			logger.With(slog.String("service", "reservation")),
			cfg.Reservation,
			opts...,
		),
		Catalog: catalog.New(
			store.Query(),
			store.Catalog(),
			cache,
			pubs.Catalog,
			logger.With(slog.String("service", "catalog")),
			cfg.Catalog,
		),
	}
}
