package reservation

import (
	"context"
	"errors"

	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/kirinyoku/culturetix/internal/repository"
)

// sessionLedger is the inventory of one session as seen under its lock.
type sessionLedger struct {
	sessionID int64
	capacity  int64
	reserved  int64
}

// lockLedger locks the session and re-derives its active reserved count
// from storage.
func lockLedger(ctx context.Context, repo Repo, sessionID int64) (sessionLedger, error) {
	sc, err := repo.LockSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return sessionLedger{}, ErrSessionNotFound
		}

		return sessionLedger{}, err
	}

	reserved, err := repo.SumActive(ctx, sc.SessionID)
	if err != nil {
		return sessionLedger{}, err
	}

	return sessionLedger{
		sessionID: sc.SessionID,
		capacity:  sc.Capacity,
		reserved:  reserved,
	}, nil
}

// admits reports whether quantity more seats fit. The comparison uses the
// unclamped remainder so a venue shrunk below its bookings admits nothing.
func (l sessionLedger) admits(quantity int) bool {
	return int64(quantity) <= l.capacity-l.reserved
}

func (l sessionLedger) Availability() domain.Availability {
	return domain.NewAvailability(l.sessionID, l.capacity, l.reserved)
}
