package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/culturetix/internal/domain"
)

type QueryRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *QueryRepo) With(db DB) *QueryRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *QueryRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// GetVenue retrieves a venue by its ID.
//
// Returns:
//   - *domain.Venue: the venue when found.
//   - error: repository.ErrNotFound if the venue is not found.
func (r *QueryRepo) GetVenue(ctx context.Context, id int64) (*domain.Venue, error) {
	const op = "postgresrepo.QueryRepo.GetVenue"

	var v domain.Venue
	err := r.handle().QueryRow(ctx,
		`SELECT id, name, address, capacity
       	 FROM venues WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name, &v.Address, &v.Capacity)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &v, nil
}

func (r *QueryRepo) ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error) {
	const op = "postgresrepo.QueryRepo.ListVenues"

	rows, err := r.handle().Query(ctx,
		`SELECT id, name, address, capacity
		 FROM venues
		 ORDER BY id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Venue, error) {
		var v domain.Venue
		err := row.Scan(&v.ID, &v.Name, &v.Address, &v.Capacity)
		return v, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetEvent retrieves an event by its ID.
//
// Returns:
//   - *domain.Event: the event when found.
//   - error: repository.ErrNotFound if the event is not found.
func (r *QueryRepo) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgresrepo.QueryRepo.GetEvent"

	var e domain.Event
	err := r.handle().QueryRow(ctx,
		`SELECT id, title, description, category, start_date, end_date
       	 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.StartDate, &e.EndDate)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

func (r *QueryRepo) ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "postgresrepo.QueryRepo.ListEvents"

	rows, err := r.handle().Query(ctx,
		`SELECT id, title, description, category, start_date, end_date
		 FROM events
		 ORDER BY start_date, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Event, error) {
		var e domain.Event
		err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.StartDate, &e.EndDate)
		return e, err
	})
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// GetSession retrieves a session by its ID.
//
// Returns:
//   - *domain.Session: the session when found.
//   - error: repository.ErrNotFound if the session is not found.
func (r *QueryRepo) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	const op = "postgresrepo.QueryRepo.GetSession"

	var s domain.Session
	err := r.handle().QueryRow(ctx,
		`SELECT id, event_id, venue_id, starts_at, price_cents
       	 FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.EventID, &s.VenueID, &s.StartsAt, &s.PriceCents)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &s, nil
}

// ListSessions lists sessions ordered by start time. A non-zero eventID
// restricts the result to that event.
func (r *QueryRepo) ListSessions(
	ctx context.Context,
	eventID int64,
	limit, offset int,
) ([]domain.Session, error) {
	const op = "postgresrepo.QueryRepo.ListSessions"

	rows, err := r.handle().Query(ctx,
		`SELECT id, event_id, venue_id, starts_at, price_cents
		 FROM sessions
		 WHERE $1::bigint = 0 OR event_id = $1
		 ORDER BY starts_at, id
		 LIMIT $2 OFFSET $3`,
		eventID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanSession)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanSession(row pgx.CollectableRow) (domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.EventID, &s.VenueID, &s.StartsAt, &s.PriceCents)
	return s, err
}
