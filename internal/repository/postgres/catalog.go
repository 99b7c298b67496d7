package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/kirinyoku/culturetix/internal/repository"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) CreateVenue(ctx context.Context, v domain.Venue) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateVenue"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO venues(name, address, capacity)
       	 VALUES ($1, $2, $3)
     	 RETURNING id`,
		v.Name, v.Address, v.Capacity,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *CatalogRepo) CreateEvent(ctx context.Context, e domain.Event) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateEvent"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO events(title, description, category, start_date, end_date)
       	 VALUES ($1, $2, $3, $4, $5)
     	 RETURNING id`,
		e.Title, e.Description, e.Category, e.StartDate, e.EndDate,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// UpdateEvent rewrites an event's descriptive fields and date range.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (r *CatalogRepo) UpdateEvent(ctx context.Context, e domain.Event) error {
	const op = "postgresrepo.CatalogRepo.UpdateEvent"

	tag, err := r.handle().Exec(ctx,
		`UPDATE events
       	 SET title = $2, description = $3, category = $4, start_date = $5, end_date = $6
     	 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Category, e.StartDate, e.EndDate,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// DeleteEvent removes an event that has no sessions.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
//   - error: repository.ErrReferenced if sessions still point at it.
func (r *CatalogRepo) DeleteEvent(ctx context.Context, id int64) error {
	return r.delete(ctx, "postgresrepo.CatalogRepo.DeleteEvent", `DELETE FROM events WHERE id = $1`, id)
}

// DeleteVenue removes a venue that hosts no sessions.
//
// Returns:
//   - error: repository.ErrNotFound if the venue does not exist.
//   - error: repository.ErrReferenced if sessions still point at it.
func (r *CatalogRepo) DeleteVenue(ctx context.Context, id int64) error {
	return r.delete(ctx, "postgresrepo.CatalogRepo.DeleteVenue", `DELETE FROM venues WHERE id = $1`, id)
}

// CreateSession inserts a session.
//
// Returns:
//   - int64: the created session ID.
//   - error: repository.ErrReferenced if the event or venue does not exist.
func (r *CatalogRepo) CreateSession(ctx context.Context, s domain.Session) (int64, error) {
	const op = "postgresrepo.CatalogRepo.CreateSession"

	var id int64
	if err := r.handle().QueryRow(ctx,
		`INSERT INTO sessions(event_id, venue_id, starts_at, price_cents)
       	 VALUES ($1, $2, $3, $4)
     	 RETURNING id`,
		s.EventID, s.VenueID, s.StartsAt, s.PriceCents,
	).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// UpdateSession rewrites the mutable fields of a session. The row lock it
// takes orders the update against in-flight bookings of the same session.
//
// Returns:
//   - error: repository.ErrNotFound if the session does not exist.
//   - error: repository.ErrReferenced if the event or venue does not exist.
func (r *CatalogRepo) UpdateSession(ctx context.Context, s domain.Session) error {
	const op = "postgresrepo.CatalogRepo.UpdateSession"

	tag, err := r.handle().Exec(ctx,
		`UPDATE sessions
       	 SET event_id = $2, venue_id = $3, starts_at = $4, price_cents = $5
     	 WHERE id = $1`,
		s.ID, s.EventID, s.VenueID, s.StartsAt, s.PriceCents,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

// DeleteSession removes a session that has no reservations.
//
// Returns:
//   - error: repository.ErrNotFound if the session does not exist.
//   - error: repository.ErrReferenced if reservations still point at it.
func (r *CatalogRepo) DeleteSession(ctx context.Context, id int64) error {
	return r.delete(ctx, "postgresrepo.CatalogRepo.DeleteSession", `DELETE FROM sessions WHERE id = $1`, id)
}

func (r *CatalogRepo) delete(ctx context.Context, op, query string, id int64) error {
	tag, err := r.handle().Exec(ctx, query, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
