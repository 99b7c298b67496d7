package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/kirinyoku/culturetix/internal/repository"
)

const reservationColumns = `id, session_id, customer_name, customer_email, quantity, status, ticket_code, created_at`

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// LockSession takes a row lock on the session and returns its venue's
// current capacity. Concurrent callers for the same session queue on the
// lock until the holder's transaction ends. It must run inside a transaction.
//
// Returns:
//   - domain.SessionCapacity: session and venue capacity.
//   - error: repository.ErrNotFound if the session does not exist.
func (r *ReservationRepo) LockSession(ctx context.Context, sessionID int64) (domain.SessionCapacity, error) {
	const op = "postgresrepo.ReservationRepo.LockSession"

	var sc domain.SessionCapacity
	err := r.handle().QueryRow(ctx,
		`SELECT s.id, v.id, v.capacity
       	 FROM sessions s
       	 JOIN venues v ON v.id = s.venue_id
     	 WHERE s.id = $1
     	 FOR NO KEY UPDATE OF s`,
		sessionID,
	).Scan(&sc.SessionID, &sc.VenueID, &sc.Capacity)
	if err != nil {
		return domain.SessionCapacity{}, wrapDBErr(op, err)
	}

	return sc, nil
}

// Availability reads capacity and the active reserved count in a single
// statement, so both come from one snapshot. It takes no locks.
//
// Returns:
//   - domain.Availability: the derived availability of the session.
//   - error: repository.ErrNotFound if the session does not exist.
func (r *ReservationRepo) Availability(ctx context.Context, sessionID int64) (domain.Availability, error) {
	const op = "postgresrepo.ReservationRepo.Availability"

	var capacity, reserved int64
	err := r.handle().QueryRow(ctx,
		`SELECT v.capacity,
       	 	COALESCE((
       	 		SELECT SUM(res.quantity)
       	 		FROM reservations res
       	 		WHERE res.session_id = s.id AND res.status = $2
       	 	), 0)
       	 FROM sessions s
       	 JOIN venues v ON v.id = s.venue_id
     	 WHERE s.id = $1`,
		sessionID, string(domain.ReservationActive),
	).Scan(&capacity, &reserved)
	if err != nil {
		return domain.Availability{}, wrapDBErr(op, err)
	}

	return domain.NewAvailability(sessionID, capacity, reserved), nil
}

// SumActive returns the total quantity of ACTIVE reservations of a session.
func (r *ReservationRepo) SumActive(ctx context.Context, sessionID int64) (int64, error) {
	const op = "postgresrepo.ReservationRepo.SumActive"

	var total int64
	err := r.handle().QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0)
       	 FROM reservations
     	 WHERE session_id = $1 AND status = $2`,
		sessionID, string(domain.ReservationActive),
	).Scan(&total)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return total, nil
}

// Insert persists a new reservation and fills in its ID.
//
// Returns:
//   - error: repository.ErrDuplicateTicketCode if the ticket code is taken.
//   - error: repository.ErrReferenced if the session does not exist.
func (r *ReservationRepo) Insert(ctx context.Context, res *domain.Reservation) error {
	const op = "postgresrepo.ReservationRepo.Insert"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO reservations(session_id, customer_name, customer_email, quantity, status, ticket_code, created_at)
       	 VALUES ($1, $2, $3, $4, $5, $6, $7)
     	 RETURNING id`,
		res.SessionID,
		res.CustomerName,
		res.CustomerEmail,
		res.Quantity,
		string(res.Status),
		res.TicketCode,
		res.CreatedAt,
	).Scan(&res.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a reservation by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation is not found.
func (r *ReservationRepo) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Get"

	res, err := r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.GetForUpdate"

	res, err := r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// GetByTicketCode retrieves a reservation by its ticket code.
//
// Returns:
//   - error: repository.ErrNotFound if no reservation carries the code.
func (r *ReservationRepo) GetByTicketCode(ctx context.Context, code uuid.UUID) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.GetByTicketCode"

	res, err := r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE ticket_code = $1`, code)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// ListByCustomerEmail returns the customer's reservations in creation order.
func (r *ReservationRepo) ListByCustomerEmail(ctx context.Context, email string) ([]domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.ListByCustomerEmail"

	rows, err := r.handle().Query(ctx,
		`SELECT `+reservationColumns+`
       	 FROM reservations
     	 WHERE customer_email = $1
     	 ORDER BY id`,
		email,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanReservation)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ReservationRepo) List(ctx context.Context, limit, offset int) ([]domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+reservationColumns+`
       	 FROM reservations
     	 ORDER BY id
     	 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := pgx.CollectRows(rows, scanReservation)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// UpdateStatus writes the status column only; every other reservation
// column is immutable.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id int64, status domain.ReservationStatus) error {
	const op = "postgresrepo.ReservationRepo.UpdateStatus"

	tag, err := r.handle().Exec(ctx, `UPDATE reservations SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReservationRepo) getOne(ctx context.Context, sql string, arg any) (*domain.Reservation, error) {
	rows, err := r.handle().Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}

	res, err := pgx.CollectExactlyOneRow(rows, scanReservation)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func scanReservation(row pgx.CollectableRow) (domain.Reservation, error) {
	var (
		res    domain.Reservation
		status string
	)

	err := row.Scan(
		&res.ID,
		&res.SessionID,
		&res.CustomerName,
		&res.CustomerEmail,
		&res.Quantity,
		&status,
		&res.TicketCode,
		&res.CreatedAt,
	)
	res.Status = domain.ReservationStatus(status)

	return res, err
}
