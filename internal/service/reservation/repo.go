package reservation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kirinyoku/culturetix/internal/domain"
	postgresrepo "github.com/kirinyoku/culturetix/internal/repository/postgres"
	"github.com/kirinyoku/culturetix/internal/uow"
)

// Repo is the storage the engine works against.
//
// LockSession must block concurrent callers for the same session until the
// holder's unit of work ends, and reads made after it must see everything
// committed before the lock was granted.
type Repo interface {
	LockSession(ctx context.Context, sessionID int64) (domain.SessionCapacity, error)
	SumActive(ctx context.Context, sessionID int64) (int64, error)
	Availability(ctx context.Context, sessionID int64) (domain.Availability, error)
	Insert(ctx context.Context, res *domain.Reservation) error
	Get(ctx context.Context, id int64) (*domain.Reservation, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByTicketCode(ctx context.Context, code uuid.UUID) (*domain.Reservation, error)
	ListByCustomerEmail(ctx context.Context, email string) ([]domain.Reservation, error)
	List(ctx context.Context, limit, offset int) ([]domain.Reservation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ReservationStatus) error
}

type TxFunc func(ctx context.Context, repo Repo, after func(uow.AfterCommit)) error

// Tx hands out Repo views: one bound to a unit of work, and one for plain
// reads outside any transaction.
type Tx interface {
	InTx(ctx context.Context, fn TxFunc) error
	Repo() Repo
}

// PostgresTx runs units of work as READ COMMITTED transactions. Under that
// level every statement after LockSession gets a fresh snapshot, so the sum
// taken under the lock includes the previous lock holder's insert.
type PostgresTx struct {
	store    *postgresrepo.Store
	uow      *uow.UoW
	attempts int
}

func NewPostgresTx(store *postgresrepo.Store, attempts int) *PostgresTx {
	return &PostgresTx{
		store:    store,
		uow:      uow.NewUoW(store),
		attempts: attempts,
	}
}

func (p *PostgresTx) InTx(ctx context.Context, fn TxFunc) error {
	opts := &pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}

	return p.uow.DoWithRetry(ctx, opts, p.attempts, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		return fn(ctx, p.store.Reservations().With(tx), after)
	})
}

func (p *PostgresTx) Repo() Repo {
	return p.store.Reservations()
}
