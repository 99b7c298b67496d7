package uow

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	postgresrepo "github.com/kirinyoku/culturetix/internal/repository/postgres"
)

// ErrRetriesExhausted is returned when every attempt failed with a
// retryable storage error.
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

type TxFunc func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error

// UoW represents a unit of work.
type UoW struct {
	store   *postgresrepo.Store
	backoff time.Duration
}

func NewUoW(store *postgresrepo.Store) *UoW {
	return &UoW{store: store, backoff: 10 * time.Millisecond}
}

// DoWithOpts runs fn inside the transaction with the given options. After a successful commit,
// it executes all after-commit hooks.
func (u *UoW) DoWithOpts(ctx context.Context, opts *pgx.TxOptions, fn TxFunc) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgresrepo.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

// DoWithRetry is DoWithOpts that reruns the whole transaction up to attempts
// times while it fails with a serialization failure or deadlock. Hooks from
// failed attempts are discarded. When all attempts fail the returned error
// wraps both ErrRetriesExhausted and the last cause.
func (u *UoW) DoWithRetry(ctx context.Context, opts *pgx.TxOptions, attempts int, fn TxFunc) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(u.backoff * time.Duration(1<<(i-1)))
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		err = u.DoWithOpts(ctx, opts, fn)
		if err == nil || !postgresrepo.IsRetryable(err) {
			return err
		}
	}

	return errors.Join(ErrRetriesExhausted, err)
}
