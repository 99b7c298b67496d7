package reservation

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/kirinyoku/culturetix/internal/repository"
	"github.com/kirinyoku/culturetix/internal/uow"
)

// fakeStore models the parts of Postgres the engine relies on: row locks
// held until the unit of work ends, and writes that become visible to others
// only at commit.
type fakeStore struct {
	mu           sync.Mutex
	capacity     map[int64]int64
	committed    []domain.Reservation
	nextID       int64
	sessionLocks map[int64]*sync.Mutex
	rowLocks     map[int64]*sync.Mutex
	inTxErr      error
	published    []domain.ReservationChange
}

func newFakeStore(capacities map[int64]int64) *fakeStore {
	return &fakeStore{
		capacity:     capacities,
		sessionLocks: make(map[int64]*sync.Mutex),
		rowLocks:     make(map[int64]*sync.Mutex),
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn TxFunc) error {
	if f.inTxErr != nil {
		return f.inTxErr
	}

	tx := &fakeTx{store: f, statuses: make(map[int64]domain.ReservationStatus)}
	var hooks []uow.AfterCommit

	err := fn(ctx, tx, func(h uow.AfterCommit) { hooks = append(hooks, h) })
	if err == nil {
		f.mu.Lock()
		f.committed = append(f.committed, tx.pending...)
		for id, st := range tx.statuses {
			for i := range f.committed {
				if f.committed[i].ID == id {
					f.committed[i].Status = st
				}
			}
		}
		f.mu.Unlock()
	}

	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}

	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

func (f *fakeStore) Repo() Repo {
	return &fakeTx{store: f, readOnly: true}
}

func (f *fakeStore) PublishReservationChanged(_ context.Context, c domain.ReservationChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, c)
	return nil
}

func (f *fakeStore) activeSum(sessionID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	var total int64
	for _, r := range f.committed {
		if r.SessionID == sessionID && r.Status == domain.ReservationActive {
			total += int64(r.Quantity)
		}
	}
	return total
}

func (f *fakeStore) lockFor(locks map[int64]*sync.Mutex, id int64) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := locks[id]
	if !ok {
		m = &sync.Mutex{}
		locks[id] = m
	}
	return m
}

type fakeTx struct {
	store    *fakeStore
	readOnly bool
	pending  []domain.Reservation
	statuses map[int64]domain.ReservationStatus
	held     []*sync.Mutex
}

func (t *fakeTx) LockSession(_ context.Context, sessionID int64) (domain.SessionCapacity, error) {
	t.store.mu.Lock()
	capacity, ok := t.store.capacity[sessionID]
	t.store.mu.Unlock()
	if !ok {
		return domain.SessionCapacity{}, repository.ErrNotFound
	}

	m := t.store.lockFor(t.store.sessionLocks, sessionID)
	m.Lock()
	t.held = append(t.held, m)

	return domain.SessionCapacity{SessionID: sessionID, Capacity: capacity}, nil
}

func (t *fakeTx) SumActive(_ context.Context, sessionID int64) (int64, error) {
	total := t.store.activeSum(sessionID)
	for _, r := range t.pending {
		if r.SessionID == sessionID && r.Status == domain.ReservationActive {
			total += int64(r.Quantity)
		}
	}

	// Widen the check-then-act window so a missing lock shows up as overbooking.
	runtime.Gosched()

	return total, nil
}

func (t *fakeTx) Availability(_ context.Context, sessionID int64) (domain.Availability, error) {
	t.store.mu.Lock()
	capacity, ok := t.store.capacity[sessionID]
	t.store.mu.Unlock()
	if !ok {
		return domain.Availability{}, repository.ErrNotFound
	}

	return domain.NewAvailability(sessionID, capacity, t.store.activeSum(sessionID)), nil
}

func (t *fakeTx) Insert(_ context.Context, res *domain.Reservation) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.capacity[res.SessionID]; !ok {
		return repository.ErrReferenced
	}

	for _, r := range t.store.committed {
		if r.TicketCode == res.TicketCode {
			return repository.ErrDuplicateTicketCode
		}
	}

	t.store.nextID++
	res.ID = t.store.nextID
	t.pending = append(t.pending, *res)

	return nil
}

func (t *fakeTx) find(id int64) (*domain.Reservation, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, r := range t.store.committed {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *fakeTx) Get(_ context.Context, id int64) (*domain.Reservation, error) {
	return t.find(id)
}

func (t *fakeTx) GetForUpdate(_ context.Context, id int64) (*domain.Reservation, error) {
	if _, err := t.find(id); err != nil {
		return nil, err
	}

	m := t.store.lockFor(t.store.rowLocks, id)
	m.Lock()
	t.held = append(t.held, m)

	return t.find(id)
}

func (t *fakeTx) GetByTicketCode(_ context.Context, code uuid.UUID) (*domain.Reservation, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, r := range t.store.committed {
		if r.TicketCode == code {
			cp := r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t *fakeTx) ListByCustomerEmail(_ context.Context, email string) ([]domain.Reservation, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var out []domain.Reservation
	for _, r := range t.store.committed {
		if r.CustomerEmail == email {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *fakeTx) List(_ context.Context, limit, offset int) ([]domain.Reservation, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if offset >= len(t.store.committed) {
		return nil, nil
	}
	end := offset + limit
	if end > len(t.store.committed) {
		end = len(t.store.committed)
	}
	return append([]domain.Reservation(nil), t.store.committed[offset:end]...), nil
}

func (t *fakeTx) UpdateStatus(_ context.Context, id int64, status domain.ReservationStatus) error {
	if _, err := t.find(id); err != nil {
		return err
	}
	t.statuses[id] = status
	return nil
}
