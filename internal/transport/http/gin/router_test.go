package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/culturetix/internal/auth"
	"github.com/kirinyoku/culturetix/internal/domain"
	redisrepo "github.com/kirinyoku/culturetix/internal/repository/redis"
	"github.com/kirinyoku/culturetix/internal/service/catalog"
	"github.com/kirinyoku/culturetix/internal/service/reservation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReservations struct {
	mu      sync.Mutex
	booked  []reservation.BookInput
	bookErr error
	res     domain.Reservation
	getErr  error
	listed  string
	cancel  error
	avail   domain.Availability
}

func (f *fakeReservations) Book(_ context.Context, in reservation.BookInput) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = append(f.booked, in)
	if f.bookErr != nil {
		return domain.Reservation{}, f.bookErr
	}
	r := f.res
	r.ID = int64(len(f.booked))
	r.SessionID = in.SessionID
	r.Quantity = in.Quantity
	return r, nil
}

func (f *fakeReservations) Cancel(_ context.Context, id int64) (domain.Reservation, error) {
	if f.cancel != nil {
		return domain.Reservation{}, f.cancel
	}
	r := f.res
	r.ID = id
	r.Status = domain.ReservationCanceled
	return r, nil
}

func (f *fakeReservations) Get(_ context.Context, id int64) (domain.Reservation, error) {
	if f.getErr != nil {
		return domain.Reservation{}, f.getErr
	}
	r := f.res
	r.ID = id
	return r, nil
}

func (f *fakeReservations) GetByTicketCode(_ context.Context, code uuid.UUID) (domain.Reservation, error) {
	if code != f.res.TicketCode {
		return domain.Reservation{}, fmt.Errorf("lookup: %w", reservation.ErrTicketNotFound)
	}
	return f.res, nil
}

func (f *fakeReservations) ListByCustomerEmail(_ context.Context, email string) ([]domain.Reservation, error) {
	f.listed = email
	if email == "" {
		return nil, fmt.Errorf("list: %w", reservation.ErrInvalidArgument)
	}
	return []domain.Reservation{f.res}, nil
}

func (f *fakeReservations) List(_ context.Context, _, _ int) ([]domain.Reservation, error) {
	return []domain.Reservation{f.res, f.res}, nil
}

func (f *fakeReservations) Availability(_ context.Context, sessionID int64) (domain.Availability, error) {
	if sessionID != f.avail.SessionID {
		return domain.Availability{}, fmt.Errorf("availability: %w", reservation.ErrSessionNotFound)
	}
	return f.avail, nil
}

type fakeCatalog struct {
	venue     domain.Venue
	session   domain.Session
	created   []catalog.SessionInput
	deleteErr error

	eventDeleteErr error
	venueDeleteErr error
	deleted        []string
}

func (f *fakeCatalog) CreateVenue(_ context.Context, in catalog.VenueInput) (domain.Venue, error) {
	return domain.Venue{ID: 1, Name: in.Name, Capacity: in.Capacity}, nil
}

func (f *fakeCatalog) DeleteVenue(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, fmt.Sprintf("venue/%d", id))
	return f.venueDeleteErr
}

func (f *fakeCatalog) GetVenue(_ context.Context, id int64) (domain.Venue, error) {
	if id != f.venue.ID {
		return domain.Venue{}, catalog.ErrVenueNotFound
	}
	return f.venue, nil
}

func (f *fakeCatalog) ListVenues(context.Context, int, int) ([]domain.Venue, error) {
	return []domain.Venue{f.venue}, nil
}

func (f *fakeCatalog) CreateEvent(_ context.Context, in catalog.EventInput) (domain.Event, error) {
	if in.EndDate.Before(in.StartDate) {
		return domain.Event{}, fmt.Errorf("create: %w: end before start", catalog.ErrInvalidArgument)
	}
	return domain.Event{ID: 1, Title: in.Title, StartDate: in.StartDate, EndDate: in.EndDate}, nil
}

func (f *fakeCatalog) UpdateEvent(_ context.Context, id int64, in catalog.EventInput) (domain.Event, error) {
	if id != 1 {
		return domain.Event{}, fmt.Errorf("update: %w", catalog.ErrEventNotFound)
	}
	return domain.Event{ID: id, Title: in.Title, StartDate: in.StartDate, EndDate: in.EndDate}, nil
}

func (f *fakeCatalog) DeleteEvent(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, fmt.Sprintf("event/%d", id))
	return f.eventDeleteErr
}

func (f *fakeCatalog) GetEvent(context.Context, int64) (domain.Event, error) {
	return domain.Event{}, catalog.ErrEventNotFound
}

func (f *fakeCatalog) ListEvents(context.Context, int, int) ([]domain.Event, error) {
	return []domain.Event{}, nil
}

func (f *fakeCatalog) CreateSession(_ context.Context, in catalog.SessionInput) (domain.Session, error) {
	f.created = append(f.created, in)
	return domain.Session{ID: 9, EventID: in.EventID, VenueID: in.VenueID, StartsAt: in.StartsAt, PriceCents: in.PriceCents}, nil
}

func (f *fakeCatalog) GetSession(_ context.Context, id int64) (domain.Session, error) {
	if id != f.session.ID {
		return domain.Session{}, catalog.ErrSessionNotFound
	}
	return f.session, nil
}

func (f *fakeCatalog) ListSessions(context.Context, int64, int, int) ([]domain.Session, error) {
	return []domain.Session{f.session}, nil
}

func (f *fakeCatalog) ListEventSessions(context.Context, int64, int, int) ([]domain.Session, error) {
	return nil, catalog.ErrEventNotFound
}

func (f *fakeCatalog) UpdateSession(_ context.Context, id int64, in catalog.SessionInput) (domain.Session, error) {
	return domain.Session{ID: id, EventID: in.EventID, VenueID: in.VenueID, StartsAt: in.StartsAt, PriceCents: in.PriceCents}, nil
}

func (f *fakeCatalog) DeleteSession(context.Context, int64) error {
	return f.deleteErr
}

type memIdem struct {
	mu   sync.Mutex
	vals map[string]any
}

func newMemIdem() *memIdem { return &memIdem{vals: make(map[string]any)} }

func (m *memIdem) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vals[key]; ok {
		return false, nil
	}
	m.vals[key] = "LOCK"
	return true, nil
}

func (m *memIdem) SaveResult(_ context.Context, key string, res redisrepo.StoredResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = res
	return nil
}

func (m *memIdem) GetResult(_ context.Context, key string) (redisrepo.StoredResponse, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.vals[key].(redisrepo.StoredResponse)
	return res, ok, nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vals[key] == "LOCK" {
		delete(m.vals, key)
	}
	return nil
}

type denyLimiter struct {
	allow int
	hits  int
}

func (l *denyLimiter) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	l.hits++
	return l.hits <= l.allow, int64(l.hits), 1500 * time.Millisecond, nil
}

type testEnv struct {
	router *gin.Engine
	res    *fakeReservations
	cat    *fakeCatalog
	idem   *memIdem
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T, limiter RateLimiter) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokens("test-secret", "culturetix", time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		res: &fakeReservations{
			res: domain.Reservation{
				CustomerName:  "Cliente",
				CustomerEmail: "cliente@ifrn.edu.br",
				Status:        domain.ReservationActive,
				TicketCode:    uuid.New(),
			},
			avail: domain.Availability{SessionID: 5, Capacity: 10, ReservedActive: 3, Available: 7},
		},
		cat: &fakeCatalog{
			venue:   domain.Venue{ID: 2, Name: "Teatro", Capacity: 10},
			session: domain.Session{ID: 5, EventID: 1, VenueID: 2},
		},
		idem:   newMemIdem(),
		tokens: tokens,
	}

	env.router = NewRouter(Deps{
		Reservations: env.res,
		Catalog:      env.cat,
		Tokens:       tokens,
		Idem:         env.idem,
		Limiter:      limiter,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return env
}

func (e *testEnv) token(t *testing.T, role auth.Role) string {
	t.Helper()
	raw, _, err := e.tokens.Issue("user-1", role)
	require.NoError(t, err)
	return raw
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func validBooking() BookRequest {
	return BookRequest{SessionID: 5, CustomerName: "Cliente", CustomerEmail: "cliente@ifrn.edu.br", Quantity: 2}
}

func TestBook(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.do(t, http.MethodPost, "/api/v1/reservations", env.token(t, auth.RoleUser), validBooking())
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var got domain.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, int64(5), got.SessionID)
		assert.Equal(t, 2, got.Quantity)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("requires a token", func(t *testing.T) {
		env := newTestEnv(t, nil)
		w := env.do(t, http.MethodPost, "/api/v1/reservations", "", validBooking())
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = env.do(t, http.MethodPost, "/api/v1/reservations", "garbage", validBooking())
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, env.res.booked)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		env := newTestEnv(t, nil)
		tok := env.token(t, auth.RoleUser)

		bad := validBooking()
		bad.Quantity = 0
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/reservations", tok, bad).Code)

		bad = validBooking()
		bad.CustomerEmail = "not-an-email"
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/reservations", tok, bad).Code)
		assert.Empty(t, env.res.booked)
	})

	t.Run("insufficient availability carries the remaining seats", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.res.bookErr = fmt.Errorf("book: %w", &reservation.InsufficientAvailabilityError{SessionID: 5, Requested: 8, Available: 7})

		w := env.do(t, http.MethodPost, "/api/v1/reservations", env.token(t, auth.RoleUser), validBooking())
		require.Equal(t, http.StatusConflict, w.Code)

		var body InsufficientAvailabilityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, int64(7), body.Available)
	})

	t.Run("contention asks the client to retry", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.res.bookErr = fmt.Errorf("book: %w", reservation.ErrTryAgain)

		w := env.do(t, http.MethodPost, "/api/v1/reservations", env.token(t, auth.RoleUser), validBooking())
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})

	t.Run("unknown session", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.res.bookErr = fmt.Errorf("book: %w", reservation.ErrSessionNotFound)

		w := env.do(t, http.MethodPost, "/api/v1/reservations", env.token(t, auth.RoleUser), validBooking())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.res.bookErr = fmt.Errorf("book: %w", reservation.ErrTicketCodeCollision)

		w := env.do(t, http.MethodPost, "/api/v1/reservations", env.token(t, auth.RoleUser), validBooking())
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "collision")
	})
}

func TestBook_Idempotency(t *testing.T) {
	env := newTestEnv(t, nil)
	tok := env.token(t, auth.RoleUser)

	first := env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking(), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "k-1", first.Header().Get("Idempotency-Key"))

	second := env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking(), "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Len(t, env.res.booked, 1, "replay must not book again")

	third := env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking(), "Idempotency-Key", "k-2")
	require.Equal(t, http.StatusCreated, third.Code)
	assert.Len(t, env.res.booked, 2)

	t.Run("in flight", func(t *testing.T) {
		key := redisrepo.KeyIdemBooking("user-1", "k-3")
		_, err := env.idem.AcquireLock(context.Background(), key, time.Minute)
		require.NoError(t, err)

		w := env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking(), "Idempotency-Key", "k-3")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})

	t.Run("failures release the key", func(t *testing.T) {
		env.res.bookErr = fmt.Errorf("book: %w", reservation.ErrTryAgain)
		w := env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking(), "Idempotency-Key", "k-4")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		env.res.bookErr = nil
		w = env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking(), "Idempotency-Key", "k-4")
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestBook_RateLimited(t *testing.T) {
	env := newTestEnv(t, &denyLimiter{allow: 1})
	tok := env.token(t, auth.RoleUser)

	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking()).Code)

	w := env.do(t, http.MethodPost, "/api/v1/reservations", tok, validBooking())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Len(t, env.res.booked, 1)
}

func TestReservationReads(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.token(t, auth.RoleUser)

	t.Run("get", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/reservations/3", user, nil)
		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/reservations/abc", user, nil).Code)

		env.res.getErr = fmt.Errorf("get: %w", reservation.ErrReservationNotFound)
		defer func() { env.res.getErr = nil }()
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/reservations/3", user, nil).Code)
	})

	t.Run("by email", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/reservations?email=cliente@ifrn.edu.br", user, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "cliente@ifrn.edu.br", env.res.listed)

		env.res.listed = ""
		w = env.do(t, http.MethodGet, "/api/v1/reservations?email=%20%20", user, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "blank email is no filter, and only admins list everything")
		assert.Empty(t, env.res.listed)

		w = env.do(t, http.MethodGet, "/api/v1/reservations?email=", env.token(t, auth.RoleAdmin), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got []domain.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got, 2, "blank email lists everything for admins")
		assert.Empty(t, env.res.listed)
	})

	t.Run("listing everything is for admins", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/reservations", user, nil).Code)

		w := env.do(t, http.MethodGet, "/api/v1/reservations", env.token(t, auth.RoleAdmin), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got []domain.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("ticket", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/tickets/"+env.res.res.TicketCode.String(), user, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/tickets/"+uuid.NewString(), user, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/tickets/not-a-code", user, nil).Code)
	})

	t.Run("availability is public and uncached", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/sessions/5/availability", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

		var a domain.Availability
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
		assert.Equal(t, int64(7), a.Available)

		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/sessions/6/availability", "", nil).Code)
	})
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.token(t, auth.RoleUser)

	w := env.do(t, http.MethodPost, "/api/v1/reservations/4/cancel", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.ReservationCanceled, got.Status)

	env.res.cancel = fmt.Errorf("cancel: %w", reservation.ErrAlreadyCanceled)
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/api/v1/reservations/4/cancel", user, nil).Code)

	env.res.cancel = fmt.Errorf("cancel: %w", reservation.ErrReservationNotFound)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/v1/reservations/4/cancel", user, nil).Code)
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	t.Run("public reads with etag", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/venues/2", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		tag := w.Header().Get("ETag")
		require.NotEmpty(t, tag)

		w = env.do(t, http.MethodGet, "/api/v1/venues/2", "", nil, "If-None-Match", tag)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.Bytes())

		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/venues/3", "", nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/events/1", "", nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/events/1/sessions", "", nil).Code)
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/sessions", "", nil).Code)
		assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/sessions/5", "", nil).Code)
	})

	t.Run("writes need an organizer", func(t *testing.T) {
		body := CreateVenueRequest{Name: "Sala", Capacity: 30}

		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/v1/venues", "", body).Code)
		assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/v1/venues", env.token(t, auth.RoleUser), body).Code)
		assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/venues", env.token(t, auth.RoleOrganizer), body).Code)
		assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/venues", env.token(t, auth.RoleAdmin), body).Code)
	})

	org := env.token(t, auth.RoleOrganizer)

	t.Run("events", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/events", org, CreateEventRequest{Title: "Mostra", StartDate: "2026-03-01", EndDate: "2026-03-05"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = env.do(t, http.MethodPost, "/api/v1/events", org, CreateEventRequest{Title: "Mostra", StartDate: "01/03/2026", EndDate: "2026-03-05"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, http.MethodPost, "/api/v1/events", org, CreateEventRequest{Title: "Mostra", StartDate: "2026-03-05", EndDate: "2026-03-01"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("event update and delete", func(t *testing.T) {
		body := CreateEventRequest{Title: "Mostra 2026", StartDate: "2026-03-01", EndDate: "2026-03-08"}

		assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPut, "/api/v1/events/1", env.token(t, auth.RoleUser), body).Code)

		w := env.do(t, http.MethodPut, "/api/v1/events/1", org, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var got domain.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Mostra 2026", got.Title)

		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/api/v1/events/2", org, body).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/v1/events/1", org,
			CreateEventRequest{Title: "Mostra", StartDate: "2026-03-01", EndDate: "março"}).Code)

		assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, "/api/v1/events/1", env.token(t, auth.RoleUser), nil).Code)
		assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/events/1", org, nil).Code)

		env.cat.eventDeleteErr = fmt.Errorf("delete: %w", catalog.ErrEventHasSessions)
		defer func() { env.cat.eventDeleteErr = nil }()
		w = env.do(t, http.MethodDelete, "/api/v1/events/1", org, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "event has sessions")
	})

	t.Run("venue delete", func(t *testing.T) {
		env.cat.deleted = nil

		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodDelete, "/api/v1/venues/2", "", nil).Code)
		assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/venues/2", org, nil).Code)
		assert.Equal(t, []string{"venue/2"}, env.cat.deleted)

		env.cat.venueDeleteErr = fmt.Errorf("delete: %w", catalog.ErrVenueHasSessions)
		defer func() { env.cat.venueDeleteErr = nil }()
		w := env.do(t, http.MethodDelete, "/api/v1/venues/2", org, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "venue has sessions")

		env.cat.venueDeleteErr = fmt.Errorf("delete: %w", catalog.ErrVenueNotFound)
		assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/v1/venues/2", org, nil).Code)
	})

	t.Run("sessions", func(t *testing.T) {
		price := int64(0)
		req := SessionRequest{EventID: 1, VenueID: 2, StartsAt: "2026-03-01T19:00:00-03:00", PriceCents: &price}

		w := env.do(t, http.MethodPost, "/api/v1/sessions", org, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.Len(t, env.cat.created, 1)
		assert.Equal(t, int64(0), env.cat.created[0].PriceCents)

		noPrice := req
		noPrice.PriceCents = nil
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/sessions", org, noPrice).Code)

		w = env.do(t, http.MethodPut, "/api/v1/sessions/5", org, req)
		assert.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/v1/sessions/5", org, nil).Code)

		env.cat.deleteErr = fmt.Errorf("delete: %w", catalog.ErrSessionHasReservations)
		assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, "/api/v1/sessions/5", org, nil).Code)
	})
}

func TestHealth(t *testing.T) {
	down := errors.New("db down")
	healthy := true

	r := NewRouter(Deps{
		Health: func(context.Context) error {
			if healthy {
				return nil
			}
			return down
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	healthy = false
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEtagMatches(t *testing.T) {
	tag := etagFor([]byte(`{"id":1}`), true)

	assert.True(t, etagMatches(tag, tag))
	assert.True(t, etagMatches(`"other", `+tag, tag))
	assert.True(t, etagMatches("*", tag))
	assert.True(t, etagMatches(tag[2:], tag), "weak comparison ignores the W/ prefix")
	assert.False(t, etagMatches(`"other"`, tag))
	assert.False(t, etagMatches("", tag))
}
