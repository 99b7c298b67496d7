package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/culturetix/internal/domain"
	"github.com/kirinyoku/culturetix/internal/repository"
	redisrepo "github.com/kirinyoku/culturetix/internal/repository/redis"
)

type Config struct {
	VenueTTL        time.Duration
	EventTTL        time.Duration
	SessionTTL      time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

type Service struct {
	reader    Reader
	writer    Writer
	cache     *redisrepo.Cache
	publisher Publisher
	logger    *slog.Logger
	cfg       Config
}

// New builds the catalog service. cache and publisher may be nil, in which
// case reads go straight to storage and writes are not announced.
func New(
	reader Reader,
	writer Writer,
	cache *redisrepo.Cache,
	publisher Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.VenueTTL <= 0 {
		cfg.VenueTTL = 5 * time.Minute
	}

	if cfg.EventTTL <= 0 {
		cfg.EventTTL = 5 * time.Minute
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 60 * time.Second
	}

	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}

	if cfg.MaxPageSize <= 0 || cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = 500
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		reader:    reader,
		writer:    writer,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

type VenueInput struct {
	Name     string
	Address  string
	Capacity int
}

// CreateVenue stores a venue.
//
// Returns:
//   - error: catalog.ErrInvalidArgument if the name is blank or capacity is not positive.
func (s *Service) CreateVenue(ctx context.Context, in VenueInput) (domain.Venue, error) {
	const op = "service.catalog.CreateVenue"

	v := domain.Venue{
		Name:     strings.TrimSpace(in.Name),
		Address:  strings.TrimSpace(in.Address),
		Capacity: in.Capacity,
	}

	if v.Name == "" {
		return domain.Venue{}, fmt.Errorf("%s: %w: name is required", op, ErrInvalidArgument)
	}

	if v.Capacity <= 0 {
		return domain.Venue{}, fmt.Errorf("%s: %w: capacity must be positive", op, ErrInvalidArgument)
	}

	id, err := s.writer.CreateVenue(ctx, v)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("%s:%w", op, err)
	}
	v.ID = id

	s.logger.InfoContext(ctx, "venue created", slog.Int64("venue_id", id), slog.Int("capacity", v.Capacity))

	return v, nil
}

// GetVenue returns a venue, reading through the cache.
//
// Returns:
//   - error: catalog.ErrVenueNotFound if the venue does not exist.
func (s *Service) GetVenue(ctx context.Context, id int64) (domain.Venue, error) {
	const op = "service.catalog.GetVenue"

	v, err := redisrepo.ReadThrough(ctx, s.cache, redisrepo.KeyVenue(id), s.cfg.VenueTTL,
		func(ctx context.Context) (domain.Venue, error) {
			v, err := s.reader.GetVenue(ctx, id)
			if err != nil {
				return domain.Venue{}, notFound(err, ErrVenueNotFound)
			}
			return *v, nil
		},
	)
	if err != nil {
		return domain.Venue{}, fmt.Errorf("%s:%w", op, err)
	}

	return v, nil
}

func (s *Service) ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error) {
	const op = "service.catalog.ListVenues"

	limit, offset = s.page(limit, offset)

	out, err := s.reader.ListVenues(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return nonNil(out), nil
}

// DeleteVenue removes a venue that hosts no sessions. Venues are never
// updated, so a wrong one is deleted and created again.
//
// Returns:
//   - error: catalog.ErrVenueNotFound if the venue does not exist.
//   - error: catalog.ErrVenueHasSessions if any session references it.
func (s *Service) DeleteVenue(ctx context.Context, id int64) error {
	const op = "service.catalog.DeleteVenue"

	if err := s.writer.DeleteVenue(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, deleteErr(err, ErrVenueNotFound, ErrVenueHasSessions))
	}

	s.changed(ctx, domain.CatalogChange{Entity: domain.CatalogVenue, ID: id})

	return nil
}

type EventInput struct {
	Title       string
	Description string
	Category    string
	StartDate   time.Time
	EndDate     time.Time
}

// CreateEvent stores an event.
//
// Returns:
//   - error: catalog.ErrInvalidArgument if the title is blank or the dates are missing or reversed.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (domain.Event, error) {
	const op = "service.catalog.CreateEvent"

	e, err := in.event()
	if err != nil {
		return domain.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.writer.CreateEvent(ctx, e)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%s:%w", op, err)
	}
	e.ID = id

	s.logger.InfoContext(ctx, "event created", slog.Int64("event_id", id))

	return e, nil
}

// UpdateEvent rewrites an event's title, description, category and dates.
// Its sessions keep their own start times.
//
// Returns:
//   - error: catalog.ErrInvalidArgument if the title is blank or the dates are missing or reversed.
//   - error: catalog.ErrEventNotFound if the event does not exist.
func (s *Service) UpdateEvent(ctx context.Context, id int64, in EventInput) (domain.Event, error) {
	const op = "service.catalog.UpdateEvent"

	e, err := in.event()
	if err != nil {
		return domain.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	e.ID = id

	if err := s.writer.UpdateEvent(ctx, e); err != nil {
		return domain.Event{}, fmt.Errorf("%s:%w", op, notFound(err, ErrEventNotFound))
	}

	s.changed(ctx, domain.CatalogChange{Entity: domain.CatalogEvent, ID: id})

	return e, nil
}

// DeleteEvent removes an event with no sessions.
//
// Returns:
//   - error: catalog.ErrEventNotFound if the event does not exist.
//   - error: catalog.ErrEventHasSessions if any session references it.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	const op = "service.catalog.DeleteEvent"

	if err := s.writer.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, deleteErr(err, ErrEventNotFound, ErrEventHasSessions))
	}

	s.changed(ctx, domain.CatalogChange{Entity: domain.CatalogEvent, ID: id})

	return nil
}

// GetEvent returns an event, reading through the cache.
//
// Returns:
//   - error: catalog.ErrEventNotFound if the event does not exist.
func (s *Service) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	const op = "service.catalog.GetEvent"

	e, err := redisrepo.ReadThrough(ctx, s.cache, redisrepo.KeyEvent(id), s.cfg.EventTTL,
		func(ctx context.Context) (domain.Event, error) {
			e, err := s.reader.GetEvent(ctx, id)
			if err != nil {
				return domain.Event{}, notFound(err, ErrEventNotFound)
			}
			return *e, nil
		},
	)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%s:%w", op, err)
	}

	return e, nil
}

func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "service.catalog.ListEvents"

	limit, offset = s.page(limit, offset)

	out, err := s.reader.ListEvents(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return nonNil(out), nil
}

type SessionInput struct {
	EventID    int64
	VenueID    int64
	StartsAt   time.Time
	PriceCents int64
}

// CreateSession schedules a session of an event at a venue.
//
// Returns:
//   - error: catalog.ErrInvalidArgument if the start time is missing or the price is negative.
//   - error: catalog.ErrEventNotFound or catalog.ErrVenueNotFound if a reference is dangling.
func (s *Service) CreateSession(ctx context.Context, in SessionInput) (domain.Session, error) {
	const op = "service.catalog.CreateSession"

	if err := s.checkSession(ctx, in); err != nil {
		return domain.Session{}, fmt.Errorf("%s:%w", op, err)
	}

	sess := domain.Session{
		EventID:    in.EventID,
		VenueID:    in.VenueID,
		StartsAt:   in.StartsAt.UTC(),
		PriceCents: in.PriceCents,
	}

	id, err := s.writer.CreateSession(ctx, sess)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s:%w", op, referenced(err))
	}
	sess.ID = id

	s.logger.InfoContext(ctx, "session created",
		slog.Int64("session_id", id),
		slog.Int64("event_id", sess.EventID),
		slog.Int64("venue_id", sess.VenueID),
	)

	return sess, nil
}

// GetSession returns a session, reading through the cache. Booking never
// uses this path; it reads capacity under a lock.
//
// Returns:
//   - error: catalog.ErrSessionNotFound if the session does not exist.
func (s *Service) GetSession(ctx context.Context, id int64) (domain.Session, error) {
	const op = "service.catalog.GetSession"

	sess, err := redisrepo.ReadThrough(ctx, s.cache, redisrepo.KeySession(id), s.cfg.SessionTTL,
		func(ctx context.Context) (domain.Session, error) {
			sess, err := s.reader.GetSession(ctx, id)
			if err != nil {
				return domain.Session{}, notFound(err, ErrSessionNotFound)
			}
			return *sess, nil
		},
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%s:%w", op, err)
	}

	return sess, nil
}

// ListSessions lists sessions ordered by start time. A zero eventID lists all.
func (s *Service) ListSessions(ctx context.Context, eventID int64, limit, offset int) ([]domain.Session, error) {
	const op = "service.catalog.ListSessions"

	limit, offset = s.page(limit, offset)

	out, err := s.reader.ListSessions(ctx, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return nonNil(out), nil
}

// ListEventSessions is ListSessions for one event that must exist.
//
// Returns:
//   - error: catalog.ErrEventNotFound if the event does not exist.
func (s *Service) ListEventSessions(ctx context.Context, eventID int64, limit, offset int) ([]domain.Session, error) {
	const op = "service.catalog.ListEventSessions"

	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s.ListSessions(ctx, eventID, limit, offset)
}

// UpdateSession rewrites a session's event, venue, start time and price.
// Moving a session to a smaller venue lowers its capacity for later
// bookings but never touches existing reservations.
//
// Returns:
//   - error: catalog.ErrSessionNotFound if the session does not exist.
func (s *Service) UpdateSession(ctx context.Context, id int64, in SessionInput) (domain.Session, error) {
	const op = "service.catalog.UpdateSession"

	if err := s.checkSession(ctx, in); err != nil {
		return domain.Session{}, fmt.Errorf("%s:%w", op, err)
	}

	sess := domain.Session{
		ID:         id,
		EventID:    in.EventID,
		VenueID:    in.VenueID,
		StartsAt:   in.StartsAt.UTC(),
		PriceCents: in.PriceCents,
	}

	if err := s.writer.UpdateSession(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Session{}, fmt.Errorf("%s:%w", op, ErrSessionNotFound)
		}
		return domain.Session{}, fmt.Errorf("%s:%w", op, referenced(err))
	}

	s.changed(ctx, domain.CatalogChange{Entity: domain.CatalogSession, ID: id})

	return sess, nil
}

// DeleteSession removes a session nobody has booked.
//
// Returns:
//   - error: catalog.ErrSessionNotFound if the session does not exist.
//   - error: catalog.ErrSessionHasReservations if any reservation, active or not, references it.
func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	const op = "service.catalog.DeleteSession"

	if err := s.writer.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, deleteErr(err, ErrSessionNotFound, ErrSessionHasReservations))
	}

	s.changed(ctx, domain.CatalogChange{Entity: domain.CatalogSession, ID: id})

	return nil
}

// Invalidate drops the cached copy of a changed entity. It is the handler
// for catalog changes announced by other instances.
func (s *Service) Invalidate(ctx context.Context, change domain.CatalogChange) {
	var err error
	switch change.Entity {
	case domain.CatalogVenue:
		err = s.cache.InvalidateVenue(ctx, change.ID)
	case domain.CatalogEvent:
		err = s.cache.InvalidateEvent(ctx, change.ID)
	case domain.CatalogSession:
		err = s.cache.InvalidateSession(ctx, change.ID)
	default:
		return
	}

	if err != nil {
		s.logger.WarnContext(ctx, "invalidate catalog cache",
			slog.String("entity", string(change.Entity)),
			slog.Int64("id", change.ID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) changed(ctx context.Context, change domain.CatalogChange) {
	s.Invalidate(ctx, change)

	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishCatalogChanged(ctx, change); err != nil {
		s.logger.WarnContext(ctx, "publish catalog change",
			slog.String("entity", string(change.Entity)),
			slog.Int64("id", change.ID),
			slog.Any("error", err),
		)
	}
}

func (in EventInput) event() (domain.Event, error) {
	e := domain.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}

	if e.Title == "" {
		return domain.Event{}, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}

	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return domain.Event{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidArgument)
	}

	if e.EndDate.Before(e.StartDate) {
		return domain.Event{}, fmt.Errorf("%w: end date is before start date", ErrInvalidArgument)
	}

	return e, nil
}

func (s *Service) checkSession(ctx context.Context, in SessionInput) error {
	if in.StartsAt.IsZero() {
		return fmt.Errorf("%w: starts_at is required", ErrInvalidArgument)
	}

	if in.PriceCents < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidArgument)
	}

	if _, err := s.reader.GetEvent(ctx, in.EventID); err != nil {
		return notFound(err, ErrEventNotFound)
	}

	if _, err := s.reader.GetVenue(ctx, in.VenueID); err != nil {
		return notFound(err, ErrVenueNotFound)
	}

	return nil
}

func (s *Service) page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}

	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func notFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}

// deleteErr maps a missing row to missing and a foreign key hit to inUse.
func deleteErr(err, missing, inUse error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return missing
	case errors.Is(err, repository.ErrReferenced):
		return inUse
	}
	return err
}

// referenced maps a foreign key failure on session writes. The references
// were checked just before, so it only fires when one vanished in between.
func referenced(err error) error {
	if errors.Is(err, repository.ErrReferenced) {
		return fmt.Errorf("%w: event or venue", ErrNotFound)
	}
	return err
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
