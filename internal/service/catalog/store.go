package catalog

import (
	"context"

	"github.com/kirinyoku/culturetix/internal/domain"
)

// Reader is satisfied by postgresrepo.QueryRepo.
type Reader interface {
	GetVenue(ctx context.Context, id int64) (*domain.Venue, error)
	ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error)
	GetEvent(ctx context.Context, id int64) (*domain.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error)
	GetSession(ctx context.Context, id int64) (*domain.Session, error)
	ListSessions(ctx context.Context, eventID int64, limit, offset int) ([]domain.Session, error)
}

// Writer is satisfied by postgresrepo.CatalogRepo.
type Writer interface {
	CreateVenue(ctx context.Context, v domain.Venue) (int64, error)
	CreateEvent(ctx context.Context, e domain.Event) (int64, error)
	UpdateEvent(ctx context.Context, e domain.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	DeleteVenue(ctx context.Context, id int64) error
	CreateSession(ctx context.Context, s domain.Session) (int64, error)
	UpdateSession(ctx context.Context, s domain.Session) error
	DeleteSession(ctx context.Context, id int64) error
}

// Publisher announces catalog writes to other instances.
type Publisher interface {
	PublishCatalogChanged(ctx context.Context, change domain.CatalogChange) error
}
