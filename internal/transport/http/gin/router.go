package httpgin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/culturetix/internal/auth"
	"github.com/kirinyoku/culturetix/internal/domain"
	redisrepo "github.com/kirinyoku/culturetix/internal/repository/redis"
	"github.com/kirinyoku/culturetix/internal/service/catalog"
	"github.com/kirinyoku/culturetix/internal/service/reservation"
)

// ReservationService is satisfied by *reservation.Service.
type ReservationService interface {
	Book(ctx context.Context, in reservation.BookInput) (domain.Reservation, error)
	Cancel(ctx context.Context, id int64) (domain.Reservation, error)
	Get(ctx context.Context, id int64) (domain.Reservation, error)
	GetByTicketCode(ctx context.Context, code uuid.UUID) (domain.Reservation, error)
	ListByCustomerEmail(ctx context.Context, email string) ([]domain.Reservation, error)
	List(ctx context.Context, limit, offset int) ([]domain.Reservation, error)
	Availability(ctx context.Context, sessionID int64) (domain.Availability, error)
}

// CatalogService is satisfied by *catalog.Service.
type CatalogService interface {
	CreateVenue(ctx context.Context, in catalog.VenueInput) (domain.Venue, error)
	DeleteVenue(ctx context.Context, id int64) error
	GetVenue(ctx context.Context, id int64) (domain.Venue, error)
	ListVenues(ctx context.Context, limit, offset int) ([]domain.Venue, error)
	CreateEvent(ctx context.Context, in catalog.EventInput) (domain.Event, error)
	UpdateEvent(ctx context.Context, id int64, in catalog.EventInput) (domain.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error)
	CreateSession(ctx context.Context, in catalog.SessionInput) (domain.Session, error)
	GetSession(ctx context.Context, id int64) (domain.Session, error)
	ListSessions(ctx context.Context, eventID int64, limit, offset int) ([]domain.Session, error)
	ListEventSessions(ctx context.Context, eventID int64, limit, offset int) ([]domain.Session, error)
	UpdateSession(ctx context.Context, id int64, in catalog.SessionInput) (domain.Session, error)
	DeleteSession(ctx context.Context, id int64) error
}

// Idempotency is satisfied by *redisrepo.IdempotencyStore.
type Idempotency interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, res redisrepo.StoredResponse) error
	GetResult(ctx context.Context, key string) (redisrepo.StoredResponse, bool, error)
	Release(ctx context.Context, key string) error
}

// Deps are the collaborators of the HTTP adapter. Idem and Limiter are
// optional.
type Deps struct {
	Reservations ReservationService
	Catalog      CatalogService
	Tokens       TokenVerifier
	Idem         Idempotency
	Limiter      RateLimiter
	Health       func(ctx context.Context) error
	Logger       *slog.Logger
}

func NewRouter(d Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(d.Logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", handleHealth(d))

	api := r.Group("/api/v1")

	// Public catalog reads
	api.GET("/venues", handleListVenues(d))
	api.GET("/venues/:id", handleGetVenue(d))
	api.GET("/events", handleListEvents(d))
	api.GET("/events/:id", handleGetEvent(d))
	api.GET("/events/:id/sessions", handleListEventSessions(d))
	api.GET("/sessions", handleListSessions(d))
	api.GET("/sessions/:id", handleGetSession(d))
	api.GET("/sessions/:id/availability", handleAvailability(d))

	authed := api.Group("", RequireAuth(d.Tokens))

	organizer := authed.Group("", RequireRoles(auth.RoleOrganizer, auth.RoleAdmin))
	{
		organizer.POST("/venues", handleCreateVenue(d))
		organizer.DELETE("/venues/:id", handleDeleteVenue(d))
		organizer.POST("/events", handleCreateEvent(d))
		organizer.PUT("/events/:id", handleUpdateEvent(d))
		organizer.DELETE("/events/:id", handleDeleteEvent(d))
		organizer.POST("/sessions", handleCreateSession(d))
		organizer.PUT("/sessions/:id", handleUpdateSession(d))
		organizer.DELETE("/sessions/:id", handleDeleteSession(d))
	}

	customer := authed.Group("", RequireRoles(auth.RoleUser, auth.RoleOrganizer, auth.RoleAdmin))
	{
		customer.POST("/reservations", RateLimit(d.Limiter, d.Logger), handleBook(d))
		customer.GET("/reservations", handleListReservations(d))
		customer.GET("/reservations/:id", handleGetReservation(d))
		customer.POST("/reservations/:id/cancel", handleCancel(d))
		customer.GET("/tickets/:code", handleGetTicket(d))
	}

	return r
}

// @Summary  Health check
// @Success  200 {object} map[string]string
// @Failure  503 {object} ErrorResponse
// @Router   /healthz [get]
func handleHealth(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := d.Health(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func page(c *gin.Context) (limit, offset int) {
	return parseIntDefault(c.Query("limit"), 0), parseIntDefault(c.Query("offset"), 0)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var insufficient *reservation.InsufficientAvailabilityError

	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, InsufficientAvailabilityResponse{
			Error:     "insufficient availability",
			Available: insufficient.Available,
		})
	case errors.Is(err, reservation.ErrSessionNotFound),
		errors.Is(err, catalog.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case errors.Is(err, reservation.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "reservation not found"})
	case errors.Is(err, reservation.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
	case errors.Is(err, catalog.ErrVenueNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "venue not found"})
	case errors.Is(err, catalog.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
	case errors.Is(err, reservation.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, reservation.ErrInvalidArgument), errors.Is(err, catalog.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, reservation.ErrAlreadyCanceled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "reservation already canceled"})
	case errors.Is(err, reservation.ErrInvalidState):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid reservation state"})
	case errors.Is(err, catalog.ErrSessionHasReservations):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "session has reservations"})
	case errors.Is(err, catalog.ErrEventHasSessions):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "event has sessions"})
	case errors.Is(err, catalog.ErrVenueHasSessions):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "venue has sessions"})
	case errors.Is(err, catalog.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict"})
	case errors.Is(err, reservation.ErrTryAgain):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "booking contention, try again"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "request canceled"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
