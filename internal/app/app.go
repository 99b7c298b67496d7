package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/culturetix/internal/auth"
	"github.com/kirinyoku/culturetix/internal/config"
	"github.com/kirinyoku/culturetix/internal/notify"
	"github.com/kirinyoku/culturetix/internal/postgres"
	redisx "github.com/kirinyoku/culturetix/internal/redis"
	postgresrepo "github.com/kirinyoku/culturetix/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/culturetix/internal/repository/redis"
	"github.com/kirinyoku/culturetix/internal/service"
	"github.com/kirinyoku/culturetix/internal/service/catalog"
	"github.com/kirinyoku/culturetix/internal/service/reservation"
	httpgin "github.com/kirinyoku/culturetix/internal/transport/http/gin"
	"github.com/kirinyoku/culturetix/migrations"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	rdb        *goredis.Client
	amqp       *notify.AMQPPublisher
	catalogSub *redisrepo.CatalogPubSub
	services   *service.Services
	httpServer *http.Server
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	if !cfg.App.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
		AppName:  "culturetix",
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to initialize postgres: %w", op, err)
	}

	if err := migrations.Apply(ctx, pgxPool); err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("%s: failed to apply migrations: %w", op, err)
	}

	rdb, err := redisx.New(ctx, redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("%s: failed to initialize redis: %w", op, err)
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		pgxPool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.NewCache(rdb)
	catalogPubSub := redisrepo.NewCatalogPubSub(rdb)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Idempotency.TTL)

	var limiter httpgin.RateLimiter
	if cfg.RateLimit.PerMinute > 0 {
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "booking", cfg.RateLimit.PerMinute, time.Minute)
	}

	pubs := service.Publishers{
		Catalog:      catalogPubSub,
		Reservations: []reservation.Publisher{redisrepo.NewReservationPubSub(rdb)},
	}

	var amqpPub *notify.AMQPPublisher
	if cfg.RabbitMQ.URL != "" {
		amqpPub = notify.NewAMQPPublisher(cfg.RabbitMQ.URL, logger)
		pubs.Reservations = append(pubs.Reservations, amqpPub)
	}

	// Initialize services
	services := service.NewServices(store, cache, pubs, logger, service.Config{
		Reservation:     reservation.Config{},
		Catalog:         catalog.Config{},
		BookingRetries:  cfg.Booking.MaxRetries,
	})

	router := httpgin.NewRouter(httpgin.Deps{
		Reservations: services.Reservation,
		Catalog:      services.Catalog,
		Tokens:       tokens,
		Idem:         idempotencyStore,
		Limiter:      limiter,
		Health: func(ctx context.Context) error {
			return errors.Join(store.Ping(ctx), rdb.Ping(ctx).Err())
		},
		Logger: logger,
	})

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pgxPool,
		rdb:        rdb,
		amqp:       amqpPub,
		catalogSub: catalogPubSub,
		services:   services,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached catalog entries other instances changed. A lost subscription
	// only delays invalidation until the entry's TTL runs out, so it is logged
	// rather than taking the server down.
	g.Go(func() error {
		err := a.catalogSub.Subscribe(gCtx, a.services.Catalog.Invalidate)
		if err != nil && gCtx.Err() == nil {
			a.logger.Error("catalog subscription ended", slog.Any("error", err))
		}
		return nil
	})

	// Broker notifications are drained here, off the request path.
	if a.amqp != nil {
		g.Go(func() error {
			return a.amqp.Run(gCtx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn("closing redis", slog.Any("error", err))
	}
	a.pool.Close()
}
