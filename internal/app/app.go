package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/inn-go/internal/auth"
	"github.com/kirinyoku/inn-go/internal/config"
	"github.com/kirinyoku/inn-go/internal/notify"
	"github.com/kirinyoku/inn-go/internal/payment"
	"github.com/kirinyoku/inn-go/internal/postgres"
	"github.com/kirinyoku/inn-go/internal/redis"
	"github.com/kirinyoku/inn-go/internal/repository"
	"github.com/kirinyoku/inn-go/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/inn-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/inn-go/internal/repository/redis"
	"github.com/kirinyoku/inn-go/internal/scheduler"
	"github.com/kirinyoku/inn-go/internal/service"
	"github.com/kirinyoku/inn-go/internal/service/reservation"
	"github.com/kirinyoku/inn-go/internal/service/seating"
	"github.com/kirinyoku/inn-go/internal/tracing"
	httpgin "github.com/kirinyoku/inn-go/internal/transport/http/gin"
	"github.com/kirinyoku/inn-go/migrations"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	scheduler  *scheduler.Scheduler
	cache      *redisrepo.Cache
	pubsub     *redisrepo.InventoryPubSub
	dispatcher *notify.Dispatcher

	// closers run in reverse order on shutdown
	closers []func(ctx context.Context) error
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if shutdownTracing != nil {
		a.closers = append(a.closers, shutdownTracing)
	}

	// Initialize storage
	var store repository.Store
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store = memory.NewStore()
	default:
		pgxPool, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN(),
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pgxPool.Close()
			return nil
		})
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, pgxPool, migrations.FS); err != nil {
				return nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
			logger.Info("database schema applied")
		}
		store = postgresrepo.NewStore(pgxPool)
	}

	// Redis-backed collaborators are optional
	var (
		limiter *redisrepo.SlidingWindowLimiter
		idem    *redisrepo.IdempotencyStore
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

		a.cache = redisrepo.New(rdb)
		a.pubsub = redisrepo.NewInventoryPubSub(rdb)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "reservations", cfg.Limits.RateLimit, cfg.Limits.RateWindow)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Limits.IdempotencyTTL)
	} else {
		logger.Warn("REDIS_ADDR not set: cache, rate limiting and idempotency keys are off")
	}

	sinks, err := a.newNotifier()
	if err != nil {
		return nil, err
	}
	a.dispatcher = notify.NewDispatcher(sinks, logger, notifyQueueSize)

	// Initialize services
	a.services = service.NewServices(service.Deps{
		Store:    store,
		Cache:    a.cache,
		PubSub:   a.pubsub,
		Limiter:  limiter,
		Verifier: payment.NewHMACVerifier(cfg.Payment.Secret),
		Notifier: a.dispatcher,
		Logger:   logger,
	}, service.Config{
		Reservation: reservation.Config{},
		Seating:     seating.Config{RegistrationTTL: cfg.Scheduler.RegistrationTTL},
	})

	if err := a.services.Seating.Seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed seat pools: %w", err)
	}

	a.scheduler = scheduler.New(
		a.services.Reservation,
		a.services.Seating,
		cfg.Scheduler.ReconcileInterval,
		cfg.Scheduler.ExpireInterval,
		logger,
	)

	// Initialize Gin router
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := httpgin.NewRouter(a.services, idem, tokens, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// newNotifier always logs events and, when configured, also publishes them to
// the broker.
func (a *App) newNotifier() (notify.Notifier, error) {
	sinks := notify.Multi{notify.NewLog(a.logger)}

	switch a.cfg.Notifier.Kind {
	case "rabbitmq":
		rmq := notify.NewRabbitMQ(a.cfg.Notifier.RabbitMQURL)
		a.closers = append(a.closers, closeWith(rmq))
		sinks = append(sinks, rmq)
	case "kafka":
		k := notify.NewKafka(a.cfg.Notifier.KafkaBrokers, a.cfg.Notifier.KafkaTopic)
		a.closers = append(a.closers, closeWith(k))
		sinks = append(sinks, k)
	case "log", "":
	default:
		return nil, fmt.Errorf("unknown notifier %q", a.cfg.Notifier.Kind)
	}

	return sinks, nil
}

func closeWith(c io.Closer) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}

const notifyQueueSize = 1024

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Notification delivery; flushed before the brokers are closed
	flushed := make(chan struct{})
	g.Go(func() error {
		defer close(flushed)
		return a.dispatcher.Run(gCtx)
	})

	// Periodic reconciliation and registration expiry
	g.Go(func() error {
		return a.scheduler.Start(gCtx)
	})

	// Drop cached reads when another instance changes inventory
	if a.pubsub != nil && a.cache != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, ch redisrepo.InventoryChange) {
				if err := a.cache.InvalidateChange(ctx, ch); err != nil {
					a.logger.Warn("cache invalidation failed",
						slog.String("kind", ch.Kind),
						slog.String("key", ch.Key),
						slog.String("error", err.Error()),
					)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("inventory subscriber: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := a.httpServer.Shutdown(ctx)
		<-flushed
		for i := len(a.closers) - 1; i >= 0; i-- {
			err = errors.Join(err, a.closers[i](ctx))
		}
		return err
	})

	return g.Wait()
}
