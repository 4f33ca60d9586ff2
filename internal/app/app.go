package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/devops-golf-s17/wishlists/internal/config"
	"github.com/devops-golf-s17/wishlists/internal/event"
	handler "github.com/devops-golf-s17/wishlists/internal/handler/http"
	"github.com/devops-golf-s17/wishlists/internal/repository"
	"github.com/devops-golf-s17/wishlists/internal/repository/postgres"
	redisrepo "github.com/devops-golf-s17/wishlists/internal/repository/redis"
	"github.com/devops-golf-s17/wishlists/internal/service"
	"github.com/devops-golf-s17/wishlists/pkg/database"
	"github.com/devops-golf-s17/wishlists/pkg/health"
	pkgkafka "github.com/devops-golf-s17/wishlists/pkg/kafka"
	"github.com/devops-golf-s17/wishlists/pkg/middleware"
	"github.com/devops-golf-s17/wishlists/pkg/tracing"
)

// Version is reported on traces and by the index route.
const Version = "0.1.0"

// App wires together all dependencies and runs the wishlist service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	closeStorage   func()
	tracerShutdown func(context.Context) error
}

// storage is the backend selected by STORAGE_BACKEND.
type storage struct {
	repo      repository.WishlistRepository
	collector *database.PoolStatsCollector
	close     func()
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, store.collector); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// All repository calls go through the storage breaker.
	breaker := database.NewBreaker(cfg.Breaker(), repository.IsStorageFailure, logger)
	repo := repository.NewGuarded(store.repo, breaker)

	// Events.
	var producer *pkgkafka.Producer
	eventProducer := event.NewDiscardProducer(logger)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer = event.NewProducer(producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	wishlistService := service.NewWishlistService(repo, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical(cfg.StorageBackend, store.repo.Ping)
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(wishlistService, healthHandler, logger, cors, Version)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      handler.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		producer:       producer,
		httpServer:     httpServer,
		closeStorage:   store.close,
		tracerShutdown: tracerShutdown,
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", pgCfg.Host),
			slog.Int("port", pgCfg.Port),
			slog.String("database", pgCfg.DBName),
		)

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
			database.SetSlowQueryLogging(threshold, logger)
		}

		return &storage{
			repo:      postgres.NewWishlistRepository(pool),
			collector: database.NewPgxPoolCollector(pool, handler.ServiceName),
			close:     pool.Close,
		}, nil

	default:
		redisCfg := cfg.Redis()
		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", redisCfg.Addr),
			slog.Int("db", redisCfg.DB),
		)

		if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
			database.SetSlowQueryLogging(threshold, logger)
		}

		return &storage{
			repo:      redisrepo.NewWishlistRepository(rdb),
			collector: database.NewRedisPoolCollector(rdb, handler.ServiceName),
			close: func() {
				if err := rdb.Close(); err != nil {
					logger.Error("redis close error", slog.String("error", err.Error()))
				}
			},
		}, nil
	}
}

// Handler returns the HTTP handler, for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: the HTTP server first so
// in-flight requests drain, then the tracer, Kafka and storage.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.closeStorage != nil {
		a.closeStorage()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
