package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/motoforge/storefront/internal/config"
	"github.com/motoforge/storefront/internal/event"
	handler "github.com/motoforge/storefront/internal/handler/http"
	"github.com/motoforge/storefront/internal/repository"
	filerepo "github.com/motoforge/storefront/internal/repository/file"
	"github.com/motoforge/storefront/internal/repository/memory"
	pgrepo "github.com/motoforge/storefront/internal/repository/postgres"
	redisrepo "github.com/motoforge/storefront/internal/repository/redis"
	"github.com/motoforge/storefront/internal/service"
	"github.com/motoforge/storefront/internal/store"
	"github.com/motoforge/storefront/migrations"
	"github.com/motoforge/storefront/pkg/breaker"
	"github.com/motoforge/storefront/pkg/database"
	"github.com/motoforge/storefront/pkg/health"
	pkgkafka "github.com/motoforge/storefront/pkg/kafka"
	"github.com/motoforge/storefront/pkg/middleware"
	"github.com/motoforge/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	backend        *backend
	producer       *pkgkafka.Producer
	wishlist       *service.WishlistService
	orders         *service.OrderService
	rateLimiter    *middleware.RateLimiter
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// backend is the opened wishlist snapshot store with its health probe and
// release hook.
type backend struct {
	repo  repository.WishlistRepository
	check health.Checker
	close func()
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	be, err := openBackend(ctx, cfg, reg, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	healthHandler := health.NewHandler()
	if be.check != nil {
		healthHandler.Register("wishlist-"+cfg.WishlistBackend, be.check)
	}

	// Kafka is optional. A nil publisher makes the event producer discard
	// events, so it must be an untyped nil rather than a nil *Producer.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), reg, logger)
		publisher = producer
		healthHandler.RegisterOptional("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Build the dependency graph.
	products := memory.NewProductRepository(memory.DefaultCatalog())
	wishlistService := service.NewWishlistService(be.repo, products, eventProducer, service.WishlistConfig{
		Persister: store.PersisterConfig{
			Debounce: cfg.DebounceInterval(),
			MaxWait:  cfg.MaxWait(),
			Timeout:  cfg.PersistTimeout(),
		},
		HistoryLimit: cfg.WishlistHistoryLimit,
		Registerer:   reg,
	}, logger)
	catalogService := service.NewCatalogService(products, logger)
	orderService := service.NewOrderService(memory.NewOrderRepository(), products, logger, cfg.OrderProcessingDelay())

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPM > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst, logger)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.Services{
		Wishlist: wishlistService,
		Catalog:  catalogService,
		Orders:   orderService,
	}, healthHandler, handler.RouterConfig{
		CORS:        cors,
		RateLimiter: rateLimiter,
		Metrics:     middleware.NewHTTPMetrics(reg),
		Gatherer:    reg,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		backend:        be,
		producer:       producer,
		wishlist:       wishlistService,
		orders:         orderService,
		rateLimiter:    rateLimiter,
		tracerShutdown: tracerShutdown,
		httpServer:     httpServer,
	}, nil
}

// openBackend connects the configured wishlist snapshot store. Durable
// backends are wrapped in a circuit breaker.
func openBackend(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*backend, error) {
	var be *backend

	switch cfg.WishlistBackend {
	case config.BackendMemory:
		logger.Warn("wishlist snapshots are kept in memory and lost on restart")
		return &backend{repo: memory.NewWishlistRepository(), close: func() {}}, nil

	case config.BackendFile:
		repo, err := filerepo.NewWishlistRepository(cfg.WishlistFileDir)
		if err != nil {
			return nil, err
		}
		logger.Info("wishlist snapshots stored on disk", slog.String("dir", cfg.WishlistFileDir))
		be = &backend{repo: repo, check: repo.Ping, close: func() {}}

	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		be = &backend{
			repo: redisrepo.NewWishlistRepository(rdb, cfg.WishlistTTL()),
			check: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
			close: func() {
				if err := rdb.Close(); err != nil {
					logger.Error("redis close error", slog.String("error", err.Error()))
				}
			},
		}

	case config.BackendPostgres:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.PostgresHost
		pgCfg.Port = cfg.PostgresPort
		pgCfg.User = cfg.PostgresUser
		pgCfg.Password = cfg.PostgresPass
		pgCfg.DBName = cfg.PostgresDB
		pgCfg.SSLMode = cfg.PostgresSSL

		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		be = &backend{
			repo:  pgrepo.NewWishlistRepository(pool),
			check: pool.Ping,
			close: pool.Close,
		}

	default:
		return nil, fmt.Errorf("unknown wishlist backend %q", cfg.WishlistBackend)
	}

	be.repo = repository.NewGuarded(be.repo, breaker.DefaultConfig("wishlist-"+cfg.WishlistBackend), breaker.NewMetrics(reg), logger)
	return be, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("wishlist_backend", a.cfg.WishlistBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		a.runJanitor(janitorCtx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopJanitor()
	<-janitorDone

	if err := a.Shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// runJanitor periodically releases idle wishlist sessions and stale rate
// limiter buckets.
func (a *App) runJanitor(ctx context.Context) {
	interval := a.cfg.SessionIdle() / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.wishlist.EvictIdle(ctx, a.cfg.SessionIdle()); n > 0 {
				a.logger.Info("evicted idle wishlist sessions", slog.Int("count", n))
			}
			if a.rateLimiter != nil {
				a.rateLimiter.Cleanup()
			}
		}
	}
}

// Shutdown gracefully stops all components. In-flight requests finish first,
// then every open wishlist flushes its pending snapshot before the backend
// connection is released.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), a.cfg.PersistTimeout()+time.Second)
	defer flushCancel()
	if err := a.wishlist.Close(flushCtx); err != nil {
		a.logger.Error("wishlist flush error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.orders.Close()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	a.backend.close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
