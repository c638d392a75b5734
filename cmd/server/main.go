package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/khata/internal/adapter/http"
	"github.com/iho/khata/internal/adapter/http/handler"
	"github.com/iho/khata/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/khata/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/khata/internal/adapter/repository/redis"
	s3store "github.com/iho/khata/internal/adapter/storage/s3"
	"github.com/iho/khata/internal/infrastructure/auth"
	"github.com/iho/khata/internal/infrastructure/config"
	"github.com/iho/khata/internal/infrastructure/eventpublisher"
	"github.com/iho/khata/internal/infrastructure/logger"
	"github.com/iho/khata/internal/infrastructure/metrics"
	"github.com/iho/khata/internal/infrastructure/postgres"
	"github.com/iho/khata/internal/infrastructure/redis"
	"github.com/iho/khata/internal/scheduler"
	"github.com/iho/khata/internal/usecase"
)

const (
	serviceName = "khata"

	rateLimitCleanupInterval = time.Minute
	rateLimitMaxIdle         = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(loggerConfig(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return err
		}
	}

	// Connect to PostgreSQL
	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL, 0)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	retrier := postgresRepo.NewRetrier(log)
	txManager := postgresRepo.NewTxManager(pool)
	partyRepo := postgresRepo.NewPartyRepository(pool, retrier)
	entryRepo := postgresRepo.NewEntryRepository(pool, retrier)
	loanRepo := postgresRepo.NewLoanRepository(pool, retrier)
	paymentRepo := postgresRepo.NewPaymentRepository()
	outboxRepo := postgresRepo.NewOutboxRepository(pool, retrier)
	auditRepo := postgresRepo.NewAuditRepository(pool, retrier)
	idGen := postgresRepo.NewULIDGenerator()
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	loanLocker := redisRepo.NewLoanLocker(redisClient)

	// Initialize use cases
	partyUC := usecase.NewPartyUseCase(txManager, partyRepo, outboxRepo, auditRepo, idGen, m)
	entryUC := usecase.NewEntryUseCase(txManager, partyRepo, entryRepo, outboxRepo, auditRepo, idGen, m, location)
	loanUC := usecase.NewLoanUseCase(usecase.LoanUseCaseConfig{
		TxManager:   txManager,
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		PartyRepo:   partyRepo,
		OutboxRepo:  outboxRepo,
		AuditRepo:   auditRepo,
		Locker:      loanLocker,
		IDGen:       idGen,
		Metrics:     m,
		LockTTL:     cfg.LoanLockTTL,
		Location:    location,
	})

	var attachmentHandler *handler.AttachmentHandler
	if cfg.AttachmentsEnabled() {
		store, err := s3store.New(ctx, s3Config(cfg))
		if err != nil {
			return err
		}
		attachmentHandler = handler.NewAttachmentHandler(usecase.NewAttachmentUseCase(store, idGen, m))
		log.Info().Str("bucket", cfg.S3Bucket).Msg("attachment uploads enabled")
	}

	authenticator, err := newAuthenticator(cfg)
	if err != nil {
		return err
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithMetrics(m)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PartyHandler:      handler.NewPartyHandler(partyUC),
		EntryHandler:      handler.NewEntryHandler(entryUC),
		LoanHandler:       handler.NewLoanHandler(loanUC),
		CalculatorHandler: handler.NewCalculatorHandler(),
		AttachmentHandler: attachmentHandler,
		HealthHandler:     handler.NewHealthHandler(pool, redisClient),
		Authenticator:     authenticator,
		IdempotencyStore:  idempotencyStore,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		RateLimiter:       rateLimiter,
		Metrics:           m,
		MetricsHandler:    promhttp.Handler(),
		Logger:            log,
	})

	// Background workers
	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	go rateLimiter.RunCleanup(bgCtx, rateLimitCleanupInterval, rateLimitMaxIdle)

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(log),
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
	})
	go func() {
		if err := publisher.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched, err = scheduler.New(loanUC, schedulerConfig(cfg, location), log, m)
		if err != nil {
			return err
		}
		sched.Start()
	}

	server := newHTTPServer(cfg, router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	cancelBackground()

	return nil
}

func loggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: serviceName}
}

// newAuthenticator returns a token checking authenticator when auth is
// enabled, and a shop header one otherwise.
func newAuthenticator(cfg *config.Config) (*middleware.Authenticator, error) {
	if !cfg.AuthEnabled {
		return middleware.NewAuthenticator(nil, cfg.DefaultShopID), nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("AUTH_ENABLED requires JWT_SECRET")
	}
	return middleware.NewAuthenticator(auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), ""), nil
}

func s3Config(cfg *config.Config) s3store.Config {
	return s3store.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicBaseURL,
	}
}

func schedulerConfig(cfg *config.Config, location *time.Location) scheduler.Config {
	return scheduler.Config{
		OverdueSpec:  cfg.OverdueSweepCron,
		ReminderSpec: cfg.ReminderCron,
		LeadDays:     cfg.ReminderLeadDays,
		Location:     location,
		MaxRetries:   3,
	}
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}
