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

	"loan_pipeline_backend/internal/adapters"
	"loan_pipeline_backend/internal/adapters/storage"
	"loan_pipeline_backend/internal/conditions"
	conditionsvc "loan_pipeline_backend/internal/conditions/service"
	"loan_pipeline_backend/internal/email"
	"loan_pipeline_backend/internal/events"
	apphttp "loan_pipeline_backend/internal/http"
	"loan_pipeline_backend/internal/http/router"
	"loan_pipeline_backend/internal/leads"
	"loan_pipeline_backend/internal/leads/domain"
	"loan_pipeline_backend/internal/leads/finance"
	"loan_pipeline_backend/internal/leads/locking"
	"loan_pipeline_backend/internal/leads/pipeline"
	"loan_pipeline_backend/internal/notification"
	"loan_pipeline_backend/internal/scheduler"
	"loan_pipeline_backend/migrations"
	"loan_pipeline_backend/platform/config"
	"loan_pipeline_backend/platform/db"
	"loan_pipeline_backend/platform/logger"
	"loan_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	taskScheduler, closeScheduler := initTaskScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	locker, closeLocker := initLeadLocker(cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	rules, err := loadStageRules(cfg, log)
	if err != nil {
		log.Error("failed to load stage rules", "error", err, "path", cfg.GetStageRulesPath())
		panic("failed to load stage rules: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for condition documents and contracts (MinIO)
	var documents *adapters.LoanDocumentStore
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		ensureBucket(ctx, log, storageSvc, "loan-documents", cfg.GetMinioBucketLoanDocuments())
		documents = adapters.NewLoanDocumentStore(storageSvc, cfg.GetMinioBucketLoanDocuments())
		log.Info("storage service initialized", "loanDocumentsBucket", cfg.GetMinioBucketLoanDocuments())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; document uploads disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events and serves the SSE stream
	notificationModule := notification.New(email.NewSMTPSenderFromConfig(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	// Refresh signal shared by lead and condition writes
	refresh := adapters.NewLeadChangedPublisher(eventBus)

	conditionsModule, err := conditions.NewModule(pool, conditionDocuments(documents), refresh, eventBus, val, cfg.GetMinIOMaxFileSize(), log)
	if err != nil {
		log.Error("failed to initialize conditions module", "error", err)
		panic("failed to initialize conditions module: " + err.Error())
	}

	deps := leads.Dependencies{
		Pool: pool,
		Options: pipeline.Options{
			Rules: rules,
			Policy: finance.Policy{
				DefaultInterestRate: cfg.GetDefaultInterestRate(),
				DefaultTermMonths:   cfg.GetDefaultTermMonths(),
			},
			Location: cfg.GetPipelineLocation(),
		},
		Conditions:  adapters.NewLeadConditionsReader(conditionsModule.Service()),
		Hook:        refresh,
		EventBus:    eventBus,
		Validator:   val,
		MaxFileSize: cfg.GetMinIOMaxFileSize(),
		Logger:      log,
	}
	// Typed nils must not reach the interface fields.
	if locker != nil {
		deps.Locker = locker
	}
	if taskScheduler != nil {
		deps.Tasks = taskScheduler
	}
	if documents != nil {
		deps.Contracts = documents
	}

	leadsModule, err := leads.NewModule(deps)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			notificationModule,
			leadsModule,
			conditionsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Streaming clients hold their connections open until the SSE
		// service closes them.
		notificationModule.SSE().Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func conditionDocuments(documents *adapters.LoanDocumentStore) conditionsvc.DocumentStore {
	if documents == nil {
		return nil
	}
	return documents
}

func loadStageRules(cfg config.PipelineConfig, log *logger.Logger) (*domain.RuleSet, error) {
	path := cfg.GetStageRulesPath()
	if path == "" {
		return domain.DefaultRules(), nil
	}
	rules, err := domain.LoadRules(path)
	if err != nil {
		return nil, err
	}
	log.Info("stage rules loaded", "path", path)
	return rules, nil
}

func initTaskScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; task due reminders disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initLeadLocker(cfg config.LockConfig, log *logger.Logger) (*locking.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; lead writes rely on version checks only")
		return nil, nil
	}

	locker, err := locking.NewFromConfig(cfg)
	if err != nil {
		log.Error("failed to initialize lead locker", "error", err)
		return nil, nil
	}

	return locker, func() {
		_ = locker.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
