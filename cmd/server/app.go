package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/phrazzld/measure-api/internal/config"
	"github.com/phrazzld/measure-api/internal/events"
	"github.com/phrazzld/measure-api/internal/jobs"
	"github.com/phrazzld/measure-api/internal/notify"
	"github.com/phrazzld/measure-api/internal/pipeline"
	"github.com/phrazzld/measure-api/internal/platform/kafka"
	"github.com/phrazzld/measure-api/internal/platform/minio"
	"github.com/phrazzld/measure-api/internal/platform/postgres"
	"github.com/phrazzld/measure-api/internal/platform/redis"
	"github.com/phrazzld/measure-api/internal/platform/visionhttp"
	"github.com/phrazzld/measure-api/internal/service"
	"github.com/phrazzld/measure-api/internal/service/auth"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/phrazzld/measure-api/internal/vision"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	stores     store.Stores
	transactor store.Transactor

	jwtService         auth.JWTService
	measurementService service.MeasurementService
	uploadService      service.UploadService
	uploadConfig       service.UploadConfig

	runner *jobs.Runner

	// background loops started by Run and stopped with its context
	background []func(ctx context.Context)

	// closers are released in reverse order by cleanup
	closers  []io.Closer
	stoppers []func()
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		uploadConfig: service.UploadConfig{
			MaxFiles:    cfg.Jobs.GuestMaxFiles,
			MaxFileSize: int64(cfg.Jobs.GuestMaxFileSizeMiB) << 20,
		},
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	transactor := postgres.NewTransactor(db, logger)
	app.transactor = transactor
	app.stores = transactor.Stores()

	objects, err := minio.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	simulated := cfg.Vision.IsSimulated()
	var analyzer vision.Analyzer
	if !simulated {
		analyzer, err = visionhttp.NewClient(cfg.Vision.URL,
			time.Duration(cfg.Vision.TimeoutSeconds)*time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vision client: %w", err)
		}
		logger.Info("vision client initialized", "url", cfg.Vision.URL)
	} else {
		logger.Warn("vision service not configured, photos are processed in simulation mode")
	}

	// The runner needs the registry before the processor exists, and the
	// processor needs a scheduler that delivers back to the runner.
	registry := jobs.NewRegistry()
	app.runner = jobs.NewRunner(jobs.RunnerConfig{
		WorkerCount:      cfg.Jobs.WorkerCount,
		QueueSize:        cfg.Jobs.QueueSize,
		JobTimeout:       time.Duration(cfg.Jobs.JobTimeoutSeconds) * time.Second,
		RecoveryInterval: time.Duration(cfg.Jobs.StuckCheckMinutes) * time.Minute,
	}, registry, logger)

	scheduler, err := app.setupScheduler(ctx)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewService(app.stores.Notifications, app.setupPublisher(), logger)

	processor, err := pipeline.NewProcessor(pipeline.Dependencies{
		Stores:     app.stores,
		Transactor: transactor,
		Objects:    objects,
		Analyzer:   analyzer,
		Scheduler:  scheduler,
		Notifier:   notifier,
	}, pipeline.Config{
		MaxAttempts:   cfg.Jobs.MaxAttempts,
		RetryDelay:    time.Duration(cfg.Jobs.RetryDelaySeconds) * time.Second,
		VisionTimeout: time.Duration(cfg.Vision.TimeoutSeconds) * time.Second,
		Simulated:     simulated,
		StuckAge:      time.Duration(cfg.Jobs.StuckJobAgeMinutes) * time.Minute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo processor: %w", err)
	}
	pipeline.Register(registry, processor)
	app.runner.SetRecoverer(pipeline.NewRecoverer(app.stores.Photos, app.runner, processor, logger))

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(jobs.NewEventHandler(app.runner, logger), pipeline.JobTypePhotoProcessing)

	app.measurementService, err = service.NewMeasurementService(app.stores, transactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create measurement service: %w", err)
	}

	app.uploadService, err = service.NewUploadService(
		app.stores,
		transactor,
		objects,
		pipeline.NewDispatcher(emitter),
		app.uploadConfig,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// setupScheduler returns the Redis backed retry scheduler when Redis is
// configured and the in-process one otherwise.
func (app *application) setupScheduler(ctx context.Context) (jobs.Scheduler, error) {
	if app.config.Queue.RedisAddr == "" {
		scheduler := jobs.NewInMemoryScheduler(app.runner.SubmitEnvelope, app.logger)
		app.stoppers = append(app.stoppers, scheduler.Stop)
		app.logger.Info("using in-memory retry scheduler")
		return scheduler, nil
	}

	client, err := redis.NewClient(ctx, app.config.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retry scheduler: %w", err)
	}
	app.closers = append(app.closers, client)

	scheduler := redis.NewScheduler(
		client,
		app.config.Queue.RedisKey,
		time.Duration(app.config.Queue.PollIntervalSeconds)*time.Second,
		app.runner.SubmitEnvelope,
		app.logger,
	)
	app.background = append(app.background, scheduler.Run)
	app.logger.Info("using redis retry scheduler", "key", app.config.Queue.RedisKey)
	return scheduler, nil
}

// setupPublisher returns the Kafka publisher when brokers are configured and
// a log-only publisher otherwise.
func (app *application) setupPublisher() notify.Publisher {
	if len(app.config.Notify.Brokers) == 0 {
		return notify.NewLogPublisher(app.logger)
	}

	publisher := kafka.NewPublisher(app.config.Notify.Brokers, app.config.Notify.Topic, app.logger)
	app.closers = append(app.closers, publisher)
	app.logger.Info("publishing notifications to kafka", "topic", app.config.Notify.Topic)
	return publisher
}

// Run starts the workers and the HTTP server and blocks until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start job runner: %w", err)
	}

	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for _, loop := range app.background {
		go loop(bgCtx)
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	for _, stop := range app.stoppers {
		stop()
	}

	if app.runner != nil {
		app.runner.Stop()
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error("error closing resource", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
