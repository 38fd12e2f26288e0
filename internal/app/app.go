package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AnnouncementIngestor/internal/config"
	"AnnouncementIngestor/internal/httpapi"
	"AnnouncementIngestor/internal/infrastructure/browser"
	"AnnouncementIngestor/internal/infrastructure/embedding"
	"AnnouncementIngestor/internal/infrastructure/fetcher"
	"AnnouncementIngestor/internal/infrastructure/ocr"
	"AnnouncementIngestor/internal/infrastructure/parser"
	"AnnouncementIngestor/internal/infrastructure/scheduler"
	"AnnouncementIngestor/internal/infrastructure/storage"
	"AnnouncementIngestor/internal/infrastructure/telegram"
	"AnnouncementIngestor/internal/logging"
	"AnnouncementIngestor/internal/ports"
	"AnnouncementIngestor/internal/scanner"
	"AnnouncementIngestor/internal/usecase"
)

const runnerCloseTimeout = 30 * time.Second

// Options adjust wiring for a single process.
type Options struct {
	// DryRun swaps the page store for one that only logs.
	DryRun bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
}

// New builds every adapter and the runner.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	repo, err := a.openRepository(ctx, opts.DryRun)
	if err != nil {
		return nil, err
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewTableScanner(
		browser.NewRodRenderer(browser.RodConfig{
			RemoteURL: cfg.Browser.RemoteURL,
			NoSandbox: cfg.Browser.NoSandbox,
			Timeout:   cfg.Browser.Timeout,
			Logger:    baseLogger.With("component", "browser"),
		}),
		browser.NewHTTPRenderer(&http.Client{Timeout: cfg.Browser.Timeout}),
		baseLogger.With("component", "scanner.datatable"),
	))
	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	embeddingClient, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	generator, err := embedding.NewGenerator(
		embeddingClient,
		cfg.Pipeline.EmbeddingBatchSize,
		cfg.Embedding.MaxInputChars,
		baseLogger.With("component", "embedding"),
	)
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("embedding generator: %w", err)
	}

	processor := usecase.NewProcessor(usecase.ProcessorDeps{
		Fetcher: fetcher.New(fetcher.Config{
			Dir:      cfg.Pipeline.DownloadDir,
			MinBytes: cfg.Pipeline.MinAttachmentBytes,
			Timeout:  cfg.Pipeline.DownloadTimeout,
		}, nil, baseLogger.With("component", "fetcher")),
		Extractor:    ocr.NewClient(cfg.OCR, baseLogger.With("component", "ocr")),
		Embedder:     generator,
		Store:        repo,
		BatchSize:    cfg.Pipeline.EmbeddingBatchSize,
		MinPageChars: cfg.Pipeline.MinPageChars,
		Logger:       baseLogger.With("component", "processor"),
	})

	coordinator := usecase.NewCoordinator(usecase.CoordinatorDeps{
		Lister:    source,
		Oracle:    repo,
		Processor: processor,
		Pacer:     usecase.IntervalPacer{Interval: cfg.Pipeline.PaceInterval},
		Logger:    baseLogger.With("component", "coordinator"),
	})

	var notifier ports.Notifier
	if n := telegram.NewNotifier(cfg.Notifications.Telegram); n != nil {
		notifier = n
	}

	runner, err := usecase.NewRunner(usecase.RunnerDeps{
		Coordinator: coordinator,
		Status:      usecase.NewStatusTracker(),
		Notifier:    notifier,
		Location:    cfg.Scheduler.Location(),
		Logger:      baseLogger.With("component", "runner"),
	})
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("runner: %w", err)
	}
	a.runner = runner

	if cfg.Scheduler.Enabled {
		a.scheduler = usecase.NewScheduler(
			scheduler.NewIntervalScheduler(cfg.Scheduler.Interval),
			runner,
			baseLogger.With("component", "scheduler"),
		)
	}

	return a, nil
}

func (a *Application) openRepository(ctx context.Context, dryRun bool) (ports.Repository, error) {
	driver := strings.ToLower(a.cfg.Database.Driver)
	if dryRun {
		driver = config.DriverLog
	}
	log := a.logger.With("component", "storage", "driver", driver)

	if driver != config.DriverLog {
		if err := storage.ValidateTable(a.cfg.Database.Table); err != nil {
			return nil, fmt.Errorf("database table: %w", err)
		}
	}

	switch driver {
	case config.DriverLog:
		return storage.NewLogRepository(log), nil
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(a.cfg.Database.DSN, a.cfg.Database.Table)
		if err != nil {
			return nil, err
		}
		a.db = db
		return storage.NewSQLiteRepository(db, a.cfg.Database.Table, log), nil
	case config.DriverPostgres, "":
		db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		return storage.NewPostgresRepository(db, a.cfg.Database.Table, log), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
}

// Serve runs the HTTP API (and the scheduler, when enabled) until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.scheduler.Stop(stopCtx); err != nil {
				a.logger.Warn("stop scheduler", "error", err)
			}
		}()
	}

	server := httpapi.NewServer(a.cfg, a.runner, a.logger.With("component", "http"))
	return server.Run(ctx)
}

// RunOnce performs a single synchronous run and returns its final status.
func (a *Application) RunOnce(ctx context.Context) (usecase.RunStatus, error) {
	return a.runner.RunNow(ctx)
}

// Close waits for an active run and releases the database.
func (a *Application) Close() error {
	var firstErr error
	if a.runner != nil {
		if err := a.runner.Close(runnerCloseTimeout); err != nil {
			firstErr = err
		}
	}
	if err := a.closeDB(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *Application) closeDB() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
