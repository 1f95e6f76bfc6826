package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldops_backend/internal/invoices"
	"fieldops_backend/internal/jobs"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/internal/lifecycle/refresher"
	"fieldops_backend/internal/quotes"
	"fieldops_backend/internal/requests"
	"fieldops_backend/internal/scheduler"
	"fieldops_backend/migrations"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/db"
	"fieldops_backend/platform/events"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migration", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run migrations", "error", err)
		panic("failed to run migrations: " + err.Error())
	}

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Worker-side lifecycle wiring (no HTTP handlers required).
	derive := domain.NewDeriver(cfg.QuoteFollowUpAfter)
	history := engine.NewHistoryRepository(pool)
	gate := engine.NewGate(history, log)

	requestsModule := requests.NewModule(pool, gate, derive, history, eventBus, val)
	quotesModule := quotes.NewModule(pool, gate, derive, history, requestsModule.Repository(), eventBus, val)
	jobsModule := jobs.NewModule(pool, gate, derive, history, quotesModule.Repository(), requestsModule.Repository(), eventBus, val)
	invoicesModule := invoices.NewModule(pool, gate, derive, history, jobsModule.Repository(), eventBus, val)

	ref := refresher.New([]refresher.Sweeper{
		requestsModule.Repository(),
		quotesModule.Repository(),
		jobsModule.Repository(),
		invoicesModule.Repository(),
	}, log, eventBus, cfg.RefreshBatchSize, cfg.RefreshConcurrency)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()
	go client.RunPeriodicEnqueuer(ctx, cfg.RefreshInterval, log)

	worker, err := scheduler.NewWorker(cfg, ref, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
