package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/http/router"
	"fieldops_backend/internal/invoices"
	"fieldops_backend/internal/jobs"
	"fieldops_backend/internal/lifecycle"
	"fieldops_backend/internal/lifecycle/domain"
	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/internal/lifecycle/refresher"
	"fieldops_backend/internal/quotes"
	"fieldops_backend/internal/requests"
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
	log.Info("starting api", "env", cfg.Env)

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
	subscribeTransitionLogger(eventBus, log)

	val := validator.New()

	// Lifecycle engine: one deriver and one gate shared by every module.
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
	lifecycleModule := lifecycle.NewModule(ref)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			requestsModule,
			quotesModule,
			jobsModule,
			invoicesModule,
			lifecycleModule,
		},
	}

	engineHTTP := router.New(app)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engineHTTP,
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// subscribeTransitionLogger records every published status change. Kept at
// the composition root so modules stay unaware of who listens.
func subscribeTransitionLogger(bus events.Bus, log *logger.Logger) {
	bus.Subscribe(engine.EventStatusChanged, events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(engine.StatusChangedEvent)
		if !ok {
			return nil
		}
		tr := e.Transition
		log.Debug("status change published",
			"entity_type", tr.EntityType,
			"entity_id", tr.EntityID.String(),
			"from", tr.From,
			"to", tr.To,
		)
		return nil
	}))
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
