package scheduler

import (
	"context"
	"fmt"

	"fieldops_backend/internal/lifecycle/refresher"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	refresher *refresher.Refresher
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, ref *refresher.Refresher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		refresher: ref,
		log:       log,
	}

	mux.HandleFunc(TaskLifecycleRefresh, w.handleLifecycleRefresh)

	return w, nil
}

func (w *Worker) handleLifecycleRefresh(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLifecycleRefreshPayload(task)
	if err != nil {
		return err
	}

	now := payload.RequestedAt
	if now.IsZero() {
		return fmt.Errorf("lifecycle refresh task has no requested time")
	}

	report, err := w.refresher.Run(ctx, now)
	if err != nil {
		return err
	}

	w.log.Info("lifecycle refresh completed",
		"scanned", report.Scanned,
		"changed", len(report.Changed),
		"failed", len(report.Failed),
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
