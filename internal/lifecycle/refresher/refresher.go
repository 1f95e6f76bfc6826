// Package refresher re-evaluates time-sensitive statuses across all entity
// types. Each run is idempotent: rows whose derived status already matches
// the cached one pass through the gate as no-ops.
package refresher

import (
	"context"
	"sync"
	"time"

	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/events"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Sweeper is one entity type's contribution to a refresh run. Entity
// repositories implement it directly.
type Sweeper interface {
	// EntityType tags the sweeper's rows in reports and logs.
	EntityType() string
	// Candidates returns ids of rows whose status may be stale at now.
	// Over-approximation is fine; re-evaluation of an up-to-date row is a
	// no-op.
	Candidates(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	// Reevaluate pushes one row back through the derivation gate.
	Reevaluate(ctx context.Context, id uuid.UUID, now time.Time) (*engine.Transition, error)
}

// Failure records one entity that could not be re-evaluated. A failure never
// aborts the rest of the sweep.
type Failure struct {
	EntityType string    `json:"entityType"`
	EntityID   uuid.UUID `json:"entityId"`
	Error      string    `json:"error"`
}

// Report summarizes one refresh run.
type Report struct {
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Scanned    int                 `json:"scanned"`
	Changed    []engine.Transition `json:"changed"`
	Failed     []Failure           `json:"failed"`
}

// Refresher orchestrates the periodic sweep.
type Refresher struct {
	sweepers    []Sweeper
	log         *logger.Logger
	bus         events.Bus
	batchSize   int
	concurrency int
}

// New creates a refresher over the given sweepers.
func New(sweepers []Sweeper, log *logger.Logger, bus events.Bus, batchSize, concurrency int) *Refresher {
	if batchSize < 1 {
		batchSize = 500
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Refresher{
		sweepers:    sweepers,
		log:         log,
		bus:         bus,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// Run executes one sweep at the given time and returns the change report.
// Candidates are re-evaluated with bounded concurrency; per-entity failures
// are collected, not propagated.
func (r *Refresher) Run(ctx context.Context, now time.Time) (*Report, error) {
	report := &Report{
		StartedAt: now,
		Changed:   make([]engine.Transition, 0),
		Failed:    make([]Failure, 0),
	}

	var mu sync.Mutex
	for _, sweeper := range r.sweepers {
		ids, err := sweeper.Candidates(ctx, now, r.batchSize)
		if err != nil {
			r.log.Error("failed to query refresh candidates", "entity_type", sweeper.EntityType(), "error", err)
			mu.Lock()
			report.Failed = append(report.Failed, Failure{
				EntityType: sweeper.EntityType(),
				Error:      err.Error(),
			})
			mu.Unlock()
			continue
		}
		report.Scanned += len(ids)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for _, id := range ids {
			g.Go(func() error {
				tr, err := sweeper.Reevaluate(gctx, id, now)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Failed = append(report.Failed, Failure{
						EntityType: sweeper.EntityType(),
						EntityID:   id,
						Error:      err.Error(),
					})
					return nil
				}
				if tr != nil {
					report.Changed = append(report.Changed, *tr)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	report.FinishedAt = time.Now()
	for i := range report.Changed {
		if r.bus != nil {
			r.bus.Publish(ctx, engine.NewStatusChangedEvent(report.Changed[i]))
		}
	}
	r.log.SweepResult(report.Scanned, len(report.Changed), len(report.Failed), float64(report.FinishedAt.Sub(report.StartedAt).Milliseconds()))
	return report, nil
}
