package refresher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fieldops_backend/internal/lifecycle/engine"
	"fieldops_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeSweeper struct {
	mu         sync.Mutex
	entityType string
	candidates []uuid.UUID
	candErr    error
	stale      map[uuid.UUID]string
	failing    map[uuid.UUID]error
	calls      int
}

func (f *fakeSweeper) EntityType() string { return f.entityType }

func (f *fakeSweeper) Candidates(_ context.Context, _ time.Time, _ int) ([]uuid.UUID, error) {
	if f.candErr != nil {
		return nil, f.candErr
	}
	return f.candidates, nil
}

func (f *fakeSweeper) Reevaluate(_ context.Context, id uuid.UUID, now time.Time) (*engine.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.failing[id]; ok {
		return nil, err
	}
	to, ok := f.stale[id]
	if !ok {
		return nil, nil
	}
	delete(f.stale, id)
	return &engine.Transition{
		EntityType: f.entityType,
		EntityID:   id,
		From:       "sent",
		To:         to,
		ChangedAt:  now,
	}, nil
}

func TestRunReportsChangedEntities(t *testing.T) {
	staleID := uuid.New()
	freshID := uuid.New()
	sweeper := &fakeSweeper{
		entityType: "quote",
		candidates: []uuid.UUID{staleID, freshID},
		stale:      map[uuid.UUID]string{staleID: "follow_up"},
	}

	r := New([]Sweeper{sweeper}, logger.New("test"), nil, 100, 2)
	report, err := r.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Scanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", report.Scanned)
	}
	if len(report.Changed) != 1 {
		t.Fatalf("expected 1 change, got %d", len(report.Changed))
	}
	if report.Changed[0].EntityID != staleID {
		t.Fatalf("expected change for %s, got %s", staleID, report.Changed[0].EntityID)
	}
	if report.Changed[0].ChangedBy != nil {
		t.Fatalf("refresher transitions must have no actor")
	}
	if len(report.Failed) != 0 {
		t.Fatalf("expected no failures, got %d", len(report.Failed))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	staleID := uuid.New()
	sweeper := &fakeSweeper{
		entityType: "invoice",
		candidates: []uuid.UUID{staleID},
		stale:      map[uuid.UUID]string{staleID: "past_due"},
	}

	r := New([]Sweeper{sweeper}, logger.New("test"), nil, 100, 1)
	now := time.Now()

	first, err := r.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	if len(first.Changed) != 1 {
		t.Fatalf("expected 1 change on first run, got %d", len(first.Changed))
	}

	second, err := r.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if len(second.Changed) != 0 {
		t.Fatalf("expected no changes on second run, got %d", len(second.Changed))
	}
}

func TestRunIsolatesEntityFailures(t *testing.T) {
	failedID := uuid.New()
	staleID := uuid.New()
	sweeper := &fakeSweeper{
		entityType: "quote",
		candidates: []uuid.UUID{failedID, staleID},
		stale:      map[uuid.UUID]string{staleID: "follow_up"},
		failing:    map[uuid.UUID]error{failedID: errors.New("row locked")},
	}

	r := New([]Sweeper{sweeper}, logger.New("test"), nil, 100, 1)
	report, err := r.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(report.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(report.Failed))
	}
	if report.Failed[0].EntityID != failedID {
		t.Fatalf("expected failure for %s, got %s", failedID, report.Failed[0].EntityID)
	}
	if len(report.Changed) != 1 {
		t.Fatalf("failure must not block other entities, got %d changes", len(report.Changed))
	}
}

func TestRunContinuesPastCandidateQueryFailure(t *testing.T) {
	staleID := uuid.New()
	broken := &fakeSweeper{
		entityType: "quote",
		candErr:    errors.New("connection refused"),
	}
	healthy := &fakeSweeper{
		entityType: "invoice",
		candidates: []uuid.UUID{staleID},
		stale:      map[uuid.UUID]string{staleID: "past_due"},
	}

	r := New([]Sweeper{broken, healthy}, logger.New("test"), nil, 100, 1)
	report, err := r.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(report.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(report.Failed))
	}
	if report.Failed[0].EntityType != "quote" {
		t.Fatalf("expected quote sweep failure, got %s", report.Failed[0].EntityType)
	}
	if len(report.Changed) != 1 {
		t.Fatalf("expected healthy sweeper to still run, got %d changes", len(report.Changed))
	}
}
