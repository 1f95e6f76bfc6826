package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type fakeAppender struct {
	records []HistoryRecord
	err     error
}

func (f *fakeAppender) Append(_ context.Context, _ pgx.Tx, rec HistoryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func TestGateCommit_UnchangedStatusIsNoOp(t *testing.T) {
	appender := &fakeAppender{}
	gate := NewGate(appender, nil)

	tr, err := gate.Commit(context.Background(), nil, CommitParams{
		EntityType: "quote",
		EntityID:   uuid.New(),
		From:       "sent",
		To:         "sent",
		ChangedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr != nil {
		t.Fatalf("expected nil transition for unchanged status, got %+v", tr)
	}
	if len(appender.records) != 0 {
		t.Fatalf("expected no history rows, got %d", len(appender.records))
	}
}

func TestGateCommit_ChangeAppendsExactlyOneRecord(t *testing.T) {
	appender := &fakeAppender{}
	gate := NewGate(appender, nil)

	id := uuid.New()
	actor := uuid.New()
	changedAt := time.Now()

	tr, err := gate.Commit(context.Background(), nil, CommitParams{
		EntityType: "quote",
		EntityID:   id,
		From:       "sent",
		To:         "follow_up",
		ChangedAt:  changedAt,
		ChangedBy:  &actor,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr == nil {
		t.Fatal("expected a transition")
	}
	if tr.From != "sent" || tr.To != "follow_up" {
		t.Fatalf("unexpected transition %q -> %q", tr.From, tr.To)
	}
	if tr.System() {
		t.Fatal("transition with an actor must not be marked system")
	}

	if len(appender.records) != 1 {
		t.Fatalf("expected exactly one history row, got %d", len(appender.records))
	}
	rec := appender.records[0]
	if rec.EntityID != id || rec.ToStatus != "follow_up" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.FromStatus == nil || *rec.FromStatus != "sent" {
		t.Fatalf("expected from_status %q, got %v", "sent", rec.FromStatus)
	}
	if rec.ChangedBy == nil || *rec.ChangedBy != actor {
		t.Fatalf("expected changed_by %s, got %v", actor, rec.ChangedBy)
	}
}

func TestGateCommit_InitialDerivationIsNotATransition(t *testing.T) {
	appender := &fakeAppender{}
	gate := NewGate(appender, nil)

	tr, err := gate.Commit(context.Background(), nil, CommitParams{
		EntityType: "service_request",
		EntityID:   uuid.New(),
		From:       "",
		To:         "pending",
		ChangedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr == nil {
		t.Fatal("expected the initial status to be reported")
	}
	if len(appender.records) != 0 {
		t.Fatalf("initial derivation must not write history, got %d rows", len(appender.records))
	}
}

func TestGateCommit_SystemTransition(t *testing.T) {
	appender := &fakeAppender{}
	gate := NewGate(appender, nil)

	tr, err := gate.Commit(context.Background(), nil, CommitParams{
		EntityType: "invoice",
		EntityID:   uuid.New(),
		From:       "sent",
		To:         "past_due",
		ChangedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tr.System() {
		t.Fatal("transition without an actor must be marked system")
	}
	if appender.records[0].ChangedBy != nil {
		t.Fatal("expected NULL changed_by for system transition")
	}
}
