package domain

import (
	"testing"
	"time"
)

// fullJobFacts returns facts with every milestone set, which must derive the
// latest milestone in the chain.
func fullJobFacts() JobFacts {
	return JobFacts{
		ScheduledDate:      ptrTime(testNow.AddDate(0, 0, -7)),
		AssignedCrewID:     ptrUUID(),
		ReadyForYardAt:     ptrTime(testNow.AddDate(0, 0, -6)),
		PickingStartedAt:   ptrTime(testNow.AddDate(0, 0, -5)),
		StagingCompletedAt: ptrTime(testNow.AddDate(0, 0, -4)),
		LoadedAt:           ptrTime(testNow.AddDate(0, 0, -3)),
		WorkStartedAt:      ptrTime(testNow.AddDate(0, 0, -2)),
		WorkCompletedAt:    ptrTime(testNow.AddDate(0, 0, -1)),
		InvoicedAt:         ptrTime(testNow),
	}
}

func TestDeriveJob_Default(t *testing.T) {
	d := NewDeriver(0)

	if got := d.Job(JobFacts{}, testNow); got != JobStatusWon {
		t.Fatalf("expected %q for empty facts, got %q", JobStatusWon, got)
	}
}

func TestDeriveJob_ScheduledNeedsDateAndCrew(t *testing.T) {
	d := NewDeriver(0)

	onlyDate := JobFacts{ScheduledDate: ptrTime(testNow.AddDate(0, 0, 2))}
	if got := d.Job(onlyDate, testNow); got != JobStatusWon {
		t.Fatalf("date without crew: expected %q, got %q", JobStatusWon, got)
	}

	onlyCrew := JobFacts{AssignedCrewID: ptrUUID()}
	if got := d.Job(onlyCrew, testNow); got != JobStatusWon {
		t.Fatalf("crew without date: expected %q, got %q", JobStatusWon, got)
	}

	both := JobFacts{ScheduledDate: ptrTime(testNow.AddDate(0, 0, 2)), AssignedCrewID: ptrUUID()}
	if got := d.Job(both, testNow); got != JobStatusScheduled {
		t.Fatalf("expected %q, got %q", JobStatusScheduled, got)
	}
}

func TestDeriveJob_LastMilestoneWins(t *testing.T) {
	d := NewDeriver(0)

	// Strip milestones one by one from the back of the chain and check each
	// intermediate status.
	facts := fullJobFacts()
	steps := []struct {
		clear func(*JobFacts)
		want  string
	}{
		{func(f *JobFacts) {}, JobStatusInvoiced},
		{func(f *JobFacts) { f.InvoicedAt = nil }, JobStatusCompleted},
		{func(f *JobFacts) { f.WorkCompletedAt = nil }, JobStatusInProgress},
		{func(f *JobFacts) { f.WorkStartedAt = nil }, JobStatusLoaded},
		{func(f *JobFacts) { f.LoadedAt = nil }, JobStatusStaged},
		{func(f *JobFacts) { f.StagingCompletedAt = nil }, JobStatusPicking},
		{func(f *JobFacts) { f.PickingStartedAt = nil }, JobStatusReadyForYard},
		{func(f *JobFacts) { f.ReadyForYardAt = nil }, JobStatusScheduled},
	}

	for _, step := range steps {
		step.clear(&facts)
		if got := d.Job(facts, testNow); got != step.want {
			t.Fatalf("expected %q, got %q", step.want, got)
		}
	}
}

func TestDeriveJob_GapInMilestonesStillUsesLatest(t *testing.T) {
	d := NewDeriver(0)

	// Work started without the loading milestones ever recorded.
	facts := JobFacts{
		ReadyForYardAt: ptrTime(testNow.AddDate(0, 0, -2)),
		WorkStartedAt:  ptrTime(testNow.Add(-time.Hour)),
	}
	if got := d.Job(facts, testNow); got != JobStatusInProgress {
		t.Fatalf("expected %q, got %q", JobStatusInProgress, got)
	}
}
