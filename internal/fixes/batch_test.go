package fixes

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"legalreview-backend/internal/events"
	"legalreview-backend/internal/items"
)

func batchSet() items.Set {
	set := items.Set{}
	for _, id := range []string{"c1", "c2"} {
		set.Clauses = append(set.Clauses, items.FlaggedClause{
			ID: id, OriginalText: "text " + id, OriginalReason: "reason " + id,
			CurrentText: "text " + id, CurrentReason: "reason " + id, State: items.StateInitial,
		})
	}
	set.Points = []items.MissingPoint{
		{ID: "p1", Kind: items.PointMissing, Text: "point p1", CurrentText: "point p1", Fixable: true, State: items.StateInitial},
		{ID: "r1", Kind: items.PointRecommendation, Text: "rec", CurrentText: "rec", State: items.StateInitial},
		{ID: "p2", Kind: items.PointMissing, Text: "point p2", CurrentText: "point p2", Fixable: true, State: items.StateInitial},
	}
	return set
}

func TestSequencerEmptyBatch(t *testing.T) {
	var calls atomic.Int32
	fixer := ProviderFunc(func(ctx context.Context, req Request) (Result, error) {
		calls.Add(1)
		return Result{FixedText: "x"}, nil
	})
	rec := &events.Recorder{}
	board := NewBoard(items.Set{}, "NDA", fixer)
	board.Events = rec

	sum := (&Sequencer{Board: board}).Run(context.Background())
	if sum.Succeeded != 0 || sum.Failed != 0 || sum.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.Message != CompletedMessage {
		t.Fatalf("unexpected message %q", sum.Message)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no provider calls, got %d", calls.Load())
	}
	if len(rec.OfType(events.AutoFixCompleted)) != 1 {
		t.Fatalf("expected a completion event")
	}
}

func TestSequencerIsSequentialAndContinuesAfterFailure(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	var order []string
	fixer := ProviderFunc(func(ctx context.Context, req Request) (Result, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		order = append(order, req.Problem)
		if req.Problem == "reason c2" {
			return Result{}, errors.New("provider rejected")
		}
		return Result{FixedText: "fixed " + req.Problem}, nil
	})
	rec := &events.Recorder{}
	board := NewBoard(batchSet(), "NDA", fixer)
	board.Events = rec

	var progress []string
	sum := (&Sequencer{Board: board}).RunWithProgress(context.Background(), func(s Step) {
		if s.Phase == PhaseStarted {
			progress = append(progress, s.Progress)
		}
	})

	if sum.Succeeded != 3 || sum.Failed != 1 || sum.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if maxInFlight.Load() != 1 {
		t.Fatalf("fix calls overlapped: max in flight %d", maxInFlight.Load())
	}
	wantOrder := []string{"reason c1", "reason c2", "point p1", "point p2"}
	if len(order) != len(wantOrder) {
		t.Fatalf("expected %d calls, got %v", len(wantOrder), order)
	}
	for i := range wantOrder {
		if order[i] != wantOrder[i] {
			t.Fatalf("call %d = %q, want %q", i, order[i], wantOrder[i])
		}
	}
	wantProgress := []string{
		"Fixing flagged clause 1 of 4...",
		"Fixing flagged clause 2 of 4...",
		"Fixing missing point 3 of 4...",
		"Fixing missing point 4 of 4...",
	}
	for i := range wantProgress {
		if progress[i] != wantProgress[i] {
			t.Fatalf("progress %d = %q, want %q", i, progress[i], wantProgress[i])
		}
	}
	if got := len(rec.OfType(events.AutoFixProgress)); got != 4 {
		t.Fatalf("expected 4 progress events, got %d", got)
	}

	set := board.Snapshot()
	if set.Clauses[0].State != items.StateProposed || set.Clauses[1].State != items.StateInitial {
		t.Fatalf("unexpected clause states: %+v", set.Clauses)
	}
	if set.Clauses[1].FixLoading || set.Clauses[1].FixError != "provider rejected" {
		t.Fatalf("failed item should be idle with an error: %+v", set.Clauses[1])
	}
	if set.Points[1].State != items.StateInitial {
		t.Fatalf("recommendation must not be touched")
	}
	if set.Points[2].State != items.StateProposed {
		t.Fatalf("later items must still be attempted")
	}
}

func TestSequencerSnapshotSkipsNonInitial(t *testing.T) {
	set := batchSet()
	set.Clauses[0].State = items.StateAccepted
	set.Clauses[0].CurrentText = "already fixed"
	var calls atomic.Int32
	fixer := ProviderFunc(func(ctx context.Context, req Request) (Result, error) {
		calls.Add(1)
		return Result{FixedText: "x"}, nil
	})

	sum := (&Sequencer{Board: NewBoard(set, "NDA", fixer)}).Run(context.Background())
	if calls.Load() != 3 || sum.Succeeded != 3 {
		t.Fatalf("expected 3 calls, got %d (%+v)", calls.Load(), sum)
	}
}

func TestSequencerStepsStopEarly(t *testing.T) {
	var calls atomic.Int32
	fixer := ProviderFunc(func(ctx context.Context, req Request) (Result, error) {
		calls.Add(1)
		return Result{FixedText: "x"}, nil
	})
	board := NewBoard(batchSet(), "NDA", fixer)

	for step := range (&Sequencer{Board: board}).Steps(context.Background()) {
		if step.Phase == PhaseSettled {
			break
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call before stopping, got %d", calls.Load())
	}
	set := board.Snapshot()
	if set.Clauses[0].State != items.StateProposed || set.Clauses[1].State != items.StateInitial || set.Clauses[1].FixLoading {
		t.Fatalf("unexpected states after early stop: %+v", set.Clauses)
	}
}

func TestSequencerCancellationSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	fixer := ProviderFunc(func(ctx context.Context, req Request) (Result, error) {
		calls.Add(1)
		cancel()
		return Result{FixedText: "x"}, nil
	})

	sum := (&Sequencer{Board: NewBoard(batchSet(), "NDA", fixer)}).Run(ctx)
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
	if sum.Succeeded != 1 || sum.Skipped != 3 || sum.Message != CompletedMessage {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

// liveContextPublisher drops events whose context is already done, as a
// network publisher would.
type liveContextPublisher struct {
	events.Recorder
}

func (p *liveContextPublisher) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Recorder.Publish(ctx, e)
}

func TestSequencerPublishesCompletionAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fixer := ProviderFunc(func(ctx context.Context, req Request) (Result, error) {
		cancel()
		return Result{FixedText: "x"}, nil
	})
	pub := &liveContextPublisher{}
	board := NewBoard(batchSet(), "NDA", fixer)
	board.SessionID = "s-1"
	board.Events = pub

	sum := (&Sequencer{Board: board}).Run(ctx)
	completed := pub.OfType(events.AutoFixCompleted)
	if len(completed) != 1 {
		t.Fatalf("expected the completion event after cancel, got %d", len(completed))
	}
	if completed[0].SessionID != "s-1" || sum.Skipped != 3 {
		t.Fatalf("unexpected completion %+v summary %+v", completed[0], sum)
	}
}
