package fixes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"legalreview-backend/internal/events"
	"legalreview-backend/internal/items"
	"legalreview-backend/internal/shared/telemetry"
)

// TransitionEvent is the payload of an item.transition event.
type TransitionEvent struct {
	Target     Target      `json:"target"`
	Op         string      `json:"op"`
	State      items.State `json:"state"`
	FixLoading bool        `json:"fixLoading"`
	Error      string      `json:"error,omitempty"`
}

// Board owns the item arena of one run. Every state change goes through the
// board mutex; provider calls run outside it with the item marked busy, so no
// two fix calls can be in flight for the same item.
type Board struct {
	mu  sync.Mutex
	set items.Set

	SessionID string
	Context   string
	Provider  Provider
	Events    events.Publisher
	// Timeout bounds each provider call. Zero means no bound.
	Timeout time.Duration
}

// NewBoard wraps a normalized set.
func NewBoard(set items.Set, docContext string, provider Provider) *Board {
	return &Board{set: set.Clone(), Context: docContext, Provider: provider}
}

// Snapshot returns a copy of the current items.
func (b *Board) Snapshot() items.Set {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set.Clone()
}

// apply runs a pure transition under the lock and commits its result.
func (b *Board) apply(fn func(items.Set) (items.Set, error)) (items.Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, err := fn(b.set)
	if err != nil {
		return b.set.Clone(), err
	}
	b.set = next
	return next.Clone(), nil
}

// Propose requests replacement text for one initial item and moves it to
// proposed on success. On failure the item stays initial and the error is
// returned.
func (b *Board) Propose(ctx context.Context, target Target) (items.Set, error) {
	req, err := b.begin(ctx, target)
	if err != nil {
		return b.Snapshot(), err
	}
	return b.finish(ctx, target, req)
}

func (b *Board) begin(ctx context.Context, target Target) (Request, error) {
	if b.Provider == nil {
		return Request{}, ErrNoProvider
	}
	var req Request
	set, err := b.apply(func(s items.Set) (items.Set, error) {
		next, r, err := Begin(s, target, b.Context)
		req = r
		return next, err
	})
	if err != nil {
		return Request{}, err
	}
	b.emit(ctx, target, opPropose, set, "")
	return req, nil
}

func (b *Board) finish(ctx context.Context, target Target, req Request) (items.Set, error) {
	res, callErr := b.call(ctx, req)
	if callErr != nil {
		provErr := &ProviderError{Target: target, Err: callErr}
		set, err := b.apply(func(s items.Set) (items.Set, error) {
			return Fail(s, target, callErr.Error())
		})
		if err != nil {
			return set, err
		}
		telemetry.Warn("fix.propose.failed", map[string]any{
			"session_id": b.SessionID,
			"item":       target.String(),
			"error":      callErr,
		})
		b.emit(ctx, target, "fail", set, callErr.Error())
		return set, provErr
	}

	set, err := b.apply(func(s items.Set) (items.Set, error) {
		return Complete(s, target, res)
	})
	if err != nil {
		return set, err
	}
	b.emit(ctx, target, "complete", set, "")
	return set, nil
}

func (b *Board) call(ctx context.Context, req Request) (res Result, err error) {
	callCtx := ctx
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("fix provider panicked")
		}
	}()

	res, err = b.Provider.Fix(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, errors.New("fix timed out")
		}
		return Result{}, err
	}
	if strings.TrimSpace(res.FixedText) == "" {
		return Result{}, errors.New("provider returned no replacement text")
	}
	return res, nil
}

// Accept moves a proposed item to accepted.
func (b *Board) Accept(ctx context.Context, target Target) (items.Set, error) {
	set, err := b.apply(func(s items.Set) (items.Set, error) {
		return Accept(s, target)
	})
	if err != nil {
		return set, err
	}
	b.emit(ctx, target, opAccept, set, "")
	return set, nil
}

// Revert restores a proposed or accepted item to its original content.
func (b *Board) Revert(ctx context.Context, target Target) (items.Set, error) {
	set, err := b.apply(func(s items.Set) (items.Set, error) {
		return Revert(s, target)
	})
	if err != nil {
		return set, err
	}
	b.emit(ctx, target, opRevert, set, "")
	return set, nil
}

func (b *Board) emit(ctx context.Context, target Target, op string, set items.Set, errText string) {
	payload := TransitionEvent{Target: target, Op: op, Error: errText}
	switch target.Collection {
	case items.CollectionClauses:
		if c, _, ok := set.Clause(target.ID); ok {
			payload.State, payload.FixLoading = c.State, c.FixLoading
		}
	case items.CollectionPoints:
		if p, _, ok := set.Point(target.ID); ok {
			payload.State, payload.FixLoading = p.State, p.FixLoading
		}
	}
	events.Emit(ctx, b.Events, events.New(events.ItemTransition, b.SessionID, payload))
}
