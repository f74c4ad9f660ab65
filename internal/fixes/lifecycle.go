package fixes

import (
	"legalreview-backend/internal/items"
)

// The functions below are pure: they never modify the Set they are given and
// return an updated copy. A rejected transition returns the input unchanged.

const (
	opPropose = "propose"
	opAccept  = "accept"
	opRevert  = "revert"
)

// Begin marks an initial, idle item as busy and returns the provider request
// for it.
func Begin(set items.Set, target Target, docContext string) (items.Set, Request, error) {
	switch target.Collection {
	case items.CollectionClauses:
		c, i, ok := set.Clause(target.ID)
		if !ok {
			return set, Request{}, ErrItemNotFound
		}
		if err := checkPropose(target, c.State, c.FixLoading); err != nil {
			return set, Request{}, err
		}
		req := Request{Problem: c.OriginalReason, Context: docContext, OriginalText: c.OriginalText, Mode: ModeRewrite}
		if err := req.Validate(); err != nil {
			return set, Request{}, err
		}
		next := set.Clone()
		next.Clauses[i].FixLoading = true
		next.Clauses[i].FixError = ""
		return next, req, nil

	case items.CollectionPoints:
		p, i, ok := set.Point(target.ID)
		if !ok {
			return set, Request{}, ErrItemNotFound
		}
		if !p.Fixable {
			return set, Request{}, &InvalidTransitionError{Target: target, Op: opPropose, From: p.State, Reason: "item is read-only"}
		}
		if err := checkPropose(target, p.State, p.FixLoading); err != nil {
			return set, Request{}, err
		}
		req := Request{Problem: p.Text, Context: docContext, Mode: ModeGenerate}
		if err := req.Validate(); err != nil {
			return set, Request{}, err
		}
		next := set.Clone()
		next.Points[i].FixLoading = true
		next.Points[i].FixError = ""
		return next, req, nil
	}
	return set, Request{}, ErrItemNotFound
}

func checkPropose(target Target, state items.State, busy bool) error {
	if busy {
		return &InvalidTransitionError{Target: target, Op: opPropose, From: state, Busy: true}
	}
	if state != items.StateInitial {
		return &InvalidTransitionError{Target: target, Op: opPropose, From: state}
	}
	return nil
}

// Complete applies a successful fix to a busy item and moves it to proposed.
func Complete(set items.Set, target Target, res Result) (items.Set, error) {
	switch target.Collection {
	case items.CollectionClauses:
		c, i, ok := set.Clause(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		if !c.FixLoading || c.State != items.StateInitial {
			return set, &InvalidTransitionError{Target: target, Op: "complete", From: c.State, Reason: "no fix in progress"}
		}
		next := set.Clone()
		next.Clauses[i].CurrentText = res.FixedText
		if res.Justification != "" {
			next.Clauses[i].CurrentReason = res.Justification
		}
		next.Clauses[i].State = items.StateProposed
		next.Clauses[i].FixLoading = false
		next.Clauses[i].FixError = ""
		return next, nil

	case items.CollectionPoints:
		p, i, ok := set.Point(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		if !p.FixLoading || p.State != items.StateInitial {
			return set, &InvalidTransitionError{Target: target, Op: "complete", From: p.State, Reason: "no fix in progress"}
		}
		next := set.Clone()
		next.Points[i].CurrentText = res.FixedText
		next.Points[i].Justification = res.Justification
		next.Points[i].State = items.StateProposed
		next.Points[i].FixLoading = false
		next.Points[i].FixError = ""
		return next, nil
	}
	return set, ErrItemNotFound
}

// Fail clears the busy flag after a failed fix and records the reason. The
// item stays initial with its current text untouched.
func Fail(set items.Set, target Target, reason string) (items.Set, error) {
	switch target.Collection {
	case items.CollectionClauses:
		_, i, ok := set.Clause(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		next := set.Clone()
		next.Clauses[i].FixLoading = false
		next.Clauses[i].FixError = reason
		return next, nil

	case items.CollectionPoints:
		_, i, ok := set.Point(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		next := set.Clone()
		next.Points[i].FixLoading = false
		next.Points[i].FixError = reason
		return next, nil
	}
	return set, ErrItemNotFound
}

// Accept moves a proposed item to accepted.
func Accept(set items.Set, target Target) (items.Set, error) {
	switch target.Collection {
	case items.CollectionClauses:
		c, i, ok := set.Clause(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		if c.FixLoading || c.State != items.StateProposed {
			return set, &InvalidTransitionError{Target: target, Op: opAccept, From: c.State, Busy: c.FixLoading}
		}
		next := set.Clone()
		next.Clauses[i].State = items.StateAccepted
		return next, nil

	case items.CollectionPoints:
		p, i, ok := set.Point(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		if p.FixLoading || p.State != items.StateProposed {
			return set, &InvalidTransitionError{Target: target, Op: opAccept, From: p.State, Busy: p.FixLoading}
		}
		next := set.Clone()
		next.Points[i].State = items.StateAccepted
		return next, nil
	}
	return set, ErrItemNotFound
}

// Revert restores a proposed or accepted item to its original content.
func Revert(set items.Set, target Target) (items.Set, error) {
	switch target.Collection {
	case items.CollectionClauses:
		c, i, ok := set.Clause(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		if c.FixLoading || c.State == items.StateInitial {
			return set, &InvalidTransitionError{Target: target, Op: opRevert, From: c.State, Busy: c.FixLoading}
		}
		next := set.Clone()
		next.Clauses[i].CurrentText = c.OriginalText
		next.Clauses[i].CurrentReason = c.OriginalReason
		next.Clauses[i].State = items.StateInitial
		next.Clauses[i].FixError = ""
		return next, nil

	case items.CollectionPoints:
		p, i, ok := set.Point(target.ID)
		if !ok {
			return set, ErrItemNotFound
		}
		if p.FixLoading || p.State == items.StateInitial {
			return set, &InvalidTransitionError{Target: target, Op: opRevert, From: p.State, Busy: p.FixLoading}
		}
		next := set.Clone()
		next.Points[i].CurrentText = p.Text
		next.Points[i].Justification = ""
		next.Points[i].State = items.StateInitial
		next.Points[i].FixError = ""
		return next, nil
	}
	return set, ErrItemNotFound
}
