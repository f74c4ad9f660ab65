package fixes

import (
	"errors"
	"fmt"

	"legalreview-backend/internal/items"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrNoProvider   = errors.New("fix provider not configured")
)

// InvalidTransitionError rejects an operation the item's state forbids. The
// item is left unchanged.
type InvalidTransitionError struct {
	Target Target
	Op     string
	From   items.State
	Busy   bool
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("cannot %s %s: %s", e.Op, e.Target, e.Reason)
	case e.Busy:
		return fmt.Sprintf("cannot %s %s: a fix is already in progress", e.Op, e.Target)
	default:
		return fmt.Sprintf("cannot %s %s from state %s", e.Op, e.Target, e.From)
	}
}

// InputContractError reports a malformed fix request.
type InputContractError struct {
	Field  string
	Reason string
}

func (e *InputContractError) Error() string {
	return fmt.Sprintf("invalid fix request: %s: %s", e.Field, e.Reason)
}

// ProviderError is a failed fix call, scoped to one item.
type ProviderError struct {
	Target Target
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("fix %s failed: %v", e.Target, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
