package analyses

import (
	"errors"
	"fmt"
)

var ErrNoProvider = errors.New("analysis provider not configured")

// ProviderError is a failure of one analysis kind. It never aborts siblings.
type ProviderError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s failed: %s", e.Kind.Label(), e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Kind.Label(), e.Err)
	}
	return e.Kind.Label() + " failed"
}

func (e *ProviderError) Unwrap() error { return e.Err }

// InputContractError reports a malformed analysis request.
type InputContractError struct {
	Field  string
	Reason string
}

func (e *InputContractError) Error() string {
	return fmt.Sprintf("invalid analysis request: %s: %s", e.Field, e.Reason)
}
