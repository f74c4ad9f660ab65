// Package fixes drives the propose/accept/revert lifecycle of individual
// items and the sequential batch auto-fix.
package fixes

import (
	"context"
	"strings"

	"legalreview-backend/internal/items"
)

// Mode selects how the provider produces replacement text.
type Mode string

const (
	// ModeRewrite rewrites an existing clause.
	ModeRewrite Mode = "rewrite"
	// ModeGenerate drafts a new clause for a missing provision.
	ModeGenerate Mode = "generate"
)

// Target addresses the item being fixed.
type Target = items.Ref

// Request is one fix call.
type Request struct {
	Problem      string `json:"problemDescription"`
	Context      string `json:"documentContext"`
	OriginalText string `json:"originalClauseText,omitempty"`
	Mode         Mode   `json:"fixType"`
}

// Validate enforces the provider contract.
func (r Request) Validate() error {
	switch {
	case r.Mode != ModeRewrite && r.Mode != ModeGenerate:
		return &InputContractError{Field: "mode", Reason: "must be rewrite or generate"}
	case strings.TrimSpace(r.Problem) == "":
		return &InputContractError{Field: "problem", Reason: "problem description is required"}
	case r.Mode == ModeRewrite && strings.TrimSpace(r.OriginalText) == "":
		return &InputContractError{Field: "originalText", Reason: "rewrite requires the original clause text"}
	}
	return nil
}

// Result is the provider's replacement text.
type Result struct {
	FixedText     string `json:"fixedClauseText"`
	Justification string `json:"justificationNote,omitempty"`
}

// Provider produces replacement text for one item.
type Provider interface {
	Fix(ctx context.Context, req Request) (Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (Result, error)

func (f ProviderFunc) Fix(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
