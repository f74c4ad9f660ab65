package analyses

import "context"

// Provider computes the findings of one analysis kind. Implementations own any
// retry policy; the orchestrator calls each kind exactly once.
type Provider interface {
	Analyze(ctx context.Context, kind Kind, req Request) (Findings, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, kind Kind, req Request) (Findings, error)

func (f ProviderFunc) Analyze(ctx context.Context, kind Kind, req Request) (Findings, error) {
	return f(ctx, kind, req)
}
