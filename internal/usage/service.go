package usage

import (
	"context"
	"fmt"
	"strings"
)

type store interface {
	EnsurePeriod(ctx context.Context, principal string) (Usage, error)
	Consume(ctx context.Context, principal, sessionID string, n int) (Usage, error)
	Refund(ctx context.Context, principal, sessionID string, n int) (Usage, error)
	Reset(ctx context.Context, principal string) (Usage, error)
}

// Service meters analysis runs per principal.
type Service struct {
	store store
}

// NewService constructs a Service with an in-memory store.
func NewService(policy Policy) *Service {
	return &Service{store: newMemoryStore(policy, nil)}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore *pgStore) *Service {
	return &Service{store: pgStore}
}

// EnsurePeriod returns the current usage, rolling the window if it expired.
func (s *Service) EnsurePeriod(ctx context.Context, principal string) (Usage, error) {
	if strings.TrimSpace(principal) == "" {
		return Usage{}, fmt.Errorf("principal is required")
	}
	return s.store.EnsurePeriod(ctx, principal)
}

// Consume reserves n runs against the principal's quota for a session, or
// fails with ErrLimitReached and reserves nothing. The check and the
// increment are one step, so concurrent callers cannot overdraw.
func (s *Service) Consume(ctx context.Context, principal, sessionID string, n int) (Usage, error) {
	if strings.TrimSpace(principal) == "" {
		return Usage{}, fmt.Errorf("principal is required")
	}
	return s.store.Consume(ctx, principal, sessionID, n)
}

// Refund returns n runs reserved for a session that never produced a review.
// Usage never drops below zero.
func (s *Service) Refund(ctx context.Context, principal, sessionID string, n int) (Usage, error) {
	if strings.TrimSpace(principal) == "" {
		return Usage{}, fmt.Errorf("principal is required")
	}
	return s.store.Refund(ctx, principal, sessionID, n)
}

// Reset sets usage to zero and starts a new window.
func (s *Service) Reset(ctx context.Context, principal string) (Usage, error) {
	return s.store.Reset(ctx, principal)
}
