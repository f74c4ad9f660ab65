package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu     sync.Mutex
	policy Policy
	now    func() time.Time
	data   map[string]Usage
}

func newMemoryStore(policy Policy, now func() time.Time) *memoryStore {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{policy: policy, now: now, data: make(map[string]Usage)}
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, principal string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(principal), nil
}

// current must be called with mu held.
func (s *memoryStore) current(principal string) Usage {
	now := s.now().UTC()
	u, ok := s.data[principal]
	if !ok {
		u = s.policy.fresh(now)
	}
	u, _ = s.policy.roll(u, now)
	s.data[principal] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, principal, sessionID string, n int) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.current(principal)
	if n <= 0 {
		return u, nil
	}
	if u.Used+n > u.Limit {
		return u, ErrLimitReached
	}
	u.Used += n
	s.data[principal] = u
	return u, nil
}

func (s *memoryStore) Refund(ctx context.Context, principal, sessionID string, n int) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.current(principal)
	if n <= 0 {
		return u, nil
	}
	u.Used = max(u.Used-n, 0)
	s.data[principal] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, principal string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.policy.fresh(s.now().UTC())
	if prev, ok := s.data[principal]; ok {
		u.Plan, u.Limit = prev.Plan, prev.Limit
	}
	s.data[principal] = u
	return u, nil
}
