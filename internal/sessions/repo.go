package sessions

import (
	"context"
	"sync"
	"time"
)

// Repo stores live sessions.
type Repo interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MemoryRepo keeps sessions in process until they expire.
type MemoryRepo struct {
	mu   sync.Mutex
	data map[string]*Session
	now  func() time.Time
}

// NewMemoryRepo constructs an empty repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]*Session), now: time.Now}
}

func (r *MemoryRepo) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.ID] = s
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.expired(s) && !s.batching.Load() {
		delete(r.data, id)
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed. Sessions
// with a running batch are kept until the batch ends.
func (r *MemoryRepo) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.data {
		if r.expired(s) && !s.batching.Load() {
			delete(r.data, id)
			n++
		}
	}
	return n
}

func (r *MemoryRepo) expired(s *Session) bool {
	return !s.ExpiresAt.IsZero() && !r.now().Before(s.ExpiresAt)
}
