package health

import (
	"context"
	"database/sql"
	"time"

	"legalreview-backend/internal/shared/storage/db"
)

const pingTimeout = 2 * time.Second

// Service reports liveness and the state of optional dependencies.
type Service struct {
	DB       *sql.DB
	Provider string
}

// NewService constructs a health service. db may be nil.
func NewService(database *sql.DB, provider string) *Service {
	return &Service{DB: database, Provider: provider}
}

// Status returns the health payload and whether every configured dependency
// is reachable.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	out := map[string]any{"ok": true, "provider": s.Provider, "database": "memory"}
	if s.DB == nil {
		return out, true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		out["ok"] = false
		out["database"] = "unreachable"
		return out, false
	}
	out["database"] = "ok"
	out["pool"] = db.PoolStats(s.DB)
	return out, true
}
