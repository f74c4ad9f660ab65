package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB     *sql.DB
	policy Policy
	now    func() time.Time
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB, policy Policy) *pgStore {
	return &pgStore{DB: db, policy: policy, now: time.Now}
}

func (s *pgStore) EnsurePeriod(ctx context.Context, principal string) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	u, err = s.lockAndEnsure(ctx, tx, principal)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Consume(ctx context.Context, principal, sessionID string, n int) (u Usage, err error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, principal)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, principal)
	if err != nil {
		return Usage{}, err
	}
	if u.Used+n > u.Limit {
		err = ErrLimitReached
		return u, err
	}
	u.Used += n
	if _, err = tx.ExecContext(ctx, `
UPDATE review_usage SET used = $1, updated_at = now() WHERE principal_id = $2`, u.Used, principal); err != nil {
		return Usage{}, err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO review_usage_events (principal_id, session_id, units) VALUES ($1, $2, $3)`, principal, sessionID, n); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// Refund releases units and records them as a negative usage event.
func (s *pgStore) Refund(ctx context.Context, principal, sessionID string, n int) (u Usage, err error) {
	if n <= 0 {
		return s.EnsurePeriod(ctx, principal)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, principal)
	if err != nil {
		return Usage{}, err
	}
	u.Used = max(u.Used-n, 0)
	if _, err = tx.ExecContext(ctx, `
UPDATE review_usage SET used = $1, updated_at = now() WHERE principal_id = $2`, u.Used, principal); err != nil {
		return Usage{}, err
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO review_usage_events (principal_id, session_id, units) VALUES ($1, $2, $3)`, principal, sessionID, -n); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Reset(ctx context.Context, principal string) (Usage, error) {
	u := s.policy.fresh(s.now().UTC())
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO review_usage (principal_id, plan, limit_amount, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (principal_id) DO UPDATE SET used = 0, resets_at = EXCLUDED.resets_at, updated_at = now()`,
		principal, u.Plan, u.Limit, u.ResetsAt); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, principal string) (Usage, error) {
	now := s.now().UTC()
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT plan, limit_amount, used, resets_at FROM review_usage WHERE principal_id = $1 FOR UPDATE`, principal)
	err := row.Scan(&u.Plan, &u.Limit, &u.Used, &u.ResetsAt)
	if errors.Is(err, sql.ErrNoRows) {
		u = s.policy.fresh(now)
		if _, err = tx.ExecContext(ctx, `
INSERT INTO review_usage (principal_id, plan, limit_amount, used, resets_at) VALUES ($1, $2, $3, $4, $5)`,
			principal, u.Plan, u.Limit, u.Used, u.ResetsAt); err != nil {
			return Usage{}, err
		}
		return u, nil
	}
	if err != nil {
		return Usage{}, err
	}

	u, rolled := s.policy.roll(u, now)
	if rolled {
		if _, err = tx.ExecContext(ctx, `
UPDATE review_usage SET used = $1, resets_at = $2, updated_at = now() WHERE principal_id = $3`, u.Used, u.ResetsAt, principal); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}
