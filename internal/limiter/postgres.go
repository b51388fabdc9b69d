package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/and161185/todo-keeper/internal/clock"
)

// PG is a PostgreSQL-backed limiter implementation with sliding window and lockout.
type PG struct {
	q        pgxQuerier
	clk      clock.Clock
	window   time.Duration
	maxFails int
	blockFor time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Policy bundles the throttling thresholds.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// NewPG constructs a PostgreSQL-backed limiter over a pool or any compatible querier.
func NewPG(q pgxQuerier, clk clock.Clock, p Policy) *PG {
	return &PG{q: q, clk: clk, window: p.Window, maxFails: p.MaxFails, blockFor: p.BlockFor}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, k Key) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE kind=$1 AND email=$2 AND ip_hash=$3`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, k.Kind, k.Email, k.IPHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		now := l.clk.Now()
		if blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for the key.
func (l *PG) Success(ctx context.Context, k Key) error {
	const q = `
INSERT INTO auth_limiter (kind, email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,$3,0,'epoch',$4)
ON CONFLICT (kind, email, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=EXCLUDED.updated_at`
	_, err := l.q.Exec(ctx, q, k.Kind, k.Email, k.IPHash, l.clk.Now())
	return err
}

// Failure records a failed attempt; may set a block until a future time.
func (l *PG) Failure(ctx context.Context, k Key) (bool, time.Duration, error) {
	now := l.clk.Now()

	const q = `
INSERT INTO auth_limiter (kind, email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1,$2,$3,1,'epoch',$4)
ON CONFLICT (kind, email, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN EXCLUDED.updated_at - auth_limiter.updated_at > $5::interval THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = EXCLUDED.updated_at
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, k.Kind, k.Email, k.IPHash, now, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails >= l.maxFails {
		const upd = `UPDATE auth_limiter SET blocked_until=$4 WHERE kind=$1 AND email=$2 AND ip_hash=$3`
		if _, err := l.q.Exec(ctx, upd, k.Kind, k.Email, k.IPHash, now.Add(l.blockFor)); err != nil {
			return false, 0, err
		}
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
