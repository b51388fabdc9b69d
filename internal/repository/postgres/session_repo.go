package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/model"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ q Querier }

const sessionColumns = `id, principal_id, principal_type, session_token, issued_at, expires_at, revoked_at, user_agent, ip_address`

// Create inserts a new session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, principal_id, principal_type, session_token, issued_at, expires_at, user_agent, ip_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, q, s.ID, s.PrincipalID, string(s.PrincipalType), s.TokenHash,
		s.IssuedAt, s.ExpiresAt, s.UserAgent, s.IPAddress)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindActiveByToken selects and locks a usable session by token digest.
func (r *SessionRepo) FindActiveByToken(ctx context.Context, tokenDigest string, now time.Time) (*model.Session, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE session_token=$1 AND revoked_at IS NULL AND expires_at > $2
FOR UPDATE`
	return scanSession(r.q.QueryRow(ctx, q, tokenDigest, now))
}

// Revoke sets revoked_at if it is not set yet.
func (r *SessionRepo) Revoke(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	const q = `UPDATE sessions SET revoked_at=$2 WHERE id=$1 AND revoked_at IS NULL`
	tag, err := r.q.Exec(ctx, q, id, now)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByID selects a session by id.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id=$1`
	return scanSession(r.q.QueryRow(ctx, q, id))
}

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var (
		s   model.Session
		typ string
	)
	if err := row.Scan(&s.ID, &s.PrincipalID, &typ, &s.TokenHash, &s.IssuedAt, &s.ExpiresAt,
		&s.RevokedAt, &s.UserAgent, &s.IPAddress); err != nil {
		return nil, scanErr("get session", err)
	}
	s.PrincipalType = model.PrincipalType(typ)
	return &s, nil
}
