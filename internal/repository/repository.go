// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/model"
)

// AccountRepository provides access to one principal table (users or admins).
type AccountRepository interface {
	// Create inserts a new account. Duplicate emails yield errs.ErrConflict.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByEmail loads an account by case-insensitive email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// SetStatus changes the account status.
	SetStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) error
}

// AdminRepository extends AccountRepository with the admin-removal primitives.
type AdminRepository interface {
	AccountRepository
	// LockActive locks all active admin rows and returns their IDs.
	LockActive(ctx context.Context) ([]uuid.UUID, error)
	// Delete removes an admin row.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository persists refresh sessions.
type SessionRepository interface {
	// Create inserts a new session row.
	Create(ctx context.Context, s *model.Session) error
	// FindActiveByToken returns the session whose token digest matches and which is
	// neither revoked nor expired at now. The row is locked inside a transaction.
	FindActiveByToken(ctx context.Context, tokenDigest string, now time.Time) (*model.Session, error)
	// Revoke sets revoked_at once; revoking an already revoked session is a no-op.
	// It reports whether this call performed the revocation.
	Revoke(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// GetByID loads a session regardless of state.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
}

// TodoRepository provides access to live todos.
type TodoRepository interface {
	// Create inserts a todo.
	Create(ctx context.Context, t *model.Todo) error
	// Get loads a todo by id.
	Get(ctx context.Context, id uuid.UUID) (*model.Todo, error)
	// GetForUpdate loads and locks a todo by id.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Todo, error)
	// Update writes the mutable fields of t.
	Update(ctx context.Context, t *model.Todo) error
	// Delete hard-deletes a todo; a missing row yields errs.ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditRepository stores deletion snapshots and admin action records. Rows are append-only.
type AuditRepository interface {
	// InsertDeletedTodo writes a snapshot; a second snapshot of the same todo yields errs.ErrConflict.
	InsertDeletedTodo(ctx context.Context, l *model.DeletedTodoLog) error
	// GetDeletedTodo loads a snapshot by its id.
	GetDeletedTodo(ctx context.Context, id uuid.UUID) (*model.DeletedTodoLog, error)
	// GetDeletedTodoByOriginal loads the snapshot of a deleted todo.
	GetDeletedTodoByOriginal(ctx context.Context, todoID uuid.UUID) (*model.DeletedTodoLog, error)
	// InsertAdminAction writes an admin audit record.
	InsertAdminAction(ctx context.Context, l *model.AdminAuditLog) error
	// GetAdminAction loads an admin audit record by id.
	GetAdminAction(ctx context.Context, id uuid.UUID) (*model.AdminAuditLog, error)
	// ListAdminActions returns the records for one todo, oldest first.
	ListAdminActions(ctx context.Context, todoID uuid.UUID) ([]model.AdminAuditLog, error)
}

// Store vends repositories bound either to the connection pool or to a transaction.
type Store interface {
	Users() AccountRepository
	Admins() AdminRepository
	Sessions() SessionRepository
	Todos() TodoRepository
	Audit() AuditRepository

	// WithinTx runs fn in one transaction. fn's Store is bound to the transaction.
	// Any error (or panic) rolls back every write made through it.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
