// Package memory is an in-process implementation of repository.Store.
// Transactions are serialised and applied from a staged copy on commit.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository"
)

type state struct {
	users    map[uuid.UUID]model.Account
	admins   map[uuid.UUID]model.Account
	sessions map[uuid.UUID]model.Session
	todos    map[uuid.UUID]model.Todo
	deleted  map[uuid.UUID]model.DeletedTodoLog
	actions  map[uuid.UUID]model.AdminAuditLog
}

func newState() *state {
	return &state{
		users:    map[uuid.UUID]model.Account{},
		admins:   map[uuid.UUID]model.Account{},
		sessions: map[uuid.UUID]model.Session{},
		todos:    map[uuid.UUID]model.Todo{},
		deleted:  map[uuid.UUID]model.DeletedTodoLog{},
		actions:  map[uuid.UUID]model.AdminAuditLog{},
	}
}

func (s *state) clone() *state {
	return &state{
		users:    maps.Clone(s.users),
		admins:   maps.Clone(s.admins),
		sessions: maps.Clone(s.sessions),
		todos:    maps.Clone(s.todos),
		deleted:  maps.Clone(s.deleted),
		actions:  maps.Clone(s.actions),
	}
}

// Store is safe for concurrent use.
type Store struct {
	mu *sync.Mutex
	st **state
	tx *state // non-nil inside WithinTx
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, st: &st}
}

// do runs fn against the current state, locking unless inside a transaction.
func (s *Store) do(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(*s.st)
}

// WithinTx holds the store lock for the duration of fn and publishes the staged
// state only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := (*s.st).clone()
	if err := fn(ctx, &Store{mu: s.mu, st: s.st, tx: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	*s.st = staged
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Users() repository.AccountRepository    { return &accounts{s: s} }
func (s *Store) Admins() repository.AdminRepository     { return &accounts{s: s, admin: true} }
func (s *Store) Sessions() repository.SessionRepository { return &sessions{s: s} }
func (s *Store) Todos() repository.TodoRepository       { return &todos{s: s} }
func (s *Store) Audit() repository.AuditRepository      { return &audit{s: s} }
