package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/todo-keeper/internal/repository"
)

// Store implements repository.Store on top of a pool or an open transaction.
type Store struct {
	db *DB
	q  Querier
	tx bool
}

var _ repository.Store = (*Store)(nil)

// NewStore returns a Store bound to the pool.
func NewStore(db *DB) *Store { return &Store{db: db, q: db.Pool} }

func (s *Store) Users() repository.AccountRepository    { return newUserRepo(s.q) }
func (s *Store) Admins() repository.AdminRepository     { return newAdminRepo(s.q) }
func (s *Store) Sessions() repository.SessionRepository { return &SessionRepo{q: s.q} }
func (s *Store) Todos() repository.TodoRepository       { return &TodoRepo{q: s.q} }
func (s *Store) Audit() repository.AuditRepository      { return &AuditRepo{q: s.q} }

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error { return s.db.Pool.Ping(ctx) }

// WithinTx begins a read-committed transaction, runs fn and commits on success.
// A nested call reuses the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) (err error) {
	if s.tx {
		return fn(ctx, s)
	}
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = fmt.Errorf("commit tx: %w", e)
		}
	}()

	return fn(ctx, &Store{db: s.db, q: tx, tx: true})
}
