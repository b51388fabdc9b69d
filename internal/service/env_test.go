package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/todo-keeper/internal/clock"
	pkgcrypto "github.com/and161185/todo-keeper/internal/crypto"
	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/limiter"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository"
	"github.com/and161185/todo-keeper/internal/repository/memory"
	"github.com/and161185/todo-keeper/internal/token"
)

const testPassword = "correct horse battery"

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type env struct {
	store    *memory.Store
	clock    *clock.Manual
	tokens   *token.Service
	hasher   pkgcrypto.Hasher
	auth     *AuthServiceImpl
	guard    *Guard
	todos    *TodoServiceImpl
	deletion *DeletionService
	admins   *AdminService
}

func newEnv(t *testing.T, lim limiter.Limiter) *env {
	t.Helper()
	e := &env{
		store:  memory.New(),
		clock:  clock.NewManual(t0),
		hasher: &pkgcrypto.Argon2{Time: 1, Memory: 1024, Threads: 1},
	}
	e.tokens = token.NewService(token.Config{
		Secret:     []byte("test-secret"),
		Issuer:     "todo-keeper",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
	}, e.clock)
	e.auth = NewAuthService(e.store, e.tokens, e.hasher, lim, e.clock, zaptest.NewLogger(t))
	e.guard = NewGuard(e.tokens, e.store)
	e.todos = NewTodoService(e.store, e.clock)
	e.deletion = NewDeletionService(e.store, e.clock, 30*24*time.Hour)
	e.admins = NewAdminService(e.store, e.hasher, e.clock)
	return e
}

func (e *env) user(t *testing.T, email string) model.Principal {
	t.Helper()
	a, err := e.auth.Register(context.Background(), email, testPassword)
	require.NoError(t, err)
	return model.Principal{ID: a.ID, Type: model.PrincipalUser}
}

func (e *env) admin(t *testing.T, email string) model.Principal {
	t.Helper()
	a, err := e.admins.CreateAdmin(context.Background(), email, testPassword)
	require.NoError(t, err)
	return model.Principal{ID: a.ID, Type: model.PrincipalAdmin}
}

func (e *env) todo(t *testing.T, owner model.Principal, title string) *model.Todo {
	t.Helper()
	td, err := e.todos.Create(context.Background(), owner, owner.ID, TodoInput{Title: title})
	require.NoError(t, err)
	return td
}

var errAuditDown = errors.New("audit storage down")

// failingAuditStore fails every audit insert, inside and outside transactions.
type failingAuditStore struct{ repository.Store }

func (s failingAuditStore) Audit() repository.AuditRepository {
	return failingAudit{s.Store.Audit()}
}

func (s failingAuditStore) WithinTx(ctx context.Context, fn func(context.Context, repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return fn(ctx, failingAuditStore{tx})
	})
}

type failingAudit struct{ repository.AuditRepository }

func (failingAudit) InsertDeletedTodo(context.Context, *model.DeletedTodoLog) error { return errAuditDown }
func (failingAudit) InsertAdminAction(context.Context, *model.AdminAuditLog) error  { return errAuditDown }

// fakeLimiter records calls and returns canned answers.
type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastKey      limiter.Key
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, k limiter.Key) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastKey = k
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, limiter.Key) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, limiter.Key) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

func newID() uuid.UUID { return uuid.Must(uuid.NewV4()) }

func snapshotsOf(t *testing.T, e *env, todoID uuid.UUID) []model.DeletedTodoLog {
	t.Helper()
	l, err := e.store.Audit().GetDeletedTodoByOriginal(context.Background(), todoID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return []model.DeletedTodoLog{*l}
}

func actionsOf(t *testing.T, e *env, todoID uuid.UUID) []model.AdminAuditLog {
	t.Helper()
	out, err := e.store.Audit().ListAdminActions(context.Background(), todoID)
	require.NoError(t, err)
	return out
}
