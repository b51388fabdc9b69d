package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
)

type accounts struct {
	s     *Store
	admin bool
}

func (r *accounts) table(st *state) map[uuid.UUID]model.Account {
	if r.admin {
		return st.admins
	}
	return st.users
}

func (r *accounts) Create(_ context.Context, a *model.Account) error {
	return r.s.do(func(st *state) error {
		t := r.table(st)
		email := strings.ToLower(a.Email)
		for _, x := range t {
			if x.ID == a.ID || x.Email == email {
				return errs.ErrConflict
			}
		}
		cp := *a
		cp.Email = email
		t[a.ID] = cp
		return nil
	})
}

func (r *accounts) GetByID(_ context.Context, id uuid.UUID) (out *model.Account, err error) {
	err = r.s.do(func(st *state) error {
		a, ok := r.table(st)[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *accounts) GetByEmail(_ context.Context, email string) (out *model.Account, err error) {
	email = strings.ToLower(email)
	err = r.s.do(func(st *state) error {
		for _, a := range r.table(st) {
			if a.Email == email {
				out = &a
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

func (r *accounts) SetStatus(_ context.Context, id uuid.UUID, status string, now time.Time) error {
	return r.s.do(func(st *state) error {
		t := r.table(st)
		a, ok := t[id]
		if !ok {
			return errs.ErrNotFound
		}
		a.Status, a.UpdatedAt = status, now
		t[id] = a
		return nil
	})
}

func (r *accounts) LockActive(_ context.Context) (ids []uuid.UUID, err error) {
	err = r.s.do(func(st *state) error {
		for id, a := range st.admins {
			if a.Status == model.StatusActive {
				ids = append(ids, id)
			}
		}
		return nil
	})
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return ids, err
}

func (r *accounts) Delete(_ context.Context, id uuid.UUID) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.admins[id]; !ok {
			return errs.ErrNotFound
		}
		delete(st.admins, id)
		return nil
	})
}

type sessions struct{ s *Store }

func (r *sessions) Create(_ context.Context, s *model.Session) error {
	return r.s.do(func(st *state) error {
		for _, x := range st.sessions {
			if x.ID == s.ID || x.TokenHash == s.TokenHash {
				return errs.ErrConflict
			}
		}
		st.sessions[s.ID] = *s
		return nil
	})
}

func (r *sessions) FindActiveByToken(_ context.Context, digest string, now time.Time) (out *model.Session, err error) {
	err = r.s.do(func(st *state) error {
		for _, x := range st.sessions {
			if x.TokenHash == digest && x.Active(now) {
				out = &x
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

func (r *sessions) Revoke(_ context.Context, id uuid.UUID, now time.Time) (revoked bool, err error) {
	err = r.s.do(func(st *state) error {
		x, ok := st.sessions[id]
		if !ok || x.RevokedAt != nil {
			return nil
		}
		at := now
		x.RevokedAt = &at
		st.sessions[id] = x
		revoked = true
		return nil
	})
	return revoked, err
}

func (r *sessions) GetByID(_ context.Context, id uuid.UUID) (out *model.Session, err error) {
	err = r.s.do(func(st *state) error {
		x, ok := st.sessions[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &x
		return nil
	})
	return out, err
}

type todos struct{ s *Store }

func (r *todos) Create(_ context.Context, t *model.Todo) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.todos[t.ID]; ok {
			return errs.ErrConflict
		}
		if _, ok := st.users[t.OwnerID]; !ok {
			return errs.ErrNotFound
		}
		st.todos[t.ID] = *t
		return nil
	})
}

func (r *todos) Get(_ context.Context, id uuid.UUID) (out *model.Todo, err error) {
	err = r.s.do(func(st *state) error {
		t, ok := st.todos[id]
		if !ok || t.DeletedAt != nil {
			return errs.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions already hold the store lock.
func (r *todos) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Todo, error) {
	return r.Get(ctx, id)
}

func (r *todos) Update(_ context.Context, t *model.Todo) error {
	return r.s.do(func(st *state) error {
		cur, ok := st.todos[t.ID]
		if !ok || cur.DeletedAt != nil {
			return errs.ErrNotFound
		}
		cur.Title, cur.Description, cur.DueDate = t.Title, t.Description, t.DueDate
		cur.IsCompleted, cur.CompletedAt, cur.UpdatedAt = t.IsCompleted, t.CompletedAt, t.UpdatedAt
		st.todos[t.ID] = cur
		return nil
	})
}

func (r *todos) Delete(_ context.Context, id uuid.UUID) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.todos[id]; !ok {
			return errs.ErrNotFound
		}
		delete(st.todos, id)
		return nil
	})
}

type audit struct{ s *Store }

func (r *audit) InsertDeletedTodo(_ context.Context, l *model.DeletedTodoLog) error {
	return r.s.do(func(st *state) error {
		for _, x := range st.deleted {
			if x.ID == l.ID || x.OriginalTodoID == l.OriginalTodoID {
				return errs.ErrConflict
			}
		}
		st.deleted[l.ID] = *l
		return nil
	})
}

func (r *audit) GetDeletedTodo(_ context.Context, id uuid.UUID) (out *model.DeletedTodoLog, err error) {
	err = r.s.do(func(st *state) error {
		l, ok := st.deleted[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *audit) GetDeletedTodoByOriginal(_ context.Context, todoID uuid.UUID) (out *model.DeletedTodoLog, err error) {
	err = r.s.do(func(st *state) error {
		for _, l := range st.deleted {
			if l.OriginalTodoID == todoID {
				out = &l
				return nil
			}
		}
		return errs.ErrNotFound
	})
	return out, err
}

func (r *audit) InsertAdminAction(_ context.Context, l *model.AdminAuditLog) error {
	return r.s.do(func(st *state) error {
		if _, ok := st.actions[l.ID]; ok {
			return errs.ErrConflict
		}
		st.actions[l.ID] = *l
		return nil
	})
}

func (r *audit) GetAdminAction(_ context.Context, id uuid.UUID) (out *model.AdminAuditLog, err error) {
	err = r.s.do(func(st *state) error {
		l, ok := st.actions[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *audit) ListAdminActions(_ context.Context, todoID uuid.UUID) ([]model.AdminAuditLog, error) {
	out := []model.AdminAuditLog{}
	err := r.s.do(func(st *state) error {
		for _, l := range st.actions {
			if l.TodoID == todoID {
				out = append(out, l)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b model.AdminAuditLog) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, err
}
