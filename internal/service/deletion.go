package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/clock"
	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository"
)

// DeletionService deletes todos together with their audit snapshot and records admin actions.
type DeletionService struct {
	store     repository.Store
	clock     clock.Clock
	retention time.Duration
}

// NewDeletionService constructs a DeletionService. A zero retention keeps snapshots readable forever.
func NewDeletionService(store repository.Store, clk clock.Clock, retention time.Duration) *DeletionService {
	return &DeletionService{store: store, clock: clk, retention: retention}
}

// DeleteTodo hard-deletes a todo and writes its snapshot in one transaction.
// Admin deletions also write an audit record. Of two concurrent calls exactly one
// succeeds; the other observes errs.ErrNotFound.
func (s *DeletionService) DeleteTodo(ctx context.Context, actor model.Principal, todoID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		t, err := tx.Todos().GetForUpdate(ctx, todoID)
		if err != nil {
			return err
		}
		if err := authorizeOwnership(actor, t.OwnerID); err != nil {
			return err
		}

		now := s.clock.Now()
		snap := &model.DeletedTodoLog{
			ID:             uuid.Must(uuid.NewV4()),
			OriginalTodoID: t.ID,
			OwnerID:        t.OwnerID,
			Title:          t.Title,
			Description:    t.Description,
			DueDate:        t.DueDate,
			IsCompleted:    t.IsCompleted,
			CompletedAt:    t.CompletedAt,
			CreatedAt:      t.CreatedAt,
			UpdatedAt:      t.UpdatedAt,
			DeletedAt:      now,
		}
		if s.retention > 0 {
			exp := now.Add(s.retention)
			snap.RetentionExpiresAt = &exp
		}
		if err := tx.Audit().InsertDeletedTodo(ctx, snap); err != nil {
			return err
		}
		if err := tx.Todos().Delete(ctx, t.ID); err != nil {
			return err
		}
		if actor.IsAdmin() {
			return recordAction(ctx, tx, actor, t, model.AuditDelete, nil, now)
		}
		return nil
	})
}

// RecordAdminView writes a view audit record. Callers must fail the read if it fails.
func (s *DeletionService) RecordAdminView(ctx context.Context, admin model.Principal, userID, todoID uuid.UUID, rationale *string) error {
	if !admin.IsAdmin() {
		return errs.ErrForbidden
	}
	t := &model.Todo{ID: todoID, OwnerID: userID}
	return recordAction(ctx, s.store, admin, t, model.AuditView, rationale, s.clock.Now())
}

func recordAction(ctx context.Context, st repository.Store, admin model.Principal, t *model.Todo,
	action model.AuditAction, rationale *string, now time.Time) error {
	return st.Audit().InsertAdminAction(ctx, &model.AdminAuditLog{
		ID:        uuid.Must(uuid.NewV4()),
		AdminID:   admin.ID,
		UserID:    t.OwnerID,
		TodoID:    t.ID,
		Action:    action,
		Rationale: rationale,
		CreatedAt: now,
	})
}

// GetDeletedLog returns a snapshot to its owner or any admin. Foreign and expired
// snapshots are reported as errs.ErrNotFound.
func (s *DeletionService) GetDeletedLog(ctx context.Context, requester model.Principal, logID uuid.UUID) (*model.DeletedTodoLog, error) {
	l, err := s.store.Audit().GetDeletedTodo(ctx, logID)
	if err != nil {
		return nil, err
	}
	return s.visible(requester, l)
}

func (s *DeletionService) visible(requester model.Principal, l *model.DeletedTodoLog) (*model.DeletedTodoLog, error) {
	if !requester.IsAdmin() && l.OwnerID != requester.ID {
		return nil, errs.ErrNotFound
	}
	if !l.Readable(s.clock.Now()) {
		return nil, errs.ErrNotFound
	}
	return l, nil
}

// FindDeletedLog returns the snapshot of a deleted todo under the same rules as GetDeletedLog.
func (s *DeletionService) FindDeletedLog(ctx context.Context, requester model.Principal, todoID uuid.UUID) (*model.DeletedTodoLog, error) {
	l, err := s.store.Audit().GetDeletedTodoByOriginal(ctx, todoID)
	if err != nil {
		return nil, err
	}
	return s.visible(requester, l)
}
