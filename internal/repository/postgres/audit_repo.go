package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
)

// AuditRepo implements AuditRepository using PostgreSQL. It never updates or deletes.
type AuditRepo struct{ q Querier }

// InsertDeletedTodo writes a deletion snapshot.
func (r *AuditRepo) InsertDeletedTodo(ctx context.Context, l *model.DeletedTodoLog) error {
	const q = `
INSERT INTO deleted_todo_logs (id, original_todo_id, owner_id, title, description, due_date,
  is_completed, completed_at, created_at, updated_at, deleted_at, retention_expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, q, l.ID, l.OriginalTodoID, l.OwnerID, l.Title, l.Description, l.DueDate,
		l.IsCompleted, l.CompletedAt, l.CreatedAt, l.UpdatedAt, l.DeletedAt, l.RetentionExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert deleted todo log: %w", err)
	}
	return nil
}

const deletedColumns = `id, original_todo_id, owner_id, title, description, due_date, is_completed, completed_at,
  created_at, updated_at, deleted_at, retention_expires_at`

// GetDeletedTodo selects a deletion snapshot by id.
func (r *AuditRepo) GetDeletedTodo(ctx context.Context, id uuid.UUID) (*model.DeletedTodoLog, error) {
	const q = `SELECT ` + deletedColumns + ` FROM deleted_todo_logs WHERE id=$1`
	return scanDeleted(r.q.QueryRow(ctx, q, id))
}

// GetDeletedTodoByOriginal selects the snapshot of a deleted todo.
func (r *AuditRepo) GetDeletedTodoByOriginal(ctx context.Context, todoID uuid.UUID) (*model.DeletedTodoLog, error) {
	const q = `SELECT ` + deletedColumns + ` FROM deleted_todo_logs WHERE original_todo_id=$1`
	return scanDeleted(r.q.QueryRow(ctx, q, todoID))
}

func scanDeleted(row interface{ Scan(...any) error }) (*model.DeletedTodoLog, error) {
	var l model.DeletedTodoLog
	err := row.Scan(&l.ID, &l.OriginalTodoID, &l.OwnerID, &l.Title, &l.Description,
		&l.DueDate, &l.IsCompleted, &l.CompletedAt, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt, &l.RetentionExpiresAt)
	if err != nil {
		return nil, scanErr("get deleted todo log", err)
	}
	return &l, nil
}

// InsertAdminAction writes an admin audit record.
func (r *AuditRepo) InsertAdminAction(ctx context.Context, l *model.AdminAuditLog) error {
	const q = `
INSERT INTO admin_audit_logs (id, admin_id, user_id, todo_id, action, rationale, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, q, l.ID, l.AdminID, l.UserID, l.TodoID, string(l.Action), l.Rationale, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert admin audit log: %w", err)
	}
	return nil
}

const actionColumns = `id, admin_id, user_id, todo_id, action, rationale, created_at`

// GetAdminAction selects an admin audit record by id.
func (r *AuditRepo) GetAdminAction(ctx context.Context, id uuid.UUID) (*model.AdminAuditLog, error) {
	const q = `SELECT ` + actionColumns + ` FROM admin_audit_logs WHERE id=$1`
	l, err := scanAction(r.q.QueryRow(ctx, q, id))
	if err != nil {
		return nil, scanErr("get admin audit log", err)
	}
	return l, nil
}

// ListAdminActions selects all audit records of one todo in creation order.
func (r *AuditRepo) ListAdminActions(ctx context.Context, todoID uuid.UUID) ([]model.AdminAuditLog, error) {
	const q = `SELECT ` + actionColumns + ` FROM admin_audit_logs WHERE todo_id=$1 ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, q, todoID)
	if err != nil {
		return nil, fmt.Errorf("list admin audit logs: %w", err)
	}
	defer rows.Close()

	out := []model.AdminAuditLog{}
	for rows.Next() {
		l, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admin audit log: %w", err)
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list admin audit logs: %w", err)
	}
	return out, nil
}

func scanAction(row interface{ Scan(...any) error }) (*model.AdminAuditLog, error) {
	var (
		l      model.AdminAuditLog
		action string
	)
	if err := row.Scan(&l.ID, &l.AdminID, &l.UserID, &l.TodoID, &action, &l.Rationale, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Action = model.AuditAction(action)
	return &l, nil
}
