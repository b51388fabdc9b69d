package postgres

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
)

// TodoRepo implements TodoRepository using PostgreSQL.
type TodoRepo struct{ q Querier }

const todoColumns = `id, owner_id, title, description, due_date, is_completed, completed_at, created_at, updated_at, deleted_at`

// Create inserts a todo row.
func (r *TodoRepo) Create(ctx context.Context, t *model.Todo) error {
	const q = `
INSERT INTO todos (id, owner_id, title, description, due_date, is_completed, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, q, t.ID, t.OwnerID, t.Title, t.Description, t.DueDate,
		t.IsCompleted, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	if isForeignKeyViolation(err) {
		return errs.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

// Get selects a live todo by id.
func (r *TodoRepo) Get(ctx context.Context, id uuid.UUID) (*model.Todo, error) {
	const q = `SELECT ` + todoColumns + ` FROM todos WHERE id=$1 AND deleted_at IS NULL`
	return scanTodo(r.q.QueryRow(ctx, q, id))
}

// GetForUpdate selects and locks a live todo by id.
func (r *TodoRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Todo, error) {
	const q = `SELECT ` + todoColumns + ` FROM todos WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`
	return scanTodo(r.q.QueryRow(ctx, q, id))
}

// Update writes the mutable fields of a live todo.
func (r *TodoRepo) Update(ctx context.Context, t *model.Todo) error {
	const q = `
UPDATE todos
SET title=$2, description=$3, due_date=$4, is_completed=$5, completed_at=$6, updated_at=$7
WHERE id=$1 AND deleted_at IS NULL`
	return mustAffect(r.q.Exec(ctx, q, t.ID, t.Title, t.Description, t.DueDate,
		t.IsCompleted, t.CompletedAt, t.UpdatedAt))
}

// Delete hard-deletes a todo row.
func (r *TodoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM todos WHERE id=$1`
	return mustAffect(r.q.Exec(ctx, q, id))
}

func scanTodo(row interface{ Scan(...any) error }) (*model.Todo, error) {
	var t model.Todo
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.DueDate, &t.IsCompleted,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt); err != nil {
		return nil, scanErr("get todo", err)
	}
	return &t, nil
}
