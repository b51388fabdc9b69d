package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
)

// AccountRepo implements AccountRepository for one principal table.
type AccountRepo struct {
	q       Querier
	table   string
	columns string
}

func newUserRepo(q Querier) *AccountRepo {
	return &AccountRepo{q: q, table: "users",
		columns: "id, email, password_hash, status, created_at, updated_at, deleted_at"}
}

// admins have no soft-delete column; a typed NULL keeps one scan path.
func newAdminRepo(q Querier) *AdminRepo {
	return &AdminRepo{AccountRepo{q: q, table: "admins",
		columns: "id, email, password_hash, status, created_at, updated_at, NULL::timestamptz AS deleted_at"}}
}

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	q := `
INSERT INTO ` + r.table + ` (id, email, password_hash, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, q, a.ID, strings.ToLower(a.Email), a.PasswordHash, a.Status, a.CreatedAt, a.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.table, err)
	}
	return nil
}

// GetByID selects an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	q := `SELECT ` + r.columns + ` FROM ` + r.table + ` WHERE id=$1`
	return r.scan(r.q.QueryRow(ctx, q, id), "get "+r.table)
}

// GetByEmail selects an account by case-insensitive email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	q := `SELECT ` + r.columns + ` FROM ` + r.table + ` WHERE lower(email)=$1`
	return r.scan(r.q.QueryRow(ctx, q, strings.ToLower(email)), "get "+r.table)
}

// SetStatus updates the account status.
func (r *AccountRepo) SetStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) error {
	q := `UPDATE ` + r.table + ` SET status=$2, updated_at=$3 WHERE id=$1`
	return mustAffect(r.q.Exec(ctx, q, id, status, now))
}

func (r *AccountRepo) scan(row interface{ Scan(...any) error }, op string) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Status, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt); err != nil {
		return nil, scanErr(op, err)
	}
	return &a, nil
}

// AdminRepo implements AdminRepository.
type AdminRepo struct{ AccountRepo }

// LockActive locks every active admin row for the rest of the transaction.
func (r *AdminRepo) LockActive(ctx context.Context) ([]uuid.UUID, error) {
	const q = `SELECT id FROM admins WHERE status='active' ORDER BY id FOR UPDATE`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lock admins: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes an admin row.
func (r *AdminRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM admins WHERE id=$1`
	return mustAffect(r.q.Exec(ctx, q, id))
}
