package service

import (
	"context"
	"errors"
	"slices"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/clock"
	pkgcrypto "github.com/and161185/todo-keeper/internal/crypto"
	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository"
)

var errUnknownStatus = errors.New("status: must be active or disabled")

// AdminService groups admin-only account and audit operations.
type AdminService struct {
	store  repository.Store
	hasher pkgcrypto.Hasher
	clock  clock.Clock
}

// NewAdminService constructs AdminService.
func NewAdminService(store repository.Store, hasher pkgcrypto.Hasher, clk clock.Clock) *AdminService {
	return &AdminService{store: store, hasher: hasher, clock: clk}
}

// CreateAdmin inserts an active admin. Used for bootstrap; it performs no caller check.
func (s *AdminService) CreateAdmin(ctx context.Context, email, password string) (model.Account, error) {
	return createAccount(ctx, s.store.Admins(), s.hasher, s.clock, email, password)
}

// SetUserStatus enables or disables a user. Disabled users fail authentication on their next request.
func (s *AdminService) SetUserStatus(ctx context.Context, userID uuid.UUID, status string) error {
	if status != model.StatusActive && status != model.StatusDisabled {
		return errs.Invalid(errUnknownStatus)
	}
	return s.store.Users().SetStatus(ctx, userID, status, s.clock.Now())
}

// DeleteAdmin removes an admin account. Removing the last active admin is refused
// with errs.ErrConflict; the check runs with all active admin rows locked.
func (s *AdminService) DeleteAdmin(ctx context.Context, actor model.Principal, targetID uuid.UUID) error {
	if !actor.IsAdmin() {
		return errs.ErrForbidden
	}
	return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		active, err := tx.Admins().LockActive(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Admins().GetByID(ctx, targetID); err != nil {
			return err
		}
		if slices.Contains(active, targetID) && len(active) <= 1 {
			return errs.ErrConflict
		}
		return tx.Admins().Delete(ctx, targetID)
	})
}

// GetAuditLog returns one admin audit record. Only admins may read the audit log.
func (s *AdminService) GetAuditLog(ctx context.Context, actor model.Principal, id uuid.UUID) (*model.AdminAuditLog, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrForbidden
	}
	return s.store.Audit().GetAdminAction(ctx, id)
}

// ListAuditLogs returns every admin action recorded against one todo, oldest first.
func (s *AdminService) ListAuditLogs(ctx context.Context, actor model.Principal, todoID uuid.UUID) ([]model.AdminAuditLog, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrForbidden
	}
	return s.store.Audit().ListAdminActions(ctx, todoID)
}
