package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository"
	"github.com/and161185/todo-keeper/internal/token"
)

// Identity is an authenticated principal plus the session its access token belongs to.
type Identity struct {
	Principal model.Principal
	SessionID uuid.UUID
}

// Guard resolves bearer tokens into principals and enforces ownership.
// Every call re-reads the principal so disables take effect immediately.
type Guard struct {
	tokens *token.Service
	store  repository.Store
}

// NewGuard constructs a Guard.
func NewGuard(tokens *token.Service, store repository.Store) *Guard {
	return &Guard{tokens: tokens, store: store}
}

// Authenticate resolves an Authorization header value into a principal of the expected kind.
func (g *Guard) Authenticate(ctx context.Context, header string, expected model.PrincipalType) (model.Principal, error) {
	id, err := g.Resolve(ctx, header, expected)
	return id.Principal, err
}

// Resolve is Authenticate that also reports the session id carried by the access token.
func (g *Guard) Resolve(ctx context.Context, header string, expected model.PrincipalType) (Identity, error) {
	raw, ok := bearer(header)
	if !ok {
		return Identity{}, errs.ErrUnauthenticated
	}
	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return Identity{}, errs.ErrUnauthenticated
	}
	if claims.Type != expected {
		return Identity{}, errs.ErrForbidden
	}
	acct, err := accountsFor(g.store, expected).GetByID(ctx, claims.PrincipalID)
	if errors.Is(err, errs.ErrNotFound) {
		return Identity{}, errs.ErrForbidden
	}
	if err != nil {
		return Identity{}, err
	}
	if !acct.Enrolled() {
		return Identity{}, errs.ErrForbidden
	}
	return Identity{
		Principal: model.Principal{ID: acct.ID, Type: expected},
		SessionID: claims.SessionID,
	}, nil
}

// AuthorizeOwnership allows admins on any resource and users only on their own.
func (g *Guard) AuthorizeOwnership(p model.Principal, ownerID uuid.UUID) error {
	return authorizeOwnership(p, ownerID)
}

func authorizeOwnership(p model.Principal, ownerID uuid.UUID) error {
	if p.IsAdmin() || p.ID == ownerID {
		return nil
	}
	return errs.ErrForbidden
}

func bearer(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
