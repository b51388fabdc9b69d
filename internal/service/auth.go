// Package service contains application services for authentication, todos and their audit trail.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/todo-keeper/internal/clock"
	pkgcrypto "github.com/and161185/todo-keeper/internal/crypto"
	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/limiter"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository"
	"github.com/and161185/todo-keeper/internal/token"
)

// AuthService defines credential and session operations for both principal kinds.
type AuthService interface {
	// Register creates a new active user.
	Register(ctx context.Context, email, password string) (model.Account, error)
	// Login verifies credentials, applies rate limiting and opens a new session.
	Login(ctx context.Context, kind model.PrincipalType, email, password string, meta model.SessionMeta) (LoginResult, error)
	// Refresh rotates the session behind a refresh token: the old session is revoked
	// and a new one created in the same transaction.
	Refresh(ctx context.Context, kind model.PrincipalType, refreshToken string, meta model.SessionMeta) (LoginResult, error)
	// Logout revokes the session bound to the caller's access token. It is idempotent.
	Logout(ctx context.Context, p model.Principal, sessionID uuid.UUID) error
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	PrincipalID uuid.UUID
	Tokens      model.Tokens
}

// AuthServiceImpl implements AuthService.
type AuthServiceImpl struct {
	store  repository.Store
	tokens *token.Service
	hasher pkgcrypto.Hasher
	lim    limiter.Limiter
	clock  clock.Clock
	log    *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(store repository.Store, tokens *token.Service, hasher pkgcrypto.Hasher,
	lim limiter.Limiter, clk clock.Clock, log *zap.Logger) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Disabled{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{store: store, tokens: tokens, hasher: hasher, lim: lim, clock: clk, log: log}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c credentials) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&c.Password, validation.Required, validation.RuneLength(8, 128)),
	)
}

func accountsFor(s repository.Store, kind model.PrincipalType) repository.AccountRepository {
	if kind == model.PrincipalAdmin {
		return s.Admins()
	}
	return s.Users()
}

// Register creates a user with a freshly hashed password.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password string) (model.Account, error) {
	return createAccount(ctx, s.store.Users(), s.hasher, s.clock, email, password)
}

func createAccount(ctx context.Context, repo repository.AccountRepository, hasher pkgcrypto.Hasher,
	clk clock.Clock, email, password string) (model.Account, error) {
	in := credentials{Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
	if err := in.validate(); err != nil {
		return model.Account{}, errs.Invalid(err)
	}
	hash, err := hasher.Hash(in.Password)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Account{}, err
	}
	now := clk.Now()
	a := model.Account{
		ID:           id,
		Email:        in.Email,
		PasswordHash: hash,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(ctx, &a); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// Login authenticates with rate limiting by (kind, email, ip).
// Unknown emails, wrong passwords and disabled accounts fail identically.
func (s *AuthServiceImpl) Login(ctx context.Context, kind model.PrincipalType, email, password string, meta model.SessionMeta) (LoginResult, error) {
	if !kind.Valid() {
		return LoginResult{}, errs.ErrUnauthenticated
	}
	email = strings.ToLower(strings.TrimSpace(email))
	key := limiter.NewKey(string(kind), email, meta.IPAddress)

	allowed, _, err := s.lim.Allow(ctx, key)
	if err != nil {
		return LoginResult{}, fmt.Errorf("limiter allow: %w", err)
	}
	if !allowed {
		return LoginResult{}, errs.ErrRateLimited
	}

	acct, err := accountsFor(s.store, kind).GetByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		// keep timing close to the wrong-password path
		s.hasher.Verify(password, s.dummy())
		return LoginResult{}, s.failed(ctx, key)
	case err != nil:
		return LoginResult{}, err
	}
	if !s.hasher.Verify(password, acct.PasswordHash) || !acct.Enrolled() {
		return LoginResult{}, s.failed(ctx, key)
	}

	if err := s.lim.Success(ctx, key); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}

	var tokens model.Tokens
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		tokens, err = s.openSession(ctx, tx, model.Principal{ID: acct.ID, Type: kind}, meta)
		return err
	})
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{PrincipalID: acct.ID, Tokens: tokens}, nil
}

// failed records the failure and returns the error the caller should see.
func (s *AuthServiceImpl) failed(ctx context.Context, key limiter.Key) error {
	blocked, _, err := s.lim.Failure(ctx, key)
	if err != nil {
		s.log.Warn("limiter failure record failed", zap.Error(err))
		return errs.ErrUnauthenticated
	}
	if blocked {
		return errs.ErrRateLimited
	}
	return errs.ErrUnauthenticated
}

func (s *AuthServiceImpl) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}

// Refresh exchanges a refresh token for a new pair. The presented token becomes unusable.
func (s *AuthServiceImpl) Refresh(ctx context.Context, kind model.PrincipalType, refreshToken string, meta model.SessionMeta) (LoginResult, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return LoginResult{}, err
	}
	if claims.Type != kind {
		return LoginResult{}, errs.ErrForbidden
	}
	acct, err := accountsFor(s.store, kind).GetByID(ctx, claims.PrincipalID)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && !acct.Enrolled()) {
		return LoginResult{}, errs.ErrForbidden
	}
	if err != nil {
		return LoginResult{}, err
	}

	digest := pkgcrypto.TokenDigest(refreshToken)
	p := model.Principal{ID: claims.PrincipalID, Type: kind}
	var tokens model.Tokens
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		now := s.clock.Now()
		old, err := tx.Sessions().FindActiveByToken(ctx, digest, now)
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrSessionInvalid
		}
		if err != nil {
			return err
		}
		if old.ID != claims.SessionID || old.PrincipalID != p.ID || old.PrincipalType != kind {
			return errs.ErrSessionInvalid
		}
		revoked, err := tx.Sessions().Revoke(ctx, old.ID, now)
		if err != nil {
			return err
		}
		if !revoked {
			return errs.ErrSessionInvalid
		}
		tokens, err = s.openSession(ctx, tx, p, meta)
		return err
	})
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{PrincipalID: p.ID, Tokens: tokens}, nil
}

// openSession issues a token pair for a new session id and persists the session.
func (s *AuthServiceImpl) openSession(ctx context.Context, tx repository.Store, p model.Principal, meta model.SessionMeta) (model.Tokens, error) {
	sid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, err
	}
	tokens, err := s.tokens.Issue(p.ID, p.Type, sid)
	if err != nil {
		return model.Tokens{}, fmt.Errorf("issue tokens: %w", err)
	}
	sess := &model.Session{
		ID:            sid,
		PrincipalID:   p.ID,
		PrincipalType: p.Type,
		TokenHash:     pkgcrypto.TokenDigest(tokens.RefreshToken),
		IssuedAt:      s.clock.Now(),
		ExpiresAt:     tokens.RefreshExpiry,
		UserAgent:     nonEmpty(meta.UserAgent),
		IPAddress:     nonEmpty(meta.IPAddress),
	}
	if err := tx.Sessions().Create(ctx, sess); err != nil {
		return model.Tokens{}, err
	}
	return tokens, nil
}

// Logout revokes the caller's session. Unknown or foreign sessions are ignored.
func (s *AuthServiceImpl) Logout(ctx context.Context, p model.Principal, sessionID uuid.UUID) error {
	sess, err := s.store.Sessions().GetByID(ctx, sessionID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.PrincipalID != p.ID || sess.PrincipalType != p.Type {
		return nil
	}
	_, err = s.store.Sessions().Revoke(ctx, sessionID, s.clock.Now())
	return err
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
