// Package token mints and verifies the signed access and refresh tokens.
package token

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/todo-keeper/internal/clock"
	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
)

const purposeRefresh = "refresh"

// Claims is the payload of both token kinds. Refresh tokens carry SessionID and Purpose.
type Claims struct {
	jwt.RegisteredClaims
	PrincipalID string `json:"id"`
	Type        string `json:"type"`
	SessionID   string `json:"sessionId,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
}

// Payload is the verified content of a token.
type Payload struct {
	PrincipalID uuid.UUID
	Type        model.PrincipalType
	SessionID   uuid.UUID
	ExpiresAt   time.Time
}

// Config holds the single signing secret and token lifetimes.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service signs tokens with HS256 using one process-wide secret.
type Service struct {
	cfg   Config
	clock clock.Clock
}

// NewService constructs a token service.
func NewService(cfg Config, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{cfg: cfg, clock: clk}
}

// Issue signs a new access/refresh pair for the principal and session.
// The access token's jti is the session id.
func (s *Service) Issue(principalID uuid.UUID, typ model.PrincipalType, sessionID uuid.UUID) (model.Tokens, error) {
	now := s.clock.Now().Truncate(time.Second)
	accessExp := now.Add(s.cfg.AccessTTL)
	refreshExp := now.Add(s.cfg.RefreshTTL)

	access := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   principalID.String(),
			ID:        sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
		PrincipalID: principalID.String(),
		Type:        string(typ),
	}
	refresh := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   principalID.String(),
			ID:        uuid.Must(uuid.NewV4()).String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
		PrincipalID: principalID.String(),
		Type:        string(typ),
		SessionID:   sessionID.String(),
		Purpose:     purposeRefresh,
	}

	accessTok, err := s.sign(access)
	if err != nil {
		return model.Tokens{}, err
	}
	refreshTok, err := s.sign(refresh)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{
		AccessToken:   accessTok,
		RefreshToken:  refreshTok,
		AccessExpiry:  accessExp.UTC(),
		RefreshExpiry: refreshExp.UTC(),
	}, nil
}

func (s *Service) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.cfg.Secret)
}

// Verify validates an access token. Every failure is errs.ErrInvalidToken.
func (s *Service) Verify(raw string) (Payload, error) {
	c, err := s.parse(raw)
	if err != nil || c.Purpose != "" {
		return Payload{}, errs.ErrInvalidToken
	}
	p, err := payloadOf(c)
	if err != nil {
		return Payload{}, errs.ErrInvalidToken
	}
	if c.ID != "" {
		if p.SessionID, err = uuid.FromString(c.ID); err != nil {
			return Payload{}, errs.ErrInvalidToken
		}
	}
	return p, nil
}

// VerifyRefresh validates a refresh token and returns its session id.
func (s *Service) VerifyRefresh(raw string) (Payload, error) {
	c, err := s.parse(raw)
	if err != nil || c.Purpose != purposeRefresh {
		return Payload{}, errs.ErrInvalidToken
	}
	p, err := payloadOf(c)
	if err != nil {
		return Payload{}, errs.ErrInvalidToken
	}
	if p.SessionID, err = uuid.FromString(c.SessionID); err != nil {
		return Payload{}, errs.ErrInvalidToken
	}
	return p, nil
}

func (s *Service) parse(raw string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func payloadOf(c *Claims) (Payload, error) {
	id, err := uuid.FromString(c.PrincipalID)
	if err != nil {
		return Payload{}, err
	}
	typ := model.PrincipalType(c.Type)
	if !typ.Valid() {
		return Payload{}, errs.ErrInvalidToken
	}
	p := Payload{PrincipalID: id, Type: typ}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return p, nil
}
