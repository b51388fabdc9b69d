// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// PrincipalType discriminates the two kinds of authenticated actors.
type PrincipalType string

const (
	PrincipalUser  PrincipalType = "user"
	PrincipalAdmin PrincipalType = "admin"
)

// Valid reports whether t is a known principal type.
func (t PrincipalType) Valid() bool { return t == PrincipalUser || t == PrincipalAdmin }

// Principal is the minimal resolved identity of a request. It never carries credentials.
type Principal struct {
	ID   uuid.UUID
	Type PrincipalType
}

// IsAdmin reports whether the principal holds the administrative override.
func (p Principal) IsAdmin() bool { return p.Type == PrincipalAdmin }

// Account status values.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Account is a login-capable row from either the users or the admins table.
type Account struct {
	ID           uuid.UUID
	Email        string // stored lower-cased
	PasswordHash string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time // users only; nil for admins
}

// Enrolled reports whether the account may authenticate.
func (a *Account) Enrolled() bool {
	return a != nil && a.DeletedAt == nil && a.Status == StatusActive
}

// Tokens collects a freshly issued access/refresh pair with absolute expiries.
type Tokens struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// SessionMeta is client metadata captured at login/refresh.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// Session backs one issued refresh token. Rows are revoked, never deleted.
type Session struct {
	ID            uuid.UUID
	PrincipalID   uuid.UUID
	PrincipalType PrincipalType
	TokenHash     string // hex(sha256(refresh token))
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	UserAgent     *string
	IPAddress     *string
}

// Active reports whether the session may still be used at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// Todo is a live todo item owned by exactly one user.
type Todo struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description *string
	DueDate     *time.Time
	IsCompleted bool
	CompletedAt *time.Time // non-nil iff IsCompleted
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// DeletedTodoLog is the immutable snapshot written when a todo is deleted.
type DeletedTodoLog struct {
	ID                 uuid.UUID
	OriginalTodoID     uuid.UUID
	OwnerID            uuid.UUID
	Title              string
	Description        *string
	DueDate            *time.Time
	IsCompleted        bool
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          time.Time
	RetentionExpiresAt *time.Time // nil keeps the log readable forever
}

// Readable reports whether the log is still within its retention window at now.
func (l *DeletedTodoLog) Readable(now time.Time) bool {
	return l.RetentionExpiresAt == nil || now.Before(*l.RetentionExpiresAt)
}

// AuditAction is a privileged admin action recorded in the audit log.
type AuditAction string

const (
	AuditView   AuditAction = "view"
	AuditDelete AuditAction = "delete"
)

// AdminAuditLog records one privileged admin action on a user's todo.
type AdminAuditLog struct {
	ID        uuid.UUID
	AdminID   uuid.UUID
	UserID    uuid.UUID
	TodoID    uuid.UUID
	Action    AuditAction
	Rationale *string
	CreatedAt time.Time
}
