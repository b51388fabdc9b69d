package httpserver

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest accepts either field name for the refresh token.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	SessionToken string `json:"session_token"`
}

func (r refreshRequest) token() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.SessionToken
}

type tokenPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	ExpiredAt        time.Time `json:"expiredAt"`
	RefreshableUntil time.Time `json:"refreshableUntil"`
}

type tokenResponse struct {
	ID    uuid.UUID `json:"id"`
	Token tokenPair `json:"token"`
}

func toTokenResponse(r service.LoginResult) tokenResponse {
	return tokenResponse{
		ID: r.PrincipalID,
		Token: tokenPair{
			Access:           r.Tokens.AccessToken,
			Refresh:          r.Tokens.RefreshToken,
			ExpiredAt:        r.Tokens.AccessExpiry.UTC(),
			RefreshableUntil: r.Tokens.RefreshExpiry.UTC(),
		},
	}
}

type accountResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type createTodoRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

type patchTodoRequest struct {
	Title       model.Optional[string]    `json:"title"`
	Description model.Optional[string]    `json:"description"`
	DueDate     model.Optional[time.Time] `json:"dueDate"`
	IsCompleted model.Optional[bool]      `json:"isCompleted"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type todoResponse struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toTodo(t *model.Todo) todoResponse {
	return todoResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		IsCompleted: t.IsCompleted,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type deletedTodoResponse struct {
	ID                 uuid.UUID  `json:"id"`
	OriginalTodoID     uuid.UUID  `json:"originalTodoId"`
	OwnerID            uuid.UUID  `json:"ownerId"`
	Title              string     `json:"title"`
	Description        *string    `json:"description"`
	DueDate            *time.Time `json:"dueDate"`
	IsCompleted        bool       `json:"isCompleted"`
	CompletedAt        *time.Time `json:"completedAt"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	DeletedAt          time.Time  `json:"deletedAt"`
	RetentionExpiresAt *time.Time `json:"retentionExpiresAt"`
}

func toDeleted(l *model.DeletedTodoLog) deletedTodoResponse {
	return deletedTodoResponse{
		ID:                 l.ID,
		OriginalTodoID:     l.OriginalTodoID,
		OwnerID:            l.OwnerID,
		Title:              l.Title,
		Description:        l.Description,
		DueDate:            l.DueDate,
		IsCompleted:        l.IsCompleted,
		CompletedAt:        l.CompletedAt,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
		DeletedAt:          l.DeletedAt,
		RetentionExpiresAt: l.RetentionExpiresAt,
	}
}

type auditLogResponse struct {
	ID        uuid.UUID         `json:"id"`
	AdminID   uuid.UUID         `json:"adminId"`
	UserID    uuid.UUID         `json:"userId"`
	TodoID    uuid.UUID         `json:"todoId"`
	Action    model.AuditAction `json:"action"`
	Rationale *string           `json:"rationale"`
	CreatedAt time.Time         `json:"createdAt"`
}

func toAuditLog(l *model.AdminAuditLog) auditLogResponse {
	return auditLogResponse{
		ID:        l.ID,
		AdminID:   l.AdminID,
		UserID:    l.UserID,
		TodoID:    l.TodoID,
		Action:    l.Action,
		Rationale: l.Rationale,
		CreatedAt: l.CreatedAt,
	}
}
