package service

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/clock"
	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/repository"
)

// TodoService defines the ownership-checked todo operations.
type TodoService interface {
	// Create adds a todo for owner. Users may only create for themselves.
	Create(ctx context.Context, actor model.Principal, owner uuid.UUID, in TodoInput) (*model.Todo, error)
	// Get returns a todo. Admin reads record a view audit entry in the same transaction.
	Get(ctx context.Context, actor model.Principal, id uuid.UUID, rationale *string) (*model.Todo, error)
	// Update applies a patch; omitted fields are kept, explicit nulls clear.
	Update(ctx context.Context, actor model.Principal, id uuid.UUID, patch TodoPatch) (*model.Todo, error)
}

// TodoInput is the create payload.
type TodoInput struct {
	Title       string
	Description *string
	DueDate     *time.Time
}

// TodoPatch is the update payload.
type TodoPatch struct {
	Title       model.Optional[string]
	Description model.Optional[string]
	DueDate     model.Optional[time.Time]
	IsCompleted model.Optional[bool]
}

// TodoServiceImpl implements TodoService.
type TodoServiceImpl struct {
	store repository.Store
	clock clock.Clock
}

// NewTodoService constructs TodoService.
func NewTodoService(store repository.Store, clk clock.Clock) *TodoServiceImpl {
	return &TodoServiceImpl{store: store, clock: clk}
}

type todoFields struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func validateTodo(t *model.Todo) error {
	f := todoFields{Title: t.Title, Description: t.Description}
	return errs.Invalid(validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&f.Description, validation.RuneLength(0, 2000)),
	))
}

// Create validates input and inserts a new live todo.
func (s *TodoServiceImpl) Create(ctx context.Context, actor model.Principal, owner uuid.UUID, in TodoInput) (*model.Todo, error) {
	if err := authorizeOwnership(actor, owner); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	t := &model.Todo{
		ID:          uuid.Must(uuid.NewV4()),
		OwnerID:     owner,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateTodo(t); err != nil {
		return nil, err
	}
	if err := s.store.Todos().Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get loads a todo. Non-owners get errs.ErrForbidden and never the data.
func (s *TodoServiceImpl) Get(ctx context.Context, actor model.Principal, id uuid.UUID, rationale *string) (*model.Todo, error) {
	if !actor.IsAdmin() {
		t, err := s.store.Todos().Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorizeOwnership(actor, t.OwnerID); err != nil {
			return nil, err
		}
		return t, nil
	}

	var t *model.Todo
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if t, err = tx.Todos().Get(ctx, id); err != nil {
			return err
		}
		return recordAction(ctx, tx, actor, t, model.AuditView, rationale, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies patch to a locked todo and keeps completedAt consistent with isCompleted.
func (s *TodoServiceImpl) Update(ctx context.Context, actor model.Principal, id uuid.UUID, patch TodoPatch) (*model.Todo, error) {
	var t *model.Todo
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		if t, err = tx.Todos().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := authorizeOwnership(actor, t.OwnerID); err != nil {
			return err
		}
		now := s.clock.Now()
		if err := applyPatch(t, patch, now); err != nil {
			return err
		}
		if err := validateTodo(t); err != nil {
			return err
		}
		t.UpdatedAt = now
		return tx.Todos().Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func applyPatch(t *model.Todo, p TodoPatch, now time.Time) error {
	if p.Title.Set {
		if p.Title.Value == nil {
			return errs.Invalid(validation.Errors{"title": errors.New("cannot be blank")})
		}
		t.Title = strings.TrimSpace(*p.Title.Value)
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value
	}
	if p.IsCompleted.Set {
		if p.IsCompleted.Value == nil {
			return errs.Invalid(validation.Errors{"isCompleted": errors.New("cannot be null")})
		}
		switch done := *p.IsCompleted.Value; {
		case done && !t.IsCompleted:
			t.IsCompleted, t.CompletedAt = true, &now
		case !done:
			t.IsCompleted, t.CompletedAt = false, nil
		}
	}
	return nil
}
