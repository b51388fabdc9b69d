package httpserver

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/todo-keeper/internal/errs"
	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/service"
)

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid input")
	}
	return nil
}

// uuidParam treats a malformed id like an unknown one.
func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Params(name))
	if err != nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

func sessionMeta(c *fiber.Ctx) model.SessionMeta {
	return model.SessionMeta{UserAgent: c.Get(fiber.HeaderUserAgent), IPAddress: c.IP()}
}

func (s *Server) register(c *fiber.Ctx) error {
	var in credentialsRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	a, err := s.svc.Auth.Register(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(accountResponse{ID: a.ID, Email: a.Email})
}

func (s *Server) login(kind model.PrincipalType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in credentialsRequest
		if err := parseBody(c, &in); err != nil {
			return err
		}
		res, err := s.svc.Auth.Login(c.UserContext(), kind, in.Email, in.Password, sessionMeta(c))
		if err != nil {
			return err
		}
		return c.JSON(toTokenResponse(res))
	}
}

func (s *Server) refresh(kind model.PrincipalType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in refreshRequest
		if err := parseBody(c, &in); err != nil {
			return err
		}
		if in.token() == "" {
			return errs.ErrSessionInvalid
		}
		res, err := s.svc.Auth.Refresh(c.UserContext(), kind, in.token(), sessionMeta(c))
		if err != nil {
			return err
		}
		return c.JSON(toTokenResponse(res))
	}
}

func (s *Server) logout(c *fiber.Ctx) error {
	id := identity(c)
	if err := s.svc.Auth.Logout(c.UserContext(), id.Principal, id.SessionID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) createOwnTodo(c *fiber.Ctx) error {
	return s.createTodo(c, principal(c).ID)
}

func (s *Server) createTodoFor(c *fiber.Ctx) error {
	owner, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	return s.createTodo(c, owner)
}

func (s *Server) createTodo(c *fiber.Ctx, owner uuid.UUID) error {
	var in createTodoRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	t, err := s.svc.Todos.Create(c.UserContext(), principal(c), owner, service.TodoInput{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTodo(t))
}

func (s *Server) getTodo(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var rationale *string
	if r := c.Query("rationale"); r != "" {
		rationale = &r
	}
	t, err := s.svc.Todos.Get(c.UserContext(), principal(c), id, rationale)
	if err != nil {
		return err
	}
	return c.JSON(toTodo(t))
}

func (s *Server) updateTodo(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in patchTodoRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	t, err := s.svc.Todos.Update(c.UserContext(), principal(c), id, service.TodoPatch{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		IsCompleted: in.IsCompleted,
	})
	if err != nil {
		return err
	}
	return c.JSON(toTodo(t))
}

func (s *Server) deleteTodo(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Deletion.DeleteTodo(c.UserContext(), principal(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getDeletedLog(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	l, err := s.svc.Deletion.GetDeletedLog(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(toDeleted(l))
}

func (s *Server) findDeletedLog(c *fiber.Ctx) error {
	todoID, err := uuid.FromString(c.Query("todoId"))
	if err != nil {
		return errs.ErrNotFound
	}
	l, err := s.svc.Deletion.FindDeletedLog(c.UserContext(), principal(c), todoID)
	if err != nil {
		return err
	}
	return c.JSON(toDeleted(l))
}

func (s *Server) getAuditLog(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	l, err := s.svc.Admin.GetAuditLog(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(toAuditLog(l))
}

func (s *Server) listAuditLogs(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	logs, err := s.svc.Admin.ListAuditLogs(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	out := make([]auditLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, toAuditLog(&logs[i]))
	}
	return c.JSON(out)
}

func (s *Server) setUserStatus(c *fiber.Ctx) error {
	id, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	var in statusRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := s.svc.Admin.SetUserStatus(c.UserContext(), id, in.Status); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteAdmin(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := s.svc.Admin.DeleteAdmin(c.UserContext(), principal(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
