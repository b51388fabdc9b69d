// Package httpserver exposes the todo API over HTTP using fiber.
package httpserver

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/service"
)

// Services are the application services the handlers call into.
type Services struct {
	Auth     service.AuthService
	Guard    *service.Guard
	Todos    service.TodoService
	Deletion *service.DeletionService
	Admin    *service.AdminService
}

// Server holds the handlers.
type Server struct {
	svc Services
	log *zap.Logger
}

// New builds the fiber application with middleware and every route registered.
func New(svc Services, log *zap.Logger) *fiber.App {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, log: log}

	app := fiber.New(fiber.Config{
		AppName:               "todo-keeper",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})
	app.Use(requestLog(log), recoverPanic(log))
	s.routes(app)
	return app
}

func (s *Server) routes(app *fiber.App) {
	userAuth := authenticate(s.svc.Guard, model.PrincipalUser)
	adminAuth := authenticate(s.svc.Guard, model.PrincipalAdmin)

	auth := app.Group("/auth")
	auth.Post("/user/register", s.register)
	auth.Post("/user/login", s.login(model.PrincipalUser))
	auth.Post("/user/refresh", s.refresh(model.PrincipalUser))
	auth.Post("/user/logout", userAuth, s.logout)
	auth.Post("/admin/login", s.login(model.PrincipalAdmin))
	auth.Post("/admin/refresh", s.refresh(model.PrincipalAdmin))
	auth.Post("/admin/logout", adminAuth, s.logout)

	app.Post("/todos", userAuth, s.createOwnTodo)
	app.Get("/todos/:id", userAuth, s.getTodo)
	app.Patch("/todos/:id", userAuth, s.updateTodo)
	app.Delete("/todos/:id", userAuth, s.deleteTodo)
	app.Get("/deletedTodoLogs", userAuth, s.findDeletedLog)
	app.Get("/deletedTodoLogs/:id", userAuth, s.getDeletedLog)
	app.Get("/auditLogs/:id", adminAuth, s.getAuditLog)

	admin := app.Group("/admin", adminAuth)
	admin.Post("/users/:userId/todos", s.createTodoFor)
	admin.Put("/users/:userId/status", s.setUserStatus)
	admin.Get("/todos/:id", s.getTodo)
	admin.Patch("/todos/:id", s.updateTodo)
	admin.Delete("/todos/:id", s.deleteTodo)
	admin.Get("/todos/:id/auditLogs", s.listAuditLogs)
	admin.Get("/deletedTodoLogs", s.findDeletedLog)
	admin.Get("/deletedTodoLogs/:id", s.getDeletedLog)
	admin.Delete("/admins/:id", s.deleteAdmin)
}
