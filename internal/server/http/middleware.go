package httpserver

import (
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/and161185/todo-keeper/internal/model"
	"github.com/and161185/todo-keeper/internal/service"
)

const identityKey = "identity"

// requestLog logs request metadata only; bodies and headers are never logged.
func requestLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		code := c.Response().StatusCode()
		if err != nil {
			// the error handler has not run yet
			code = statusOf(err)
		}
		log.Info("http",
			zap.String("method", c.Method()),
			zap.String("route", c.Route().Path),
			zap.Int("status", code),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.IP()),
		)
		return err
	}
}

// recoverPanic turns a handler panic into a logged 500.
func recoverPanic(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("route", c.Route().Path),
				)
				err = c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
			}
		}()
		return c.Next()
	}
}

// authenticate resolves the bearer token into an identity of the given kind.
func authenticate(g *service.Guard, kind model.PrincipalType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := g.Resolve(c.UserContext(), c.Get(fiber.HeaderAuthorization), kind)
		if err != nil {
			return err
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

func identity(c *fiber.Ctx) service.Identity {
	id, _ := c.Locals(identityKey).(service.Identity)
	return id
}

func principal(c *fiber.Ctx) model.Principal { return identity(c).Principal }
