package httpserver

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/and161185/todo-keeper/internal/errs"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(k errs.Kind) int {
	switch k {
	case errs.KindUnauthenticated, errs.KindSessionInvalid:
		return fiber.StatusUnauthorized
	case errs.KindForbidden:
		return fiber.StatusForbidden
	case errs.KindNotFound:
		return fiber.StatusNotFound
	case errs.KindConflict:
		return fiber.StatusConflict
	case errs.KindRateLimited:
		return fiber.StatusTooManyRequests
	case errs.KindInvalidArgument:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return statusFor(errs.KindOf(err))
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields validation.Errors `json:"fields,omitempty"`
}

// errorHandler is the single place where errors become responses.
// Internal errors are logged here and never shown to the caller.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorResponse{Error: fe.Message})
		}

		kind := errs.KindOf(err)
		code := statusFor(kind)
		if code == fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("route", c.Route().Path),
				zap.Error(err),
			)
			return c.Status(code).JSON(errorResponse{Error: "internal error"})
		}

		resp := errorResponse{Error: err.Error()}
		var e *errs.Error
		if errors.As(err, &e) {
			resp.Error = e.Msg
		}
		var fields validation.Errors
		if errors.As(err, &fields) {
			resp.Error = "validation failed"
			resp.Fields = fields
		}
		return c.Status(code).JSON(resp)
	}
}
