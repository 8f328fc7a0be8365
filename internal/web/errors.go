package web

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/jornfrank/gatehouse/internal/auth"
	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/errorz"
	"github.com/jornfrank/gatehouse/internal/token"
)

// handleError is the fiber error handler. It translates the errors of
// the core packages to status codes and makes sure internal details
// never reach the client.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var vErrs validation.Errors
	if errors.As(err, &vErrs) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "invalid input",
			"errors":  vErrs,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return message(c, fiberErr.Code, fiberErr.Message)
	}

	status, msg := statusFor(err)
	if status == fiber.StatusInternalServerError {
		s.deps.Logger.Error("internal error while handling request",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	return message(c, status, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrDuplicateUser):
		return fiber.StatusConflict, "email address is already registered"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, auth.ErrUserGone):
		return fiber.StatusUnauthorized, "account no longer exists"
	case errors.Is(err, errorz.ErrNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, token.ErrTokenExpired):
		return fiber.StatusForbidden, "token expired"
	case errors.Is(err, token.ErrTokenMalformed),
		errors.Is(err, token.ErrSignatureMismatch):
		return fiber.StatusForbidden, "invalid token"
	case errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, email.ErrInvalidEmail):
		return fiber.StatusUnprocessableEntity, "invalid input"
	default:
		return fiber.StatusInternalServerError, "something went wrong"
	}
}
