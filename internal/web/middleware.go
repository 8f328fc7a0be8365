package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// localsUserKey is the ctx locals key holding the verified identity of
// the access token on protected routes.
const localsUserKey = "gatehouse.user"

// requireAccessToken guards routes that need a valid access token in
// the Authorization header. The verified identity is stored in the ctx
// locals, handlers must use it instead of any id in the request.
func (s *Server) requireAccessToken(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)

	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing access token")
	}

	user, err := s.deps.Tokens.VerifyAccess(raw)
	if err != nil {
		return err
	}

	c.Locals(localsUserKey, user)

	return c.Next()
}
