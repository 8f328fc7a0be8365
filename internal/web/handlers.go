package web

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/auth"
	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/token"
)

// credentialsRequest is the payload for the register and login routes.
// It deliberately uses plain strings, the stricter domain types are
// only constructed after validation.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r credentialsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

func (r credentialsRequest) credentials() (auth.Credentials, error) {
	addr, err := email.ParseAddress(r.Email)
	if err != nil {
		return auth.Credentials{}, err
	}

	pwd, err := auth.ParsePassword(r.Password)
	if err != nil {
		return auth.Credentials{}, err
	}

	return auth.Credentials{Email: addr, Password: pwd}, nil
}

// emailRequest is the payload for the routes that only need an email address.
type emailRequest struct {
	Email string `json:"email"`
}

func (r emailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// passwordRequest is the payload for the change-password route.
type passwordRequest struct {
	Password string `json:"password"`
}

func (r passwordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	credentials, err := req.credentials()
	if err != nil {
		return err
	}

	if err := s.deps.Auth.Register(c.UserContext(), credentials); err != nil {
		return err
	}

	return message(c, fiber.StatusCreated, "account created, check your inbox for the activation email")
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	credentials, err := req.credentials()
	if err != nil {
		return err
	}

	session, err := s.deps.Auth.Login(c.UserContext(), credentials, c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}

	s.setRefreshCookie(c, session.RefreshToken)

	return c.JSON(fiber.Map{
		"message":     "login successful",
		"accessToken": session.AccessToken,
		"user":        session.User,
	})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	s.clearRefreshCookie(c)

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	rawRefresh := c.Cookies(refreshCookieName)
	if rawRefresh == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing refresh cookie")
	}

	accessToken, err := s.deps.Auth.RefreshAccess(c.UserContext(), rawRefresh)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":     "access token refreshed",
		"accessToken": accessToken,
	})
}

func (s *Server) handleCurrent(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user": currentUser(c),
	})
}

func (s *Server) handleActivate(c *fiber.Ctx) error {
	activationToken := c.Query("token")
	if activationToken == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "missing token parameter")
	}

	if err := s.deps.Auth.Activate(c.UserContext(), activationToken); err != nil {
		return err
	}

	return message(c, fiber.StatusOK, "account activated, you can now login")
}

// handleResendActivation and handleRequestPasswordReset respond with the
// same message regardless of whether an account exists. The response must
// not give away which email addresses are registered.

func (s *Server) handleResendActivation(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	addr, err := email.ParseAddress(req.Email)
	if err != nil {
		return err
	}

	if err := s.deps.Auth.ResendActivation(c.UserContext(), addr); err != nil {
		return err
	}

	return message(c, fiber.StatusOK, "if the account exists, a new activation email has been sent")
}

func (s *Server) handleRequestPasswordReset(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	addr, err := email.ParseAddress(req.Email)
	if err != nil {
		return err
	}

	if err := s.deps.Auth.RequestPasswordReset(c.UserContext(), addr); err != nil {
		return err
	}

	return message(c, fiber.StatusOK, "if the account exists, a password reset email has been sent")
}

func (s *Server) handleChangePassword(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "invalid id parameter")
	}

	resetToken := c.Query("token")
	if resetToken == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "missing token parameter")
	}

	var req passwordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	newPassword, err := auth.ParsePassword(req.Password)
	if err != nil {
		return err
	}

	if err := s.deps.Auth.ChangePassword(c.UserContext(), userID, resetToken, newPassword); err != nil {
		return err
	}

	return message(c, fiber.StatusOK, "password changed, all sessions have been logged out")
}

func (s *Server) handleDeleteAccount(c *fiber.Ctx) error {
	user := currentUser(c)

	if err := s.deps.Auth.DeleteAccount(c.UserContext(), user.ID); err != nil {
		return err
	}

	s.clearRefreshCookie(c)

	return message(c, fiber.StatusOK, "account deleted")
}

// parseBody parses the JSON request body into dst and validates it.
func parseBody(c *fiber.Ctx, dst interface {
	Validate() error
}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "malformed request body")
	}

	return dst.Validate()
}

func message(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

func currentUser(c *fiber.Ctx) token.UserInfo {
	user, _ := c.Locals(localsUserKey).(token.UserInfo)
	return user
}
