package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// refreshCookieName is the cookie carrying the refresh token. The name
// is part of the public contract, clients depend on it.
const refreshCookieName = "jwt"

// refreshCookieMaxAge intentionally outlives the refresh token itself.
// The cookie sticks around, the token inside stops verifying after its
// own expiry.
const refreshCookieMaxAge = 7 * 24 * time.Hour

func (s *Server) setRefreshCookie(c *fiber.Ctx, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		MaxAge:   int(refreshCookieMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (s *Server) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}
