package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stoqhq/stoq-backend/internal/config"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SetAuthCookies writes both session cookies: HTTP-only, Strict same-site,
// secure outside development.
func SetAuthCookies(c *fiber.Ctx, cfg *config.Config, accessToken, refreshToken string) {
	SetAccessCookie(c, cfg, accessToken)
	c.Cookie(authCookie(cfg, RefreshTokenCookie, refreshToken, cfg.JWTRefreshExpiry))
}

// SetAccessCookie writes only the access token cookie, used when the refresh
// path reissues an access token mid-request.
func SetAccessCookie(c *fiber.Ctx, cfg *config.Config, accessToken string) {
	c.Cookie(authCookie(cfg, AccessTokenCookie, accessToken, cfg.JWTAccessExpiry))
}

// ClearAuthCookies expires both session cookies.
func ClearAuthCookies(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(authCookie(cfg, AccessTokenCookie, "", -time.Hour))
	c.Cookie(authCookie(cfg, RefreshTokenCookie, "", -time.Hour))
}

func authCookie(cfg *config.Config, name, value string, maxAge time.Duration) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
