package middleware

import (
	"errors"
	"log/slog"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/models"
	"github.com/stoqhq/stoq-backend/internal/services"
)

const currentUserKey = "current_user"

// Protected authenticates a request from the session cookies. A valid access
// token resolves the user directly; otherwise the refresh cookie is checked
// against the server-persisted token and, on match, a new access token is
// issued as a side effect. Any refresh failure clears both cookies — the
// malformed-token and mismatched-token paths deliberately behave the same.
func Protected(auth *services.AuthService, subs *services.SubscriptionService, cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		TokenLookup: "cookie:" + AccessTokenCookie,
		SuccessHandler: func(c *fiber.Ctx) error {
			userID, err := userIDFromToken(c)
			if err != nil {
				return unauthorized(c, "Not authenticated")
			}
			user, err := auth.GetUser(userID)
			if err != nil {
				return unauthorized(c, "Not authenticated")
			}
			return proceed(c, subs, user)
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			refreshToken := c.Cookies(RefreshTokenCookie)
			if refreshToken == "" {
				return unauthorized(c, "Not authenticated")
			}

			user, accessToken, err := auth.RefreshAccess(refreshToken)
			if err != nil {
				ClearAuthCookies(c, cfg)
				if errors.Is(err, services.ErrSessionInvalidated) {
					return unauthorized(c, "Session invalidated, please log in again")
				}
				return unauthorized(c, "Not authenticated")
			}

			SetAccessCookie(c, cfg, accessToken)
			return proceed(c, subs, user)
		},
	})
}

// proceed runs the passive subscription reconciliation and stores the user on
// the request context. Reconciliation failures never fail the request.
func proceed(c *fiber.Ctx, subs *services.SubscriptionService, user *models.User) error {
	if downgraded, err := subs.ReconcileExpiry(user); err != nil {
		slog.Error("passive subscription reconciliation failed", "user_id", user.ID.String(), "error", err)
	} else if downgraded {
		slog.Info("subscription lapsed, user downgraded", "user_id", user.ID.String())
	}
	c.Locals(currentUserKey, user)
	return c.Next()
}

// CurrentUser returns the authenticated user stored by Protected.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(currentUserKey).(*models.User)
	if !ok || user == nil {
		return nil, errors.New("no authenticated user in context")
	}
	return user, nil
}

func userIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	return uuid.Parse(sub)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}
