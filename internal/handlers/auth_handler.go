package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/dto"
	"github.com/stoqhq/stoq-backend/internal/middleware"
	"github.com/stoqhq/stoq-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	user, err := h.authService.Signup(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created. Please check your email to verify your account.",
		"user":    dto.NewUserResponse(user),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	user, pair, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailNotVerified) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Please verify your email before logging in",
			})
		}
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	middleware.SetAuthCookies(c, h.cfg, pair.AccessToken, pair.RefreshToken)
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

// Logout revokes the stored session from the refresh cookie. Without that
// cookie there is no session to revoke and the response leaves any
// access-token-only state untouched.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	refreshToken := c.Cookies(middleware.RefreshTokenCookie)
	if refreshToken == "" {
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
	if err := h.authService.Logout(refreshToken); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to logout",
		})
	}

	middleware.ClearAuthCookies(c, h.cfg)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// RefreshToken reissues an access token from the refresh cookie. The refresh
// token itself stays as-is.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies(middleware.RefreshTokenCookie)
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Not authenticated",
		})
	}

	user, accessToken, err := h.authService.RefreshAccess(refreshToken)
	if err != nil {
		middleware.ClearAuthCookies(c, h.cfg)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Session invalidated, please log in again",
		})
	}

	middleware.SetAccessCookie(c, h.cfg, accessToken)
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	user, err := h.authService.VerifyEmail(token)
	if err != nil {
		if errors.Is(err, services.ErrVerificationExpired) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Verification link expired, please request a new one",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid verification link",
		})
	}
	return c.JSON(fiber.Map{
		"message": "Email verified successfully",
		"user":    dto.NewUserResponse(user),
	})
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if err := h.authService.ResendVerification(req.Email); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "User not found",
			})
		}
		if errors.Is(err, services.ErrAlreadyVerified) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Email already verified",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to send verification email",
		})
	}

	return c.JSON(fiber.Map{"message": "Verification email sent"})
}
