package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/middleware"
	"github.com/stoqhq/stoq-backend/internal/models"
	"github.com/stoqhq/stoq-backend/internal/services"
)

func newAuthFixture(t *testing.T) (*fiber.App, *gorm.DB, *services.AuthService) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	cfg := &config.Config{
		AppEnv:           "development",
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
	}
	auth := services.NewAuthService(db, cfg, nil)
	handler := NewAuthHandler(auth, cfg)

	app := fiber.New()
	app.Post("/api/auth/logout", handler.Logout)
	return app, db, auth
}

func newVerifiedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		ID:              uuid.New(),
		Email:           fmt.Sprintf("%s@test.com", uuid.NewString()[:8]),
		Password:        string(hash),
		Role:            models.RoleCustomer,
		Plan:            models.PlanFree,
		IsEmailVerified: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestLogout_RevokesSessionAndClearsCookies(t *testing.T) {
	app, db, auth := newAuthFixture(t)
	user := newVerifiedUser(t, db)

	pair, err := auth.IssueTokenPair(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: pair.AccessToken})
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: pair.RefreshToken})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sessions int64
	db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&sessions)
	assert.Zero(t, sessions)

	cleared := map[string]bool{}
	for _, raw := range resp.Header.Values("Set-Cookie") {
		name := strings.SplitN(raw, "=", 2)[0]
		cleared[name] = true
	}
	assert.True(t, cleared[middleware.AccessTokenCookie])
	assert.True(t, cleared[middleware.RefreshTokenCookie])
}

func TestLogout_WithoutRefreshCookieLeavesSessionAlone(t *testing.T) {
	app, db, auth := newAuthFixture(t)
	user := newVerifiedUser(t, db)

	pair, err := auth.IssueTokenPair(user)
	require.NoError(t, err)

	// only the short-lived access cookie travels; nothing gets cleared
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: pair.AccessToken})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Values("Set-Cookie"))

	var sessions int64
	db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&sessions)
	assert.EqualValues(t, 1, sessions)
}
