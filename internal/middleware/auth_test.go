package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
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
	"github.com/stoqhq/stoq-backend/internal/models"
	"github.com/stoqhq/stoq-backend/internal/services"
)

type authFixture struct {
	app  *fiber.App
	db   *gorm.DB
	auth *services.AuthService
	subs *services.SubscriptionService
	cfg  *config.Config
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.PaymentRecord{},
		&models.SubscriptionRecord{},
		&models.RefreshToken{},
	))

	cfg := &config.Config{
		AppEnv:           "development",
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
	}
	auth := services.NewAuthService(db, cfg, nil)
	subs := services.NewSubscriptionService(db, cfg, nil)

	app := fiber.New()
	app.Get("/me", Protected(auth, subs, cfg), func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"email": user.Email, "plan": string(user.Plan)})
	})

	return &authFixture{app: app, db: db, auth: auth, subs: subs, cfg: cfg}
}

func (f *authFixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		ID:              uuid.New(),
		Email:           email,
		Password:        string(hash),
		Role:            models.RoleCustomer,
		Plan:            models.PlanFree,
		IsEmailVerified: true,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return &user
}

func (f *authFixture) request(t *testing.T, access, refresh string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if access != "" {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
	}
	if refresh != "" {
		req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: refresh})
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func responseCookies(resp *http.Response) map[string]*http.Cookie {
	cookies := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

func TestProtected_ValidAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "me@test.com")

	pair, err := f.auth.IssueTokenPair(user)
	require.NoError(t, err)

	resp := f.request(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// no refresh happened, so no cookies are rewritten
	assert.Empty(t, resp.Cookies())
}

func TestProtected_NoCookies(t *testing.T) {
	f := newAuthFixture(t)

	resp := f.request(t, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtected_RefreshFallbackReissuesAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "fallback@test.com")

	pair, err := f.auth.IssueTokenPair(user)
	require.NoError(t, err)

	resp := f.request(t, "garbage", pair.RefreshToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := responseCookies(resp)
	access, ok := cookies[AccessTokenCookie]
	require.True(t, ok, "expected a fresh access token cookie")
	assert.NotEmpty(t, access.Value)

	// the refresh cookie is left alone, and the reissued token works directly
	_, reissued := cookies[RefreshTokenCookie]
	assert.False(t, reissued)

	resp = f.request(t, access.Value, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtected_BadAccessAndBadRefreshClearsCookies(t *testing.T) {
	f := newAuthFixture(t)

	resp := f.request(t, "garbage", "also-garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cookies := responseCookies(resp)
	require.Contains(t, cookies, AccessTokenCookie)
	require.Contains(t, cookies, RefreshTokenCookie)
	assert.Empty(t, cookies[AccessTokenCookie].Value)
	assert.Empty(t, cookies[RefreshTokenCookie].Value)
}

func TestProtected_StaleRefreshAfterNewLogin(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "stale@test.com")

	first, err := f.auth.IssueTokenPair(user)
	require.NoError(t, err)

	// a second login replaces the persisted refresh token
	_, err = f.auth.IssueTokenPair(user)
	require.NoError(t, err)

	resp := f.request(t, "expired", first.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cookies := responseCookies(resp)
	require.Contains(t, cookies, AccessTokenCookie)
	require.Contains(t, cookies, RefreshTokenCookie)
	assert.Empty(t, cookies[RefreshTokenCookie].Value)
}

func TestProtected_PassiveDowngradeOnLapsedSubscription(t *testing.T) {
	f := newAuthFixture(t)
	user := f.createUser(t, "lapsed@test.com")

	subID := "sub_lapsed"
	subType := models.SubscriptionMonthly
	status := models.SubscriptionActive
	expired := time.Now().Add(-time.Hour)
	user.Plan = models.PlanPaid
	user.SubscriptionID = &subID
	user.SubscriptionType = &subType
	user.SubscriptionStatus = &status
	user.SubscriptionExpiresAt = &expired
	require.NoError(t, f.db.Save(user).Error)

	pair, err := f.auth.IssueTokenPair(user)
	require.NoError(t, err)

	resp := f.request(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.User
	require.NoError(t, f.db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, models.PlanFree, reloaded.Plan)
	assert.Equal(t, models.SubscriptionExpired, *reloaded.SubscriptionStatus)
}
