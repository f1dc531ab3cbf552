package routes

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
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/handlers"
	"github.com/stoqhq/stoq-backend/internal/models"
	"github.com/stoqhq/stoq-backend/internal/services"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Product{},
		&models.ProductImage{},
		&models.Sale{},
		&models.PaymentRecord{},
		&models.SubscriptionRecord{},
		&models.SubscriptionLog{},
	))

	cfg := &config.Config{
		AppEnv:                "development",
		JWTSecret:             "test-secret",
		JWTAccessExpiry:       15 * time.Minute,
		JWTRefreshExpiry:      168 * time.Hour,
		RazorpayWebhookSecret: "test-webhook-secret",
	}

	authService := services.NewAuthService(db, cfg, nil)
	subscriptionService := services.NewSubscriptionService(db, cfg, nil)
	productService := services.NewProductService(db)
	saleService := services.NewSaleService(db)

	app := fiber.New()
	Setup(app, cfg,
		authService,
		subscriptionService,
		handlers.NewAuthHandler(authService, cfg),
		handlers.NewProductHandler(productService, nil),
		handlers.NewSaleHandler(saleService),
		handlers.NewBillingHandler(subscriptionService),
		handlers.NewWebhookHandler(subscriptionService, cfg),
		handlers.NewHealthHandler(),
		handlers.NewAdminHandler(db),
	)
	return app
}

func TestWebhookRouteBypassesGeneralRateLimit(t *testing.T) {
	app := newTestApp(t)

	// well past the 60/min window; every request reaches the handler,
	// which rejects the unsigned body instead of rate-limiting it
	for i := 0; i < 70; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/razorpay-webhook",
			strings.NewReader(`{"event":"subscription.activated"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestGeneralRateLimitStillGuardsOtherRoutes(t *testing.T) {
	app := newTestApp(t)

	limited := false
	for i := 0; i < 70; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}
