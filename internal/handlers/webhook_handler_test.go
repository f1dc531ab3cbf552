package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
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
	"github.com/stoqhq/stoq-backend/internal/models"
	"github.com/stoqhq/stoq-backend/internal/services"
)

func newWebhookFixture(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
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
		&models.SubscriptionLog{},
	))

	cfg := &config.Config{RazorpayWebhookSecret: "test-webhook-secret"}
	subs := services.NewSubscriptionService(db, cfg, nil)
	handler := NewWebhookHandler(subs, cfg)

	app := fiber.New()
	app.Post("/api/webhook/razorpay-webhook", handler.HandleRazorpay)
	return app, db, cfg
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/razorpay-webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestHandleRazorpay_RejectsBadSignature(t *testing.T) {
	app, db, _ := newWebhookFixture(t)
	body := []byte(`{"event":"subscription.activated"}`)

	resp := postWebhook(t, app, body, "bad-signature")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postWebhook(t, app, body, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// nothing gets recorded for unauthenticated payloads
	var count int64
	db.Model(&models.SubscriptionLog{}).Count(&count)
	assert.Zero(t, count)
}

func TestHandleRazorpay_RejectsMalformedJSON(t *testing.T) {
	app, db, cfg := newWebhookFixture(t)
	body := []byte(`{not json`)

	resp := postWebhook(t, app, body, signBody(body, cfg.RazorpayWebhookSecret))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var count int64
	db.Model(&models.SubscriptionLog{}).Count(&count)
	assert.Zero(t, count)
}

func TestHandleRazorpay_ProcessesActivation(t *testing.T) {
	app, db, cfg := newWebhookFixture(t)

	subID := "sub_hook"
	subType := models.SubscriptionMonthly
	status := models.SubscriptionPending
	startedAt := time.Now()
	user := models.User{
		ID:                    uuid.New(),
		Email:                 "hook@test.com",
		Password:              "irrelevant",
		Role:                  models.RoleCustomer,
		Plan:                  models.PlanFree,
		IsEmailVerified:       true,
		SubscriptionID:        &subID,
		SubscriptionType:      &subType,
		SubscriptionStatus:    &status,
		SubscriptionStartedAt: &startedAt,
	}
	require.NoError(t, db.Create(&user).Error)

	body := []byte(`{"event":"subscription.activated","payload":{"subscription":{"entity":{"id":"sub_hook","status":"active"}}}}`)
	resp := postWebhook(t, app, body, signBody(body, cfg.RazorpayWebhookSecret))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, models.PlanPaid, reloaded.Plan)
	assert.Equal(t, models.SubscriptionActive, *reloaded.SubscriptionStatus)
	assert.NotNil(t, reloaded.SubscriptionExpiresAt)

	var logs int64
	db.Model(&models.SubscriptionLog{}).Count(&logs)
	assert.EqualValues(t, 1, logs)
}

func TestHandleRazorpay_ProcessingFailureReturns500(t *testing.T) {
	app, db, cfg := newWebhookFixture(t)

	// authenticated event for a subscription nobody holds
	body := []byte(`{"event":"subscription.activated","payload":{"subscription":{"entity":{"id":"sub_ghost","status":"active"}}}}`)
	resp := postWebhook(t, app, body, signBody(body, cfg.RazorpayWebhookSecret))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// the audit row survives so the failure can be investigated
	var logs int64
	db.Model(&models.SubscriptionLog{}).Count(&logs)
	assert.EqualValues(t, 1, logs)
}
