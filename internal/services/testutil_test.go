package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/gateway"
	"github.com/stoqhq/stoq-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.PaymentRecord{},
		&models.SubscriptionRecord{},
		&models.RefreshToken{},
		&models.Product{},
		&models.ProductImage{},
		&models.Sale{},
		&models.SubscriptionLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret",
		JWTAccessExpiry:       15 * time.Minute,
		JWTRefreshExpiry:      168 * time.Hour,
		RazorpayKeySecret:     "test-key-secret",
		RazorpayWebhookSecret: "test-webhook-secret",
		RazorpayMonthlyPlanID: "plan_monthly",
		RazorpayAnnualPlanID:  "plan_annual",
	}
}

// stubMailer records dispatch attempts instead of calling a provider.
type stubMailer struct {
	sent []string
	err  error
}

func (m *stubMailer) SendVerificationEmail(to, name, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

// stubGateway is an in-memory payment gateway.
type stubGateway struct {
	createErr error
	cancelErr error
	created   []string
	cancelled []string
}

func (g *stubGateway) CreateSubscription(planID string, totalCount int) (*gateway.Subscription, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	id := "sub_" + uuid.NewString()[:8]
	g.created = append(g.created, id)
	return &gateway.Subscription{ID: id, PlanID: planID, Status: "created"}, nil
}

func (g *stubGateway) FetchSubscription(subscriptionID string) (*gateway.Subscription, error) {
	return &gateway.Subscription{ID: subscriptionID, Status: "active"}, nil
}

func (g *stubGateway) CancelSubscription(subscriptionID string) (*gateway.Subscription, error) {
	if g.cancelErr != nil {
		return nil, g.cancelErr
	}
	g.cancelled = append(g.cancelled, subscriptionID)
	return &gateway.Subscription{ID: subscriptionID, Status: "cancelled"}, nil
}

func createTestUser(t *testing.T, db *gorm.DB, email string, verified bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := models.User{
		ID:              uuid.New(),
		Email:           email,
		Password:        string(hash),
		Name:            "Test User",
		Role:            models.RoleCustomer,
		Plan:            models.PlanFree,
		IsEmailVerified: verified,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}
