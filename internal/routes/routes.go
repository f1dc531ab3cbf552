package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/stoqhq/stoq-backend/internal/config"
	"github.com/stoqhq/stoq-backend/internal/handlers"
	"github.com/stoqhq/stoq-backend/internal/middleware"
	"github.com/stoqhq/stoq-backend/internal/services"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authService *services.AuthService,
	subscriptionService *services.SubscriptionService,
	authHandler *handlers.AuthHandler,
	productHandler *handlers.ProductHandler,
	saleHandler *handlers.SaleHandler,
	billingHandler *handlers.BillingHandler,
	webhookHandler *handlers.WebhookHandler,
	healthHandler *handlers.HealthHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP. The gateway webhook is
	// exempt: it authenticates by HMAC and bursts with payment volume, not
	// per client IP.
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/webhook/razorpay-webhook"
		},
	}))

	api.Get("/health", healthHandler.Check)

	protected := middleware.Protected(authService, subscriptionService, cfg)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/refresh-token", authHandler.RefreshToken)
	auth.Get("/verify-email", authHandler.VerifyEmail)
	auth.Post("/resend-verification", authHandler.ResendVerification)
	auth.Get("/me", protected, authHandler.Me)

	// Catalog (owner-scoped)
	products := api.Group("/products", protected)
	products.Post("/create", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.Get)
	products.Patch("/:id/update", productHandler.Update)
	products.Delete("/:id/delete", productHandler.Delete)
	products.Post("/:id/adjust-stock", productHandler.AdjustStock)
	products.Post("/:id/images", productHandler.UploadImage)
	products.Patch("/:id/images/:imageId/primary", productHandler.SetPrimaryImage)
	products.Delete("/:id/images/:imageId", productHandler.DeleteImage)

	// Sale ledger
	sales := api.Group("/sales", protected)
	sales.Get("/", saleHandler.List)
	sales.Post("/create", saleHandler.Create)
	sales.Delete("/:id/delete", saleHandler.Delete)

	// Billing
	billing := api.Group("/billing", protected)
	billing.Get("/subscription", billingHandler.Status)
	billing.Post("/create-subscription", billingHandler.CreateSubscription)
	billing.Post("/verify-payment", billingHandler.VerifyPayment)
	billing.Post("/cancel-subscription", billingHandler.CancelSubscription)

	// Gateway webhook — authenticity is the HMAC check, no user auth
	api.Post("/webhook/razorpay-webhook", webhookHandler.HandleRazorpay)

	// Admin diagnostics
	admin := api.Group("/admin", protected, middleware.AdminRequired(cfg))
	admin.Get("/subscription-logs", adminHandler.ListSubscriptionLogs)
}
