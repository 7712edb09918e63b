package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stitchlink/stitchlink-backend/internal/config"
	"github.com/stitchlink/stitchlink-backend/internal/handlers"
	"github.com/stitchlink/stitchlink-backend/internal/middleware"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, cfg *config.Config, whatsapp *handlers.WhatsAppHandler, payments *handlers.PaymentHandler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "StitchLink Backend",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":           "/health",
				"whatsapp_webhook": "/webhook/whatsapp",
				"payment_webhook":  "/webhook/payment",
			},
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"whatsapp": cfg.TwilioConfigured(),
		})
	})

	webhooks := app.Group("/webhook")

	// Signature validation is skipped in development so tunneled webhooks
	// work without the public URL matching.
	if cfg.IsDevelopment() || cfg.DisableWebhookValidation {
		webhooks.Post("/whatsapp", whatsapp.HandleWebhook)
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(cfg.TwilioAuthToken), whatsapp.HandleWebhook)
	}

	webhooks.Post("/payment", middleware.ValidatePaymentSignature(), payments.HandleWebhook)
}
