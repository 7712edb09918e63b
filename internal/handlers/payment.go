package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/services"
)

// PaymentHandler receives payment-gateway webhooks.
type PaymentHandler struct {
	payments *services.PaymentService
	log      zerolog.Logger
}

func NewPaymentHandler(payments *services.PaymentService, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		log:      log.With().Str("component", "payment-webhook").Logger(),
	}
}

// HandleWebhook acknowledges the gateway after processing. Malformed
// payloads get a 400 so the gateway can alert; processing failures are
// logged and acknowledged to avoid useless retries.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	if err := h.payments.ProcessWebhook(c.UserContext(), c.Body()); err != nil {
		h.log.Error().Err(err).Msg("payment webhook failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid payment webhook",
		})
	}
	return c.SendStatus(fiber.StatusOK)
}
