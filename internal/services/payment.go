package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

// PaymentService turns payment-gateway webhooks into OnPaymentConfirmed
// triggers. Charging itself happens entirely outside the core; the webhook
// payload is treated as trusted input behind the payment-auth middleware.
type PaymentService struct {
	bot *Bot
	log zerolog.Logger
}

func NewPaymentService(bot *Bot, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		bot: bot,
		log: log.With().Str("component", "payments").Logger(),
	}
}

// GatewayWebhook is the payment gateway's event envelope.
type GatewayWebhook struct {
	Event     string                 `json:"event"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt int64                  `json:"created_at"`
}

// ProcessWebhook handles a raw gateway callback body.
func (p *PaymentService) ProcessWebhook(ctx context.Context, body []byte) error {
	var webhook GatewayWebhook
	if err := json.Unmarshal(body, &webhook); err != nil {
		return fmt.Errorf("parse payment webhook: %w", err)
	}

	switch webhook.Event {
	case "payment.captured":
		return p.handleCaptured(ctx, webhook.Payload)
	case "payment.failed":
		p.handleFailed(webhook.Payload)
		return nil
	default:
		p.log.Debug().Str("event", webhook.Event).Msg("unhandled payment event")
		return nil
	}
}

func (p *PaymentService) handleCaptured(ctx context.Context, payload map[string]interface{}) error {
	payment, ok := payload["payment"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("payment missing in captured event")
	}

	paymentID, _ := payment["id"].(string)
	notes, ok := payment["notes"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("notes missing in payment %s", paymentID)
	}
	userID, ok := notes["user_id"].(string)
	if !ok || userID == "" {
		return fmt.Errorf("user_id missing in payment %s", paymentID)
	}

	p.log.Info().Str("payment", paymentID).Str("user", userID).Msg("payment captured")
	return p.bot.OnPaymentConfirmed(ctx, userID)
}

func (p *PaymentService) handleFailed(payload map[string]interface{}) {
	payment, ok := payload["payment"].(map[string]interface{})
	if !ok {
		return
	}
	paymentID, _ := payment["id"].(string)
	errorDesc, _ := payment["error_description"].(string)
	p.log.Warn().Str("payment", paymentID).Str("reason", errorDesc).Msg("payment failed")
}
