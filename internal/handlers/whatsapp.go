package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/services"
)

// TwilioWebhookPayload is the inbound WhatsApp message form from Twilio.
type TwilioWebhookPayload struct {
	MessageSid        string `form:"MessageSid"`
	AccountSid        string `form:"AccountSid"`
	From              string `form:"From"` // "whatsapp:+79161234567"
	To                string `form:"To"`
	Body              string `form:"Body"`
	ProfileName       string `form:"ProfileName"`
	ButtonPayload     string `form:"ButtonPayload"` // quick-reply callback token
	NumMedia          string `form:"NumMedia"`
	MediaUrl0         string `form:"MediaUrl0"`
	MediaContentType0 string `form:"MediaContentType0"`
}

// WhatsAppHandler turns Twilio webhooks into core actions and delivers the
// resulting messages.
type WhatsAppHandler struct {
	bot *services.Bot
	log zerolog.Logger
}

func NewWhatsAppHandler(bot *services.Bot, log zerolog.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		bot: bot,
		log: log.With().Str("component", "webhook").Logger(),
	}
}

// HandleWebhook processes one incoming WhatsApp event. Twilio retries on
// non-2xx, so processing errors are logged and acknowledged anyway.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.log.Error().Err(err).Msg("bad webhook payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid webhook payload",
		})
	}

	act, ok := toAction(payload)
	if !ok {
		// Status callbacks and empty events are acknowledged silently.
		return c.SendStatus(fiber.StatusOK)
	}

	h.log.Info().Str("from", act.UserID).Str("kind", string(act.Kind)).Msg("inbound action")

	msgs, err := h.bot.HandleInput(c.UserContext(), act)
	if err != nil {
		h.log.Error().Err(err).Str("from", act.UserID).Msg("handling failed")
	}
	h.bot.Deliver(c.UserContext(), msgs)

	return c.SendStatus(fiber.StatusOK)
}

func toAction(p TwilioWebhookPayload) (models.Action, bool) {
	userID := strings.TrimPrefix(p.From, "whatsapp:")
	if userID == "" {
		return models.Action{}, false
	}

	act := models.Action{
		UserID:      userID,
		DisplayName: p.ProfileName,
	}

	switch {
	case p.ButtonPayload != "":
		act.Kind = models.KindCommand
		act.Text = p.ButtonPayload
	case p.NumMedia != "" && p.NumMedia != "0" && p.MediaUrl0 != "":
		act.Kind = models.KindFile
		act.FileID = p.MediaUrl0
	case p.Body != "":
		act.Kind = models.KindText
		act.Text = p.Body
	default:
		return models.Action{}, false
	}

	return act, true
}
