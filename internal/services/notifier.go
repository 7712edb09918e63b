package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/stitchlink/stitchlink-backend/internal/config"
	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// Notifier delivers rendered messages to end users. The core only ever
// hands it a recipient id and a payload.
type Notifier interface {
	Send(ctx context.Context, msg models.Message) error
}

// TwilioNotifier sends messages over WhatsApp via the Twilio Messages API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string // e.g. "whatsapp:+14155238886"
	log    zerolog.Logger
}

// NewTwilioNotifier builds a notifier from Twilio credentials.
func NewTwilioNotifier(cfg *config.Config, log zerolog.Logger) (*TwilioNotifier, error) {
	if !cfg.TwilioConfigured() {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &TwilioNotifier{
		client: client,
		from:   cfg.TwilioWhatsAppFrom,
		log:    log.With().Str("component", "twilio").Logger(),
	}, nil
}

func (t *TwilioNotifier) Send(ctx context.Context, msg models.Message) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", msg.RecipientID))
	params.SetBody(renderBody(msg))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.log.Error().Err(err).Str("to", msg.RecipientID).Msg("failed to send message")
		return err
	}

	t.log.Debug().Str("to", msg.RecipientID).Str("sid", deref(resp.Sid)).Msg("message sent")
	return nil
}

// renderBody appends buttons as reply hints. Interactive templates require
// pre-registered Content SIDs per message shape; plain quick-reply lines
// keep the callback tokens working for every client.
func renderBody(msg models.Message) string {
	if len(msg.Buttons) == 0 {
		return msg.Text
	}

	var b strings.Builder
	b.WriteString(msg.Text)
	b.WriteString("\n")
	for _, btn := range msg.Buttons {
		fmt.Fprintf(&b, "\n%s — reply %s", btn.Label, btn.Callback)
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// LogNotifier is used when Twilio credentials are absent (local runs).
// Messages are written to the log instead of being delivered.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (l *LogNotifier) Send(_ context.Context, msg models.Message) error {
	l.log.Info().Str("to", msg.RecipientID).Str("text", renderBody(msg)).Msg("outbound message (not delivered)")
	return nil
}
