package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/storage"
)

// Dispatcher fans a newly paid order out to every eligible factory. Called
// exactly once per order, synchronously, right after the order is durably
// marked paid. Eligibility is a point-in-time snapshot: factories that turn
// PRO later find older orders through the open-orders feed and the digest,
// not through a retroactive push.
type Dispatcher struct {
	store    storage.Store
	notifier Notifier
	log      zerolog.Logger
}

// NewDispatcher wires the matching and dispatch engine.
func NewDispatcher(store storage.Store, notifier Notifier, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch notifies each eligible factory once and returns how many were
// matched. Fan-out is best effort: one failed delivery never aborts the
// rest, it is logged and skipped. Only the eligibility query itself can
// fail the call.
func (d *Dispatcher) Dispatch(ctx context.Context, order *models.Order) (int, error) {
	factories, err := d.store.FindEligibleFactories(order.Category, order.Quantity, order.Budget)
	if err != nil {
		return 0, fmt.Errorf("eligible factories for order %d: %w", order.ID, err)
	}

	msg := models.Message{
		Text: "New order for you!\n\n" + order.Summary(),
		Buttons: []models.Button{{
			Label:    "Send proposal",
			Callback: fmt.Sprintf("%s%d", cbProposePrefix, order.ID),
		}},
	}

	for _, factory := range factories {
		msg.RecipientID = factory.UserID
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.log.Error().Err(err).Uint("order", order.ID).Str("factory", factory.UserID).Msg("delivery failed")
			continue
		}
	}

	d.log.Info().Uint("order", order.ID).Int("matched", len(factories)).Msg("order dispatched")
	return len(factories), nil
}
