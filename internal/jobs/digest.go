package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/services"
	"github.com/stitchlink/stitchlink-backend/internal/storage"
)

// DigestJob sends each PRO factory a daily summary of open orders it has
// not answered yet. Dispatch itself is a point-in-time fan-out at order
// creation; the digest covers factories that qualified afterwards.
type DigestJob struct {
	store    storage.Store
	notifier services.Notifier
	hour     int // local hour of day the digest runs
	log      zerolog.Logger
	quit     chan struct{}
}

func NewDigestJob(store storage.Store, notifier services.Notifier, hour int, log zerolog.Logger) *DigestJob {
	return &DigestJob{
		store:    store,
		notifier: notifier,
		hour:     hour,
		log:      log.With().Str("component", "digest").Logger(),
		quit:     make(chan struct{}),
	}
}

// Start launches the daily loop.
func (j *DigestJob) Start() {
	go j.run()
	j.log.Info().Int("hour", j.hour).Msg("digest job started")
}

// Stop halts the loop.
func (j *DigestJob) Stop() {
	close(j.quit)
}

func (j *DigestJob) run() {
	for {
		select {
		case <-time.After(j.untilNextRun(time.Now())):
			j.SendDigests(context.Background())
		case <-j.quit:
			return
		}
	}
}

func (j *DigestJob) untilNextRun(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), j.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

// SendDigests runs one digest round. Per-factory failures are logged and
// skipped.
func (j *DigestJob) SendDigests(ctx context.Context) {
	factories, err := j.store.ListProFactories()
	if err != nil {
		j.log.Error().Err(err).Msg("failed to list factories")
		return
	}

	sent := 0
	for _, factory := range factories {
		orders, err := j.store.FindUnansweredOrders(factory.UserID, factory.Categories, factory.MinQty)
		if err != nil {
			j.log.Error().Err(err).Str("factory", factory.UserID).Msg("unanswered orders query failed")
			continue
		}
		if len(orders) == 0 {
			continue
		}

		if err := j.notifier.Send(ctx, digestMessage(factory, orders)); err != nil {
			j.log.Error().Err(err).Str("factory", factory.UserID).Msg("digest delivery failed")
			continue
		}
		sent++
	}

	j.log.Info().Int("factories", len(factories)).Int("sent", sent).Msg("digest round complete")
}

func digestMessage(factory *models.Factory, orders []*models.Order) models.Message {
	text := fmt.Sprintf("You have %d open orders waiting for a proposal:\n", len(orders))
	for _, order := range orders {
		text += fmt.Sprintf("\n#%d — %s, %d pcs, budget %.0f", order.ID, order.Category, order.Quantity, order.Budget)
	}
	return models.Message{
		RecipientID: factory.UserID,
		Text:        text,
		Buttons:     []models.Button{{Label: "Browse open orders", Callback: "browse_orders"}},
	}
}
