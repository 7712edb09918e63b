package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/storage"
)

// Callback tokens. These travel inside outbound buttons and come back as
// KindCommand actions.
const (
	cbStart           = "/start"
	cbRegisterFactory = "register_factory"
	cbPostOrder       = "post_order"
	cbBrowseOrders    = "browse_orders"
	cbProposePrefix   = "propose_"
	cbDealChatPrefix  = "dealchat_"
)

// Bot is the core's public entry point: one inbound action in, zero or more
// outbound messages out. Handling is serialized per user so a session never
// advances concurrently; different users proceed independently.
type Bot struct {
	store     storage.Store
	sessions  *SessionManager
	flows     *FlowEngine
	notifier  Notifier
	groupChat *GroupChatService
	log       zerolog.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewBot wires the conversational core.
func NewBot(store storage.Store, sessions *SessionManager, flows *FlowEngine, notifier Notifier, groupChat *GroupChatService, log zerolog.Logger) *Bot {
	return &Bot{
		store:     store,
		sessions:  sessions,
		flows:     flows,
		notifier:  notifier,
		groupChat: groupChat,
		log:       log.With().Str("component", "bot").Logger(),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// HandleInput processes one user action to completion. Validation problems
// come back as re-prompt messages, never as errors; storage failures return
// both a generic failure message and the wrapped error.
func (b *Bot) HandleInput(ctx context.Context, act models.Action) ([]models.Message, error) {
	if act.UserID == "" {
		return nil, nil
	}

	lock := b.userLock(act.UserID)
	lock.Lock()
	defer lock.Unlock()

	// The reset command clears any active dialogue at any step, whether it
	// arrives as a command or typed as text.
	if isResetCommand(act) {
		b.sessions.Clear(act.UserID)
		return b.mainMenu(act.UserID), nil
	}

	if act.Kind == models.KindCommand {
		if msgs, handled, err := b.handleCommand(ctx, act); handled {
			return msgs, err
		}
	}

	sess, ok := b.sessions.Get(act.UserID)
	if !ok {
		// No active dialogue. Text gets the menu; stray files and stale
		// callbacks are dropped.
		if act.Kind == models.KindText {
			return b.mainMenu(act.UserID), nil
		}
		return nil, nil
	}

	return b.flows.HandleStep(ctx, sess, act)
}

// handleCommand routes menu and button callbacks. The second return value
// is false for tokens that belong to the active dialogue's step handler
// (e.g. the payment prompt), which fall through to HandleStep.
func (b *Bot) handleCommand(ctx context.Context, act models.Action) ([]models.Message, bool, error) {
	token := strings.TrimSpace(act.Text)

	switch {
	case token == cbRegisterFactory:
		msgs, err := b.flows.StartOnboarding(ctx, act)
		return msgs, true, err

	case token == cbPostOrder:
		msgs, err := b.flows.StartOrder(ctx, act)
		return msgs, true, err

	case token == cbBrowseOrders:
		msgs, err := b.listOpenOrders(act.UserID)
		return msgs, true, err

	case strings.HasPrefix(token, cbProposePrefix):
		id, err := strconv.ParseUint(strings.TrimPrefix(token, cbProposePrefix), 10, 64)
		if err != nil {
			return nil, true, nil
		}
		msgs, err := b.flows.StartProposal(ctx, act.UserID, uint(id))
		if err == ErrOrderGone {
			return msgs, true, nil
		}
		return msgs, true, err

	case strings.HasPrefix(token, cbDealChatPrefix):
		msgs, err := b.openDealChat(ctx, act.UserID, strings.TrimPrefix(token, cbDealChatPrefix))
		return msgs, true, err
	}

	return nil, false, nil
}

// OnPaymentConfirmed is the trigger from the payment collaborator. Messages
// produced by the commit are delivered directly since no inbound webhook
// response carries them.
func (b *Bot) OnPaymentConfirmed(ctx context.Context, userID string) error {
	lock := b.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	msgs, err := b.flows.OnPaymentConfirmed(ctx, userID)
	if err == ErrNoPendingPayment {
		b.log.Warn().Str("user", userID).Msg("payment confirmed with no pending dialogue")
		return nil
	}
	b.Deliver(ctx, msgs)
	return err
}

// Deliver sends a batch of outbound messages, logging per-recipient
// failures without aborting the batch.
func (b *Bot) Deliver(ctx context.Context, msgs []models.Message) {
	for _, msg := range msgs {
		if err := b.notifier.Send(ctx, msg); err != nil {
			b.log.Error().Err(err).Str("to", msg.RecipientID).Msg("delivery failed")
		}
	}
}

func (b *Bot) mainMenu(userID string) []models.Message {
	return reply(userID,
		"Welcome to StitchLink — we connect garment factories with buyers.\n\nWhat would you like to do?",
		models.Button{Label: "Register a factory", Callback: cbRegisterFactory},
		models.Button{Label: "Post an order", Callback: cbPostOrder},
		models.Button{Label: "Browse open orders", Callback: cbBrowseOrders},
	)
}

// listOpenOrders shows paid orders matching the factory that it has not
// answered yet, newest first.
func (b *Bot) listOpenOrders(userID string) ([]models.Message, error) {
	factory, err := b.store.GetFactory(userID)
	if err != nil {
		b.log.Error().Err(err).Str("user", userID).Msg("factory lookup failed")
		return reply(userID, msgStorageFailure), err
	}
	if factory == nil || !factory.IsPro {
		return reply(userID,
			"The open-orders feed is available to registered PRO factories.",
			models.Button{Label: "Register a factory", Callback: cbRegisterFactory}), nil
	}

	orders, err := b.store.FindUnansweredOrders(factory.UserID, factory.Categories, factory.MinQty)
	if err != nil {
		b.log.Error().Err(err).Str("user", userID).Msg("unanswered orders query failed")
		return reply(userID, msgStorageFailure), err
	}
	if len(orders) == 0 {
		return reply(userID, "No open orders match your profile right now. You'll be notified when one appears."), nil
	}

	msgs := make([]models.Message, 0, len(orders))
	for _, order := range orders {
		msgs = append(msgs, models.Message{
			RecipientID: userID,
			Text:        order.Summary(),
			Buttons: []models.Button{{
				Label:    "Send proposal",
				Callback: fmt.Sprintf("%s%d", cbProposePrefix, order.ID),
			}},
		})
	}
	return msgs, nil
}

// openDealChat provisions a discussion channel between the buyer and a
// factory. Best effort: provisioning failure degrades to a polite reply.
func (b *Bot) openDealChat(ctx context.Context, userID, token string) ([]models.Message, error) {
	parts := strings.SplitN(token, "_", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	orderID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return nil, nil
	}

	order, err := b.store.GetOrder(uint(orderID))
	if err != nil {
		return reply(userID, msgStorageFailure), err
	}
	factory, err := b.store.GetFactory(parts[1])
	if err != nil {
		return reply(userID, msgStorageFailure), err
	}
	if order == nil || factory == nil {
		return reply(userID, "This deal is no longer available."), nil
	}

	invite, err := b.groupChat.CreateDealChat(ctx, order, factory)
	if err != nil {
		b.log.Error().Err(err).Uint("order", order.ID).Msg("deal chat provisioning failed")
		return reply(userID, "We couldn't open a chat right now — we'll connect you with the factory shortly."), nil
	}

	text := fmt.Sprintf("Your deal chat for order #%d is ready: %s", order.ID, invite)
	return []models.Message{
		{RecipientID: userID, Text: text},
		{RecipientID: factory.UserID, Text: text},
	}, nil
}

func (b *Bot) userLock(userID string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()

	lock, exists := b.userLocks[userID]
	if !exists {
		lock = &sync.Mutex{}
		b.userLocks[userID] = lock
	}
	return lock
}

func isResetCommand(act models.Action) bool {
	if act.Kind != models.KindText && act.Kind != models.KindCommand {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(act.Text)) {
	case cbStart, "start", "/menu":
		return true
	}
	return false
}
