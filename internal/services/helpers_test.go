package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/storage"
)

// fakeNotifier records outbound messages and can simulate delivery failure
// for chosen recipients.
type fakeNotifier struct {
	mu       sync.Mutex
	sent     []models.Message
	attempts []string
	failFor  map[string]bool
}

func (f *fakeNotifier) Send(_ context.Context, msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts = append(f.attempts, msg.RecipientID)
	if f.failFor[msg.RecipientID] {
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) to(recipient string) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Message
	for _, msg := range f.sent {
		if msg.RecipientID == recipient {
			out = append(out, msg)
		}
	}
	return out
}

// countingStore counts eligibility queries on top of a real store.
type countingStore struct {
	storage.Store
	mu            sync.Mutex
	eligibleCalls int
}

func (c *countingStore) FindEligibleFactories(category string, quantity int, budget float64) ([]*models.Factory, error) {
	c.mu.Lock()
	c.eligibleCalls++
	c.mu.Unlock()
	return c.Store.FindEligibleFactories(category, quantity, budget)
}

// failingStore fails order inserts to exercise the storage-error path.
type failingStore struct {
	storage.Store
}

func (f *failingStore) InsertOrder(*models.Order) (uint, error) {
	return 0, storage.ErrStorage
}

func newTestBot(t *testing.T, store storage.Store) (*Bot, *fakeNotifier, *SessionManager) {
	t.Helper()

	log := zerolog.Nop()
	notifier := &fakeNotifier{failFor: make(map[string]bool)}
	sessions := NewSessionManager(log)
	dispatcher := NewDispatcher(store, notifier, log)
	flows := NewFlowEngine(store, sessions, dispatcher, log)
	bot := NewBot(store, sessions, flows, notifier, NewGroupChatService(log), log)
	return bot, notifier, sessions
}

func text(userID, body string) models.Action {
	return models.Action{UserID: userID, Kind: models.KindText, Text: body}
}

func command(userID, token string) models.Action {
	return models.Action{UserID: userID, Kind: models.KindCommand, Text: token}
}

func file(userID, fileID string) models.Action {
	return models.Action{UserID: userID, Kind: models.KindFile, FileID: fileID}
}

// sendOK runs one action and fails the test on an unexpected error.
func sendOK(t *testing.T, bot *Bot, act models.Action) []models.Message {
	t.Helper()

	msgs, err := bot.HandleInput(context.Background(), act)
	if err != nil {
		t.Fatalf("HandleInput(%q %s): %v", act.Text, act.Kind, err)
	}
	return msgs
}
