package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/storage"
)

func assertStep(t *testing.T, sessions *SessionManager, userID, flow, step string) {
	t.Helper()

	sess, ok := sessions.Get(userID)
	if !ok {
		t.Fatalf("expected active session for %s", userID)
	}
	if sess.Flow != flow || sess.Step != step {
		t.Fatalf("expected cursor %s/%s, got %s/%s", flow, step, sess.Flow, sess.Step)
	}
}

func runOnboarding(t *testing.T, bot *Bot, userID string) {
	t.Helper()

	sendOK(t, bot, command(userID, cbRegisterFactory))
	sendOK(t, bot, text(userID, "7701234567"))
	sendOK(t, bot, file(userID, "cert-1"))
	sendOK(t, bot, text(userID, "Knitwear, Outerwear"))
	sendOK(t, bot, text(userID, "100"))
	sendOK(t, bot, text(userID, "400"))
	sendOK(t, bot, text(userID, "skip"))
}

func TestOnboarding_CompletesOnPaymentConfirmation(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, notifier, sessions := newTestBot(t, store)

	runOnboarding(t, bot, "fac1")
	assertStep(t, sessions, "fac1", FlowOnboarding, stepOnboardingPayment)

	// Nothing is persisted until the payment collaborator confirms.
	if got, _ := store.GetFactory("fac1"); got != nil {
		t.Fatalf("factory must not exist before payment, got %+v", got)
	}

	if err := bot.OnPaymentConfirmed(context.Background(), "fac1"); err != nil {
		t.Fatalf("payment confirm: %v", err)
	}

	factory, err := store.GetFactory("fac1")
	if err != nil {
		t.Fatalf("get factory: %v", err)
	}
	if factory == nil {
		t.Fatal("expected factory row after payment")
	}
	if !factory.IsPro {
		t.Fatal("factory must be PRO after confirmed payment")
	}
	if factory.TaxID != "7701234567" || factory.MinQty != 100 || factory.AvgPrice != 400 {
		t.Fatalf("unexpected factory row: %+v", factory)
	}
	if len(factory.Categories) != 2 || factory.Categories[0] != "Knitwear" || factory.Categories[1] != "Outerwear" {
		t.Fatalf("categories not parsed: %v", factory.Categories)
	}
	if factory.CertificateID != "cert-1" {
		t.Fatalf("certificate reference lost: %+v", factory)
	}

	if _, ok := sessions.Get("fac1"); ok {
		t.Fatal("session must be cleared on completion")
	}
	if len(notifier.to("fac1")) == 0 {
		t.Fatal("expected a success message to the factory")
	}
}

func TestOnboarding_Reregistration_OverwritesRow(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, _, _ := newTestBot(t, store)

	runOnboarding(t, bot, "fac1")
	if err := bot.OnPaymentConfirmed(context.Background(), "fac1"); err != nil {
		t.Fatalf("payment confirm: %v", err)
	}

	sendOK(t, bot, command("fac1", cbRegisterFactory))
	sendOK(t, bot, text("fac1", "7709999999"))
	sendOK(t, bot, file("fac1", "cert-2"))
	sendOK(t, bot, text("fac1", "Denim"))
	sendOK(t, bot, text("fac1", "50"))
	sendOK(t, bot, text("fac1", "300"))
	sendOK(t, bot, text("fac1", "skip"))
	if err := bot.OnPaymentConfirmed(context.Background(), "fac1"); err != nil {
		t.Fatalf("second payment confirm: %v", err)
	}

	factory, _ := store.GetFactory("fac1")
	if factory.TaxID != "7709999999" || factory.MinQty != 50 {
		t.Fatalf("re-registration must overwrite the row, got %+v", factory)
	}
	all, _ := store.ListProFactories()
	if len(all) != 1 {
		t.Fatalf("expected one row, got %d", len(all))
	}
}

func TestNumericStep_RejectsNonNumericWithoutAdvancing(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, _, sessions := newTestBot(t, store)

	sendOK(t, bot, command("fac1", cbRegisterFactory))
	assertStep(t, sessions, "fac1", FlowOnboarding, stepOnboardingTaxID)

	for _, bad := range []string{"abc", "no digits here", "!!!", " "} {
		msgs := sendOK(t, bot, text("fac1", bad))
		if len(msgs) == 0 {
			t.Fatalf("expected a re-prompt for %q", bad)
		}
		assertStep(t, sessions, "fac1", FlowOnboarding, stepOnboardingTaxID)
	}

	// Digits mixed with noise are fine: only the digits are kept.
	sendOK(t, bot, text("fac1", "tax 7701-234-567"))
	assertStep(t, sessions, "fac1", FlowOnboarding, stepOnboardingCertificate)
}

func TestStep_IgnoresUnmatchedInputKind(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, _, sessions := newTestBot(t, store)

	sendOK(t, bot, command("fac1", cbRegisterFactory))
	sendOK(t, bot, text("fac1", "7701234567"))
	assertStep(t, sessions, "fac1", FlowOnboarding, stepOnboardingCertificate)

	// The certificate step accepts only files; text produces no output and
	// no state change.
	msgs := sendOK(t, bot, text("fac1", "here is my certificate"))
	if len(msgs) != 0 {
		t.Fatalf("expected silence for unmatched input kind, got %v", msgs)
	}
	assertStep(t, sessions, "fac1", FlowOnboarding, stepOnboardingCertificate)
}

func TestReset_ClearsSessionMidDialogue(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, _, sessions := newTestBot(t, store)

	sendOK(t, bot, command("buyer1", cbPostOrder))
	sendOK(t, bot, text("buyer1", "Knitwear"))
	sendOK(t, bot, text("buyer1", "500"))
	assertStep(t, sessions, "buyer1", FlowOrder, stepOrderBudget)

	sendOK(t, bot, text("buyer1", "/start"))
	if _, ok := sessions.Get("buyer1"); ok {
		t.Fatal("reset must clear the session")
	}

	// A numeric message now is a fresh conversation, not a budget answer.
	msgs := sendOK(t, bot, text("buyer1", "300"))
	if _, ok := sessions.Get("buyer1"); ok {
		t.Fatal("stray text must not resurrect the old dialogue")
	}
	if len(msgs) == 0 || !strings.Contains(msgs[0].Text, "What would you like to do") {
		t.Fatalf("expected the main menu, got %v", msgs)
	}

	// And no partial order was ever committed.
	if order, _ := store.GetOrder(1); order != nil {
		t.Fatalf("cancelled dialogue must not commit anything, got %+v", order)
	}
}

func TestOrderFlow_CommitsOnceAndDispatches(t *testing.T) {
	mem := storage.NewMemoryStore()
	store := &countingStore{Store: mem}
	bot, notifier, sessions := newTestBot(t, store)

	eligible := &models.Factory{UserID: "fac1", Categories: models.CategoryList{"Knitwear"}, MinQty: 50, AvgPrice: 100, IsPro: true}
	wrongCategory := &models.Factory{UserID: "fac2", Categories: models.CategoryList{"Denim"}, MinQty: 50, AvgPrice: 100, IsPro: true}
	if err := mem.UpsertFactory(eligible); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := mem.UpsertFactory(wrongCategory); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sendOK(t, bot, command("buyer1", cbPostOrder))
	sendOK(t, bot, text("buyer1", "Knitwear"))
	sendOK(t, bot, text("buyer1", "60"))
	sendOK(t, bot, text("buyer1", "120"))
	sendOK(t, bot, text("buyer1", "Riga"))
	sendOK(t, bot, text("buyer1", "45"))
	sendOK(t, bot, file("buyer1", "techpack-1"))
	assertStep(t, sessions, "buyer1", FlowOrder, stepOrderPayment)

	if err := bot.OnPaymentConfirmed(context.Background(), "buyer1"); err != nil {
		t.Fatalf("payment confirm: %v", err)
	}

	order, err := mem.GetOrder(1)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order == nil {
		t.Fatal("expected order row")
	}
	if !order.Paid {
		t.Fatal("order must be persisted already paid")
	}
	if order.Quantity != 60 || order.Budget != 120 || order.LeadTimeDays != 45 || order.FileID != "techpack-1" {
		t.Fatalf("unexpected order row: %+v", order)
	}
	if extra, _ := mem.GetOrder(2); extra != nil {
		t.Fatalf("exactly one order row expected, got a second: %+v", extra)
	}

	if store.eligibleCalls != 1 {
		t.Fatalf("eligibility query must run exactly once, ran %d times", store.eligibleCalls)
	}

	dispatched := notifier.to("fac1")
	if len(dispatched) != 1 {
		t.Fatalf("eligible factory must get exactly one notification, got %d", len(dispatched))
	}
	if len(dispatched[0].Buttons) != 1 || dispatched[0].Buttons[0].Callback != "propose_1" {
		t.Fatalf("notification must carry the proposal control, got %+v", dispatched[0].Buttons)
	}
	if len(notifier.to("fac2")) != 0 {
		t.Fatal("non-matching factory must not be notified")
	}
	if len(notifier.to("buyer1")) == 0 {
		t.Fatal("buyer must get a confirmation")
	}
	if _, ok := sessions.Get("buyer1"); ok {
		t.Fatal("session must be cleared on completion")
	}
}

func TestOrderFlow_SkipWordAtFileStep(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, _, sessions := newTestBot(t, store)

	sendOK(t, bot, command("buyer1", cbPostOrder))
	sendOK(t, bot, text("buyer1", "Knitwear"))
	sendOK(t, bot, text("buyer1", "60"))
	sendOK(t, bot, text("buyer1", "120"))
	sendOK(t, bot, text("buyer1", "Riga"))
	sendOK(t, bot, text("buyer1", "45"))
	sendOK(t, bot, text("buyer1", "нет"))
	assertStep(t, sessions, "buyer1", FlowOrder, stepOrderPayment)

	if err := bot.OnPaymentConfirmed(context.Background(), "buyer1"); err != nil {
		t.Fatalf("payment confirm: %v", err)
	}
	order, _ := store.GetOrder(1)
	if order == nil || order.FileID != "" {
		t.Fatalf("expected order without file, got %+v", order)
	}
}

func TestOrderFlow_StorageFailureKeepsSession(t *testing.T) {
	store := &failingStore{Store: storage.NewMemoryStore()}
	bot, notifier, sessions := newTestBot(t, store)

	sendOK(t, bot, command("buyer1", cbPostOrder))
	sendOK(t, bot, text("buyer1", "Knitwear"))
	sendOK(t, bot, text("buyer1", "60"))
	sendOK(t, bot, text("buyer1", "120"))
	sendOK(t, bot, text("buyer1", "Riga"))
	sendOK(t, bot, text("buyer1", "45"))
	sendOK(t, bot, text("buyer1", "skip"))

	err := bot.OnPaymentConfirmed(context.Background(), "buyer1")
	if !errors.Is(err, storage.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	// Session stays so the confirmation can be retried.
	assertStep(t, sessions, "buyer1", FlowOrder, stepOrderPayment)

	msgs := notifier.to("buyer1")
	if len(msgs) == 0 || !strings.Contains(msgs[len(msgs)-1].Text, "try again") {
		t.Fatalf("expected a generic failure message, got %v", msgs)
	}
}

func TestOnPaymentConfirmed_NoPendingDialogue(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, notifier, _ := newTestBot(t, store)

	if err := bot.OnPaymentConfirmed(context.Background(), "stranger"); err != nil {
		t.Fatalf("stale payment confirmation must be dropped quietly, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("no messages expected, got %v", notifier.sent)
	}
}

func TestPaymentStep_IsFixedPoint(t *testing.T) {
	store := storage.NewMemoryStore()
	bot, _, sessions := newTestBot(t, store)

	runOnboarding(t, bot, "fac1")

	msgs := sendOK(t, bot, text("fac1", "did it work?"))
	if len(msgs) == 0 || !strings.Contains(msgs[0].Text, "Waiting") {
		t.Fatalf("expected a waiting reply, got %v", msgs)
	}
	assertStep(t, sessions, "fac1", FlowOnboarding, stepOnboardingPayment)
}
