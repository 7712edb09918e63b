package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
	"github.com/stitchlink/stitchlink-backend/internal/storage"
)

// Dialogue names. Each is a strictly linear chain of named steps with a
// single terminal commit; the only backward transition is a full reset.
const (
	FlowOnboarding = "factory_onboarding"
	FlowOrder      = "buyer_order"
	FlowProposal   = "factory_proposal"
)

type stepKey struct {
	flow string
	step string
}

// stepSpec declares which input kinds a step accepts and what it does with
// them. Input of an undeclared kind is dropped without advancing the cursor.
type stepSpec struct {
	accepts []models.InputKind
	handle  func(ctx context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error)
}

func (s stepSpec) acceptsKind(kind models.InputKind) bool {
	for _, k := range s.accepts {
		if k == kind {
			return true
		}
	}
	return false
}

// flowSteps maps (dialogue, step) to its handler. Populated by the flow
// files at init, so the whole chain of every dialogue is auditable in one
// table per flow.
var flowSteps = make(map[stepKey]stepSpec)

func registerFlow(flow string, steps map[string]stepSpec) {
	for step, spec := range steps {
		flowSteps[stepKey{flow: flow, step: step}] = spec
	}
}

// FlowEngine drives the three dialogues: factory onboarding, buyer order
// creation and factory proposals. It is the only component that reads
// session state to decide what repository write to perform.
type FlowEngine struct {
	store      storage.Store
	sessions   *SessionManager
	dispatcher *Dispatcher
	log        zerolog.Logger
}

// NewFlowEngine wires the dialogue engine.
func NewFlowEngine(store storage.Store, sessions *SessionManager, dispatcher *Dispatcher, log zerolog.Logger) *FlowEngine {
	return &FlowEngine{
		store:      store,
		sessions:   sessions,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "flows").Logger(),
	}
}

// HandleStep routes one inbound action to the session's current step
// handler. Unknown steps and unmatched input kinds produce no output and no
// state change.
func (e *FlowEngine) HandleStep(ctx context.Context, sess *models.Session, act models.Action) ([]models.Message, error) {
	spec, ok := flowSteps[stepKey{flow: sess.Flow, step: sess.Step}]
	if !ok {
		e.log.Warn().Str("user", sess.UserID).Str("flow", sess.Flow).Str("step", sess.Step).Msg("no handler for step")
		return nil, nil
	}
	if !spec.acceptsKind(act.Kind) {
		return nil, nil
	}
	return spec.handle(ctx, e, sess, act)
}

// OnPaymentConfirmed is the trigger from the payment collaborator. It
// commits whichever payment-pending dialogue the user's session sits on:
// factory upsert for onboarding, order insert plus dispatch for orders.
func (e *FlowEngine) OnPaymentConfirmed(ctx context.Context, userID string) ([]models.Message, error) {
	sess, ok := e.sessions.Get(userID)
	if !ok {
		return nil, ErrNoPendingPayment
	}

	switch {
	case sess.Flow == FlowOnboarding && sess.Step == stepOnboardingPayment:
		return e.commitFactory(ctx, sess)
	case sess.Flow == FlowOrder && sess.Step == stepOrderPayment:
		return e.commitOrder(ctx, sess)
	default:
		return nil, ErrNoPendingPayment
	}
}

// digits strips everything but decimal digits from raw input. The uniform
// numeric-step policy: an empty result re-prompts without advancing and the
// user may resubmit indefinitely.
func digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isSkipWord recognizes an explicit skip of an optional step.
func isSkipWord(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "skip", "no", "none", "нет", "-":
		return true
	}
	return false
}

func reply(userID, text string, buttons ...models.Button) []models.Message {
	return []models.Message{{RecipientID: userID, Text: text, Buttons: buttons}}
}
