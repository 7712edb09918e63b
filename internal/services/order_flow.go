package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// Buyer order creation steps, in chain order.
const (
	stepOrderCategory    = "category"
	stepOrderQuantity    = "quantity"
	stepOrderBudget      = "budget"
	stepOrderDestination = "destination"
	stepOrderLeadTime    = "lead_time"
	stepOrderFile        = "optional_file"
	stepOrderPayment     = "payment_confirm"
)

func init() {
	registerFlow(FlowOrder, map[string]stepSpec{
		stepOrderCategory: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOrderCategory,
		},
		stepOrderQuantity: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOrderQuantity,
		},
		stepOrderBudget: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOrderBudget,
		},
		stepOrderDestination: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOrderDestination,
		},
		stepOrderLeadTime: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOrderLeadTime,
		},
		stepOrderFile: {
			accepts: []models.InputKind{models.KindText, models.KindFile},
			handle:  handleOrderFile,
		},
		stepOrderPayment: {
			accepts: []models.InputKind{models.KindText, models.KindCommand},
			handle:  handlePaymentWait,
		},
	})
}

// StartOrder begins the buyer order-creation dialogue.
func (e *FlowEngine) StartOrder(_ context.Context, act models.Action) ([]models.Message, error) {
	e.sessions.Clear(act.UserID)
	e.sessions.SetStep(act.UserID, FlowOrder, stepOrderCategory)

	return reply(act.UserID,
		"Let's post your order.\n\nWhat category of garments do you need?\n\nExample: Knitwear"), nil
}

func handleOrderCategory(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	category := models.SplitCategories(act.Text)
	if len(category) == 0 {
		return reply(sess.UserID, "Please name the category you need."), nil
	}

	e.sessions.SetField(sess.UserID, "category", category[0])
	e.sessions.SetStep(sess.UserID, FlowOrder, stepOrderQuantity)

	return reply(sess.UserID, "How many pieces do you need?"), nil
}

func handleOrderQuantity(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	qty := digits(act.Text)
	if qty == "" {
		return reply(sess.UserID, "Please send the quantity as a number, e.g. 500."), nil
	}

	e.sessions.SetField(sess.UserID, "quantity", qty)
	e.sessions.SetStep(sess.UserID, FlowOrder, stepOrderBudget)

	return reply(sess.UserID, "What is your budget per unit (maximum unit price)?"), nil
}

func handleOrderBudget(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	budget := digits(act.Text)
	if budget == "" {
		return reply(sess.UserID, "Please send the budget as a number, e.g. 300."), nil
	}

	e.sessions.SetField(sess.UserID, "budget", budget)
	e.sessions.SetStep(sess.UserID, FlowOrder, stepOrderDestination)

	return reply(sess.UserID, "Where should the order be delivered?"), nil
}

func handleOrderDestination(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	if act.Text == "" {
		return reply(sess.UserID, "Please name the delivery destination."), nil
	}

	e.sessions.SetField(sess.UserID, "destination", act.Text)
	e.sessions.SetStep(sess.UserID, FlowOrder, stepOrderLeadTime)

	return reply(sess.UserID, "What lead time do you expect, in days?"), nil
}

func handleOrderLeadTime(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	days := digits(act.Text)
	if days == "" {
		return reply(sess.UserID, "Please send the lead time in days, e.g. 45."), nil
	}

	e.sessions.SetField(sess.UserID, "lead_time", days)
	e.sessions.SetStep(sess.UserID, FlowOrder, stepOrderFile)

	return reply(sess.UserID,
		"Attach a tech pack or reference file, or reply \"skip\" if there isn't one."), nil
}

func handleOrderFile(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	switch act.Kind {
	case models.KindFile:
		e.sessions.SetField(sess.UserID, "file_id", act.FileID)
	case models.KindText:
		if !isSkipWord(act.Text) {
			return reply(sess.UserID, "Attach a reference file, or reply \"skip\"."), nil
		}
	}

	e.sessions.SetStep(sess.UserID, FlowOrder, stepOrderPayment)
	return paymentPrompt(sess.UserID,
		"One last step: the placement fee. Your order goes out to matching factories right after payment."), nil
}

// commitOrder is the terminal transition of the order dialogue, reached only
// through the payment collaborator. The row is inserted already paid, then
// handed to dispatch exactly once.
func (e *FlowEngine) commitOrder(ctx context.Context, sess *models.Session) ([]models.Message, error) {
	fields := sess.Fields
	quantity, _ := strconv.Atoi(fields["quantity"])
	budget, _ := strconv.ParseFloat(fields["budget"], 64)
	leadTime, _ := strconv.Atoi(fields["lead_time"])

	order := &models.Order{
		BuyerID:      sess.UserID,
		Category:     fields["category"],
		Quantity:     quantity,
		Budget:       budget,
		Destination:  fields["destination"],
		LeadTimeDays: leadTime,
		FileID:       fields["file_id"],
		Paid:         true,
	}

	if _, err := e.store.InsertOrder(order); err != nil {
		e.log.Error().Err(err).Str("user", sess.UserID).Msg("order insert failed")
		return reply(sess.UserID, msgStorageFailure), err
	}

	e.sessions.Clear(sess.UserID)

	matched, err := e.dispatcher.Dispatch(ctx, order)
	if err != nil {
		// The order is durably paid; matching can still happen through
		// the open-orders feed, so the buyer sees success.
		e.log.Error().Err(err).Uint("order", order.ID).Msg("dispatch failed")
	}

	text := fmt.Sprintf("Order #%d is live!\n\n%s", order.ID, order.Summary())
	if err == nil {
		text += fmt.Sprintf("\n\nSent to %d matching factories. Proposals will arrive here.", matched)
	}
	return reply(sess.UserID, text), nil
}
