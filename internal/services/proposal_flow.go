package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// Factory proposal steps, in chain order. This dialogue is entered only via
// the "respond to order #N" control, never from the main menu.
const (
	stepProposalPrice      = "price"
	stepProposalLeadTime   = "lead_time"
	stepProposalSampleCost = "sample_cost"
)

func init() {
	registerFlow(FlowProposal, map[string]stepSpec{
		stepProposalPrice: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleProposalPrice,
		},
		stepProposalLeadTime: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleProposalLeadTime,
		},
		stepProposalSampleCost: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleProposalSampleCost,
		},
	})
}

// StartProposal begins the proposal dialogue against one order. The order
// must still exist; responding to a vanished order yields ErrOrderGone.
func (e *FlowEngine) StartProposal(_ context.Context, userID string, orderID uint) ([]models.Message, error) {
	order, err := e.store.GetOrder(orderID)
	if err != nil {
		e.log.Error().Err(err).Uint("order", orderID).Msg("order lookup failed")
		return reply(userID, msgStorageFailure), err
	}
	if order == nil {
		return reply(userID, "This order is no longer available."), ErrOrderGone
	}

	e.sessions.Clear(userID)
	e.sessions.SetStep(userID, FlowProposal, stepProposalPrice)
	e.sessions.SetField(userID, "order_id", strconv.FormatUint(uint64(orderID), 10))

	return reply(userID,
		fmt.Sprintf("Responding to order #%d.\n\n%s\n\nWhat unit price do you offer?", order.ID, order.Summary())), nil
}

func handleProposalPrice(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	price := digits(act.Text)
	if price == "" {
		return reply(sess.UserID, "Please send your unit price as a number, e.g. 280."), nil
	}

	e.sessions.SetField(sess.UserID, "price", price)
	e.sessions.SetStep(sess.UserID, FlowProposal, stepProposalLeadTime)

	return reply(sess.UserID, "In how many days can you deliver?"), nil
}

func handleProposalLeadTime(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	days := digits(act.Text)
	if days == "" {
		return reply(sess.UserID, "Please send the lead time in days, e.g. 30."), nil
	}

	e.sessions.SetField(sess.UserID, "lead_time", days)
	e.sessions.SetStep(sess.UserID, FlowProposal, stepProposalSampleCost)

	return reply(sess.UserID, "What does a sample cost? Send 0 if the sample is free."), nil
}

// handleProposalSampleCost is the terminal step: it commits the proposal and
// relays it to the order's buyer.
func handleProposalSampleCost(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	cost := digits(act.Text)
	if cost == "" {
		return reply(sess.UserID, "Please send the sample cost as a number. 0 is fine."), nil
	}

	fields := sess.Fields
	orderID, _ := strconv.ParseUint(fields["order_id"], 10, 64)
	price, _ := strconv.ParseFloat(fields["price"], 64)
	leadTime, _ := strconv.Atoi(fields["lead_time"])
	sampleCost, _ := strconv.ParseFloat(cost, 64)

	order, err := e.store.GetOrder(uint(orderID))
	if err != nil {
		e.log.Error().Err(err).Uint64("order", orderID).Msg("order lookup failed")
		return reply(sess.UserID, msgStorageFailure), err
	}
	if order == nil {
		e.sessions.Clear(sess.UserID)
		return reply(sess.UserID, "This order is no longer available."), nil
	}

	proposal := &models.Proposal{
		OrderID:      order.ID,
		FactoryID:    sess.UserID,
		Price:        price,
		LeadTimeDays: leadTime,
		SampleCost:   sampleCost,
	}

	if _, err := e.store.InsertProposal(proposal); err != nil {
		e.log.Error().Err(err).Uint("order", order.ID).Msg("proposal insert failed")
		return reply(sess.UserID, msgStorageFailure), err
	}

	e.sessions.Clear(sess.UserID)
	e.log.Info().Uint("order", order.ID).Str("factory", sess.UserID).Msg("proposal submitted")

	factoryName := sess.UserID
	if factory, err := e.store.GetFactory(sess.UserID); err == nil && factory != nil && factory.Name != "" {
		factoryName = factory.Name
	}

	buyerText := fmt.Sprintf("New proposal for your order #%d from %s:\n\nUnit price: %.0f\nLead time: %d days\nSample cost: %.0f",
		order.ID, factoryName, price, leadTime, sampleCost)

	return []models.Message{
		{RecipientID: sess.UserID, Text: fmt.Sprintf("Your proposal for order #%d has been sent to the buyer.", order.ID)},
		{
			RecipientID: order.BuyerID,
			Text:        buyerText,
			Buttons: []models.Button{{
				Label:    "Discuss with factory",
				Callback: fmt.Sprintf("%s%d_%s", cbDealChatPrefix, order.ID, sess.UserID),
			}},
		},
	}, nil
}
