package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// Factory onboarding steps, in chain order.
const (
	stepOnboardingTaxID       = "tax_id"
	stepOnboardingCertificate = "certificate"
	stepOnboardingCategories  = "categories"
	stepOnboardingMinQty      = "min_qty"
	stepOnboardingAvgPrice    = "avg_price"
	stepOnboardingPortfolio   = "portfolio"
	stepOnboardingPayment     = "payment_confirm"
)

func init() {
	registerFlow(FlowOnboarding, map[string]stepSpec{
		stepOnboardingTaxID: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOnboardingTaxID,
		},
		stepOnboardingCertificate: {
			accepts: []models.InputKind{models.KindFile},
			handle:  handleOnboardingCertificate,
		},
		stepOnboardingCategories: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOnboardingCategories,
		},
		stepOnboardingMinQty: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOnboardingMinQty,
		},
		stepOnboardingAvgPrice: {
			accepts: []models.InputKind{models.KindText},
			handle:  handleOnboardingAvgPrice,
		},
		stepOnboardingPortfolio: {
			accepts: []models.InputKind{models.KindText, models.KindFile},
			handle:  handleOnboardingPortfolio,
		},
		stepOnboardingPayment: {
			accepts: []models.InputKind{models.KindText, models.KindCommand},
			handle:  handlePaymentWait,
		},
	})
}

// StartOnboarding begins the factory registration dialogue. Re-registration
// is allowed: completing it again overwrites the whole factory row.
func (e *FlowEngine) StartOnboarding(_ context.Context, act models.Action) ([]models.Message, error) {
	e.sessions.Clear(act.UserID)
	e.sessions.SetStep(act.UserID, FlowOnboarding, stepOnboardingTaxID)
	if act.DisplayName != "" {
		e.sessions.SetField(act.UserID, "name", act.DisplayName)
	}

	return reply(act.UserID,
		"Let's register your factory.\n\nFirst, what is your company's tax ID?"), nil
}

func handleOnboardingTaxID(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	taxID := digits(act.Text)
	if taxID == "" {
		return reply(sess.UserID, "That doesn't look like a tax ID. Please send the number only."), nil
	}

	e.sessions.SetField(sess.UserID, "tax_id", taxID)
	e.sessions.SetStep(sess.UserID, FlowOnboarding, stepOnboardingCertificate)

	return reply(sess.UserID,
		"Got it. Now attach photos of your production or a certificate (one file)."), nil
}

func handleOnboardingCertificate(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	e.sessions.SetField(sess.UserID, "certificate_id", act.FileID)
	e.sessions.SetStep(sess.UserID, FlowOnboarding, stepOnboardingCategories)

	return reply(sess.UserID,
		"Which categories do you produce? List them separated by commas or new lines.\n\nExample: Knitwear, Outerwear, Denim"), nil
}

func handleOnboardingCategories(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	if len(models.SplitCategories(act.Text)) == 0 {
		return reply(sess.UserID, "Please list at least one category."), nil
	}

	e.sessions.SetField(sess.UserID, "categories", act.Text)
	e.sessions.SetStep(sess.UserID, FlowOnboarding, stepOnboardingMinQty)

	return reply(sess.UserID, "What is your minimum order quantity, in pieces?"), nil
}

func handleOnboardingMinQty(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	qty := digits(act.Text)
	if qty == "" {
		return reply(sess.UserID, "Please send the minimum quantity as a number, e.g. 100."), nil
	}

	e.sessions.SetField(sess.UserID, "min_qty", qty)
	e.sessions.SetStep(sess.UserID, FlowOnboarding, stepOnboardingAvgPrice)

	return reply(sess.UserID, "What is your average unit price?"), nil
}

func handleOnboardingAvgPrice(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	price := digits(act.Text)
	if price == "" {
		return reply(sess.UserID, "Please send the average price as a number, e.g. 450."), nil
	}

	e.sessions.SetField(sess.UserID, "avg_price", price)
	e.sessions.SetStep(sess.UserID, FlowOnboarding, stepOnboardingPortfolio)

	return reply(sess.UserID,
		"Almost done. Attach your portfolio file, or reply \"skip\" if you don't have one."), nil
}

func handleOnboardingPortfolio(_ context.Context, e *FlowEngine, sess *models.Session, act models.Action) ([]models.Message, error) {
	switch act.Kind {
	case models.KindFile:
		e.sessions.SetField(sess.UserID, "portfolio_id", act.FileID)
	case models.KindText:
		if !isSkipWord(act.Text) {
			return reply(sess.UserID, "Attach a portfolio file, or reply \"skip\"."), nil
		}
	}

	e.sessions.SetStep(sess.UserID, FlowOnboarding, stepOnboardingPayment)
	return paymentPrompt(sess.UserID,
		"Almost there! A PRO subscription unlocks order notifications and the open-orders feed."), nil
}

// paymentPrompt is shared by both payment_confirm steps. The link is a stub:
// the gateway confirms out of band and the core only reacts to its callback.
func paymentPrompt(userID, lead string) []models.Message {
	ref := uuid.NewString()
	text := fmt.Sprintf("%s\n\nPayment link: https://pay.stitchlink.app/%s\n\nYou'll be activated automatically once the payment is confirmed.", lead, ref)
	return reply(userID, text)
}

// handlePaymentWait answers anything typed while the dialogue waits on the
// external payment confirmation. It is a fixed point: the cursor stays put.
func handlePaymentWait(_ context.Context, _ *FlowEngine, sess *models.Session, _ models.Action) ([]models.Message, error) {
	return reply(sess.UserID,
		"Waiting for your payment confirmation. Use the link above, or /start to cancel."), nil
}

// commitFactory is the terminal transition of the onboarding dialogue,
// reached only through the payment collaborator.
func (e *FlowEngine) commitFactory(_ context.Context, sess *models.Session) ([]models.Message, error) {
	fields := sess.Fields
	minQty, _ := strconv.Atoi(fields["min_qty"])
	avgPrice, _ := strconv.ParseFloat(fields["avg_price"], 64)

	factory := &models.Factory{
		UserID:          sess.UserID,
		Name:            fields["name"],
		TaxID:           fields["tax_id"],
		Categories:      models.SplitCategories(fields["categories"]),
		MinQty:          minQty,
		AvgPrice:        avgPrice,
		PortfolioFileID: fields["portfolio_id"],
		CertificateID:   fields["certificate_id"],
		IsPro:           true,
	}

	if err := e.store.UpsertFactory(factory); err != nil {
		e.log.Error().Err(err).Str("user", sess.UserID).Msg("factory upsert failed")
		return reply(sess.UserID, msgStorageFailure), err
	}

	e.sessions.Clear(sess.UserID)
	e.log.Info().Str("user", sess.UserID).Int("categories", len(factory.Categories)).Msg("factory registered")

	return reply(sess.UserID,
		"Your factory is registered and PRO is active!\n\nYou'll be notified about matching orders. Browse open orders any time from the menu.",
		models.Button{Label: "Open orders", Callback: cbBrowseOrders}), nil
}
