package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// GroupChatService provisions a private discussion channel for a confirmed
// deal. It is an optional external collaborator: the core never depends on
// it succeeding.
type GroupChatService struct {
	log zerolog.Logger
}

func NewGroupChatService(log zerolog.Logger) *GroupChatService {
	return &GroupChatService{log: log.With().Str("component", "groupchat").Logger()}
}

// CreateDealChat returns an invite reference for a buyer-factory channel.
// Stub implementation: real provisioning would call the chat platform's
// group API here.
func (g *GroupChatService) CreateDealChat(_ context.Context, order *models.Order, factory *models.Factory) (string, error) {
	invite := fmt.Sprintf("https://chat.stitchlink.app/j/%s", uuid.NewString()[:8])
	g.log.Info().Uint("order", order.ID).Str("factory", factory.UserID).Str("invite", invite).Msg("deal chat created")
	return invite, nil
}
