package storage

import (
	"errors"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// ErrStorage marks infrastructure failures (connection lost, write failed).
// Callers check with errors.Is and surface a generic failure message;
// dialogue state is left untouched so the user can retry.
var ErrStorage = errors.New("storage unavailable")

// UnansweredPageSize bounds the open-orders listing.
const UnansweredPageSize = 20

// Store defines the persistence operations over factories, orders and
// proposals. Point lookups return (nil, nil) when no row exists; only
// infrastructure failures are errors. Writes are atomic per row.
type Store interface {
	// Factory operations. Upsert replaces the whole row for the user id
	// (last write wins), never producing a second row.
	UpsertFactory(factory *models.Factory) error
	GetFactory(userID string) (*models.Factory, error)
	ListProFactories() ([]*models.Factory, error)

	// Order operations. Orders are insert-only.
	InsertOrder(order *models.Order) (uint, error)
	GetOrder(id uint) (*models.Order, error)

	// Proposal operations. Proposals are insert-only.
	InsertProposal(proposal *models.Proposal) (uint, error)

	// FindEligibleFactories returns every PRO factory whose minimum
	// quantity, average price and category list satisfy the order. The
	// category check is exact token membership, never substring.
	FindEligibleFactories(category string, quantity int, budget float64) ([]*models.Factory, error)

	// FindUnansweredOrders returns paid orders matching the factory's
	// categories and minimum quantity that the factory has not yet sent a
	// proposal for, newest first, capped at UnansweredPageSize.
	FindUnansweredOrders(factoryID string, categories []string, minQty int) ([]*models.Order, error)
}
