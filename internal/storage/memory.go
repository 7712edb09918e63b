package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// MemoryStore holds all data in memory for local development and tests.
type MemoryStore struct {
	factories map[string]*models.Factory
	orders    map[uint]*models.Order
	proposals map[uint]*models.Proposal

	factoryMu  sync.RWMutex
	orderMu    sync.RWMutex
	proposalMu sync.RWMutex

	orderCounter    uint
	proposalCounter uint
}

// NewMemoryStore creates a new in-memory storage.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		factories: make(map[string]*models.Factory),
		orders:    make(map[uint]*models.Order),
		proposals: make(map[uint]*models.Proposal),
	}
}

func (m *MemoryStore) UpsertFactory(factory *models.Factory) error {
	m.factoryMu.Lock()
	defer m.factoryMu.Unlock()

	if factory.CreatedAt.IsZero() {
		factory.CreatedAt = time.Now()
	}
	copied := *factory
	m.factories[factory.UserID] = &copied
	return nil
}

func (m *MemoryStore) GetFactory(userID string) (*models.Factory, error) {
	m.factoryMu.RLock()
	defer m.factoryMu.RUnlock()

	factory, exists := m.factories[userID]
	if !exists {
		return nil, nil
	}
	copied := *factory
	return &copied, nil
}

func (m *MemoryStore) ListProFactories() ([]*models.Factory, error) {
	m.factoryMu.RLock()
	defer m.factoryMu.RUnlock()

	var out []*models.Factory
	for _, factory := range m.factories {
		if factory.IsPro {
			copied := *factory
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryStore) InsertOrder(order *models.Order) (uint, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	m.orderCounter++
	order.ID = m.orderCounter
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	copied := *order
	m.orders[order.ID] = &copied
	return order.ID, nil
}

func (m *MemoryStore) GetOrder(id uint) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (m *MemoryStore) InsertProposal(proposal *models.Proposal) (uint, error) {
	m.proposalMu.Lock()
	defer m.proposalMu.Unlock()

	m.proposalCounter++
	proposal.ID = m.proposalCounter
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = time.Now()
	}
	copied := *proposal
	m.proposals[proposal.ID] = &copied
	return proposal.ID, nil
}

func (m *MemoryStore) FindEligibleFactories(category string, quantity int, budget float64) ([]*models.Factory, error) {
	m.factoryMu.RLock()
	defer m.factoryMu.RUnlock()

	var matches []*models.Factory
	for _, factory := range m.factories {
		if factory.CanServe(category, quantity, budget) {
			copied := *factory
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].UserID < matches[j].UserID })
	return matches, nil
}

func (m *MemoryStore) FindUnansweredOrders(factoryID string, categories []string, minQty int) ([]*models.Order, error) {
	answered := m.answeredOrders(factoryID)
	cats := models.CategoryList(categories)

	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var results []*models.Order
	for _, order := range m.orders {
		if !order.Paid {
			continue
		}
		if order.Quantity < minQty {
			continue
		}
		if !cats.Contains(order.Category) {
			continue
		}
		if answered[order.ID] {
			continue
		}
		copied := *order
		results = append(results, &copied)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID > results[j].ID })
	if len(results) > UnansweredPageSize {
		results = results[:UnansweredPageSize]
	}
	return results, nil
}

func (m *MemoryStore) answeredOrders(factoryID string) map[uint]bool {
	m.proposalMu.RLock()
	defer m.proposalMu.RUnlock()

	answered := make(map[uint]bool)
	for _, proposal := range m.proposals {
		if proposal.FactoryID == factoryID {
			answered[proposal.OrderID] = true
		}
	}
	return answered
}
