package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stitchlink/stitchlink-backend/internal/models"
)

// DatabaseStore is the GORM-backed Store used in production.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a store on top of an open GORM connection.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) UpsertFactory(factory *models.Factory) error {
	// Save upserts by primary key (UserID), replacing the whole row.
	if err := s.db.Save(factory).Error; err != nil {
		return fmt.Errorf("%w: upsert factory %s: %v", ErrStorage, factory.UserID, err)
	}
	return nil
}

func (s *DatabaseStore) GetFactory(userID string) (*models.Factory, error) {
	var factory models.Factory
	err := s.db.First(&factory, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get factory %s: %v", ErrStorage, userID, err)
	}
	return &factory, nil
}

func (s *DatabaseStore) ListProFactories() ([]*models.Factory, error) {
	var factories []*models.Factory
	if err := s.db.Where("is_pro = ?", true).Order("user_id").Find(&factories).Error; err != nil {
		return nil, fmt.Errorf("%w: list pro factories: %v", ErrStorage, err)
	}
	return factories, nil
}

func (s *DatabaseStore) InsertOrder(order *models.Order) (uint, error) {
	if err := s.db.Create(order).Error; err != nil {
		return 0, fmt.Errorf("%w: insert order: %v", ErrStorage, err)
	}
	return order.ID, nil
}

func (s *DatabaseStore) GetOrder(id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get order %d: %v", ErrStorage, id, err)
	}
	return &order, nil
}

func (s *DatabaseStore) InsertProposal(proposal *models.Proposal) (uint, error) {
	if err := s.db.Create(proposal).Error; err != nil {
		return 0, fmt.Errorf("%w: insert proposal: %v", ErrStorage, err)
	}
	return proposal.ID, nil
}

func (s *DatabaseStore) FindEligibleFactories(category string, quantity int, budget float64) ([]*models.Factory, error) {
	var candidates []*models.Factory
	err := s.db.
		Where("is_pro = ? AND min_qty <= ? AND avg_price <= ?", true, quantity, budget).
		Order("user_id").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find eligible factories: %v", ErrStorage, err)
	}

	// Category membership is checked in Go against the parsed list. A SQL
	// LIKE over the joined text would match "Knitwear" inside "Knitwear2".
	var matches []*models.Factory
	for _, factory := range candidates {
		if factory.Categories.Contains(category) {
			matches = append(matches, factory)
		}
	}
	return matches, nil
}

func (s *DatabaseStore) FindUnansweredOrders(factoryID string, categories []string, minQty int) ([]*models.Order, error) {
	answered := s.db.Model(&models.Proposal{}).
		Select("order_id").
		Where("factory_id = ?", factoryID)

	var candidates []*models.Order
	err := s.db.
		Where("paid = ? AND quantity >= ?", true, minQty).
		Where("id NOT IN (?)", answered).
		Order("id DESC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find unanswered orders for %s: %v", ErrStorage, factoryID, err)
	}

	cats := models.CategoryList(categories)
	var results []*models.Order
	for _, order := range candidates {
		if !cats.Contains(order.Category) {
			continue
		}
		results = append(results, order)
		if len(results) == UnansweredPageSize {
			break
		}
	}
	return results, nil
}
