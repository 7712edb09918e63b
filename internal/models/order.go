package models

import (
	"fmt"
	"time"
)

// Order represents a buyer's production request. Rows are inserted only at
// payment confirmation, already marked paid, and are immutable afterwards.
type Order struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	BuyerID      string    `json:"buyer_id" gorm:"index"`
	Category     string    `json:"category"` // free text, used for matching
	Quantity     int       `json:"quantity"`
	Budget       float64   `json:"budget"` // max unit price the buyer accepts
	Destination  string    `json:"destination"`
	LeadTimeDays int       `json:"lead_time_days"`
	FileID       string    `json:"file_id"` // optional reference file
	Paid         bool      `json:"paid" gorm:"default:false;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary renders the order's public details, as shown to factories during
// dispatch and in the open-orders listing. The buyer's identity is not part
// of it.
func (o *Order) Summary() string {
	s := fmt.Sprintf("Order #%d\nCategory: %s\nQuantity: %d pcs\nBudget: up to %.0f per unit\nLead time: %d days\nDestination: %s",
		o.ID, o.Category, o.Quantity, o.Budget, o.LeadTimeDays, o.Destination)
	if o.FileID != "" {
		s += "\nReference file attached"
	}
	return s
}

// Proposal is a factory's priced response to a specific order. Immutable,
// never deleted. A factory may submit more than one proposal for the same
// order; listings only surface orders the factory has not answered yet.
type Proposal struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	OrderID      uint      `json:"order_id" gorm:"index"`
	FactoryID    string    `json:"factory_id" gorm:"index"`
	Price        float64   `json:"price"` // proposed unit price
	LeadTimeDays int       `json:"lead_time_days"`
	SampleCost   float64   `json:"sample_cost"` // zero means free sample
	CreatedAt    time.Time `json:"created_at"`
}
