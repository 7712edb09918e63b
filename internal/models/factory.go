package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// CategoryList is an ordered set of production categories. It is persisted
// as newline-joined text so both Postgres and SQLite can hold it in a plain
// text column.
type CategoryList []string

// Value implements driver.Valuer.
func (c CategoryList) Value() (driver.Value, error) {
	return strings.Join(c, "\n"), nil
}

// Scan implements sql.Scanner.
func (c *CategoryList) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CategoryList", src)
	}
	*c = SplitCategories(raw)
	return nil
}

// Contains reports exact token membership. Substring matches do not count:
// an order for "Knitwear" must not reach a factory producing "Knitwear2".
func (c CategoryList) Contains(category string) bool {
	for _, item := range c {
		if item == category {
			return true
		}
	}
	return false
}

// SplitCategories turns free text into a trimmed category list, splitting on
// commas and newlines and dropping empty entries.
func SplitCategories(raw string) CategoryList {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	var out CategoryList
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Factory represents a garment manufacturer in the system. The row is
// created (or wholly replaced) at the moment the onboarding subscription
// payment is confirmed; IsPro is never true before that.
type Factory struct {
	UserID          string       `json:"user_id" gorm:"primaryKey"` // chat platform user id
	Name            string       `json:"name"`
	TaxID           string       `json:"tax_id"`
	Categories      CategoryList `json:"categories" gorm:"type:text"`
	MinQty          int          `json:"min_qty"`
	AvgPrice        float64      `json:"avg_price"` // average unit price
	PortfolioFileID string       `json:"portfolio_file_id"`
	CertificateID   string       `json:"certificate_id"` // production certificate / photos reference
	IsPro           bool         `json:"is_pro" gorm:"default:false"`
	CreatedAt       time.Time    `json:"created_at"`
}

// CanServe checks whether the factory satisfies an order's constraints.
func (f *Factory) CanServe(category string, quantity int, budget float64) bool {
	return f.IsPro &&
		f.MinQty <= quantity &&
		f.AvgPrice <= budget &&
		f.Categories.Contains(category)
}
