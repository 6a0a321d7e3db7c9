// backend-go/internal/domain/inventory.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnknownLabel is the bucket used for records with a blank category, brand or product name.
const UnknownLabel = "unknown"

// InventoryRecord is one stocked item as delivered by a record source.
// SoldAt is kept as raw text; an empty value means the item is still on hand.
type InventoryRecord struct {
	ID              string              `json:"id,omitempty" db:"id"`
	ProductName     string              `json:"product_name" db:"product_name"`
	ProductCategory string              `json:"product_category" db:"product_category"`
	ProductBrand    string              `json:"product_brand" db:"product_brand"`
	RetailPrice     decimal.NullDecimal `json:"retail_price" db:"product_retail_price"`
	Cost            decimal.Decimal     `json:"cost" db:"cost"`
	SoldAt          string              `json:"sold_at,omitempty" db:"sold_at"`
	CreatedAt       string              `json:"created_at,omitempty" db:"created_at"`
}

// PreparedRecord is an InventoryRecord with its derived fields.
type PreparedRecord struct {
	InventoryRecord

	SoldTime *time.Time      `json:"sold_time,omitempty"`
	Year     *int            `json:"year,omitempty"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
	IsSold   bool            `json:"is_sold"`
}

// CategoryGroup lists the raw category labels rolled up into one group label.
type CategoryGroup struct {
	Group   string   `json:"group" mapstructure:"group"`
	Members []string `json:"members" mapstructure:"members"`
}
