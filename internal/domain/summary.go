package domain

import "github.com/shopspring/decimal"

// RankedRevenue is one row of a ranked revenue table
type RankedRevenue struct {
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
}

// YearRevenue is one point of the yearly revenue trend
type YearRevenue struct {
	Year    int             `json:"year"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SummaryOptions controls the ranked tables of a summary.
// TopN <= 0 keeps every group.
type SummaryOptions struct {
	TopN int `json:"top_n"`
}

// AggregateResult holds the KPI cards and grouped tables of the inventory dashboard.
// Monetary totals cover sold records only.
type AggregateResult struct {
	TotalRecordCount  int                        `json:"total_record_count"`
	TotalRevenue      decimal.Decimal            `json:"total_revenue"`
	TotalProfit       decimal.Decimal            `json:"total_profit"`
	SoldCount         int                        `json:"sold_count"`
	InventoryOnHand   int                        `json:"inventory_on_hand"`
	RevenueByCategory []RankedRevenue            `json:"revenue_by_category"`
	RevenueByProduct  []RankedRevenue            `json:"revenue_by_product"`
	RevenueByBrand    []RankedRevenue            `json:"revenue_by_brand"`
	RevenueByYear     []YearRevenue              `json:"revenue_by_year"`
	BrandProfitMargin map[string]decimal.Decimal `json:"brand_profit_margin"`
}
