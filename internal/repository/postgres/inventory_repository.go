package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/Masterminds/squirrel"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// inventoryRow mirrors the nullable columns of an inventory table.
type inventoryRow struct {
	ID              sql.NullString      `db:"id"`
	ProductName     sql.NullString      `db:"product_name"`
	ProductCategory sql.NullString      `db:"product_category"`
	ProductBrand    sql.NullString      `db:"product_brand"`
	RetailPrice     decimal.NullDecimal `db:"product_retail_price"`
	Cost            decimal.NullDecimal `db:"cost"`
	SoldAt          sql.NullString      `db:"sold_at"`
	CreatedAt       sql.NullString      `db:"created_at"`
}

func (r inventoryRow) toRecord() domain.InventoryRecord {
	rec := domain.InventoryRecord{
		ID:              r.ID.String,
		ProductName:     r.ProductName.String,
		ProductCategory: r.ProductCategory.String,
		ProductBrand:    r.ProductBrand.String,
		RetailPrice:     r.RetailPrice,
		SoldAt:          r.SoldAt.String,
		CreatedAt:       r.CreatedAt.String,
	}
	if r.Cost.Valid {
		rec.Cost = r.Cost.Decimal
	}
	return rec
}

type inventoryRepository struct {
	db    *DB
	query string
}

// NewInventoryRepository reads records from an existing table. Timestamps are
// cast to text so they flow through the same fail-soft parsing as CSV input.
func NewInventoryRepository(db *DB, table string) (repository.InventoryRepository, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid inventory table name %q", table)
	}
	query, err := inventoryQuery(table)
	if err != nil {
		return nil, err
	}
	return &inventoryRepository{db: db, query: query}, nil
}

func inventoryQuery(table string) (string, error) {
	query, _, err := squirrel.
		Select(
			"id::text AS id",
			"product_name",
			"product_category",
			"product_brand",
			"product_retail_price",
			"cost",
			"sold_at::text AS sold_at",
			"created_at::text AS created_at",
		).
		From(table).
		OrderBy("id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build inventory query: %w", err)
	}
	return query, nil
}

func (r *inventoryRepository) ListInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	var rows []inventoryRow
	err := r.db.WithReadLimit(ctx, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &rows, r.query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}

	records := make([]domain.InventoryRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}

	log.Debug().Int("records", len(records)).Msg("inventory rows loaded")
	return records, nil
}
