package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	colID          = "id"
	colName        = "product_name"
	colCategory    = "product_category"
	colBrand       = "product_brand"
	colRetailPrice = "product_retail_price"
	colCost        = "cost"
	colSoldAt      = "sold_at"
	colCreatedAt   = "created_at"
)

// headerAliases maps normalized header names onto the canonical column names.
var headerAliases = map[string]string{
	"id":                   colID,
	"product_name":         colName,
	"name":                 colName,
	"product_category":     colCategory,
	"category":             colCategory,
	"product_brand":        colBrand,
	"brand":                colBrand,
	"product_retail_price": colRetailPrice,
	"retail_price":         colRetailPrice,
	"cost":                 colCost,
	"sold_at":              colSoldAt,
	"created_at":           colCreatedAt,
}

var ErrMissingColumn = errors.New("required column missing")

// CSVInventoryRepository reads inventory records from a local CSV export.
type CSVInventoryRepository struct {
	path string
}

func NewCSVInventoryRepository(path string) *CSVInventoryRepository {
	return &CSVInventoryRepository{path: path}
}

var _ InventoryRepository = (*CSVInventoryRepository)(nil)

// ListInventory reads the whole file on every call.
func (r *CSVInventoryRepository) ListInventory(ctx context.Context) ([]domain.InventoryRecord, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer file.Close()

	records, err := ReadInventoryCSV(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}

	log.Debug().Str("path", r.path).Int("records", len(records)).Msg("inventory csv loaded")
	return records, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

// ReadInventoryCSV parses inventory rows from r. Header names are matched
// case-insensitively; only the retail price column is required.
func ReadInventoryCSV(ctx context.Context, r io.Reader) ([]domain.InventoryRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		if canonical, ok := headerAliases[normalizeHeader(col)]; ok {
			if _, dup := colMap[canonical]; !dup {
				colMap[canonical] = i
			}
		}
	}
	if _, ok := colMap[colRetailPrice]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, colRetailPrice)
	}

	field := func(record []string, col string) string {
		idx, ok := colMap[col]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var records []domain.InventoryRecord
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}

		rec := domain.InventoryRecord{
			ID:              field(row, colID),
			ProductName:     field(row, colName),
			ProductCategory: field(row, colCategory),
			ProductBrand:    field(row, colBrand),
			SoldAt:          field(row, colSoldAt),
			CreatedAt:       field(row, colCreatedAt),
		}

		if raw := field(row, colRetailPrice); raw != "" {
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, colRetailPrice, raw, err)
			}
			rec.RetailPrice = decimal.NewNullDecimal(price)
		}

		if raw := field(row, colCost); raw != "" {
			cost, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, colCost, raw, err)
			}
			rec.Cost = cost
		}

		records = append(records, rec)
	}

	if records == nil {
		records = []domain.InventoryRecord{}
	}
	return records, nil
}
