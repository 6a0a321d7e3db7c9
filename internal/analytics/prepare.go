// internal/analytics/prepare.go
package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
)

// ErrMissingRetailPrice is returned when a record carries no retail price.
var ErrMissingRetailPrice = errors.New("record has no retail price")

// RecordError ties an error to the position of the offending record.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %d (id %s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// soldAtLayouts are tried in order; the first one that parses wins.
var soldAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseSoldAt returns nil for empty or unparseable input. It never fails.
func parseSoldAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0000-00-00 00:00:00" {
		return nil
	}
	switch strings.ToLower(raw) {
	case "nan", "nat", "null", "none":
		return nil
	}

	for _, layout := range soldAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// Prepare computes the derived fields of every record and returns them as a new slice.
// A missing or malformed sold_at marks the record unsold; the only error is a record
// without a retail price.
func Prepare(records []domain.InventoryRecord) ([]domain.PreparedRecord, error) {
	prepared := make([]domain.PreparedRecord, 0, len(records))

	for i, rec := range records {
		if !rec.RetailPrice.Valid {
			return nil, &RecordError{Index: i, ID: rec.ID, Err: ErrMissingRetailPrice}
		}

		p := domain.PreparedRecord{
			InventoryRecord: rec,
			Revenue:         rec.RetailPrice.Decimal,
			Profit:          rec.RetailPrice.Decimal.Sub(rec.Cost),
		}

		if soldAt := parseSoldAt(rec.SoldAt); soldAt != nil {
			year := soldAt.Year()
			p.SoldTime = soldAt
			p.Year = &year
			p.IsSold = true
		}

		prepared = append(prepared, p)
	}

	return prepared, nil
}
