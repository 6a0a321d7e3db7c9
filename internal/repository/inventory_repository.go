// backend-go/internal/repository/inventory_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
)

// InventoryRepository supplies the full raw inventory record set.
type InventoryRepository interface {
	ListInventory(ctx context.Context) ([]domain.InventoryRecord, error)
}
