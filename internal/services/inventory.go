package services

import (
	"context"
	"time"

	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/models"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// inventoryStore is the persistence surface for the inventory ledger
type inventoryStore interface {
	Upsert(ctx context.Context, item *models.InventoryItem) error
	GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error)
	List(ctx context.Context) ([]models.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]models.InventoryItem, error)
}

// LowStockReport buckets the whole inventory ledger by stock health
type LowStockReport struct {
	TotalProducts int                    `json:"total_products"`
	OutOfStock    []models.InventoryItem `json:"out_of_stock"`
	LowStock      []models.InventoryItem `json:"low_stock"`
	HealthyStock  []models.InventoryItem `json:"healthy_stock"`
}

// InventoryService maintains per-SKU stock levels and reorder thresholds
type InventoryService struct {
	store   inventoryStore
	metrics *metrics.Metrics
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store inventoryStore, m *metrics.Metrics) *InventoryService {
	return &InventoryService{
		store:   store,
		metrics: m,
	}
}

// SaveInventory inserts or replaces the ledger entry for a SKU. Zero stock is
// a legal value (sold out); negative stock is rejected before it reaches the
// database. A missing or non-positive reorder point falls back to the
// default.
func (s *InventoryService) SaveInventory(ctx context.Context, sku string, initialInventory, reorderPoint int) (*models.InventoryItem, error) {
	if sku == "" {
		return nil, errors.Wrap(ErrInvalidInput, "sku is required")
	}
	if initialInventory < 0 {
		return nil, errors.Wrap(ErrInvalidInput, "initial inventory cannot be negative")
	}
	if reorderPoint <= 0 {
		reorderPoint = models.DefaultReorderPoint
	}

	item := &models.InventoryItem{
		SKU:              sku,
		InitialInventory: initialInventory,
		ReorderPoint:     reorderPoint,
		LastUpdated:      time.Now(),
	}

	if err := s.store.Upsert(ctx, item); err != nil {
		s.metrics.RecordError("inventory_save")
		return nil, errors.Wrapf(ErrStorageUnavailable, "save inventory: %v", err)
	}
	s.metrics.RecordSuccess("inventory_save")

	log.Info().
		Str("sku", sku).
		Int("initial_inventory", initialInventory).
		Int("reorder_point", reorderPoint).
		Msg("Inventory item saved")

	return item, nil
}

// GetInventory returns the ledger entry for one SKU
func (s *InventoryService) GetInventory(ctx context.Context, sku string) (*models.InventoryItem, error) {
	if sku == "" {
		return nil, errors.Wrap(ErrInvalidInput, "sku is required")
	}

	item, err := s.store.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "sku %s", sku)
		}
		return nil, errors.Wrapf(ErrStorageUnavailable, "get inventory: %v", err)
	}
	return item, nil
}

// ListInventory returns the whole ledger
func (s *InventoryService) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "list inventory: %v", err)
	}
	return items, nil
}

// BuildLowStockReport classifies every SKU as out of stock, low, or healthy
func (s *InventoryService) BuildLowStockReport(ctx context.Context) (*LowStockReport, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "list inventory: %v", err)
	}

	report := &LowStockReport{
		TotalProducts: len(items),
		OutOfStock:    []models.InventoryItem{},
		LowStock:      []models.InventoryItem{},
		HealthyStock:  []models.InventoryItem{},
	}
	for _, item := range items {
		switch {
		case item.InitialInventory == 0:
			report.OutOfStock = append(report.OutOfStock, item)
		case item.LowStock():
			report.LowStock = append(report.LowStock, item)
		default:
			report.HealthyStock = append(report.HealthyStock, item)
		}
	}

	return report, nil
}

// SweepLowStock refreshes the low stock gauges. Called periodically by the
// worker.
func (s *InventoryService) SweepLowStock(ctx context.Context) error {
	items, err := s.store.ListLowStock(ctx)
	if err != nil {
		s.metrics.RecordError("low_stock_sweep")
		return errors.Wrapf(ErrStorageUnavailable, "sweep low stock: %v", err)
	}

	s.metrics.SetGauge("low_stock_skus", int64(len(items)))
	s.metrics.RecordSuccess("low_stock_sweep")

	for _, item := range items {
		log.Warn().
			Str("sku", item.SKU).
			Int("initial_inventory", item.InitialInventory).
			Int("reorder_point", item.ReorderPoint).
			Msg("SKU at or below reorder point")
	}

	return nil
}
