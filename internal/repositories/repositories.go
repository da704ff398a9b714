package repositories

import (
	"context"
	"time"

	"example.com/stockflow/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository provides access to shop credentials
type CredentialRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *gorm.DB, readOnlyDB *gorm.DB) *CredentialRepository {
	return &CredentialRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetToken returns the access token for a shop, or an empty string when the
// shop has no credential (app not installed).
func (r *CredentialRepository) GetToken(ctx context.Context, shop string) (string, error) {
	var credential models.ShopCredential
	err := r.readOnlyDB.WithContext(ctx).Where("shop = ?", shop).First(&credential).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to get shop credential")
	}
	return credential.AccessToken, nil
}

// SaveToken stores or replaces the access token for a shop
func (r *CredentialRepository) SaveToken(ctx context.Context, shop, accessToken, scopes string) error {
	credential := models.ShopCredential{
		Shop:        shop,
		AccessToken: accessToken,
		Scopes:      scopes,
		InstalledAt: time.Now(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "scopes", "installed_at"}),
		}).
		Create(&credential).Error
	if err != nil {
		return errors.Wrap(err, "failed to save shop credential")
	}
	return nil
}

// OrderStatusRepository provides access to order status records and their
// transition history
type OrderStatusRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewOrderStatusRepository creates a new order status repository
func NewOrderStatusRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderStatusRepository {
	return &OrderStatusRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// RecordTransition atomically upserts the status record for an order and
// appends one history entry. The row is locked for the duration of the
// transaction so that concurrent updates to the same order serialize and the
// history chain stays consistent (each entry's "from" is the status the
// previous entry set). The first transition for an unknown order records
// "fresh" as its origin.
func (r *OrderStatusRepository) RecordTransition(ctx context.Context, orderID, shop, newStatus, notes string, now time.Time) (*models.OrderStatus, error) {
	var result models.OrderStatus

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.OrderStatus
		previous := models.OrderStatusFresh

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&record).Error
		switch {
		case err == nil:
			previous = record.Status
			updates := map[string]interface{}{
				"status":     newStatus,
				"notes":      notes,
				"shop":       shop,
				"updated_at": now,
			}
			if err := tx.Model(&models.OrderStatus{}).Where("id = ?", record.ID).Updates(updates).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = models.OrderStatus{
				OrderID:   orderID,
				Shop:      shop,
				Status:    newStatus,
				Notes:     notes,
				UpdatedAt: now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		default:
			return err
		}

		entry := models.OrderStatusTransition{
			OrderStatusID: record.ID,
			From:          previous,
			To:            newStatus,
			Timestamp:     now,
			Notes:         notes,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		// Reload inside the transaction so the returned history includes the
		// entry just appended, in insertion order.
		return tx.Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).First(&result, record.ID).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record status transition")
	}

	return &result, nil
}

// GetByOrderID gets an order status record with its history
func (r *OrderStatusRepository) GetByOrderID(ctx context.Context, orderID string) (*models.OrderStatus, error) {
	var record models.OrderStatus
	err := r.readOnlyDB.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("order_id = ?", orderID).
		First(&record).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order status")
	}
	return &record, nil
}

// ListAll returns all order status records with their history
func (r *OrderStatusRepository) ListAll(ctx context.Context) ([]models.OrderStatus, error) {
	var records []models.OrderStatus
	err := r.readOnlyDB.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list order statuses")
	}
	return records, nil
}

// ListByStatus returns all order status records currently in the given status
func (r *OrderStatusRepository) ListByStatus(ctx context.Context, status string) ([]models.OrderStatus, error) {
	var records []models.OrderStatus
	err := r.readOnlyDB.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("status = ?", status).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list order statuses by status")
	}
	return records, nil
}

// PurchaseOrderRepository provides access to purchase order records
type PurchaseOrderRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a purchase order with its line items
func (r *PurchaseOrderRepository) Create(ctx context.Context, po *models.PurchaseOrder) error {
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return errors.Wrap(err, "failed to create purchase order")
	}
	return nil
}

// GetByID gets a purchase order with its line items
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get purchase order")
	}
	return &po, nil
}

// UpdateStatus sets the status of an existing purchase order and returns the
// updated record. gorm.ErrRecordNotFound is returned when no purchase order
// with the given ID exists.
func (r *PurchaseOrderRepository) UpdateStatus(ctx context.Context, id, status string, now time.Time) (*models.PurchaseOrder, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to update purchase order status")
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var po models.PurchaseOrder
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&po).Error; err != nil {
		return nil, errors.Wrap(err, "failed to reload purchase order")
	}
	return &po, nil
}

// ListAll returns all purchase orders, newest first
func (r *PurchaseOrderRepository) ListAll(ctx context.Context) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list purchase orders")
	}
	return orders, nil
}

// InventoryRepository provides access to the per-SKU inventory ledger
type InventoryRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB, readOnlyDB *gorm.DB) *InventoryRepository {
	return &InventoryRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Upsert inserts or replaces the ledger entry for a SKU
func (r *InventoryRepository) Upsert(ctx context.Context, item *models.InventoryItem) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"initial_inventory", "reorder_point", "last_updated"}),
		}).
		Create(item).Error
	if err != nil {
		return errors.Wrap(err, "failed to upsert inventory item")
	}
	return nil
}

// GetBySKU gets the ledger entry for a SKU
func (r *InventoryRepository) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.readOnlyDB.WithContext(ctx).Where("sku = ?", sku).First(&item).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get inventory item")
	}
	return &item, nil
}

// List returns all ledger entries
func (r *InventoryRepository) List(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.readOnlyDB.WithContext(ctx).Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list inventory items")
	}
	return items, nil
}

// ListLowStock returns all SKUs at or below their reorder point
func (r *InventoryRepository) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.readOnlyDB.WithContext(ctx).
		Where("initial_inventory <= reorder_point").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list low stock items")
	}
	return items, nil
}
