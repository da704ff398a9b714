package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Order fulfillment statuses. Fresh is the implicit starting point of every
// order and only ever appears as the "from" side of the first transition; it
// is not an assignable status.
const (
	OrderStatusFresh      = "fresh"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusInStock    = "in_stock"
	OrderStatusOutOfStock = "out_of_stock"
	OrderStatusDispatched = "dispatched"
	OrderStatusReturned   = "returned"
	OrderStatusDamaged    = "damaged"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

// Purchase order statuses
const (
	PurchaseOrderStatusOrdered   = "ordered"
	PurchaseOrderStatusReceived  = "received"
	PurchaseOrderStatusCancelled = "cancelled"
)

// DefaultReorderPoint is applied when a SKU is saved without an explicit
// reorder point.
const DefaultReorderPoint = 5

var orderStatuses = map[string]bool{
	OrderStatusConfirmed:  true,
	OrderStatusInStock:    true,
	OrderStatusOutOfStock: true,
	OrderStatusDispatched: true,
	OrderStatusReturned:   true,
	OrderStatusDamaged:    true,
	OrderStatusDelivered:  true,
	OrderStatusCanceled:   true,
}

var purchaseOrderStatuses = map[string]bool{
	PurchaseOrderStatusOrdered:   true,
	PurchaseOrderStatusReceived:  true,
	PurchaseOrderStatusCancelled: true,
}

// IsValidOrderStatus reports whether s is an assignable order status.
func IsValidOrderStatus(s string) bool {
	return orderStatuses[s]
}

// IsValidPurchaseOrderStatus reports whether s is a valid purchase order status.
func IsValidPurchaseOrderStatus(s string) bool {
	return purchaseOrderStatuses[s]
}

// ShopCredential stores the access token granted to a shop during install.
// A shop without a credential row is treated as not installed.
type ShopCredential struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Shop        string    `gorm:"not null;uniqueIndex" json:"shop"`
	AccessToken string    `gorm:"not null" json:"-"`
	Scopes      string    `json:"scopes"`
	InstalledAt time.Time `gorm:"autoCreateTime" json:"installed_at"`
}

// OrderStatus is the current fulfillment state of an order together with its
// full transition history. There is exactly one row per order, and the order
// ID never changes once the row exists.
type OrderStatus struct {
	ID        uint                    `gorm:"primaryKey" json:"-"`
	OrderID   string                  `gorm:"not null;uniqueIndex" json:"order_id"`
	Shop      string                  `gorm:"not null;index" json:"shop"`
	Status    string                  `gorm:"not null" json:"status"`
	Notes     string                  `json:"notes"`
	UpdatedAt time.Time               `json:"updated_at"`
	History   []OrderStatusTransition `gorm:"foreignKey:OrderStatusID" json:"history"`
}

// OrderStatusTransition is one entry of an order's audit history. Rows are
// append-only; the auto-increment ID preserves insertion order.
type OrderStatusTransition struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	OrderStatusID uint      `gorm:"not null;index" json:"-"`
	From          string    `gorm:"column:from_status;not null" json:"from"`
	To            string    `gorm:"column:to_status;not null" json:"to"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
	Notes         string    `json:"notes"`
}

// LastTransition returns the most recent history entry, or nil when no
// transition has been recorded yet.
func (o *OrderStatus) LastTransition() *OrderStatusTransition {
	if len(o.History) == 0 {
		return nil
	}
	return &o.History[len(o.History)-1]
}

// PurchaseOrder is an internally generated procurement record requesting
// restock for an out-of-stock order. Rows are never deleted; status moves
// between ordered, received and cancelled.
type PurchaseOrder struct {
	ID                string              `gorm:"primaryKey" json:"id"`
	OriginalOrderID   string              `gorm:"not null;index" json:"original_order_id"`
	OriginalOrderName string              `gorm:"not null" json:"original_order_name"`
	Items             []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items"`
	Status            string              `gorm:"not null;default:ordered" json:"status"`
	Notes             string              `json:"notes"`
	Shop              string              `gorm:"not null;index" json:"shop"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// PurchaseOrderItem is a single line of a purchase order.
type PurchaseOrderItem struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	PurchaseOrderID string `gorm:"not null;index" json:"-"`
	ProductName     string `gorm:"not null" json:"product_name"`
	SKU             string `gorm:"column:sku" json:"sku"`
	VariantTitle    string `json:"variant_title"`
	Quantity        int    `gorm:"not null" json:"quantity"`
}

// InventoryItem tracks the stock level and reorder threshold for one SKU.
// InitialInventory is never negative; writes with negative values are
// rejected before they reach the database.
type InventoryItem struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	SKU              string    `gorm:"column:sku;not null;uniqueIndex" json:"sku"`
	InitialInventory int       `gorm:"not null" json:"initial_inventory"`
	ReorderPoint     int       `gorm:"not null;default:5" json:"reorder_point"`
	LastUpdated      time.Time `json:"last_updated"`
}

// LowStock reports whether the item is at or below its reorder point.
func (i *InventoryItem) LowStock() bool {
	return i.InitialInventory <= i.ReorderPoint
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&ShopCredential{},
		&OrderStatus{},
		&OrderStatusTransition{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&InventoryItem{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
