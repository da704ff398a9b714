package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/models"
	"example.com/stockflow/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// orderNameCacheTTL bounds how long a resolved order name is reused before we
// ask Shopify again.
const orderNameCacheTTL = 10 * time.Minute

// credentialStore looks up the access token stored for a shop
type credentialStore interface {
	GetToken(ctx context.Context, shop string) (string, error)
}

// purchaseOrderStore is the persistence surface for purchase orders
type purchaseOrderStore interface {
	Create(ctx context.Context, po *models.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*models.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id, status string, now time.Time) (*models.PurchaseOrder, error)
	ListAll(ctx context.Context) ([]models.PurchaseOrder, error)
}

// orderNameFetcher resolves an order's display name from the Shopify Admin API
type orderNameFetcher interface {
	FetchOrderName(ctx context.Context, shop, token, orderID string) (string, error)
}

// OrderNameCache caches resolved order names. Implemented by cache.RedisCache.
type OrderNameCache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// PurchaseOrderIndexer pushes purchase orders into the search index.
// Implemented by search.ElasticClient.
type PurchaseOrderIndexer interface {
	IndexPurchaseOrder(ctx context.Context, po *models.PurchaseOrder) error
}

// PurchaseOrderService creates and manages procurement records. Creation
// enriches the record with the order's display name from Shopify, but a
// failed lookup never blocks the purchase order: the name falls back to a
// placeholder built from the order ID.
type PurchaseOrderService struct {
	credentials credentialStore
	store       purchaseOrderStore
	shopify     orderNameFetcher
	cache       OrderNameCache
	indexer     PurchaseOrderIndexer
	tracer      tracing.Tracer
	metrics     *metrics.Metrics
}

// NewPurchaseOrderService creates a new purchase order service. cache and
// indexer are optional; pass nil to skip name caching or search indexing.
func NewPurchaseOrderService(
	credentials credentialStore,
	store purchaseOrderStore,
	shopify orderNameFetcher,
	cache OrderNameCache,
	indexer PurchaseOrderIndexer,
	tracer tracing.Tracer,
	m *metrics.Metrics,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		credentials: credentials,
		store:       store,
		shopify:     shopify,
		cache:       cache,
		indexer:     indexer,
		tracer:      tracer,
		metrics:     m,
	}
}

// CreatePurchaseOrder generates a procurement record for the out-of-stock
// items of an order. The returned record carries a generated ID, starts in
// status "ordered" and references the originating order by ID and display
// name.
func (s *PurchaseOrderService) CreatePurchaseOrder(ctx context.Context, orderID, shop string, items []models.PurchaseOrderItem) (*models.PurchaseOrder, error) {
	if orderID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "order ID is required")
	}
	if shop == "" {
		return nil, errors.Wrap(ErrInvalidInput, "shop is required")
	}
	if len(items) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "at least one item is required")
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidInput, "item %d: quantity must be positive", i)
		}
	}

	txn := s.tracer.StartTransaction("create-purchase-order")
	defer s.tracer.EndTransaction(txn)

	token, err := s.credentials.GetToken(ctx, shop)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrapf(ErrStorageUnavailable, "get credential: %v", err)
	}
	if token == "" {
		return nil, errors.Wrapf(ErrNotInstalled, "shop %s", shop)
	}

	span := s.tracer.StartSpan("resolve-order-name", txn)
	orderName := s.resolveOrderName(ctx, shop, token, orderID)
	span.End()

	now := time.Now()
	po := &models.PurchaseOrder{
		ID:                newPurchaseOrderID(),
		OriginalOrderID:   orderID,
		OriginalOrderName: orderName,
		Items:             items,
		Status:            models.PurchaseOrderStatusOrdered,
		Notes:             fmt.Sprintf("Created for order %s due to out of stock items.", orderName),
		Shop:              shop,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	createSpan := s.tracer.StartSpan("persist-purchase-order", txn)
	err = s.store.Create(ctx, po)
	createSpan.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("purchase_order_create")
		return nil, errors.Wrapf(ErrPersistenceFailure, "create purchase order: %v", err)
	}

	s.metrics.IncrementCounter("purchase_orders_created")
	s.metrics.RecordSuccess("purchase_order_create")

	// Indexing is best effort; a search outage must not fail procurement
	if s.indexer != nil {
		indexSpan := s.tracer.StartSpan("index-purchase-order", txn)
		if err := s.indexer.IndexPurchaseOrder(ctx, po); err != nil {
			log.Warn().
				Err(err).
				Str("purchase_order_id", po.ID).
				Msg("Failed to index purchase order")
			s.tracer.RecordError(txn, err)
		}
		indexSpan.End()
	}

	log.Info().
		Str("purchase_order_id", po.ID).
		Str("order_id", orderID).
		Str("order_name", orderName).
		Int("items", len(items)).
		Msg("Purchase order created")

	return po, nil
}

// resolveOrderName returns the Shopify display name for an order, consulting
// the cache first. Lookup failures are swallowed and the order ID stands in
// for the name.
func (s *PurchaseOrderService) resolveOrderName(ctx context.Context, shop, token, orderID string) string {
	key := orderNameCacheKey(shop, orderID)

	if s.cache != nil {
		var cached string
		if err := s.cache.Get(ctx, key, &cached); err == nil && cached != "" {
			return cached
		}
	}

	name, err := s.shopify.FetchOrderName(ctx, shop, token, orderID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("order_id", orderID).
			Str("shop", shop).
			Msg("Failed to fetch order name, using fallback")
		s.metrics.RecordError("order_name_lookup")
		return fmt.Sprintf("Order %s", orderID)
	}
	s.metrics.RecordSuccess("order_name_lookup")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, name, orderNameCacheTTL); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("Failed to cache order name")
		}
	}

	return name
}

// UpdateStatus moves a purchase order to the given status. Setting the status
// it already has is a no-op that still succeeds.
func (s *PurchaseOrderService) UpdateStatus(ctx context.Context, id, status string) (*models.PurchaseOrder, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidInput, "purchase order ID is required")
	}
	if !models.IsValidPurchaseOrderStatus(status) {
		return nil, errors.Wrapf(ErrInvalidInput, "unknown purchase order status %q", status)
	}

	po, err := s.store.UpdateStatus(ctx, id, status, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "purchase order %s", id)
		}
		return nil, errors.Wrapf(ErrStorageUnavailable, "update purchase order: %v", err)
	}

	log.Info().
		Str("purchase_order_id", id).
		Str("status", status).
		Msg("Purchase order status updated")

	return po, nil
}

// GetPurchaseOrder returns one purchase order with its line items
func (s *PurchaseOrderService) GetPurchaseOrder(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidInput, "purchase order ID is required")
	}

	po, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "purchase order %s", id)
		}
		return nil, errors.Wrapf(ErrStorageUnavailable, "get purchase order: %v", err)
	}
	return po, nil
}

// ListPurchaseOrders returns all purchase orders, newest first
func (s *PurchaseOrderService) ListPurchaseOrders(ctx context.Context) ([]models.PurchaseOrder, error) {
	orders, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "list purchase orders: %v", err)
	}
	return orders, nil
}

// newPurchaseOrderID builds an identifier of the form PO-<unix-ms>-<suffix>.
// The millisecond prefix keeps IDs roughly sortable by creation time; the
// random suffix disambiguates same-millisecond creation.
func newPurchaseOrderID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:5])
	return fmt.Sprintf("PO-%d-%s", time.Now().UnixMilli(), suffix)
}

// orderNameCacheKey generates a cache key for a resolved order name
func orderNameCacheKey(shop, orderID string) string {
	return fmt.Sprintf("order-name:%s:%s", shop, orderID)
}
