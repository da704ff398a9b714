package services

import (
	"context"
	"regexp"
	"testing"

	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var purchaseOrderIDPattern = regexp.MustCompile(`^PO-\d+-[0-9A-F]{5}$`)

func restockItems() []models.PurchaseOrderItem {
	return []models.PurchaseOrderItem{
		{ProductName: "Travel Mug", SKU: "MUG-01", Quantity: 10},
	}
}

func newPurchaseOrderTestService(t *testing.T, creds *mockCredentialStore, store *mockPurchaseOrderStore, fetcher *mockOrderNameFetcher) *PurchaseOrderService {
	t.Helper()
	return NewPurchaseOrderService(creds, store, fetcher, nil, nil, newTestTracer(t), metrics.NewMetrics())
}

func TestCreatePurchaseOrder(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	creds.On("GetToken", mock.Anything, "demo.myshopify.com").Return("shpat_token", nil)
	fetcher.On("FetchOrderName", mock.Anything, "demo.myshopify.com", "shpat_token", "ORD-1").
		Return("#1001", nil)
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.PurchaseOrder")).Return(nil)

	po, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "demo.myshopify.com", restockItems())
	require.NoError(t, err)

	assert.Regexp(t, purchaseOrderIDPattern, po.ID)
	assert.Equal(t, "ORD-1", po.OriginalOrderID)
	assert.Equal(t, "#1001", po.OriginalOrderName)
	assert.Equal(t, models.PurchaseOrderStatusOrdered, po.Status)
	assert.Equal(t, "Created for order #1001 due to out of stock items.", po.Notes)
	require.Len(t, po.Items, 1)
	assert.Equal(t, 10, po.Items[0].Quantity)
	store.AssertExpectations(t)
}

func TestCreatePurchaseOrderFallsBackToPlaceholderName(t *testing.T) {
	// A dead Shopify API degrades the order name, never the purchase order
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	creds.On("GetToken", mock.Anything, "demo.myshopify.com").Return("shpat_token", nil)
	fetcher.On("FetchOrderName", mock.Anything, "demo.myshopify.com", "shpat_token", "ORD-1").
		Return("", errors.New("shopify request failed after retries"))
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.PurchaseOrder")).Return(nil)

	po, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "demo.myshopify.com", restockItems())
	require.NoError(t, err)

	assert.Equal(t, "Order ORD-1", po.OriginalOrderName)
	assert.Equal(t, "Created for order Order ORD-1 due to out of stock items.", po.Notes)
}

func TestCreatePurchaseOrderUsesCachedName(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	nameCache := new(mockOrderNameCache)
	svc := NewPurchaseOrderService(creds, store, fetcher, nameCache, nil, newTestTracer(t), metrics.NewMetrics())

	creds.On("GetToken", mock.Anything, "demo.myshopify.com").Return("shpat_token", nil)
	nameCache.On("Get", mock.Anything, "order-name:demo.myshopify.com:ORD-1", mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(2).(*string) = "#1001"
		}).
		Return(nil)
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.PurchaseOrder")).Return(nil)

	po, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "demo.myshopify.com", restockItems())
	require.NoError(t, err)

	assert.Equal(t, "#1001", po.OriginalOrderName)
	fetcher.AssertNotCalled(t, "FetchOrderName", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePurchaseOrderNotInstalled(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	creds.On("GetToken", mock.Anything, "ghost.myshopify.com").Return("", nil)

	_, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "ghost.myshopify.com", restockItems())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInstalled))
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePurchaseOrderRejectsEmptyItems(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	_, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "demo.myshopify.com", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestCreatePurchaseOrderRejectsNonPositiveQuantity(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	items := []models.PurchaseOrderItem{{ProductName: "Travel Mug", Quantity: 0}}
	_, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "demo.myshopify.com", items)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	creds.AssertNotCalled(t, "GetToken", mock.Anything, mock.Anything)
}

func TestCreatePurchaseOrderPersistenceFailure(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	creds.On("GetToken", mock.Anything, "demo.myshopify.com").Return("shpat_token", nil)
	fetcher.On("FetchOrderName", mock.Anything, "demo.myshopify.com", "shpat_token", "ORD-1").
		Return("#1001", nil)
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.PurchaseOrder")).
		Return(errors.New("deadlock detected"))

	_, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "demo.myshopify.com", restockItems())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistenceFailure))
}

func TestCreatePurchaseOrderIndexFailureIsBestEffort(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	indexer := new(mockIndexer)
	svc := NewPurchaseOrderService(creds, store, fetcher, nil, indexer, newTestTracer(t), metrics.NewMetrics())

	creds.On("GetToken", mock.Anything, "demo.myshopify.com").Return("shpat_token", nil)
	fetcher.On("FetchOrderName", mock.Anything, "demo.myshopify.com", "shpat_token", "ORD-1").
		Return("#1001", nil)
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.PurchaseOrder")).Return(nil)
	indexer.On("IndexPurchaseOrder", mock.Anything, mock.AnythingOfType("*models.PurchaseOrder")).
		Return(errors.New("elasticsearch unavailable"))

	po, err := svc.CreatePurchaseOrder(context.Background(), "ORD-1", "demo.myshopify.com", restockItems())
	require.NoError(t, err)
	assert.NotEmpty(t, po.ID)
	indexer.AssertExpectations(t)
}

func TestUpdateStatusIsIdempotent(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	received := &models.PurchaseOrder{ID: "PO-1-ABCDE", Status: models.PurchaseOrderStatusReceived}
	store.On("UpdateStatus", mock.Anything, "PO-1-ABCDE", models.PurchaseOrderStatusReceived,
		mock.AnythingOfType("time.Time")).Return(received, nil)

	for i := 0; i < 2; i++ {
		po, err := svc.UpdateStatus(context.Background(), "PO-1-ABCDE", models.PurchaseOrderStatusReceived)
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseOrderStatusReceived, po.Status)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	_, err := svc.UpdateStatus(context.Background(), "PO-1-ABCDE", "misplaced")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatusNotFound(t *testing.T) {
	creds := new(mockCredentialStore)
	store := new(mockPurchaseOrderStore)
	fetcher := new(mockOrderNameFetcher)
	svc := newPurchaseOrderTestService(t, creds, store, fetcher)

	store.On("UpdateStatus", mock.Anything, "PO-404", models.PurchaseOrderStatusCancelled,
		mock.AnythingOfType("time.Time")).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.UpdateStatus(context.Background(), "PO-404", models.PurchaseOrderStatusCancelled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNewPurchaseOrderIDFormat(t *testing.T) {
	first := newPurchaseOrderID()
	second := newPurchaseOrderID()

	assert.Regexp(t, purchaseOrderIDPattern, first)
	assert.Regexp(t, purchaseOrderIDPattern, second)
	assert.NotEqual(t, first, second)
}
