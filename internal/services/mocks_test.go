package services

import (
	"context"
	"time"

	"example.com/stockflow/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockOrderStatusStore struct {
	mock.Mock
}

func (m *mockOrderStatusStore) RecordTransition(ctx context.Context, orderID, shop, newStatus, notes string, now time.Time) (*models.OrderStatus, error) {
	args := m.Called(ctx, orderID, shop, newStatus, notes, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderStatus), args.Error(1)
}

func (m *mockOrderStatusStore) GetByOrderID(ctx context.Context, orderID string) (*models.OrderStatus, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderStatus), args.Error(1)
}

func (m *mockOrderStatusStore) ListAll(ctx context.Context) ([]models.OrderStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderStatus), args.Error(1)
}

func (m *mockOrderStatusStore) ListByStatus(ctx context.Context, status string) ([]models.OrderStatus, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderStatus), args.Error(1)
}

type mockCredentialStore struct {
	mock.Mock
}

func (m *mockCredentialStore) GetToken(ctx context.Context, shop string) (string, error) {
	args := m.Called(ctx, shop)
	return args.String(0), args.Error(1)
}

func (m *mockCredentialStore) SaveToken(ctx context.Context, shop, accessToken, scopes string) error {
	args := m.Called(ctx, shop, accessToken, scopes)
	return args.Error(0)
}

type mockPurchaseOrderStore struct {
	mock.Mock
}

func (m *mockPurchaseOrderStore) Create(ctx context.Context, po *models.PurchaseOrder) error {
	args := m.Called(ctx, po)
	return args.Error(0)
}

func (m *mockPurchaseOrderStore) GetByID(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseOrder), args.Error(1)
}

func (m *mockPurchaseOrderStore) UpdateStatus(ctx context.Context, id, status string, now time.Time) (*models.PurchaseOrder, error) {
	args := m.Called(ctx, id, status, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseOrder), args.Error(1)
}

func (m *mockPurchaseOrderStore) ListAll(ctx context.Context) ([]models.PurchaseOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PurchaseOrder), args.Error(1)
}

type mockOrderNameFetcher struct {
	mock.Mock
}

func (m *mockOrderNameFetcher) FetchOrderName(ctx context.Context, shop, token, orderID string) (string, error) {
	args := m.Called(ctx, shop, token, orderID)
	return args.String(0), args.Error(1)
}

type mockOrderNameCache struct {
	mock.Mock
}

func (m *mockOrderNameCache) Get(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *mockOrderNameCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

type mockIndexer struct {
	mock.Mock
}

func (m *mockIndexer) IndexPurchaseOrder(ctx context.Context, po *models.PurchaseOrder) error {
	args := m.Called(ctx, po)
	return args.Error(0)
}

type mockStatusTracker struct {
	mock.Mock
}

func (m *mockStatusTracker) RecordStatusChange(ctx context.Context, orderID, shop, newStatus, notes string) (*models.OrderStatus, error) {
	args := m.Called(ctx, orderID, shop, newStatus, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderStatus), args.Error(1)
}

type mockProcurementGenerator struct {
	mock.Mock
}

func (m *mockProcurementGenerator) CreatePurchaseOrder(ctx context.Context, orderID, shop string, items []models.PurchaseOrderItem) (*models.PurchaseOrder, error) {
	args := m.Called(ctx, orderID, shop, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseOrder), args.Error(1)
}

type mockInventoryStore struct {
	mock.Mock
}

func (m *mockInventoryStore) Upsert(ctx context.Context, item *models.InventoryItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockInventoryStore) GetBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

func (m *mockInventoryStore) List(ctx context.Context) ([]models.InventoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}

func (m *mockInventoryStore) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}
