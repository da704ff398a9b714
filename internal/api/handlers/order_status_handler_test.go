package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"example.com/stockflow/config"
	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/models"
	"example.com/stockflow/internal/services"
	"example.com/stockflow/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCredentials struct {
	token string
	err   error
}

func (s stubCredentials) GetToken(ctx context.Context, shop string) (string, error) {
	return s.token, s.err
}

type stubTracker struct {
	record *models.OrderStatus
	err    error
}

func (s stubTracker) RecordStatusChange(ctx context.Context, orderID, shop, newStatus, notes string) (*models.OrderStatus, error) {
	return s.record, s.err
}

type stubGenerator struct {
	po  *models.PurchaseOrder
	err error
}

func (s stubGenerator) CreatePurchaseOrder(ctx context.Context, orderID, shop string, items []models.PurchaseOrderItem) (*models.PurchaseOrder, error) {
	return s.po, s.err
}

func newStatusRouter(t *testing.T, creds stubCredentials, tracker stubTracker, generator stubGenerator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	collector := metrics.NewMetrics()

	fulfillment := services.NewFulfillmentService(creds, tracker, generator, tracer, collector)

	router := gin.New()
	handler := NewOrderStatusHandler(fulfillment, nil, tracer)
	router.POST("/api/order-status", handler.HandleStatusChange)
	return router
}

func postStatusChange(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/order-status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleStatusChangeCreated(t *testing.T) {
	record := &models.OrderStatus{OrderID: "ORD-1", Status: models.OrderStatusOutOfStock}
	po := &models.PurchaseOrder{ID: "PO-1-ABCDE"}
	router := newStatusRouter(t,
		stubCredentials{token: "shpat_token"},
		stubTracker{record: record},
		stubGenerator{po: po},
	)

	w := postStatusChange(router, `{
		"orderId": "ORD-1",
		"shop": "demo.myshopify.com",
		"newStatus": "out_of_stock",
		"items": [{"product_name": "Travel Mug", "quantity": 10}]
	}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var result services.StatusChangeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.PurchaseOrderCreated)
	assert.Equal(t, "PO-1-ABCDE", result.PurchaseOrder.ID)
}

func TestHandleStatusChangeMissingFields(t *testing.T) {
	router := newStatusRouter(t, stubCredentials{token: "shpat_token"}, stubTracker{}, stubGenerator{})

	w := postStatusChange(router, `{"orderId": "ORD-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatusChangeNotInstalled(t *testing.T) {
	router := newStatusRouter(t, stubCredentials{token: ""}, stubTracker{}, stubGenerator{})

	w := postStatusChange(router, `{
		"orderId": "ORD-1",
		"shop": "ghost.myshopify.com",
		"newStatus": "confirmed"
	}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleStatusChangeStorageUnavailable(t *testing.T) {
	router := newStatusRouter(t,
		stubCredentials{token: "shpat_token"},
		stubTracker{err: errors.Wrap(services.ErrStorageUnavailable, "record transition")},
		stubGenerator{},
	)

	w := postStatusChange(router, `{
		"orderId": "ORD-1",
		"shop": "demo.myshopify.com",
		"newStatus": "confirmed"
	}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleStatusChangeProcurementFailureStillCreated(t *testing.T) {
	record := &models.OrderStatus{OrderID: "ORD-1", Status: models.OrderStatusOutOfStock}
	router := newStatusRouter(t,
		stubCredentials{token: "shpat_token"},
		stubTracker{record: record},
		stubGenerator{err: errors.Wrap(services.ErrPersistenceFailure, "create purchase order")},
	)

	w := postStatusChange(router, `{
		"orderId": "ORD-1",
		"shop": "demo.myshopify.com",
		"newStatus": "out_of_stock",
		"items": [{"product_name": "Travel Mug", "quantity": 10}]
	}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var result services.StatusChangeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.PurchaseOrderCreated)
	assert.NotEmpty(t, result.ProcurementError)
}
