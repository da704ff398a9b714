package services

import (
	"context"
	"time"

	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/models"
	"example.com/stockflow/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// orderStatusStore is the persistence surface the status tracker needs
type orderStatusStore interface {
	RecordTransition(ctx context.Context, orderID, shop, newStatus, notes string, now time.Time) (*models.OrderStatus, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.OrderStatus, error)
	ListAll(ctx context.Context) ([]models.OrderStatus, error)
	ListByStatus(ctx context.Context, status string) ([]models.OrderStatus, error)
}

// OrderStatusService tracks order fulfillment state. Every accepted change
// lands in the audit history; reads always return the history alongside the
// current state.
type OrderStatusService struct {
	store   orderStatusStore
	tracer  tracing.Tracer
	metrics *metrics.Metrics
}

// NewOrderStatusService creates a new order status service
func NewOrderStatusService(store orderStatusStore, tracer tracing.Tracer, m *metrics.Metrics) *OrderStatusService {
	return &OrderStatusService{
		store:   store,
		tracer:  tracer,
		metrics: m,
	}
}

// RecordStatusChange moves an order to newStatus and appends the transition to
// its history. Any status may follow any other; downstream consumers decide
// what a transition means. The first change for an unknown order is recorded
// as coming from "fresh".
func (s *OrderStatusService) RecordStatusChange(ctx context.Context, orderID, shop, newStatus, notes string) (*models.OrderStatus, error) {
	if orderID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "order ID is required")
	}
	if !models.IsValidOrderStatus(newStatus) {
		return nil, errors.Wrapf(ErrInvalidInput, "unknown status %q", newStatus)
	}

	txn := s.tracer.StartTransaction("record-status-change")
	defer s.tracer.EndTransaction(txn)

	span := s.tracer.StartSpan("record-transition", txn)
	record, err := s.store.RecordTransition(ctx, orderID, shop, newStatus, notes, time.Now())
	span.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("status_change")
		return nil, errors.Wrapf(ErrStorageUnavailable, "record transition: %v", err)
	}

	s.metrics.IncrementCounter("status_changes")
	s.metrics.RecordSuccess("status_change")

	log.Info().
		Str("order_id", orderID).
		Str("shop", shop).
		Str("status", newStatus).
		Int("history_length", len(record.History)).
		Msg("Order status recorded")

	return record, nil
}

// GetOrderStatus returns the current state and history of one order
func (s *OrderStatusService) GetOrderStatus(ctx context.Context, orderID string) (*models.OrderStatus, error) {
	if orderID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "order ID is required")
	}

	record, err := s.store.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "order %s", orderID)
		}
		return nil, errors.Wrapf(ErrStorageUnavailable, "get order status: %v", err)
	}
	return record, nil
}

// ListOrders returns every tracked order with its history
func (s *OrderStatusService) ListOrders(ctx context.Context) ([]models.OrderStatus, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "list orders: %v", err)
	}
	return records, nil
}

// ListOrdersByStatus returns every order currently in the given status
func (s *OrderStatusService) ListOrdersByStatus(ctx context.Context, status string) ([]models.OrderStatus, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, errors.Wrapf(ErrInvalidInput, "unknown status %q", status)
	}

	records, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, errors.Wrapf(ErrStorageUnavailable, "list orders by status: %v", err)
	}
	return records, nil
}
