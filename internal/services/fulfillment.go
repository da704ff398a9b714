package services

import (
	"context"

	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/models"
	"example.com/stockflow/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// statusTracker records order status transitions
type statusTracker interface {
	RecordStatusChange(ctx context.Context, orderID, shop, newStatus, notes string) (*models.OrderStatus, error)
}

// procurementGenerator creates purchase orders
type procurementGenerator interface {
	CreatePurchaseOrder(ctx context.Context, orderID, shop string, items []models.PurchaseOrderItem) (*models.PurchaseOrder, error)
}

// StatusChangeRequest is one inbound status change event, whether it arrives
// over HTTP or from the message queue.
type StatusChangeRequest struct {
	OrderID   string                     `json:"orderId"`
	Shop      string                     `json:"shop"`
	NewStatus string                     `json:"newStatus"`
	Notes     string                     `json:"notes,omitempty"`
	Items     []models.PurchaseOrderItem `json:"items,omitempty"`
}

// StatusChangeResult reports what a status change actually did. The status
// record is always present on success; the purchase order fields describe the
// secondary procurement effect, which may have failed independently.
type StatusChangeResult struct {
	Record               *models.OrderStatus   `json:"record"`
	PurchaseOrderCreated bool                  `json:"purchase_order_created"`
	PurchaseOrder        *models.PurchaseOrder `json:"purchase_order,omitempty"`
	ProcurementError     string                `json:"procurement_error,omitempty"`
}

// FulfillmentService orchestrates the handling of a status change: verify the
// shop is installed, record the transition, and when the order went out of
// stock with affected items, kick off procurement. The status change is the
// primary effect; once it has committed, a procurement failure is reported in
// the result but never rolls it back.
type FulfillmentService struct {
	credentials credentialStore
	tracker     statusTracker
	generator   procurementGenerator
	tracer      tracing.Tracer
	metrics     *metrics.Metrics
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(
	credentials credentialStore,
	tracker statusTracker,
	generator procurementGenerator,
	tracer tracing.Tracer,
	m *metrics.Metrics,
) *FulfillmentService {
	return &FulfillmentService{
		credentials: credentials,
		tracker:     tracker,
		generator:   generator,
		tracer:      tracer,
		metrics:     m,
	}
}

// HandleStatusChange processes one status change event end to end
func (s *FulfillmentService) HandleStatusChange(ctx context.Context, req StatusChangeRequest) (*StatusChangeResult, error) {
	if req.Shop == "" {
		return nil, errors.Wrap(ErrInvalidInput, "shop is required")
	}

	txn := s.tracer.StartTransaction("handle-status-change")
	defer s.tracer.EndTransaction(txn)

	token, err := s.credentials.GetToken(ctx, req.Shop)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrapf(ErrStorageUnavailable, "get credential: %v", err)
	}
	if token == "" {
		return nil, errors.Wrapf(ErrNotInstalled, "shop %s", req.Shop)
	}

	span := s.tracer.StartSpan("record-status-change", txn)
	record, err := s.tracker.RecordStatusChange(ctx, req.OrderID, req.Shop, req.NewStatus, req.Notes)
	span.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	result := &StatusChangeResult{Record: record}

	if req.NewStatus == models.OrderStatusOutOfStock && len(req.Items) > 0 {
		poSpan := s.tracer.StartSpan("create-purchase-order", txn)
		po, err := s.generator.CreatePurchaseOrder(ctx, req.OrderID, req.Shop, req.Items)
		poSpan.End()

		if err != nil {
			// The status change is already committed; report the procurement
			// failure instead of failing the whole request
			log.Warn().
				Err(err).
				Str("order_id", req.OrderID).
				Str("shop", req.Shop).
				Msg("Status recorded but purchase order creation failed")
			s.tracer.RecordError(txn, err)
			s.metrics.RecordError("procurement")
			result.ProcurementError = err.Error()
		} else {
			s.metrics.RecordSuccess("procurement")
			result.PurchaseOrderCreated = true
			result.PurchaseOrder = po
		}
	}

	return result, nil
}
