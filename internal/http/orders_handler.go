package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/idempotency"
	"go.uber.org/zap"
)

type Checkouter interface {
	Checkout(ctx context.Context, userID int64) (*domain.Order, error)
}

type OrderReader interface {
	Get(ctx context.Context, userID, orderID int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
}

type IdempotencyStore interface {
	Begin(ctx context.Context, userID int64, key string) (int64, error)
	Complete(ctx context.Context, userID int64, key string, orderID int64) error
	Release(ctx context.Context, userID int64, key string) error
}

type OrdersHandler struct {
	checkout Checkouter
	orders   OrderReader
	idem     IdempotencyStore
	timeout  time.Duration
	log      *zap.Logger
}

func NewOrdersHandler(checkout Checkouter, orders OrderReader, idem IdempotencyStore, timeout time.Duration, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		checkout: checkout,
		orders:   orders,
		idem:     idem,
		timeout:  timeout,
		log:      log,
	}
}

// POST /orders
//
// With an Idempotency-Key header a repeated request returns the order the
// first one placed.
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(ctx)
	key := idempotency.Key(r)
	if r.Header.Get(idempotency.Header) != "" {
		if err := idempotency.Validate(key); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_idempotency_key", err.Error())
			return
		}

		orderID, err := h.idem.Begin(ctx, userID, key)
		if err != nil {
			handleError(w, h.log, err)
			return
		}
		if orderID != 0 {
			order, err := h.orders.Get(ctx, userID, orderID)
			if err != nil {
				handleError(w, h.log, err)
				return
			}
			respondJSON(w, http.StatusOK, toOrderDTO(order))
			return
		}
	}

	order, err := h.checkout.Checkout(ctx, userID)
	if err != nil {
		if key != "" {
			if relErr := h.idem.Release(context.WithoutCancel(ctx), userID, key); relErr != nil {
				h.log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
			}
		}
		handleError(w, h.log, err)
		return
	}

	if key != "" {
		if err := h.idem.Complete(context.WithoutCancel(ctx), userID, key, order.ID()); err != nil {
			h.log.Warn("failed to record idempotency key",
				zap.String("key", key),
				zap.Int64("order_id", order.ID()),
				zap.Error(err))
		}
	}
	respondJSON(w, http.StatusCreated, toOrderDTO(order))
}

// GET /orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListByUser(ctx, getUserIDFromContext(ctx))
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GET /orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := pathID(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	order, err := h.orders.Get(ctx, getUserIDFromContext(ctx), orderID)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}
