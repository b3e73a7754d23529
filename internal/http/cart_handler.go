package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CartService interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	AddProduct(ctx context.Context, userID, productID int64) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, q int) (*domain.Cart, error)
	SetDiscount(ctx context.Context, userID, productID int64, d decimal.Decimal) (*domain.Cart, error)
	RemoveLine(ctx context.Context, userID, productID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID int64) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(carts CartService, timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		log:     log,
	}
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type SetDiscountRequestDTO struct {
	Discount *decimal.Decimal `json:"discount"`
}

// GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.Get(ctx, getUserIDFromContext(ctx))
	h.respondCart(w, http.StatusOK, cart, err)
}

// POST /cart/products/{product_id}
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	cart, err := h.carts.AddProduct(ctx, getUserIDFromContext(ctx), productID)
	h.respondCart(w, http.StatusOK, cart, err)
}

// PUT /cart/products/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, getUserIDFromContext(ctx), productID, *req.Quantity)
	h.respondCart(w, http.StatusOK, cart, err)
}

// PUT /cart/products/{product_id}/discount
func (h *CartHandler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req SetDiscountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Discount == nil {
		respondError(w, http.StatusBadRequest, "invalid_discount", "discount is required")
		return
	}

	cart, err := h.carts.SetDiscount(ctx, getUserIDFromContext(ctx), productID, *req.Discount)
	h.respondCart(w, http.StatusOK, cart, err)
}

// DELETE /cart/products/{product_id}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	cart, err := h.carts.RemoveLine(ctx, getUserIDFromContext(ctx), productID)
	h.respondCart(w, http.StatusOK, cart, err)
}

// DELETE /cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.ClearCart(ctx, getUserIDFromContext(ctx))
	h.respondCart(w, http.StatusOK, cart, err)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int, cart *domain.Cart, err error) {
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, status, toCartDTO(cart))
}
