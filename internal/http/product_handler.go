package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/money"
	"go.uber.org/zap"
)

type Catalog interface {
	Search(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
}

type ProductHandler struct {
	catalog Catalog
	timeout time.Duration
	log     *zap.Logger
}

func NewProductHandler(catalog Catalog, timeout time.Duration, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
		log:     log,
	}
}

// GET /products?cat=&minPrice=&maxPrice=&color=
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f, msg := parseFilter(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, "invalid_filter", msg)
		return
	}

	products, err := h.catalog.Search(ctx, f)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductsResponse(products))
}

// GET /products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	p, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*p))
}

// GET /categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	out := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description}
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /categories/{category_id}
func (h *ProductHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(r, "category_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "category_id must be a positive integer")
		return
	}

	c, err := h.catalog.GetCategory(ctx, id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, CategoryResponse{ID: c.ID, Name: c.Name, Description: c.Description})
}

// GET /categories/{category_id}/products
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := pathID(r, "category_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "category_id must be a positive integer")
		return
	}

	products, err := h.catalog.ListByCategory(ctx, id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductsResponse(products))
}

// parseFilter returns a client-facing message for the first bad parameter.
func parseFilter(r *http.Request) (domain.ProductFilter, string) {
	var f domain.ProductFilter
	q := r.URL.Query()

	if v := q.Get("cat"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, "cat must be an integer"
		}
		f.CategoryID = &id
	}
	if v := q.Get("minPrice"); v != "" {
		m, err := money.Parse(v)
		if err != nil {
			return f, "minPrice must be a decimal amount"
		}
		f.MinPrice = &m
	}
	if v := q.Get("maxPrice"); v != "" {
		m, err := money.Parse(v)
		if err != nil {
			return f, "maxPrice must be a decimal amount"
		}
		f.MaxPrice = &m
	}
	if v := strings.TrimSpace(q.Get("color")); v != "" {
		f.Color = &v
	}
	return f, ""
}
