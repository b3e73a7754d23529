package http

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/money"
	"github.com/shopspring/decimal"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var prices = map[int64]money.Money{
	1: money.MustParse("10.00"),
	2: money.MustParse("5.00"),
}

// mockCarts keeps carts in memory and applies the real domain rules.
type mockCarts struct {
	m     sync.RWMutex
	carts map[int64]*domain.Cart
	err   error
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: map[int64]*domain.Cart{}}
}

func (c *mockCarts) cart(userID int64) *domain.Cart {
	cart, ok := c.carts[userID]
	if !ok {
		cart = domain.NewCart(userID)
		c.carts[userID] = cart
	}
	return cart
}

func (c *mockCarts) Get(_ context.Context, userID int64) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.cart(userID), nil
}

func (c *mockCarts) AddProduct(_ context.Context, userID, productID int64) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	price, ok := prices[productID]
	if !ok {
		return nil, domain.NotFound("catalog.price", "product", productID, domain.ErrProductNotFound)
	}
	cart := c.cart(userID)
	cart.AddOrIncrement(productID, price, now)
	return cart, nil
}

func (c *mockCarts) UpdateQuantity(_ context.Context, userID, productID int64, q int) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	cart := c.cart(userID)
	if err := cart.SetQuantity(productID, q); err != nil {
		return nil, err
	}
	return cart, nil
}

func (c *mockCarts) SetDiscount(_ context.Context, userID, productID int64, d decimal.Decimal) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	cart := c.cart(userID)
	if err := cart.SetDiscount(productID, d); err != nil {
		return nil, err
	}
	return cart, nil
}

func (c *mockCarts) RemoveLine(_ context.Context, userID, productID int64) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	cart := c.cart(userID)
	cart.RemoveLine(productID)
	return cart, nil
}

func (c *mockCarts) ClearCart(_ context.Context, userID int64) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.cart(userID).Clear()
	return c.cart(userID), nil
}

type mockCheckout struct {
	m      sync.RWMutex
	calls  int
	nextID int64
	err    error
	placed map[int64]*domain.Order
}

func (c *mockCheckout) Checkout(_ context.Context, userID int64) (*domain.Order, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	c.nextID++
	line := domain.NewOrderLine(c.nextID, 1, 2, money.MustParse("10.00"), decimal.Zero)
	o := domain.RestoreOrder(c.nextID, userID, now, domain.ShippingAddress{Address: "1 Main", City: "Dallas", State: "TX", Zip: "75001"}, money.Zero(), []domain.OrderLine{line})
	if c.placed == nil {
		c.placed = map[int64]*domain.Order{}
	}
	c.placed[o.ID()] = o
	return o, nil
}

func (c *mockCheckout) Get(_ context.Context, userID, orderID int64) (*domain.Order, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	o, ok := c.placed[orderID]
	if !ok || o.UserID() != userID {
		return nil, domain.NotFound("orders.get", "order", orderID, domain.ErrOrderNotFound)
	}
	return o, nil
}

func (c *mockCheckout) ListByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	var out []*domain.Order
	for id := c.nextID; id > 0; id-- {
		if o, ok := c.placed[id]; ok && o.UserID() == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *mockCheckout) checkouts() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.calls
}

type mockIdempotency struct {
	m        sync.RWMutex
	keys     map[string]int64 // 0 means pending
	beginErr error
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: map[string]int64{}}
}

func (i *mockIdempotency) k(userID int64, key string) string {
	return fmt.Sprintf("%d/%s", userID, key)
}

func (i *mockIdempotency) Begin(_ context.Context, userID int64, key string) (int64, error) {
	i.m.Lock()
	defer i.m.Unlock()
	if i.beginErr != nil {
		return 0, i.beginErr
	}
	id, ok := i.keys[i.k(userID, key)]
	if !ok {
		i.keys[i.k(userID, key)] = 0
		return 0, nil
	}
	if id == 0 {
		return 0, domain.Conflict("idempotency.begin", "key", key, domain.ErrRequestInProgress)
	}
	return id, nil
}

func (i *mockIdempotency) Complete(_ context.Context, userID int64, key string, orderID int64) error {
	i.m.Lock()
	defer i.m.Unlock()
	i.keys[i.k(userID, key)] = orderID
	return nil
}

func (i *mockIdempotency) Release(_ context.Context, userID int64, key string) error {
	i.m.Lock()
	defer i.m.Unlock()
	delete(i.keys, i.k(userID, key))
	return nil
}

func (i *mockIdempotency) has(userID int64, key string) bool {
	i.m.RLock()
	defer i.m.RUnlock()
	_, ok := i.keys[i.k(userID, key)]
	return ok
}

type mockCatalog struct {
	products   []domain.Product
	categories []domain.Category
	lastFilter domain.ProductFilter
	err        error
}

func (c *mockCatalog) Search(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	c.lastFilter = f
	return c.products, c.err
}

func (c *mockCatalog) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.NotFound("products.get", "product", id, domain.ErrProductNotFound)
}

func (c *mockCatalog) ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	if _, err := c.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	var out []domain.Product
	for _, p := range c.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *mockCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	return c.categories, c.err
}

func (c *mockCatalog) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return &cat, nil
		}
	}
	return nil, domain.NotFound("categories.get", "category", id, domain.ErrCategoryNotFound)
}

type mockProfiles struct {
	m        sync.RWMutex
	profiles map[int64]*domain.Profile
	err      error
}

func (p *mockProfiles) Load(_ context.Context, userID int64) (*domain.Profile, error) {
	p.m.RLock()
	defer p.m.RUnlock()
	if p.err != nil {
		return nil, p.err
	}
	prof, ok := p.profiles[userID]
	if !ok {
		return nil, domain.NotFound("profiles.load", "user", userID, domain.ErrProfileNotFound)
	}
	return prof, nil
}

func (p *mockProfiles) Upsert(_ context.Context, prof *domain.Profile) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.profiles[prof.UserID] = prof
	return nil
}
