package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/money"
)

var errStoreDown = errors.New("store unavailable")

// memCarts keeps persisted cart items and reprices them on Load like the
// real cart service.
type memCarts struct {
	m         sync.RWMutex
	items     map[int64][]domain.CartItem
	prices    map[int64]money.Money
	loadCalls int
	clearErr  error
}

func newMemCarts() *memCarts {
	return &memCarts{items: map[int64][]domain.CartItem{}, prices: map[int64]money.Money{}}
}

func (c *memCarts) setPrice(productID int64, price string) {
	c.m.Lock()
	defer c.m.Unlock()
	c.prices[productID] = money.MustParse(price)
}

func (c *memCarts) add(userID, productID int64, qty int) {
	c.m.Lock()
	defer c.m.Unlock()
	c.items[userID] = append(c.items[userID], domain.CartItem{ProductID: productID, Quantity: qty})
}

func (c *memCarts) count(userID int64) int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.items[userID])
}

func (c *memCarts) Load(_ context.Context, userID int64) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	c.loadCalls++
	cart := domain.NewCart(userID)
	for _, it := range c.items[userID] {
		cart.Restore(it, c.prices[it.ProductID])
	}
	return cart, nil
}

func (c *memCarts) Clear(_ context.Context, userID int64) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	delete(c.items, userID)
	return nil
}

type memProfiles struct {
	m        sync.RWMutex
	profiles map[int64]*domain.Profile
	calls    int
}

func (p *memProfiles) Load(_ context.Context, userID int64) (*domain.Profile, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.calls++
	prof, ok := p.profiles[userID]
	if !ok {
		return nil, domain.NotFound("profiles.load", "user", userID, domain.ErrProfileNotFound)
	}
	cp := *prof
	return &cp, nil
}

type storedOrder struct {
	order *domain.Order
	lines []domain.OrderLine
}

type outboxRow struct {
	eventType   string
	aggregateID string
	payload     any
}

// memDB stages writes per transaction and publishes them on commit only.
type memDB struct {
	m      sync.RWMutex
	nextID int64
	orders map[int64]storedOrder
	outbox []outboxRow
	txs    int

	createErr  error
	noID       bool
	failLineAt int // 1-based line write that fails; 0 never fails
}

func newMemDB() *memDB {
	return &memDB{orders: map[int64]storedOrder{}}
}

func (d *memDB) committedOrders() int {
	d.m.RLock()
	defer d.m.RUnlock()
	return len(d.orders)
}

func (d *memDB) lines(orderID int64) []domain.OrderLine {
	d.m.RLock()
	defer d.m.RUnlock()
	return d.orders[orderID].lines
}

func (d *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error {
	d.m.Lock()
	d.txs++
	d.m.Unlock()

	tx := &memTx{db: d, orders: map[int64]storedOrder{}}
	if err := fn(ctx, TxStores{Orders: tx, Lines: txLines{tx}, Outbox: tx}); err != nil {
		return err
	}

	d.m.Lock()
	defer d.m.Unlock()
	for id, o := range tx.orders {
		d.orders[id] = o
	}
	d.outbox = append(d.outbox, tx.outbox...)
	return nil
}

type memTx struct {
	db     *memDB
	orders map[int64]storedOrder
	outbox []outboxRow
	writes int
}

func (t *memTx) Create(_ context.Context, o *domain.Order) (int64, error) {
	t.db.m.Lock()
	defer t.db.m.Unlock()
	if t.db.createErr != nil {
		return 0, t.db.createErr
	}
	if t.db.noID {
		return 0, nil
	}
	t.db.nextID++
	t.orders[t.db.nextID] = storedOrder{order: o}
	return t.db.nextID, nil
}

func (t *memTx) createLine(l domain.OrderLine) error {
	t.writes++
	if t.db.failLineAt > 0 && t.writes == t.db.failLineAt {
		return errStoreDown
	}
	so := t.orders[l.OrderID()]
	so.lines = append(so.lines, l)
	t.orders[l.OrderID()] = so
	return nil
}

func (t *memTx) Append(_ context.Context, eventType, aggregateID string, payload any) error {
	t.outbox = append(t.outbox, outboxRow{eventType: eventType, aggregateID: aggregateID, payload: payload})
	return nil
}

type txLines struct{ *memTx }

func (l txLines) Create(_ context.Context, line domain.OrderLine) error {
	return l.createLine(line)
}
