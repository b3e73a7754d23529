package domain

import (
	"math"
	"time"

	"github.com/fjod/easyshop/internal/money"
	"github.com/shopspring/decimal"
)

// MaxQuantity and DiscountPlaces are the limits of the order line columns.
// Anything wider would be rejected or rounded when the order is stored.
const (
	MaxQuantity    = math.MaxInt32
	DiscountPlaces = 4
)

var one = decimal.NewFromInt(1)

// CartItem is the persisted shape of a cart line: what the user picked, not
// what it costs. Prices are looked up again every time a cart is loaded.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
	AddedAt   time.Time       `json:"added_at"`
}

// CartLine is one product inside a cart. Every mutator recomputes the cached
// line total before returning, so LineTotal is never stale.
type CartLine struct {
	productID int64
	price     money.Money
	quantity  int
	discount  decimal.Decimal
	addedAt   time.Time
	total     money.Money
}

func newCartLine(productID int64, price money.Money, quantity int, discount decimal.Decimal, addedAt time.Time) *CartLine {
	l := &CartLine{
		productID: productID,
		price:     price,
		quantity:  quantity,
		discount:  discount,
		addedAt:   addedAt,
	}
	l.recalculate()
	return l
}

func (l *CartLine) ProductID() int64 { return l.productID }

func (l *CartLine) Price() money.Money { return l.price }

func (l *CartLine) Quantity() int { return l.quantity }

func (l *CartLine) Discount() decimal.Decimal { return l.discount }

func (l *CartLine) AddedAt() time.Time { return l.addedAt }

func (l *CartLine) LineTotal() money.Money { return l.total }

// SetQuantity rejects negative quantities and anything above MaxQuantity.
// Zero is accepted here; the cart decides that a zero line is removed.
func (l *CartLine) SetQuantity(q int) error {
	if q < 0 || q > MaxQuantity {
		return Validation("cart line set quantity", "product", l.productID, ErrInvalidQuantity)
	}
	l.quantity = q
	l.recalculate()
	return nil
}

// SetDiscount accepts fractions in [0, 1] with at most DiscountPlaces
// fractional digits.
func (l *CartLine) SetDiscount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(one) || !d.Equal(d.Truncate(DiscountPlaces)) {
		return Validation("cart line set discount", "product", l.productID, ErrInvalidDiscount)
	}
	l.discount = d
	l.recalculate()
	return nil
}

// SetPrice refreshes the referenced catalog price.
func (l *CartLine) SetPrice(p money.Money) {
	l.price = p
	l.recalculate()
}

func (l *CartLine) recalculate() {
	l.total = LineTotal(l.price, l.quantity, l.discount)
}

// LineTotal is price * quantity * (1 - discount), exact.
func LineTotal(price money.Money, quantity int, discount decimal.Decimal) money.Money {
	return price.MulInt(int64(quantity)).Mul(one.Sub(discount))
}

// Cart is the mutable pre-purchase aggregate for one user. Lines keep the
// order in which products were first added.
type Cart struct {
	userID int64
	lines  []*CartLine
	total  money.Money
}

func NewCart(userID int64) *Cart {
	return &Cart{userID: userID, total: money.Zero()}
}

func (c *Cart) UserID() int64 { return c.userID }

func (c *Cart) Total() money.Money { return c.total }

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns the lines in iteration order. The slice is a copy; the lines
// are not.
func (c *Cart) Lines() []*CartLine {
	out := make([]*CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(productID int64) (*CartLine, bool) {
	i := c.index(productID)
	if i < 0 {
		return nil, false
	}
	return c.lines[i], true
}

func (c *Cart) Contains(productID int64) bool {
	return c.index(productID) >= 0
}

// AddOrIncrement adds one unit of the product. Calling it twice yields
// quantity 2: this is additive "add to cart", not set semantics. The
// quantity stops at MaxQuantity.
func (c *Cart) AddOrIncrement(productID int64, price money.Money, now time.Time) *CartLine {
	defer c.recalculate()

	if i := c.index(productID); i >= 0 {
		l := c.lines[i]
		l.SetPrice(price)
		if l.quantity < MaxQuantity {
			l.quantity++
		}
		l.recalculate()
		return l
	}
	l := newCartLine(productID, price, 1, decimal.Zero, now)
	c.lines = append(c.lines, l)
	return l
}

// Restore puts a persisted line back into the cart with its current price.
// Non-positive quantities are dropped.
func (c *Cart) Restore(item CartItem, price money.Money) {
	defer c.recalculate()

	if item.Quantity <= 0 {
		c.removeAt(c.index(item.ProductID))
		return
	}
	if i := c.index(item.ProductID); i >= 0 {
		c.lines[i] = newCartLine(item.ProductID, price, item.Quantity, item.Discount, item.AddedAt)
		return
	}
	c.lines = append(c.lines, newCartLine(item.ProductID, price, item.Quantity, item.Discount, item.AddedAt))
}

// SetQuantity updates an existing line; q <= 0 removes it.
func (c *Cart) SetQuantity(productID int64, q int) error {
	i := c.index(productID)
	if i < 0 {
		return NotFound("cart set quantity", "product", productID, ErrLineNotFound)
	}
	defer c.recalculate()

	if q <= 0 {
		c.removeAt(i)
		return nil
	}
	return c.lines[i].SetQuantity(q)
}

func (c *Cart) SetDiscount(productID int64, d decimal.Decimal) error {
	i := c.index(productID)
	if i < 0 {
		return NotFound("cart set discount", "product", productID, ErrLineNotFound)
	}
	defer c.recalculate()
	return c.lines[i].SetDiscount(d)
}

// Reprice refreshes the price of one line; unknown products are ignored.
func (c *Cart) Reprice(productID int64, price money.Money) {
	if i := c.index(productID); i >= 0 {
		c.lines[i].SetPrice(price)
		c.recalculate()
	}
}

// RemoveLine is a no-op when the product is not in the cart.
func (c *Cart) RemoveLine(productID int64) {
	if i := c.index(productID); i >= 0 {
		c.removeAt(i)
		c.recalculate()
	}
}

func (c *Cart) Clear() {
	c.lines = nil
	c.recalculate()
}

// Items returns the persisted shape of every line.
func (c *Cart) Items() []CartItem {
	items := make([]CartItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, CartItem{
			ProductID: l.productID,
			Quantity:  l.quantity,
			Discount:  l.discount,
			AddedAt:   l.addedAt,
		})
	}
	return items
}

func (c *Cart) index(productID int64) int {
	for i, l := range c.lines {
		if l.productID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// recalculate is the single place the cart total is derived.
func (c *Cart) recalculate() {
	total := money.Zero()
	for _, l := range c.lines {
		total = total.Add(l.total)
	}
	c.total = total
}

// CartSnapshot is a stored cart: its items and when they last changed.
type CartSnapshot struct {
	UserID    int64      `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}
