package domain

import (
	"time"

	"github.com/fjod/easyshop/internal/money"
	"github.com/shopspring/decimal"
)

type ShippingAddress struct {
	Address string
	City    string
	State   string
	Zip     string
}

// OrderLine is a frozen snapshot of a cart line at purchase time. It refers
// to the catalog by id only, so later price changes never reach it.
type OrderLine struct {
	orderID    int64
	productID  int64
	quantity   int
	salesPrice money.Money
	discount   decimal.Decimal
	lineTotal  money.Money
}

func NewOrderLine(orderID, productID int64, quantity int, salesPrice money.Money, discount decimal.Decimal) OrderLine {
	return OrderLine{
		orderID:    orderID,
		productID:  productID,
		quantity:   quantity,
		salesPrice: salesPrice,
		discount:   discount,
		lineTotal:  LineTotal(salesPrice, quantity, discount),
	}
}

// OrderLineFromCart snapshots a cart line for the given order.
func OrderLineFromCart(orderID int64, l *CartLine) OrderLine {
	return NewOrderLine(orderID, l.ProductID(), l.Quantity(), l.Price(), l.Discount())
}

func (l OrderLine) OrderID() int64 { return l.orderID }
func (l OrderLine) ProductID() int64 { return l.productID }
func (l OrderLine) Quantity() int { return l.quantity }
func (l OrderLine) SalesPrice() money.Money { return l.salesPrice }
func (l OrderLine) Discount() decimal.Decimal { return l.discount }
func (l OrderLine) LineTotal() money.Money { return l.lineTotal }

// Order is the record of one checkout. Lines may only be appended while it is
// being built; Seal freezes it.
type Order struct {
	id             int64
	userID         int64
	placedAt       time.Time
	shipping       ShippingAddress
	shippingAmount money.Money
	lines          []OrderLine
	total          money.Money
	sealed         bool
}

// NewOrder starts an order whose total is seeded from the cart total until
// lines are appended.
func NewOrder(userID int64, placedAt time.Time, shipping ShippingAddress, shippingAmount, seedTotal money.Money) *Order {
	return &Order{
		userID:         userID,
		placedAt:       placedAt,
		shipping:       shipping,
		shippingAmount: shippingAmount,
		total:          seedTotal,
	}
}

// RestoreOrder rebuilds a sealed order read back from storage.
func RestoreOrder(id, userID int64, placedAt time.Time, shipping ShippingAddress, shippingAmount money.Money, lines []OrderLine) *Order {
	o := &Order{
		id:             id,
		userID:         userID,
		placedAt:       placedAt,
		shipping:       shipping,
		shippingAmount: shippingAmount,
		lines:          append([]OrderLine(nil), lines...),
	}
	o.recalculate()
	o.sealed = true
	return o
}

func (o *Order) ID() int64 { return o.id }
func (o *Order) UserID() int64 { return o.userID }
func (o *Order) PlacedAt() time.Time { return o.placedAt }
func (o *Order) Shipping() ShippingAddress { return o.shipping }
func (o *Order) ShippingAmount() money.Money { return o.shippingAmount }
func (o *Order) Total() money.Money { return o.total }
func (o *Order) Sealed() bool { return o.sealed }

func (o *Order) Lines() []OrderLine {
	return append([]OrderLine(nil), o.lines...)
}

// AssignID records the identifier generated by the order store.
func (o *Order) AssignID(id int64) error {
	if o.sealed {
		return ErrOrderSealed
	}
	o.id = id
	return nil
}

func (o *Order) AddLine(l OrderLine) error {
	if o.sealed {
		return ErrOrderSealed
	}
	o.lines = append(o.lines, l)
	o.recalculate()
	return nil
}

func (o *Order) Seal() {
	o.sealed = true
}

func (o *Order) recalculate() {
	total := o.shippingAmount
	for _, l := range o.lines {
		total = total.Add(l.lineTotal)
	}
	o.total = total
}
