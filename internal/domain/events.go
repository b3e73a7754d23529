package domain

import (
	"time"

	"github.com/fjod/easyshop/internal/money"
)

const EventOrderPlaced = "order.placed"

// OrderPlaced is published once per committed order.
type OrderPlaced struct {
	OrderID  int64       `json:"order_id"`
	UserID   int64       `json:"user_id"`
	PlacedAt time.Time   `json:"placed_at"`
	Total    money.Money `json:"total"`
	Lines    int         `json:"lines"`
}

func NewOrderPlaced(o *Order) OrderPlaced {
	return OrderPlaced{
		OrderID:  o.ID(),
		UserID:   o.UserID(),
		PlacedAt: o.PlacedAt(),
		Total:    o.Total(),
		Lines:    len(o.lines),
	}
}
