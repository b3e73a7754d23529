package domain

import (
	"github.com/fjod/easyshop/internal/money"
)

type Product struct {
	ID          int64
	Name        string
	Price       money.Money
	CategoryID  int64
	Description string
	Color       string
	ImageURL    string
	Stock       int
	Featured    bool
}

type Category struct {
	ID          int64
	Name        string
	Description string
}

// ProductFilter narrows a catalog search; nil fields are not applied.
type ProductFilter struct {
	CategoryID *int64
	MinPrice   *money.Money
	MaxPrice   *money.Money
	Color      *string
}

// Profile is the user's contact and shipping information.
type Profile struct {
	UserID    int64
	FirstName string
	LastName  string
	Phone     string
	Email     string
	ShippingAddress
}
