package http

import (
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/money"
	"github.com/shopspring/decimal"
)

// Amounts travel as decimal strings so clients never round through floats.

type CartLineDTO struct {
	ProductID int64           `json:"product_id"`
	Price     money.Money     `json:"price"`
	Quantity  int             `json:"quantity"`
	Discount  decimal.Decimal `json:"discount"`
	LineTotal money.Money     `json:"line_total"`
	AddedAt   time.Time       `json:"added_at"`
}

type CartDTO struct {
	UserID int64         `json:"user_id"`
	Lines  []CartLineDTO `json:"lines"`
	Total  money.Money   `json:"total"`
}

func toCartDTO(c *domain.Cart) CartDTO {
	lines := make([]CartLineDTO, 0, c.Len())
	for _, l := range c.Lines() {
		lines = append(lines, CartLineDTO{
			ProductID: l.ProductID(),
			Price:     l.Price(),
			Quantity:  l.Quantity(),
			Discount:  l.Discount(),
			LineTotal: l.LineTotal(),
			AddedAt:   l.AddedAt(),
		})
	}
	return CartDTO{UserID: c.UserID(), Lines: lines, Total: c.Total()}
}

type OrderLineDTO struct {
	ProductID  int64           `json:"product_id"`
	SalesPrice money.Money     `json:"sales_price"`
	Quantity   int             `json:"quantity"`
	Discount   decimal.Decimal `json:"discount"`
	LineTotal  money.Money     `json:"line_total"`
}

type AddressDTO struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

type OrderResponseDTO struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	PlacedAt       time.Time      `json:"placed_at"`
	Shipping       AddressDTO     `json:"shipping"`
	ShippingAmount money.Money    `json:"shipping_amount"`
	Total          money.Money    `json:"total"`
	Lines          []OrderLineDTO `json:"lines"`
}

func toOrderDTO(o *domain.Order) OrderResponseDTO {
	lines := make([]OrderLineDTO, 0)
	for _, l := range o.Lines() {
		lines = append(lines, OrderLineDTO{
			ProductID:  l.ProductID(),
			SalesPrice: l.SalesPrice(),
			Quantity:   l.Quantity(),
			Discount:   l.Discount(),
			LineTotal:  l.LineTotal(),
		})
	}
	s := o.Shipping()
	return OrderResponseDTO{
		ID:             o.ID(),
		UserID:         o.UserID(),
		PlacedAt:       o.PlacedAt(),
		Shipping:       AddressDTO{Address: s.Address, City: s.City, State: s.State, Zip: s.Zip},
		ShippingAmount: o.ShippingAmount(),
		Total:          o.Total(),
		Lines:          lines,
	}
}

type ProductResponse struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Price       money.Money `json:"price"`
	CategoryID  int64       `json:"category_id"`
	Description string      `json:"description"`
	Color       string      `json:"color"`
	ImageURL    string      `json:"image_url"`
	Stock       int         `json:"stock"`
	Featured    bool        `json:"featured"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		Color:       p.Color,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Featured:    p.Featured,
	}
}

func toProductsResponse(ps []domain.Product) ProductsResponse {
	out := make([]ProductResponse, len(ps))
	for i, p := range ps {
		out[i] = toProductResponse(p)
	}
	return ProductsResponse{Products: out}
}

type CategoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProfileDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	AddressDTO
}

func toProfileDTO(p *domain.Profile) ProfileDTO {
	return ProfileDTO{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
		AddressDTO: AddressDTO{
			Address: p.Address,
			City:    p.City,
			State:   p.State,
			Zip:     p.Zip,
		},
	}
}

func (d ProfileDTO) toDomain(userID int64) *domain.Profile {
	return &domain.Profile{
		UserID:    userID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Phone:     d.Phone,
		Email:     d.Email,
		ShippingAddress: domain.ShippingAddress{
			Address: d.Address,
			City:    d.City,
			State:   d.State,
			Zip:     d.Zip,
		},
	}
}
