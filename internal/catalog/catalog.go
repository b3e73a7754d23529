// Package catalog answers price questions for the cart behind a circuit
// breaker, so a sick catalog store fails fast instead of piling up requests.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/money"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// PriceLookup returns the current price of a product, or a KindNotFound
// error wrapping domain.ErrProductNotFound.
type PriceLookup interface {
	Price(ctx context.Context, productID int64) (money.Money, error)
}

// ProductSource is the catalog store consulted on a lookup.
type ProductSource interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

type BreakerSettings struct {
	MaxFailures uint32
	Timeout     time.Duration
}

type BreakerLookup struct {
	src ProductSource
	cb  *gobreaker.CircuitBreaker[money.Money]
}

func NewBreakerLookup(src ProductSource, s BreakerSettings, log *zap.Logger) *BreakerLookup {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker[money.Money](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.MaxFailures
		},
		// An unknown product is an answer, not a catalog failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrProductNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return &BreakerLookup{src: src, cb: cb}
}

func (b *BreakerLookup) Price(ctx context.Context, productID int64) (money.Money, error) {
	price, err := b.cb.Execute(func() (money.Money, error) {
		p, err := b.src.GetByID(ctx, productID)
		if err != nil {
			return money.Money{}, err
		}
		return p.Price, nil
	})
	switch {
	case err == nil:
		return price, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return money.Money{}, domain.Persistence("catalog.price", "product", productID, err)
	default:
		return money.Money{}, err
	}
}

func (b *BreakerLookup) State() gobreaker.State {
	return b.cb.State()
}
