// Package service implements the cart operations on top of the document
// store, the snapshot cache and the catalog price lookup.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/easyshop/internal/cart/cache"
	"github.com/fjod/easyshop/internal/cart/repository"
	"github.com/fjod/easyshop/internal/catalog"
	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Locker serializes cart writes per user with checkout.
type Locker interface {
	Lock(ctx context.Context, userID int64) (func(), error)
}

type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	prices catalog.PriceLookup
	locker Locker
	sfg    singleflight.Group // one store read per user on a cache miss
	now    func() time.Time
	log    *zap.Logger
}

func NewCartService(repo repository.CartRepository, c cache.CartCache, prices catalog.PriceLookup, locker Locker, log *zap.Logger) *CartService {
	return &CartService{
		repo:   repo,
		cache:  c,
		prices: prices,
		locker: locker,
		now:    time.Now,
		log:    log,
	}
}

// Load reads the cart straight from the store and prices it. Checkout and
// cart writers call it while holding the user lock.
func (s *CartService) Load(ctx context.Context, userID int64) (*domain.Cart, error) {
	snap, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		snap, err = &domain.CartSnapshot{UserID: userID}, nil
	}
	if err != nil {
		return nil, domain.Persistence("cart.load", "user", userID, fmt.Errorf("read cart: %w", err))
	}
	return s.price(ctx, snap)
}

// Get serves reads through the cache. Lines whose product left the catalog
// are dropped from the result.
func (s *CartService) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, snap)
}

func (s *CartService) price(ctx context.Context, snap *domain.CartSnapshot) (*domain.Cart, error) {
	cart := domain.NewCart(snap.UserID)
	for _, it := range snap.Items {
		price, err := s.prices.Price(ctx, it.ProductID)
		if errors.Is(err, domain.ErrProductNotFound) {
			logger.FromContext(ctx, s.log).Warn("dropping cart line for unknown product",
				zap.Int64("user_id", snap.UserID),
				zap.Int64("product_id", it.ProductID))
			continue
		}
		if err != nil {
			return nil, err
		}
		cart.Restore(it, price)
	}
	return cart, nil
}

// Clear empties the cart without taking the user lock.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	err := s.repo.Delete(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return domain.Persistence("cart.clear", "user", userID, err)
	}
	s.writeCache(ctx, &domain.CartSnapshot{UserID: userID, UpdatedAt: s.now().UTC()})
	return nil
}

// AddProduct adds one unit of the product, priced now.
func (s *CartService) AddProduct(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	price, err := s.prices.Price(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		c.AddOrIncrement(productID, price, s.now().UTC())
		return nil
	})
}

// UpdateQuantity sets the quantity of a line; q <= 0 removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID int64, q int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		return c.SetQuantity(productID, q)
	})
}

func (s *CartService) SetDiscount(ctx context.Context, userID, productID int64, d decimal.Decimal) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		return c.SetDiscount(productID, d)
	})
}

func (s *CartService) RemoveLine(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		c.RemoveLine(productID)
		return nil
	})
}

// ClearCart empties the cart under the user lock and returns it.
func (s *CartService) ClearCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.Clear(ctx, userID); err != nil {
		return nil, err
	}
	return domain.NewCart(userID), nil
}

// mutate runs fn on a freshly loaded cart under the user lock and stores
// the result.
func (s *CartService) mutate(ctx context.Context, userID int64, fn func(*domain.Cart) error) (*domain.Cart, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, userID, cart.Items()); err != nil {
		return nil, domain.Persistence("cart.save", "user", userID, err)
	}
	s.writeCache(ctx, &domain.CartSnapshot{UserID: userID, Items: cart.Items(), UpdatedAt: s.now().UTC()})
	return cart, nil
}

func (s *CartService) snapshot(ctx context.Context, userID int64) (*domain.CartSnapshot, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		snap, err := s.cache.Get(ctx, userID)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("cache get error", zap.Int64("user_id", userID), zap.Error(err))
		}

		snap, err = s.repo.Get(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return &domain.CartSnapshot{UserID: userID}, nil
		}
		if err != nil {
			return nil, domain.Persistence("cart.load", "user", userID, fmt.Errorf("read cart: %w", err))
		}

		if err := s.cache.SetIfAbsent(ctx, snap); err != nil {
			s.log.Warn("cache fill error", zap.Int64("user_id", userID), zap.Error(err))
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CartSnapshot), nil
}

// writeCache stores the snapshot a writer just saved. If that fails the key
// is dropped so readers fall back to the store.
func (s *CartService) writeCache(ctx context.Context, snap *domain.CartSnapshot) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	err := s.cache.Set(ctx, snap)
	if err == nil {
		return
	}
	s.log.Warn("cache set error", zap.Int64("user_id", snap.UserID), zap.Error(err))
	if err := s.cache.Delete(ctx, snap.UserID); err != nil {
		s.log.Warn("cache invalidate error", zap.Int64("user_id", snap.UserID), zap.Error(err))
	}
}
