// Package repository keeps carts as MongoDB documents, one per user.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/easyshop/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository persists what the user picked. Prices are not stored.
type CartRepository interface {
	Get(ctx context.Context, userID int64) (*domain.CartSnapshot, error)
	Save(ctx context.Context, userID int64, items []domain.CartItem) error
	Delete(ctx context.Context, userID int64) error
	// DeleteIfNotUpdatedSince removes the cart only when it has not changed
	// after t. It reports whether a cart was removed.
	DeleteIfNotUpdatedSince(ctx context.Context, userID int64, t time.Time) (bool, error)
}
