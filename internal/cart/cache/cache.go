// Package cache keeps recently read cart snapshots in Redis.
package cache

import (
	"context"
	"errors"

	"github.com/fjod/easyshop/internal/domain"
)

// CartCache is written by cart writers with Set and filled by readers with
// SetIfAbsent, so a slow reader never overwrites a newer write.
type CartCache interface {
	Get(ctx context.Context, userID int64) (*domain.CartSnapshot, error)
	Set(ctx context.Context, snap *domain.CartSnapshot) error
	SetIfAbsent(ctx context.Context, snap *domain.CartSnapshot) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
