// Package idempotency makes POST /orders safe to retry: the first request
// with a given Idempotency-Key places the order, repeats get the same order.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/redis/go-redis/v9"
)

const Header = "Idempotency-Key"

const pending = "pending"

// MaxKeyLength bounds what a client may send as a key.
const MaxKeyLength = 128

var ErrInvalidKey = errors.New("idempotency key must be 1-128 printable characters")

// Key returns the trimmed header value, empty when the client sent none.
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

func Validate(key string) error {
	if key == "" || len(key) > MaxKeyLength {
		return ErrInvalidKey
	}
	for _, c := range key {
		if c < 0x21 || c > 0x7e {
			return ErrInvalidKey
		}
	}
	return nil
}

type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) key(userID int64, key string) string {
	return fmt.Sprintf("idem:order:%d:%s", userID, key)
}

// Begin claims the key for this user. It returns (0, nil) when the caller
// owns the request and must call Complete or Release, and the previously
// placed order id when the request was already served. A claim that is still
// pending is a Conflict.
func (s *Store) Begin(ctx context.Context, userID int64, key string) (int64, error) {
	k := s.key(userID, key)
	ok, err := s.rdb.SetNX(ctx, k, pending, s.ttl).Result()
	if err != nil {
		return 0, domain.Persistence("idempotency.begin", "key", key, err)
	}
	if ok {
		return 0, nil
	}

	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; claim again.
		return s.Begin(ctx, userID, key)
	}
	if err != nil {
		return 0, domain.Persistence("idempotency.begin", "key", key, err)
	}
	if v == pending {
		return 0, domain.Conflict("idempotency.begin", "key", key, domain.ErrRequestInProgress)
	}

	orderID, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, domain.Persistence("idempotency.begin", "key", key, fmt.Errorf("corrupt value %q: %w", v, err))
	}
	return orderID, nil
}

// Complete records the order placed for the key.
func (s *Store) Complete(ctx context.Context, userID int64, key string, orderID int64) error {
	if err := s.rdb.Set(ctx, s.key(userID, key), strconv.FormatInt(orderID, 10), s.ttl).Err(); err != nil {
		return domain.Persistence("idempotency.complete", "key", key, err)
	}
	return nil
}

// Release drops a pending claim so the client can retry after a failure.
func (s *Store) Release(ctx context.Context, userID int64, key string) error {
	if err := s.rdb.Del(ctx, s.key(userID, key)).Err(); err != nil {
		return domain.Persistence("idempotency.release", "key", key, err)
	}
	return nil
}
