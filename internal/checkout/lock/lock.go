// Package lock provides per-user mutual exclusion for cart mutations and
// checkout, in process or across instances through Redis.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Locker is what both backends provide.
type Locker interface {
	Lock(ctx context.Context, userID int64) (func(), error)
}

// New picks the lock backend. The memory backend only serializes requests
// inside one process, so it suits a single instance deployment.
func New(backend string, client redis.UniversalClient, ttl, wait time.Duration, log *zap.Logger) (Locker, error) {
	switch backend {
	case BackendRedis:
		return NewRedisLocker(client, ttl, wait, log), nil
	case BackendMemory:
		return NewKeyedMutex(wait), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", backend)
	}
}

// KeyedMutex is an in-process lock per user id. Waiting is bounded by the
// caller's context and by wait when it is positive.
type KeyedMutex struct {
	wait time.Duration

	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{wait: wait, locks: make(map[int64]*entry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, userID int64) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[userID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[userID] = e
	}
	e.refs++
	k.mu.Unlock()

	waitCtx, cancel := withWait(ctx, k.wait)
	defer cancel()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				k.release(userID, e)
			})
		}, nil
	case <-waitCtx.Done():
		k.release(userID, e)
		return nil, waitError(ctx, userID)
	}
}

func (k *KeyedMutex) release(userID int64, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, userID)
	}
}

// held reports how many users currently have an entry.
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func withWait(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// waitError returns the caller's own cancellation as is; otherwise the lock
// wait ran out while another request held the user.
func waitError(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return domain.Conflict("lock.acquire", "user", userID, domain.ErrCheckoutInProgress)
}
