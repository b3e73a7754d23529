package checkout

import (
	"context"

	"github.com/fjod/easyshop/internal/domain"
)

// CartStore gives checkout unlocked access to a user's cart; the
// orchestrator already holds the user's lock while it calls these.
type CartStore interface {
	// Load returns the cart repriced at current catalog prices. A user
	// without a stored cart gets an empty one.
	Load(ctx context.Context, userID int64) (*domain.Cart, error)
	Clear(ctx context.Context, userID int64) error
}

type ProfileStore interface {
	// Load returns a KindNotFound error wrapping domain.ErrProfileNotFound
	// when the user has no profile.
	Load(ctx context.Context, userID int64) (*domain.Profile, error)
}

type OrderStore interface {
	// Create inserts the header and returns the generated id.
	Create(ctx context.Context, o *domain.Order) (int64, error)
}

type OrderLineStore interface {
	Create(ctx context.Context, l domain.OrderLine) error
}

type OutboxWriter interface {
	Append(ctx context.Context, eventType, aggregateID string, payload any) error
}

// TxStores are bound to one transaction.
type TxStores struct {
	Orders OrderStore
	Lines  OrderLineStore
	Outbox OutboxWriter
}

// Transactor commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s TxStores) error) error
}

// Locker serializes work per user. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, userID int64) (func(), error)
}
