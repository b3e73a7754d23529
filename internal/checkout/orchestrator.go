// Package checkout turns a user's cart into a persisted order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/logger"
	"github.com/fjod/easyshop/internal/metrics"
	"github.com/fjod/easyshop/internal/money"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Orchestrator struct {
	carts    CartStore
	profiles ProfileStore
	tx       Transactor
	locker   Locker

	shippingAmount money.Money
	now            func() time.Time
	log            *zap.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithShippingAmount(a money.Money) Option {
	return func(o *Orchestrator) { o.shippingAmount = a }
}

func NewOrchestrator(carts CartStore, profiles ProfileStore, tx Transactor, locker Locker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		carts:          carts,
		profiles:       profiles,
		tx:             tx,
		locker:         locker,
		shippingAmount: money.Zero(),
		now:            time.Now,
		log:            zap.NewNop(),
		tracer:         otel.Tracer("checkout"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}
	return o
}

// run tracks one checkout through its states.
type run struct {
	userID int64
	state  State
	log    *zap.Logger
	span   trace.Span
}

func (r *run) advance(next State) {
	if !r.state.CanTransitionTo(next) {
		panic(fmt.Sprintf("checkout: illegal transition %s -> %s", r.state, next))
	}
	r.log.Debug("checkout transition", zap.Stringer("from", r.state), zap.Stringer("to", next))
	r.span.AddEvent(next.String())
	r.state = next
}

// Checkout converts the user's cart into an order. Validation failures leave
// nothing behind; persistence failures roll back the order and keep the cart.
func (o *Orchestrator) Checkout(ctx context.Context, userID int64) (*domain.Order, error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "checkout.Checkout", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	r := &run{
		userID: userID,
		state:  StateValidating,
		log:    logger.FromContext(ctx, o.log).With(zap.Int64("user_id", userID)),
		span:   span,
	}

	order, err := o.checkout(ctx, r)
	o.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if !r.state.IsTerminal() {
			r.advance(StateFailed)
		}
		o.metrics.Checkouts.WithLabelValues(outcome(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if domain.KindOf(err) == domain.KindValidation {
			r.log.Info("checkout rejected", zap.Error(err))
		} else {
			r.log.Error("checkout failed", zap.Error(err))
		}
		return nil, err
	}

	o.metrics.Checkouts.WithLabelValues("complete").Inc()
	span.SetAttributes(attribute.Int64("order.id", order.ID()))
	r.log.Info("checkout complete",
		zap.Int64("order_id", order.ID()),
		zap.Stringer("total", order.Total()),
		zap.Int("lines", len(order.Lines())))
	return order, nil
}

func (o *Orchestrator) checkout(ctx context.Context, r *run) (*domain.Order, error) {
	unlock, err := o.locker.Lock(ctx, r.userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, profile, err := o.validate(ctx, r)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrder(r.userID, o.now().UTC(), profile.ShippingAddress, o.shippingAmount, cart.Total())

	r.advance(StateCreatingOrder)
	err = o.tx.WithinTx(ctx, func(ctx context.Context, s TxStores) error {
		id, err := s.Orders.Create(ctx, order)
		if err != nil {
			return persistence("checkout.create_order", r.userID, err)
		}
		if id == 0 {
			return domain.Persistence("checkout.create_order", "user", r.userID, domain.ErrNoOrderID)
		}
		if err := order.AssignID(id); err != nil {
			return persistence("checkout.create_order", r.userID, err)
		}

		r.advance(StateWritingLines)
		for _, cl := range cart.Lines() {
			line := domain.OrderLineFromCart(id, cl)
			if err := s.Lines.Create(ctx, line); err != nil {
				return persistence("checkout.write_line", r.userID, fmt.Errorf("product %d: %w", cl.ProductID(), err))
			}
			if err := order.AddLine(line); err != nil {
				return persistence("checkout.write_line", r.userID, err)
			}
		}

		if err := s.Outbox.Append(ctx, domain.EventOrderPlaced, strconv.FormatInt(id, 10), domain.NewOrderPlaced(order)); err != nil {
			return persistence("checkout.outbox", r.userID, err)
		}
		return nil
	})
	if err != nil {
		return nil, persistence("checkout.commit", r.userID, err)
	}
	order.Seal()

	r.advance(StateClearingCart)
	if err := o.carts.Clear(ctx, r.userID); err != nil {
		// The order is committed. The order.placed consumer clears the cart later.
		o.metrics.CartClearFailures.Inc()
		r.log.Error("cart clear after checkout failed",
			zap.Int64("order_id", order.ID()),
			zap.Error(err))
	}

	r.advance(StateComplete)
	return order, nil
}

func (o *Orchestrator) validate(ctx context.Context, r *run) (*domain.Cart, *domain.Profile, error) {
	cart, err := o.carts.Load(ctx, r.userID)
	if err != nil {
		return nil, nil, persistence("checkout.load_cart", r.userID, err)
	}
	if cart.IsEmpty() {
		return nil, nil, domain.Validation("checkout.load_cart", "user", r.userID, domain.ErrEmptyCart)
	}

	profile, err := o.profiles.Load(ctx, r.userID)
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		return nil, nil, domain.Validation("checkout.load_profile", "user", r.userID, domain.ErrMissingShippingProfile)
	case err != nil:
		return nil, nil, persistence("checkout.load_profile", r.userID, err)
	case profile.Address == "":
		return nil, nil, domain.Validation("checkout.load_profile", "user", r.userID, domain.ErrMissingShippingProfile)
	}
	return cart, profile, nil
}

// persistence keeps errors that already carry a kind and tags the rest.
func persistence(op string, userID int64, err error) error {
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	return domain.Persistence(op, "user", userID, err)
}

func outcome(err error) string {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return "rejected"
	case domain.KindConflict:
		return "conflict"
	default:
		return "failed"
	}
}
