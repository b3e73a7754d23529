// Package poller clears carts for orders whose synchronous cart clear did
// not happen, driven by order.placed events.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader the poller uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CartCleaner interface {
	DeleteIfNotUpdatedSince(ctx context.Context, userID int64, t time.Time) (bool, error)
}

// CacheWriter drops cached snapshots. The poller never writes a snapshot: it
// does not hold the user lock, so a write could land over a newer cart.
type CacheWriter interface {
	Delete(ctx context.Context, userID int64) error
}

type Poller struct {
	reader  MessageReader
	repo    CartCleaner
	cache   CacheWriter
	log     *zap.Logger
	metrics *metrics.Metrics
	backoff time.Duration
}

func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(reader MessageReader, repo CartCleaner, cache CacheWriter, log *zap.Logger, m *metrics.Metrics) *Poller {
	return &Poller{
		reader:  reader,
		repo:    repo,
		cache:   cache,
		log:     log,
		metrics: m,
		backoff: time.Second,
	}
}

func (p *Poller) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := p.poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Error("cart cleanup poll failed", zap.Error(err))
			select {
			case <-time.After(p.backoff):
			case <-ctx.Done():
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

// poll handles one message and commits it unless the store failed, in which
// case the message is redelivered.
func (p *Poller) poll(ctx context.Context) error {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("fetch message: %w", err)
	}

	if err := p.handle(ctx, m); err != nil {
		p.metrics.CartsCleaned.WithLabelValues("error").Inc()
		return err
	}

	if err := p.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("commit offset %d: %w", m.Offset, err)
	}
	return nil
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	if t := eventType(m); t != "" && t != domain.EventOrderPlaced {
		p.metrics.CartsCleaned.WithLabelValues("ignored").Inc()
		return nil
	}

	ev, err := decode(m.Value)
	if err != nil {
		p.log.Warn("skipping malformed order event", zap.Int64("offset", m.Offset), zap.Error(err))
		p.metrics.CartsCleaned.WithLabelValues("malformed").Inc()
		return nil
	}

	deleted, err := p.repo.DeleteIfNotUpdatedSince(ctx, ev.UserID, ev.PlacedAt)
	if err != nil {
		return fmt.Errorf("clean cart of user %d: %w", ev.UserID, err)
	}
	if !deleted {
		p.metrics.CartsCleaned.WithLabelValues("kept").Inc()
		return nil
	}

	if err := p.cache.Delete(ctx, ev.UserID); err != nil {
		p.log.Warn("failed to evict cached cart", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}
	p.log.Info("cleared cart left over by checkout",
		zap.Int64("user_id", ev.UserID),
		zap.Int64("order_id", ev.OrderID))
	p.metrics.CartsCleaned.WithLabelValues("cleared").Inc()
	return nil
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

var errMissingUser = errors.New("missing user_id")

func decode(b []byte) (domain.OrderPlaced, error) {
	var ev domain.OrderPlaced
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, err
	}
	if ev.UserID == 0 {
		return ev, errMissingUser
	}
	return ev, nil
}
