// Package publisher relays committed outbox events to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/fjod/easyshop/internal/metrics"
	"github.com/fjod/easyshop/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const batchSize = 100

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	DeleteProcessedBefore(ctx context.Context, t time.Time) (int64, error)
}

// Writer is the part of *kafka.Writer the poller uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	eventTick time.Duration
	purgeTick time.Duration
	retention time.Duration
	repo      OutboxStore
	writer    Writer
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo OutboxStore, w Writer, interval time.Duration, log *zap.Logger, m *metrics.Metrics) *OutboxPoller {
	return &OutboxPoller{
		eventTick: interval,
		purgeTick: time.Hour,
		retention: 7 * 24 * time.Hour,
		repo:      repo,
		writer:    w,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	purgeTicker := time.NewTicker(p.purgeTick)
	defer eventTicker.Stop()
	defer purgeTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-purgeTicker.C:
			p.purgeProcessed(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		p.log.Warn("error closing kafka writer", zap.Error(err))
	}
}

// processUnpublishedEvents publishes in id order and stops at the first
// failure so later events are never delivered ahead of earlier ones.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error("failed to publish outbox event",
				zap.Int64("id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			p.metrics.OutboxPublished.WithLabelValues("error").Inc()
			return
		}

		// A failed mark means the event is published again next tick;
		// consumers dedupe on event_id.
		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark outbox event as processed", zap.Int64("id", event.ID), zap.Error(err))
			p.metrics.OutboxPublished.WithLabelValues("unmarked").Inc()
			return
		}
		p.metrics.OutboxPublished.WithLabelValues("published").Inc()
	}
}

func (p *OutboxPoller) purgeProcessed(ctx context.Context) {
	n, err := p.repo.DeleteProcessedBefore(ctx, p.now().Add(-p.retention))
	if err != nil {
		p.log.Error("failed to purge outbox", zap.Error(err))
		return
	}
	if n > 0 {
		p.log.Info("purged processed outbox events", zap.Int64("count", n))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps one order on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID.String())},
		},
		Time: event.CreatedAt,
	}
	return p.writer.WriteMessages(ctx, msg)
}
