// Package pubsub announces tariff table activations over Redis pub/sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"motor-tariff/core/tariff"
	"motor-tariff/internal/logging"
)

// DefaultChannel is the channel activations are published on
const DefaultChannel = "tariff:published"

// Event announces that a table became active
type Event struct {
	TableID     tariff.TableID `json:"table_id"`
	Version     int            `json:"version"`
	ContentHash string         `json:"content_hash"`
	PublishedAt time.Time      `json:"published_at"`
}

// NewEvent describes t
func NewEvent(t *tariff.Table, now time.Time) Event {
	return Event{
		TableID:     t.ID,
		Version:     t.Version,
		ContentHash: t.ContentHash.Hex(),
		PublishedAt: now.UTC(),
	}
}

// DecodeEvent parses a message payload
func DecodeEvent(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return e, fmt.Errorf("failed to parse event: %w", err)
	}
	if e.TableID == "" || e.Version <= 0 {
		return e, fmt.Errorf("event is missing table identity")
	}
	return e, nil
}

// NewClient creates a Redis client
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Publisher announces activations. It satisfies ingestion.Announcer.
type Publisher struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

// NewPublisher creates a publisher on channel
func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel, logger: logging.Named("pubsub")}
}

// Announce publishes an event for t
func (p *Publisher) Announce(ctx context.Context, t *tariff.Table) error {
	payload, err := json.Marshal(NewEvent(t, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	receivers, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Info("table activation announced",
		append(logging.Table(t), zap.Int64("receivers", receivers))...)
	return nil
}

// Subscriber delivers activation events to a handler
type Subscriber struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
	pubsub  *redis.PubSub
}

// NewSubscriber creates a subscriber on channel
func NewSubscriber(rdb *redis.Client, channel string) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{rdb: rdb, channel: channel, logger: logging.Named("pubsub")}
}

// Start subscribes and calls handle for each valid event until ctx is done
func (s *Subscriber) Start(ctx context.Context, handle func(context.Context, Event)) error {
	s.pubsub = s.rdb.Subscribe(ctx, s.channel)
	if _, err := s.pubsub.Receive(ctx); err != nil {
		s.pubsub.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	s.logger.Info("subscribed", zap.String("channel", s.channel))

	go s.listen(ctx, handle)
	return nil
}

func (s *Subscriber) listen(ctx context.Context, handle func(context.Context, Event)) {
	defer s.pubsub.Close()
	ch := s.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			event, err := DecodeEvent(msg.Payload)
			if err != nil {
				s.logger.Warn("ignoring malformed event", zap.Error(err))
				continue
			}
			handle(ctx, event)
		}
	}
}
