// Package relay fans store change events and terminal state out to
// websocket clients and, optionally, a redis channel.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/feed"
	"github.com/kiwari-pos/terminal/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// Broadcaster delivers an event to every client of a business.
// Satisfied by *ws.Hub; narrow interface for testability.
type Broadcaster interface {
	BroadcastToBusiness(businessID uuid.UUID, event ws.Event)
}

// Publisher pushes encoded events onto a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes on a go-redis client.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// FeedRelay is a feed.Sink that forwards each change event to the hub and,
// when a publisher is set, to the business's redis channel. Events are
// encoded once and the same bytes go to both.
type FeedRelay struct {
	hub       Broadcaster
	publisher Publisher
	channel   func(businessID uuid.UUID) string
	logger    *zap.Logger
}

// NewFeedRelay creates a relay. publisher may be nil.
func NewFeedRelay(hub Broadcaster, publisher Publisher, channel func(uuid.UUID) string, logger *zap.Logger) *FeedRelay {
	return &FeedRelay{hub: hub, publisher: publisher, channel: channel, logger: logger}
}

var _ feed.Sink = (*FeedRelay)(nil)

func (r *FeedRelay) Deliver(ev feed.Event) {
	we, err := feed.ToWire(ev)
	if err != nil {
		r.logger.Error("encode feed event", zap.Stringer("order_id", ev.Order.ID), zap.Error(err))
		return
	}
	r.hub.BroadcastToBusiness(ev.Order.BusinessID, we)

	if r.publisher == nil {
		return
	}
	data, err := json.Marshal(we)
	if err != nil {
		r.logger.Error("encode envelope", zap.Stringer("order_id", ev.Order.ID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.publisher.Publish(ctx, r.channel(ev.Order.BusinessID), data); err != nil {
		r.logger.Warn("redis publish failed", zap.Stringer("order_id", ev.Order.ID), zap.Error(err))
	}
}

// Resync is a no-op: downstream subscribers resynchronise from the store
// themselves after connecting.
func (r *FeedRelay) Resync(orders []domain.Order) {
	r.logger.Debug("relay resynced", zap.Int("orders", len(orders)))
}

func (r *FeedRelay) SetFeedState(connected bool) {
	if connected {
		r.logger.Info("store feed connected")
		return
	}
	r.logger.Warn("store feed disconnected")
}
