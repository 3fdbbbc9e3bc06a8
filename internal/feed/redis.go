package feed

import (
	"context"

	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSource subscribes to the relay's redis fan-out channel.
type RedisSource struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisSource(client *redis.Client, channel string, logger *zap.Logger) *RedisSource {
	return &RedisSource{client: client, channel: channel, logger: logger}
}

func (s *RedisSource) Open(ctx context.Context) (Stream, error) {
	sub := s.client.Subscribe(ctx, s.channel)
	// Wait for the subscription confirmation so failures surface here.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, domain.TransportError("redis subscribe", err)
	}
	return &redisStream{sub: sub, logger: s.logger}, nil
}

type redisStream struct {
	sub    *redis.PubSub
	logger *zap.Logger
}

func (s *redisStream) Next(ctx context.Context) (Event, error) {
	for {
		msg, err := s.sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, domain.TransportError("redis receive", err)
		}
		ev, err := Decode([]byte(msg.Payload))
		if err != nil {
			s.logger.Warn("skipping malformed redis message", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		return ev, nil
	}
}

func (s *redisStream) Close() error {
	return s.sub.Close()
}
