package feed

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Subscriber keeps exactly one subscription open and forwards its events.
type Subscriber struct {
	source Source
	lister Lister
	sink   Sink
	limit  int
	logger *zap.Logger

	newBackOff func() backoff.BackOff
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithBackOff replaces the reconnect policy.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(s *Subscriber) { s.newBackOff = f }
}

// NewSubscriber wires a source to a sink. A nil lister disables resync,
// which the relay uses since it holds no state of its own.
func NewSubscriber(source Source, lister Lister, sink Sink, limit int, logger *zap.Logger, opts ...Option) *Subscriber {
	s := &Subscriber{
		source: source,
		lister: lister,
		sink:   sink,
		limit:  limit,
		logger: logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run subscribes until ctx is cancelled. It always returns ctx.Err().
func (s *Subscriber) Run(ctx context.Context) error {
	b := s.newBackOff()
	for {
		stream, err := s.source.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("feed subscribe failed", zap.Error(err))
			if !s.wait(ctx, b) {
				return ctx.Err()
			}
			continue
		}

		if err := s.resync(ctx); err != nil {
			stream.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("feed resync failed", zap.Error(err))
			if !s.wait(ctx, b) {
				return ctx.Err()
			}
			continue
		}

		s.sink.SetFeedState(true)
		s.logger.Info("feed connected")
		b.Reset()

		err = s.consume(ctx, stream)
		stream.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.sink.SetFeedState(false)
		s.logger.Warn("feed lost, reconnecting", zap.Error(err))
		if !s.wait(ctx, b) {
			return ctx.Err()
		}
	}
}

func (s *Subscriber) resync(ctx context.Context) error {
	if s.lister == nil {
		return nil
	}
	orders, err := s.lister.ListRecentOrders(ctx, s.limit)
	if err != nil {
		return err
	}
	s.sink.Resync(orders)
	return nil
}

func (s *Subscriber) consume(ctx context.Context, stream Stream) error {
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		s.sink.Deliver(ev)
	}
}

// wait sleeps for the next backoff interval. It reports false when ctx ended
// or the policy gave up.
func (s *Subscriber) wait(ctx context.Context, b backoff.BackOff) bool {
	d := b.NextBackOff()
	if d == backoff.Stop {
		s.logger.Error("feed reconnect policy exhausted")
		<-ctx.Done()
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
