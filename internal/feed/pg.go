package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiwari-pos/terminal/internal/domain"
	"go.uber.org/zap"
)

// NotifyChannel is the LISTEN channel fed by the orders_notify_change trigger.
const NotifyChannel = "order_changes"

// Fetcher loads the row a notification points at.
type Fetcher interface {
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
}

// PGSource listens for order changes directly on Postgres. Each stream owns
// a dedicated connection; LISTEN does not survive a pooled connection.
type PGSource struct {
	connString string
	businessID uuid.UUID
	fetcher    Fetcher
	logger     *zap.Logger
}

func NewPGSource(connString string, businessID uuid.UUID, fetcher Fetcher, logger *zap.Logger) *PGSource {
	return &PGSource{connString: connString, businessID: businessID, fetcher: fetcher, logger: logger}
}

func (s *PGSource) Open(ctx context.Context) (Stream, error) {
	conn, err := pgx.Connect(ctx, s.connString)
	if err != nil {
		return nil, domain.TransportError("listen connect", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Close(context.Background())
		return nil, domain.TransportError("listen", err)
	}
	return &pgStream{conn: conn, businessID: s.businessID, fetcher: s.fetcher, logger: s.logger}, nil
}

type pgStream struct {
	conn       *pgx.Conn
	businessID uuid.UUID
	fetcher    Fetcher
	logger     *zap.Logger
}

func (s *pgStream) Next(ctx context.Context) (Event, error) {
	for {
		n, err := s.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, domain.TransportError("wait for notification", err)
		}
		ev, ok, err := s.resolve(ctx, n.Payload)
		if err != nil {
			return Event{}, err
		}
		if ok {
			return ev, nil
		}
	}
}

// resolve turns a notification into an event by reading the row it names.
// ok is false for notifications that should be skipped.
func (s *pgStream) resolve(ctx context.Context, payload string) (Event, bool, error) {
	typ, n, err := decodeNotification(payload)
	if err != nil {
		s.logger.Warn("skipping malformed order notification", zap.Error(err))
		return Event{}, false, nil
	}
	if n.BusinessID != s.businessID {
		return Event{}, false, nil
	}
	order, err := s.fetcher.GetOrder(ctx, n.ID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("notified order not found", zap.String("order_id", n.ID.String()))
		return Event{}, false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return Event{}, false, ctx.Err()
		}
		return Event{}, false, err
	}
	return Event{Type: typ, Order: order}, true, nil
}

func (s *pgStream) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := s.conn.Close(ctx); err != nil {
		return fmt.Errorf("close listen connection: %w", err)
	}
	return nil
}
