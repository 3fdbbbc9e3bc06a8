package feed

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kiwari-pos/terminal/internal/domain"
	"go.uber.org/zap"
)

const (
	closeTimeout = 5 * time.Second

	// The relay pings every 54s; a silent peer for longer than this is gone.
	wsReadTimeout = 70 * time.Second
)

// WSSource subscribes to the relay's websocket endpoint.
type WSSource struct {
	baseURL    string
	businessID uuid.UUID
	token      string
	dialer     *websocket.Dialer
	logger     *zap.Logger
}

// NewWSSource creates a source for the relay at baseURL (ws:// or wss://).
func NewWSSource(baseURL string, businessID uuid.UUID, token string, logger *zap.Logger) *WSSource {
	return &WSSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		businessID: businessID,
		token:      token,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
	}
}

func (s *WSSource) endpoint() string {
	return s.baseURL + "/ws/businesses/" + s.businessID.String() + "/orders?token=" + url.QueryEscape(s.token)
}

func (s *WSSource) Open(ctx context.Context) (Stream, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.endpoint(), nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			s.logger.Error("relay rejected feed token", zap.Int("status", resp.StatusCode))
		}
		return nil, domain.TransportError("dial relay", err)
	}
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	return &wsStream{conn: conn, logger: s.logger}, nil
}

type wsStream struct {
	conn   *websocket.Conn
	logger *zap.Logger
}

// Next returns the next event. Each text frame is one event; malformed
// frames are skipped.
func (s *wsStream) Next(ctx context.Context) (Event, error) {
	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, domain.TransportError("read relay", err)
		}
		s.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		ev, err := Decode(msg)
		if err != nil {
			s.logger.Warn("skipping malformed relay message", zap.Error(err))
			continue
		}
		return ev, nil
	}
}

func (s *wsStream) Close() error {
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}
