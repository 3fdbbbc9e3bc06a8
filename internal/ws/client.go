package ws

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kiwari-pos/terminal/internal/auth"
	"go.uber.org/zap"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10 // must stay below pongWait
	maxInbound  = 512
	sendBacklog = 256
)

// Tokens are checked before the upgrade, so the origin is not.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one subscriber to a business room. Events flow one way; anything
// the peer sends is discarded.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	businessID uuid.UUID
	send       chan []byte
}

func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// readLoop keeps the read deadline fresh and returns once the peer goes away.
func (c *Client) readLoop() {
	defer func() {
		c.leave()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.hub.logger.Warn("websocket read",
				zap.String("business_id", c.businessID.String()),
				zap.Error(err),
			)
		}
		return
	}
}

// writeLoop sends every event as its own text frame so each frame is one
// JSON document.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// authorize returns the business room the request may join, or the status
// and message to reject it with.
func authorize(r *http.Request, jwtSecret string) (uuid.UUID, int, string) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return uuid.Nil, http.StatusUnauthorized, "missing token"
	}
	claims, err := auth.ValidateToken(jwtSecret, token)
	if err != nil {
		return uuid.Nil, http.StatusUnauthorized, "invalid token"
	}
	room, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		return uuid.Nil, http.StatusBadRequest, "invalid business id"
	}
	if claims.BusinessID != room {
		return uuid.Nil, http.StatusForbidden, "business access denied"
	}
	return room, 0, ""
}

// ServeWS joins an authorized connection to its business room. The token
// travels in the query string because browsers cannot set headers on an
// upgrade.
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	room, status, msg := authorize(r, jwtSecret)
	if status != 0 {
		http.Error(w, msg, status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	c := &Client{hub: hub, conn: conn, businessID: room, send: make(chan []byte, sendBacklog)}
	select {
	case hub.register <- c:
	case <-hub.done:
		conn.Close()
		return
	}

	go c.writeLoop()
	go c.readLoop()
}
