package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWSStream_SkipsMalformedFrames(t *testing.T) {
	businessID := uuid.New()
	first, err := Encode(event("KWR-101"))
	require.NoError(t, err)
	second, err := Encode(event("KWR-102"))
	require.NoError(t, err)

	requests := make(chan *http.Request, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, first)
		conn.WriteMessage(websocket.TextMessage, []byte("{garbage"))
		conn.WriteMessage(websocket.TextMessage, second)
		conn.ReadMessage() // hold open until the client leaves
	}))
	defer srv.Close()

	source := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http")+"/", businessID, "tok en", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream, err := source.Open(ctx)
	require.NoError(t, err)
	defer stream.Close()

	ev1, err := stream.Next(ctx)
	require.NoError(t, err)
	ev2, err := stream.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, "KWR-101", ev1.Order.OrderNumber)
	assert.Equal(t, "KWR-102", ev2.Order.OrderNumber)
	r := <-requests
	assert.Equal(t, "/ws/businesses/"+businessID.String()+"/orders", r.URL.Path)
	assert.Equal(t, "tok en", r.URL.Query().Get("token"))
}

func TestWSStream_ServerGoneIsTransportError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	source := NewWSSource("ws"+strings.TrimPrefix(srv.URL, "http"), uuid.New(), "t", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream, err := source.Open(ctx)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestWSSource_DialFailure(t *testing.T) {
	source := NewWSSource("ws://127.0.0.1:1", uuid.New(), "t", zap.NewNop())
	_, err := source.Open(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisSource_ReceivesPublishedEvents(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	channel := "pos:orders:test-" + uuid.NewString()
	source := NewRedisSource(client, channel, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := source.Open(ctx)
	require.NoError(t, err)
	defer stream.Close()

	data, err := Encode(event("KWR-201"))
	require.NoError(t, err)
	require.NoError(t, client.Publish(ctx, channel, "not an event").Err())
	require.NoError(t, client.Publish(ctx, channel, data).Err())

	ev, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KWR-201", ev.Order.OrderNumber)
}
