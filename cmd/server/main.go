package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/feed"
	"github.com/kiwari-pos/terminal/internal/logger"
	"github.com/kiwari-pos/terminal/internal/relay"
	"github.com/kiwari-pos/terminal/internal/router"
	"github.com/kiwari-pos/terminal/internal/store"
	"github.com/kiwari-pos/terminal/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// The relay listens to the store's change feed once and fans it out to
// terminals over websocket and, when REDIS_ADDR is reachable, redis pub/sub.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.RequireBusiness(); err != nil {
		log.Fatal(err)
	}

	logr, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logr.Fatal("create pool", zap.Error(err))
	}
	defer pool.Close()
	client := store.NewFromPool(pool, store.Options{BusinessID: cfg.BusinessID, Timeout: cfg.WriteTimeout})

	var publisher relay.Publisher
	if cfg.Feed.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Feed.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logr.Warn("redis unavailable, websocket fan-out only", zap.String("addr", cfg.Feed.RedisAddr), zap.Error(err))
		} else {
			publisher = relay.NewRedisPublisher(rdb)
		}
	}

	hub := ws.NewHub(logr)
	sink := relay.NewFeedRelay(hub, publisher, config.OrdersChannel, logr)
	subscriber := feed.NewSubscriber(feed.NewPGSource(cfg.DatabaseURL, cfg.BusinessID, client, logr), client, sink, cfg.ResyncLimit, logr)

	srv := &http.Server{
		Addr:    ":" + cfg.RelayPort,
		Handler: router.NewRelay(cfg, hub),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("change feed stopped", zap.Error(err))
		}
	}()

	go func() {
		logr.Info("relay listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	wg.Wait()
}
