package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/database"
	"github.com/kiwari-pos/terminal/internal/enum"
	"github.com/kiwari-pos/terminal/internal/feed"
	"github.com/kiwari-pos/terminal/internal/lifecycle"
	"github.com/kiwari-pos/terminal/internal/logger"
	"github.com/kiwari-pos/terminal/internal/offline"
	"github.com/kiwari-pos/terminal/internal/relay"
	"github.com/kiwari-pos/terminal/internal/router"
	"github.com/kiwari-pos/terminal/internal/shift"
	"github.com/kiwari-pos/terminal/internal/store"
	"github.com/kiwari-pos/terminal/internal/ws"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTerminal(ctx)
		},
	}
}

func runTerminal(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireBusiness(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck
	log = log.With(zap.String("business_id", cfg.BusinessID.String()))

	// The pool connects lazily; an unreachable store only means starting offline.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	client := store.NewFromPool(pool, store.Options{
		BusinessID:        cfg.BusinessID,
		OrderNumberPrefix: cfg.OrderNumberPrefix,
		Timeout:           cfg.WriteTimeout,
	})

	queue, err := offline.OpenQueue(cfg.OfflineQueuePath)
	if err != nil {
		return fmt.Errorf("open offline queue: %w", err)
	}
	defer queue.Close()

	hub := ws.NewHub(log)
	publisher := relay.NewTerminalPublisher(hub, cfg.BusinessID, log)

	ctrl := lifecycle.New(
		client,
		offline.NewBuffer(queue, log),
		shift.NewLedger(client, log),
		lifecycle.Config{ResyncLimit: cfg.ResyncLimit, PingInterval: cfg.PingInterval},
		log,
		lifecycle.WithNotifier(publisher.Notify),
	)
	unsubscribe := ctrl.Subscribe(publisher.Snapshot)
	defer unsubscribe()

	source, closeSource, err := newFeedSource(cfg, client, log)
	if err != nil {
		return err
	}
	defer closeSource()
	subscriber := feed.NewSubscriber(source, client, ctrl, cfg.ResyncLimit, log)

	srv := &http.Server{
		Addr:    ":" + cfg.TerminalPort,
		Handler: router.New(cfg, ctrl, database.New(pool), hub, log),
	}

	var wg sync.WaitGroup
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(3)
	go func() {
		defer wg.Done()
		hub.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		if err := ctrl.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("lifecycle controller stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if err := subscriber.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("change feed stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("terminal listening", zap.String("addr", srv.Addr), zap.String("feed", string(cfg.Feed.Transport)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	wg.Wait()
	return nil
}

// newFeedSource builds the change-feed transport named by FEED_TRANSPORT.
func newFeedSource(cfg *config.Config, client feed.Fetcher, log *zap.Logger) (feed.Source, func(), error) {
	switch cfg.Feed.Transport {
	case enum.FeedTransportPostgres:
		return feed.NewPGSource(cfg.DatabaseURL, cfg.BusinessID, client, log), func() {}, nil
	case enum.FeedTransportWebsocket:
		if cfg.Feed.Token == "" {
			return nil, nil, fmt.Errorf("FEED_TOKEN is required for the websocket feed")
		}
		return feed.NewWSSource(cfg.Feed.URL, cfg.BusinessID, cfg.Feed.Token, log), func() {}, nil
	case enum.FeedTransportRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Feed.RedisAddr})
		return feed.NewRedisSource(rdb, cfg.Feed.Channel, log), func() { rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed transport %q", cfg.Feed.Transport)
	}
}
