package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/domain"
	"github.com/kiwari-pos/terminal/internal/logger"
	"github.com/kiwari-pos/terminal/internal/offline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newQueueCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List status writes waiting in the offline queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer log.Sync() //nolint:errcheck

			pending, err := listPending(cmd.Context(), cfg.OfflineQueuePath, log)
			if err != nil {
				return err
			}
			return printPending(os.Stdout, pending, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// listPending reads the queue the way the terminal's buffer does.
func listPending(ctx context.Context, path string, log *zap.Logger) ([]domain.PendingMutation, error) {
	queue, err := offline.OpenQueue(path)
	if err != nil {
		return nil, fmt.Errorf("open offline queue: %w", err)
	}
	defer queue.Close()
	return offline.NewBuffer(queue, log).Pending(ctx)
}

func printPending(w io.Writer, pending []domain.PendingMutation, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pending)
	}
	if len(pending) == 0 {
		fmt.Fprintln(w, "offline queue is empty")
		return nil
	}
	for _, m := range pending {
		fmt.Fprintf(w, "#%d  %s  %s -> %s  by %s  at %s\n",
			m.Sequence, m.OrderID, m.ExpectedStatus, m.TargetStatus, m.ActorID,
			m.EnqueuedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "%d pending\n", len(pending))
	return nil
}
