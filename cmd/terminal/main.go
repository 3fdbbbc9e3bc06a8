package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Kiwari POS order terminal",
		Long: `Runs one POS terminal: the order lifecycle, the offline write queue,
the shift ledger and the terminal HTTP/websocket API.

Configuration comes from the environment (DATABASE_URL, BUSINESS_ID,
FEED_TRANSPORT, OFFLINE_QUEUE_PATH, ...).`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newQueueCommand())
	return cmd
}
