package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/secmon/pkg/processor"
	"github.com/user/secmon/pkg/transport/pubsub"
)

var (
	serveAddr    string
	serveSaveDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive findings from a Pub/Sub push subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		requester, closeFn, err := newRequester(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		addr := serveAddr
		if addr == "" {
			addr = ":" + envOr("PORT", "8080")
		}

		opts := []processor.Option{processor.WithLogger(logger), processor.WithTimeout(cfg.RequestTimeout)}
		if serveSaveDir != "" {
			opts = append(opts, processor.WithSink(&processor.FileSink{Dir: serveSaveDir}))
		}
		proc := processor.New(requester, opts...)

		return pubsub.Serve(ctx, addr, proc, logger)
	},
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :$PORT or :8080)")
	serveCmd.Flags().StringVar(&serveSaveDir, "save-dir", "", "Also write each successful analysis to this directory")
	rootCmd.AddCommand(serveCmd)
}
