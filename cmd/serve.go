package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/stressdash/internal/server"
)

var (
	serveAddr string
	serveWarm bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dashboard pages as JSON over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		l := newLoader()
		if serveWarm {
			// A failed warm-up is retried by the first request.
			if _, err := l.Load(ctx); err != nil {
				logger.Warn("dataset warm-up failed", zap.Error(err))
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: dataset not loaded yet: %v\n", err)
			}
		}
		srv := server.New(l, dashboardOptions(), logger.Named("http"))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving %s on %s\n", l.Location(), addr)
		if err := srv.Run(ctx, addr); err != nil && err != context.Canceled {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().BoolVar(&serveWarm, "warm", true, "load the dataset before accepting requests")
}
