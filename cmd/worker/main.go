package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"arbiter/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring.
// 3) Start consumers and relay the outbox until signalled.
func main() {
	var envFile string
	cmd := &cobra.Command{
		Use:           "arbiter-worker",
		Short:         "Run the ledger gateway, reply consumers and outbox relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.BuildWorker(ctx, envFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					slog.Error("worker shutdown close failed", "error", err)
				}
			}()
			return app.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file applied before reading the environment")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("arbiter worker stopped with error", "error", err)
		os.Exit(1)
	}
}
