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

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP, with the worker loop embedded unless disabled.
func main() {
	var envFile string
	cmd := &cobra.Command{
		Use:           "arbiter-api",
		Short:         "Serve the polls, jobs, settlements and reputation API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.BuildAPI(ctx, envFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					slog.Error("api shutdown close failed", "error", err)
				}
			}()
			return app.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file applied before reading the environment")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("arbiter api stopped with error", "error", err)
		os.Exit(1)
	}
}
