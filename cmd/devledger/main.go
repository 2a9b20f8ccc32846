package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"arbiter/internal/platform/devledger"

	"github.com/spf13/cobra"
)

// Local ledger entrypoint. Serves the HTTP API consumed when LEDGER_URL is
// set and manages snapshots of its account state.
func main() {
	var dataDir string
	root := &cobra.Command{
		Use:           "devledger",
		Short:         "Local value-transfer ledger for development",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data", "devledger-data", "pebble data directory")
	root.AddCommand(serveCommand(&dataDir), snapshotCommand(&dataDir), restoreCommand(&dataDir))

	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error("devledger stopped with error", "error", err)
		os.Exit(1)
	}
}

func serveCommand(dataDir *string) *cobra.Command {
	var (
		addr  string
		seeds []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ledger, err := devledger.Open(*dataDir, slog.Default())
			if err != nil {
				return err
			}
			defer func() {
				if err := ledger.Close(); err != nil {
					slog.Error("devledger close failed", "error", err)
				}
			}()
			for _, seed := range seeds {
				account, balance, err := parseSeed(seed)
				if err != nil {
					return err
				}
				if err := ledger.Seed(account, balance); err != nil {
					return err
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           ledger.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			slog.Info("devledger serving",
				"event", "devledger_started",
				"module", "cmd/devledger",
				"layer", "platform",
				"addr", addr,
				"data", *dataDir,
				"seeded_accounts", len(seeds),
			)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "account=balance to set before serving (repeatable)")
	return cmd
}

func snapshotCommand(dataDir *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a compressed snapshot of registrations and balances",
		RunE: func(_ *cobra.Command, _ []string) error {
			ledger, err := devledger.Open(*dataDir, slog.Default())
			if err != nil {
				return err
			}
			defer ledger.Close()

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create snapshot file: %w", err)
			}
			snapshot, err := ledger.WriteSnapshot(file)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			slog.Info("snapshot written",
				"event", "devledger_snapshot_written",
				"module", "cmd/devledger",
				"layer", "platform",
				"path", out,
				"sequence", snapshot.Sequence,
				"accounts", len(snapshot.Accounts),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "devledger.snapshot", "snapshot file")
	return cmd
}

func restoreCommand(dataDir *string) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Load registrations and balances from a snapshot",
		RunE: func(_ *cobra.Command, _ []string) error {
			ledger, err := devledger.Open(*dataDir, slog.Default())
			if err != nil {
				return err
			}
			defer ledger.Close()

			file, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("open snapshot file: %w", err)
			}
			defer file.Close()

			snapshot, err := ledger.RestoreSnapshot(file)
			if err != nil {
				return err
			}
			slog.Info("snapshot restored",
				"event", "devledger_snapshot_restored",
				"module", "cmd/devledger",
				"layer", "platform",
				"path", in,
				"sequence", snapshot.Sequence,
				"accounts", len(snapshot.Accounts),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "devledger.snapshot", "snapshot file")
	return cmd
}

func parseSeed(raw string) (string, int64, error) {
	account, amount, ok := strings.Cut(raw, "=")
	account = strings.TrimSpace(account)
	if !ok || account == "" {
		return "", 0, fmt.Errorf("seed %q must look like account=balance", raw)
	}
	balance, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
	if err != nil || balance < 0 {
		return "", 0, fmt.Errorf("seed %q has an invalid balance", raw)
	}
	return account, balance, nil
}
