// Package cmd provides the ledgerctl commands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

// OpenFunc opens the ledger for one command and returns its closer.
type OpenFunc func(ctx context.Context) (*app.Ledger, func() error, error)

// openFromEnv loads configuration from the environment and opens the ledger.
func openFromEnv(ctx context.Context) (*app.Ledger, func() error, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.Default()
	ledger, err := app.OpenLedger(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return ledger, ledger.Close, nil
}

// NewRootCommand builds the command tree. open is used by every command that
// needs the ledger.
func NewRootCommand(open OpenFunc) *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the Odyssey general ledger",
		Long: `ledgerctl reads ledger reports, seeds master data from a YAML catalog
and triggers background jobs.

Example:
  ledgerctl seed scripts/seed/catalog.yaml
  ledgerctl trial-balance --currency USD --date 2024-03-31
  ledgerctl general-ledger --account 1100 --currency USD`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newTrialBalanceCommand(open),
		newGeneralLedgerCommand(open),
		newIntegrityCommand(open),
		newSeedCommand(open),
		newSchemaCommand(),
		newJobsCommand(),
	)
	return root
}

// Execute runs ledgerctl against the configured store.
func Execute() error {
	return NewRootCommand(openFromEnv).Execute()
}

// withLedger opens the ledger, runs fn and closes it.
func withLedger(cmd *cobra.Command, open OpenFunc, fn func(*app.Ledger) error) (err error) {
	ledger, closeFn, err := open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ledger)
}
