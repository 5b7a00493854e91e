package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

func newSeedCommand(open OpenFunc) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Upsert accounts, contacts, products and warehouses from a YAML catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := masterdata.LoadCatalogFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "catalog ok: %d accounts, %d contacts, %d products, %d warehouses\n",
					len(catalog.Accounts), len(catalog.Contacts), len(catalog.Products), len(catalog.Warehouses))
				return nil
			}
			return withLedger(cmd, open, func(l *app.Ledger) error {
				res, err := l.Seeder.Seed(cmd.Context(), catalog)
				if err != nil {
					return err
				}
				codes := make([]string, 0, len(res.Accounts))
				for code := range res.Accounts {
					codes = append(codes, code)
				}
				sort.Strings(codes)
				for _, code := range codes {
					fmt.Fprintf(out, "account %s -> %d\n", code, res.Accounts[code])
				}
				fmt.Fprintf(out, "seeded %d accounts, %d contacts, %d products, %d warehouses\n",
					len(res.Accounts), len(res.Contacts), len(res.Products), len(res.Warehouses))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the catalog without writing")
	return cmd
}

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the PostgreSQL schema of the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), db.Schema)
			return err
		},
	}
}
