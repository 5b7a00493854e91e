package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

const testCatalog = `accounts:
  - {code: "1010", name: Bank, type: ASSET}
  - {code: "3000", name: Owner Equity, type: EQUITY}
contacts: []
products: []
warehouses:
  - {name: Main}
`

func openTestLedger(t *testing.T) (*app.Ledger, OpenFunc) {
	t.Helper()
	cfg := &app.Config{LedgerStore: app.StoreBadger, BaseCurrency: "USD", ReportCacheTTL: time.Minute}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger, err := app.OpenLedger(context.Background(), cfg, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })
	open := func(context.Context) (*app.Ledger, func() error, error) {
		return ledger, func() error { return nil }, nil
	}
	return ledger, open
}

func run(t *testing.T, open OpenFunc, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	return path
}

func TestSeedThenReport(t *testing.T) {
	ledger, open := openTestLedger(t)

	out, err := run(t, open, "seed", writeCatalog(t))
	require.NoError(t, err)
	require.Contains(t, out, "seeded 2 accounts, 0 contacts, 0 products, 1 warehouses")

	accounts, err := ledger.Accounting.ListAccounts(context.Background())
	require.NoError(t, err)
	ids := map[string]int64{}
	for _, acc := range accounts {
		ids[acc.Code] = acc.ID
	}
	_, err = ledger.Accounting.CreateManualJournal(context.Background(), accounting.ManualJournalInput{
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Reference: "CAP-1",
		Narration: "Capital injection",
		Lines: []accounting.ManualLineInput{
			{AccountID: ids["1010"], Amount: decimal.NewFromInt(2500), Currency: "USD"},
			{AccountID: ids["3000"], Amount: decimal.NewFromInt(-2500), Currency: "USD"},
		},
	})
	require.NoError(t, err)

	out, err = run(t, open, "trial-balance", "--currency", "usd")
	require.NoError(t, err)
	require.Contains(t, out, "Trial balance USD as of latest")
	require.Contains(t, out, "2500.00")
	require.Contains(t, out, "Subtotal 10")
	require.Contains(t, out, "Subtotal 30")
	require.Less(t, strings.Index(out, "Subtotal 10"), strings.Index(out, "3000"))
	require.Contains(t, out, "balanced")
	require.NotContains(t, out, "OUT OF BALANCE")

	out, err = run(t, open, "general-ledger", "--account", "1010", "--currency", "USD")
	require.NoError(t, err)
	require.Contains(t, out, "General ledger 1010 Bank (USD)")
	require.Contains(t, out, "CAP-1")

	out, err = run(t, open, "integrity")
	require.NoError(t, err)
	require.Contains(t, out, `"currencies": [`)
}

func TestGeneralLedgerUnknownAccount(t *testing.T) {
	_, open := openTestLedger(t)
	_, err := run(t, open, "general-ledger", "--account", "9999x", "--currency", "USD")
	require.ErrorIs(t, err, accounting.ErrNotFound)
}

func TestSeedDryRunDoesNotOpenLedger(t *testing.T) {
	open := func(context.Context) (*app.Ledger, func() error, error) {
		t.Fatal("ledger must not be opened for a dry run")
		return nil, nil, nil
	}
	out, err := run(t, open, "seed", "--dry-run", writeCatalog(t))
	require.NoError(t, err)
	require.Equal(t, "catalog ok: 2 accounts, 0 contacts, 0 products, 1 warehouses\n", out)
}

func TestSeedRejectsInvalidCatalog(t *testing.T) {
	_, open := openTestLedger(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("accounts:\n  - {code: \"1\", name: X, type: WIDGET}\n"), 0o600))

	_, err := run(t, open, "seed", path)
	require.ErrorIs(t, err, accounting.ErrValidation)
}

func TestSchemaPrintsDDL(t *testing.T) {
	out, err := run(t, nil, "schema")
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "CREATE UNIQUE INDEX IF NOT EXISTS uq_journals_posted_origin"))
}

func TestTrialBalanceRequiresCurrency(t *testing.T) {
	_, err := run(t, nil, "trial-balance")
	require.Error(t, err)
}
