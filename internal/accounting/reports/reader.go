package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// Reader opens consistent read snapshots of the ledger.
type Reader interface {
	Snapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error
}

// Snapshot answers report queries against one committed view of the ledger.
// Only POSTED journals contribute lines; a voided journal drops out and its
// reversal remains.
type Snapshot interface {
	GetAccount(ctx context.Context, id int64) (accounting.Account, error)
	AccountBalances(ctx context.Context, currency string, asOf *time.Time) ([]AccountBalance, error)
	OpeningBalance(ctx context.Context, accountID int64, currency string, before time.Time) (decimal.Decimal, error)
	LedgerEntries(ctx context.Context, accountID int64, currency string, from, to *time.Time) ([]LedgerEntry, error)
	Currencies(ctx context.Context) ([]string, error)
	UnbalancedJournals(ctx context.Context) ([]JournalImbalance, error)
}

// JournalImbalance names a POSTED journal whose lines do not net to zero in
// Currency.
type JournalImbalance struct {
	JournalID int64           `json:"journalId"`
	Reference string          `json:"reference"`
	Currency  string          `json:"currency"`
	Net       decimal.Decimal `json:"net"`
}

// Counts reports whether a journal in status contributes to reports.
func Counts(status accounting.JournalStatus) bool {
	return status == accounting.JournalStatusPosted
}
