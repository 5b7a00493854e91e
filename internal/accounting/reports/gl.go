package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// LedgerEntry is a line of a POSTED journal read from the store.
type LedgerEntry struct {
	JournalID   int64
	LineID      int64
	Date        time.Time
	Reference   string
	Description string
	Amount      decimal.Decimal
}

// GeneralLedgerLine is one row of an account ledger with its running balance.
type GeneralLedgerLine struct {
	JournalID   int64           `json:"journalId"`
	LineID      int64           `json:"lineId"`
	Date        time.Time       `json:"date"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// GeneralLedger lists the movements of one account in one currency.
type GeneralLedger struct {
	Account        accounting.Account  `json:"account"`
	Currency       string              `json:"currency"`
	From           *time.Time          `json:"fromDate,omitempty"`
	To             *time.Time          `json:"toDate,omitempty"`
	OpeningBalance decimal.Decimal     `json:"openingBalance"`
	Lines          []GeneralLedgerLine `json:"lines"`
	ClosingBalance decimal.Decimal     `json:"closingBalance"`
}

// BuildGeneralLedger orders entries by date, journal and line id and
// accumulates the running balance from opening.
func BuildGeneralLedger(account accounting.Account, currency string, from, to *time.Time, opening decimal.Decimal, entries []LedgerEntry) GeneralLedger {
	sorted := make([]LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.JournalID != b.JournalID {
			return a.JournalID < b.JournalID
		}
		return a.LineID < b.LineID
	})
	gl := GeneralLedger{
		Account:        account,
		Currency:       currency,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		Lines:          make([]GeneralLedgerLine, 0, len(sorted)),
	}
	running := opening
	for _, e := range sorted {
		running = running.Add(e.Amount)
		line := GeneralLedgerLine{
			JournalID:   e.JournalID,
			LineID:      e.LineID,
			Date:        e.Date,
			Reference:   e.Reference,
			Description: e.Description,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
			Balance:     running,
		}
		if e.Amount.IsPositive() {
			line.Debit = e.Amount
		} else {
			line.Credit = e.Amount.Neg()
		}
		gl.Lines = append(gl.Lines, line)
	}
	gl.ClosingBalance = running
	return gl
}
