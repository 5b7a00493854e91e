package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the type is one of the known categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft  JournalStatus = "DRAFT"
	JournalStatusPosted JournalStatus = "POSTED"
	JournalStatusVoided JournalStatus = "VOIDED"
)

// SourceType identifies the kind of business event behind a journal.
type SourceType string

const (
	SourceInvoice SourceType = "INVOICE"
	SourcePayment SourceType = "PAYMENT"
	SourceStock   SourceType = "STOCK"
	SourceManual  SourceType = "MANUAL"
)

// SourceRef points at the document a journal was posted from. Manual journals
// carry no document id.
type SourceRef struct {
	Type SourceType `json:"type"`
	ID   int64      `json:"id,omitempty"`
}

func InvoiceSource(id int64) SourceRef { return SourceRef{Type: SourceInvoice, ID: id} }
func PaymentSource(id int64) SourceRef { return SourceRef{Type: SourcePayment, ID: id} }
func StockSource(id int64) SourceRef   { return SourceRef{Type: SourceStock, ID: id} }
func ManualSource() SourceRef          { return SourceRef{Type: SourceManual} }

// IsManual reports whether the ref is a manual entry.
func (r SourceRef) IsManual() bool {
	return r.Type == SourceManual
}

// Validate checks the tag and id agree.
func (r SourceRef) Validate() error {
	switch r.Type {
	case SourceManual:
		if r.ID != 0 {
			return &ValidationError{Field: "source.id", Reason: "manual journals carry no source id"}
		}
	case SourceInvoice, SourcePayment, SourceStock:
		if r.ID <= 0 {
			return &ValidationError{Field: "source.id", Reason: "source id required"}
		}
	default:
		return &ValidationError{Field: "source.type", Reason: fmt.Sprintf("unknown source type %q", r.Type)}
	}
	return nil
}

func (r SourceRef) String() string {
	if r.IsManual() {
		return string(SourceManual)
	}
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// ParseSourceType normalises a textual source type.
func ParseSourceType(raw string) (SourceType, error) {
	st := SourceType(strings.ToUpper(strings.TrimSpace(raw)))
	switch st {
	case SourceInvoice, SourcePayment, SourceStock, SourceManual:
		return st, nil
	}
	return "", &ValidationError{Field: "sourceType", Reason: fmt.Sprintf("unknown source type %q", raw)}
}

// Account models a chart of accounts node.
type Account struct {
	ID        int64       `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	ParentID  *int64      `json:"parentId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Journal is a header grouping balanced lines.
type Journal struct {
	ID         int64         `json:"id"`
	Date       time.Time     `json:"date"`
	Source     SourceRef     `json:"source"`
	Reference  string        `json:"reference"`
	Narration  string        `json:"narration"`
	Status     JournalStatus `json:"status"`
	ReversalOf *int64        `json:"reversalOf,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	Lines      []JournalLine `json:"lines"`
}

// IsReversal reports whether the journal negates another one.
func (j Journal) IsReversal() bool {
	return j.ReversalOf != nil
}

// JournalLine stores a signed amount: positive debits, negative credits.
type JournalLine struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journalId"`
	AccountID   int64           `json:"accountId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// Debit returns the positive side of the amount.
func (l JournalLine) Debit() decimal.Decimal {
	if l.Amount.IsPositive() {
		return l.Amount
	}
	return decimal.Zero
}

// Credit returns the magnitude of a negative amount.
func (l JournalLine) Credit() decimal.Decimal {
	if l.Amount.IsNegative() {
		return l.Amount.Neg()
	}
	return decimal.Zero
}

// ManualLineInput describes a line of a hand-authored journal.
type ManualLineInput struct {
	AccountID   int64
	Description string
	Amount      decimal.Decimal
	Currency    string
}

// ManualJournalInput groups fields required to author a manual journal.
type ManualJournalInput struct {
	Date      time.Time
	Reference string
	Narration string
	Draft     bool
	Lines     []ManualLineInput
}

// VoidOptions carries the effective date of a reversal.
type VoidOptions struct {
	Date *time.Time
}

// DateOf truncates t to a calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
