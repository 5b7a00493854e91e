package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// AccountBalance is the net signed balance of one account in one currency.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      accounting.AccountType
	Balance   decimal.Decimal
}

// TrialBalanceRow is one non-zero account of a trial balance.
type TrialBalanceRow struct {
	AccountID int64                  `json:"accountId"`
	Code      string                 `json:"code"`
	Name      string                 `json:"name"`
	Type      accounting.AccountType `json:"type"`
	Balance   decimal.Decimal        `json:"balance"`
}

// Debit returns the balance when it sits on the debit side.
func (r TrialBalanceRow) Debit() decimal.Decimal {
	if r.Balance.IsPositive() {
		return r.Balance
	}
	return decimal.Zero
}

// Credit returns the magnitude of a credit balance.
func (r TrialBalanceRow) Credit() decimal.Decimal {
	if r.Balance.IsNegative() {
		return r.Balance.Neg()
	}
	return decimal.Zero
}

// GroupKey returns a key used for grouping trial balance rows.
func (r TrialBalanceRow) GroupKey() string {
	if idx := strings.Index(r.Code, "."); idx > 0 {
		return r.Code[:idx]
	}
	if len(r.Code) >= 2 {
		return r.Code[:2]
	}
	return r.Code
}

// TrialBalance is an as-of snapshot of account balances in one currency.
// TotalCredits carries the negative sign of the credit balances.
type TrialBalance struct {
	Currency     string            `json:"currency"`
	AsOf         *time.Time        `json:"asOf,omitempty"`
	Rows         []TrialBalanceRow `json:"rows"`
	TotalDebits  decimal.Decimal   `json:"totalDebits"`
	TotalCredits decimal.Decimal   `json:"totalCredits"`
	IsBalanced   bool              `json:"isBalanced"`
}

// TrialBalanceGroup aggregates rows sharing a code prefix for presentation.
type TrialBalanceGroup struct {
	Key     string
	Rows    []TrialBalanceRow
	Balance decimal.Decimal
}

// BuildTrialBalance drops zero balances, orders rows by account code and
// computes the debit and credit totals.
func BuildTrialBalance(currency string, asOf *time.Time, balances []AccountBalance) TrialBalance {
	tb := TrialBalance{
		Currency:     currency,
		AsOf:         asOf,
		Rows:         make([]TrialBalanceRow, 0, len(balances)),
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}
	for _, bal := range balances {
		if bal.Balance.IsZero() {
			continue
		}
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			AccountID: bal.AccountID,
			Code:      bal.Code,
			Name:      bal.Name,
			Type:      bal.Type,
			Balance:   bal.Balance,
		})
		if bal.Balance.IsPositive() {
			tb.TotalDebits = tb.TotalDebits.Add(bal.Balance)
		} else {
			tb.TotalCredits = tb.TotalCredits.Add(bal.Balance)
		}
	}
	sort.SliceStable(tb.Rows, func(i, j int) bool {
		return tb.Rows[i].Code < tb.Rows[j].Code
	})
	tb.IsBalanced = tb.TotalDebits.Add(tb.TotalCredits).IsZero()
	return tb
}

// Groups buckets the rows by GroupKey, keeping code order.
func (tb TrialBalance) Groups() []TrialBalanceGroup {
	var groups []TrialBalanceGroup
	index := make(map[string]int)
	for _, row := range tb.Rows {
		key := row.GroupKey()
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, TrialBalanceGroup{Key: key, Balance: decimal.Zero})
		}
		groups[pos].Rows = append(groups[pos].Rows, row)
		groups[pos].Balance = groups[pos].Balance.Add(row.Balance)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}
