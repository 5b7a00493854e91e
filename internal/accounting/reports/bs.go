package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    decimal.Decimal       `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
// CurrentEarnings is the unclosed profit carried into equity.
type BalanceSheet struct {
	Currency                  string              `json:"currency"`
	AsOf                      *time.Time          `json:"asOf,omitempty"`
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	CurrentEarnings           decimal.Decimal     `json:"currentEarnings"`
	TotalLiabilitiesAndEquity decimal.Decimal     `json:"totalLiabilitiesAndEquity"`
}

// BuildBalanceSheet aggregates trial balance rows into assets, liabilities
// and equity. Credit-natured sections are shown with a positive sign.
func BuildBalanceSheet(tb TrialBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}

	add := func(sec *BalanceSheetSection, row TrialBalanceRow, balance decimal.Decimal) {
		sec.Accounts = append(sec.Accounts, BalanceSheetAccount{Code: row.Code, Name: row.Name, Balance: balance})
		sec.Total = sec.Total.Add(balance)
	}
	for _, row := range tb.Rows {
		switch row.Type {
		case accounting.AccountTypeAsset:
			add(&assets, row, row.Balance)
		case accounting.AccountTypeLiability:
			add(&liabilities, row, row.Balance.Neg())
		case accounting.AccountTypeEquity:
			add(&equity, row, row.Balance.Neg())
		}
	}

	earnings := BuildProfitAndLoss(tb).NetIncome
	return BalanceSheet{
		Currency:                  tb.Currency,
		AsOf:                      tb.AsOf,
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		CurrentEarnings:           earnings,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total).Add(earnings),
	}
}
