package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Currency  string               `json:"currency"`
	AsOf      *time.Time           `json:"asOf,omitempty"`
	Revenue   ProfitAndLossSection `json:"revenue"`
	Expense   ProfitAndLossSection `json:"expense"`
	NetIncome decimal.Decimal      `json:"netIncome"`
}

// BuildProfitAndLoss splits trial balance rows into revenue and expense
// sections. Revenue is shown with a positive sign.
func BuildProfitAndLoss(tb TrialBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue", Total: decimal.Zero}
	expense := ProfitAndLossSection{Label: "Expense", Total: decimal.Zero}

	for _, row := range tb.Rows {
		switch row.Type {
		case accounting.AccountTypeRevenue:
			amount := row.Balance.Neg()
			revenue.Accounts = append(revenue.Accounts, ProfitAndLossAccount{Code: row.Code, Name: row.Name, Amount: amount})
			revenue.Total = revenue.Total.Add(amount)
		case accounting.AccountTypeExpense:
			expense.Accounts = append(expense.Accounts, ProfitAndLossAccount{Code: row.Code, Name: row.Name, Amount: row.Balance})
			expense.Total = expense.Total.Add(row.Balance)
		}
	}

	return ProfitAndLoss{
		Currency:  tb.Currency,
		AsOf:      tb.AsOf,
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
