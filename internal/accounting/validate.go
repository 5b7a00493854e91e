package accounting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ValidateBalance checks that lines net to zero within every currency. The
// first offending currency in code order is reported.
func ValidateBalance(lines []JournalLine) error {
	nets := make(map[string]decimal.Decimal)
	for _, line := range lines {
		nets[line.Currency] = nets[line.Currency].Add(line.Amount)
	}
	currencies := make([]string, 0, len(nets))
	for code := range nets {
		currencies = append(currencies, code)
	}
	sort.Strings(currencies)
	for _, code := range currencies {
		if !nets[code].IsZero() {
			return &BalanceError{Currency: code, Net: nets[code]}
		}
	}
	return nil
}

// ValidateCurrency accepts upper-case ISO 4217 codes.
func ValidateCurrency(field, code string) error {
	if code == "" {
		return &ValidationError{Field: field, Reason: "currency is required"}
	}
	if len(code) != 3 || strings.ToUpper(code) != code {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("currency %q must be a 3-letter upper-case code", code)}
	}
	if _, err := currency.ParseISO(code); err != nil {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("unknown currency %q", code)}
	}
	return nil
}

// ValidateManual checks the shape of a hand-authored journal and its balance.
func ValidateManual(in ManualJournalInput) error {
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	if strings.TrimSpace(in.Reference) == "" {
		return &ValidationError{Field: "reference", Reason: "reference is required"}
	}
	if len(in.Lines) < 2 {
		return &ValidationError{Field: "lines", Reason: "journal requires at least two lines"}
	}
	lines := make([]JournalLine, 0, len(in.Lines))
	for idx, line := range in.Lines {
		field := fmt.Sprintf("lines[%d]", idx)
		if line.AccountID <= 0 {
			return &ValidationError{Field: field + ".accountId", Reason: "account is required"}
		}
		if line.Amount.IsZero() {
			return &ValidationError{Field: field + ".amount", Reason: "amount must be non-zero"}
		}
		if err := ValidateCurrency(field+".currency", line.Currency); err != nil {
			return err
		}
		lines = append(lines, JournalLine{AccountID: line.AccountID, Amount: line.Amount, Currency: line.Currency})
	}
	return ValidateBalance(lines)
}
