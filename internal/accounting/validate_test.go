package accounting

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestValidateBalancePerCurrency(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1, Amount: d("100.00"), Currency: "USD"},
		{AccountID: 2, Amount: d("-100.00"), Currency: "USD"},
		{AccountID: 1, Amount: d("90"), Currency: "EUR"},
		{AccountID: 2, Amount: d("-90"), Currency: "EUR"},
	}
	require.NoError(t, ValidateBalance(lines))
}

func TestValidateBalanceDoesNotNetAcrossCurrencies(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1, Amount: d("100"), Currency: "USD"},
		{AccountID: 2, Amount: d("-100"), Currency: "EUR"},
	}
	err := ValidateBalance(lines)
	require.ErrorIs(t, err, ErrUnbalanced)

	var balErr *BalanceError
	require.True(t, errors.As(err, &balErr))
	assert.Equal(t, "EUR", balErr.Currency)
	assert.True(t, balErr.Net.Equal(d("-100")))
}

func TestValidateBalanceExactDecimals(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1, Amount: d("0.1"), Currency: "USD"},
		{AccountID: 1, Amount: d("0.2"), Currency: "USD"},
		{AccountID: 2, Amount: d("-0.3"), Currency: "USD"},
	}
	require.NoError(t, ValidateBalance(lines))
}

func TestValidateCurrency(t *testing.T) {
	cases := map[string]bool{
		"USD": true,
		"EUR": true,
		"usd": false,
		"US":  false,
		"":    false,
		"XYZ": false,
	}
	for code, ok := range cases {
		err := ValidateCurrency("currency", code)
		if ok {
			assert.NoError(t, err, code)
		} else {
			assert.ErrorIs(t, err, ErrValidation, code)
		}
	}
}

func TestValidateManual(t *testing.T) {
	base := ManualJournalInput{
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Reference: "MJ-1",
		Lines: []ManualLineInput{
			{AccountID: 1, Amount: d("10"), Currency: "USD"},
			{AccountID: 2, Amount: d("-10"), Currency: "USD"},
		},
	}
	require.NoError(t, ValidateManual(base))

	cases := []struct {
		name   string
		mutate func(*ManualJournalInput)
		field  string
		target error
	}{
		{"missing date", func(in *ManualJournalInput) { in.Date = time.Time{} }, "date", ErrValidation},
		{"blank reference", func(in *ManualJournalInput) { in.Reference = "  " }, "reference", ErrValidation},
		{"single line", func(in *ManualJournalInput) { in.Lines = in.Lines[:1] }, "lines", ErrValidation},
		{"zero amount", func(in *ManualJournalInput) { in.Lines[1].Amount = decimal.Zero }, "lines[1].amount", ErrValidation},
		{"no account", func(in *ManualJournalInput) { in.Lines[0].AccountID = 0 }, "lines[0].accountId", ErrValidation},
		{"bad currency", func(in *ManualJournalInput) { in.Lines[0].Currency = "usd" }, "lines[0].currency", ErrValidation},
		{"unbalanced", func(in *ManualJournalInput) { in.Lines[1].Amount = d("-9.99") }, "", ErrUnbalanced},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			in.Lines = append([]ManualLineInput(nil), base.Lines...)
			tc.mutate(&in)
			err := ValidateManual(in)
			require.ErrorIs(t, err, tc.target)
			var vErr *ValidationError
			if tc.field != "" {
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, tc.field, vErr.Field)
			}
		})
	}
}

func TestSourceRefValidate(t *testing.T) {
	require.NoError(t, ManualSource().Validate())
	require.NoError(t, InvoiceSource(3).Validate())
	require.ErrorIs(t, SourceRef{Type: SourceManual, ID: 4}.Validate(), ErrValidation)
	require.ErrorIs(t, PaymentSource(0).Validate(), ErrValidation)
	require.ErrorIs(t, SourceRef{Type: "ORDER", ID: 1}.Validate(), ErrValidation)
	assert.Equal(t, "STOCK:9", StockSource(9).String())
	assert.Equal(t, "MANUAL", ManualSource().String())
}

func TestDateOfTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	got := DateOf(time.Date(2024, 3, 5, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got)
}
