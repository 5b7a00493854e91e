package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// errIntegrity marks an integrity run that found problems.
var errIntegrity = errors.New("ledger integrity check failed")

func newTrialBalanceCommand(open OpenFunc) *cobra.Command {
	var currency, date string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance of one currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := httpx.ParseDate("date", date)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(l *app.Ledger) error {
				tb, err := l.Reports.TrialBalance(cmd.Context(), reports.TrialBalanceQuery{Currency: currency, AsOf: asOf})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), tb)
				}
				return renderTrialBalance(cmd.OutOrStdout(), tb)
			})
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code (required)")
	cmd.Flags().StringVar(&date, "date", "", "as-of date, "+httpx.DateLayout)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("currency")
	return cmd
}

func newGeneralLedgerCommand(open OpenFunc) *cobra.Command {
	var account, currency, from, to string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "general-ledger",
		Short: "Print the movements of one account with running balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := httpx.ParseDate("from", from)
			if err != nil {
				return err
			}
			toDate, err := httpx.ParseDate("to", to)
			if err != nil {
				return err
			}
			return withLedger(cmd, open, func(l *app.Ledger) error {
				accountID, err := resolveAccount(cmd, l, account)
				if err != nil {
					return err
				}
				gl, err := l.Reports.GeneralLedger(cmd.Context(), reports.LedgerQuery{
					AccountID: accountID,
					Currency:  currency,
					From:      fromDate,
					To:        toDate,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), gl)
				}
				return renderGeneralLedger(cmd.OutOrStdout(), gl)
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account code or numeric id (required)")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code (required)")
	cmd.Flags().StringVar(&from, "from", "", "first date, "+httpx.DateLayout)
	cmd.Flags().StringVar(&to, "to", "", "last date, "+httpx.DateLayout)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("currency")
	return cmd
}

func newIntegrityCommand(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Rebuild every trial balance and list journals that do not balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, open, func(l *app.Ledger) error {
				report, err := l.Reports.IntegrityCheck(cmd.Context())
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.OK() {
					return errIntegrity
				}
				return nil
			})
		},
	}
}

// resolveAccount accepts an account code first, then a numeric id.
func resolveAccount(cmd *cobra.Command, l *app.Ledger, raw string) (int64, error) {
	accounts, err := l.Accounting.ListAccounts(cmd.Context())
	if err != nil {
		return 0, err
	}
	for _, acc := range accounts {
		if acc.Code == raw {
			return acc.ID, nil
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &accounting.NotFoundError{Entity: "account", ID: raw}
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTrialBalance(w io.Writer, tb reports.TrialBalance) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	asOf := "latest"
	if tb.AsOf != nil {
		asOf = tb.AsOf.Format(httpx.DateLayout)
	}
	fmt.Fprintf(tw, "Trial balance %s as of %s\t\t\t\t\n", tb.Currency, asOf)
	fmt.Fprintln(tw, "Code\tName\tDebit\tCredit\t")
	for _, group := range tb.Groups() {
		for _, row := range group.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.Code, row.Name, amount(row.Debit()), amount(row.Credit()))
		}
		subtotal := reports.TrialBalanceRow{Balance: group.Balance}
		fmt.Fprintf(tw, "\tSubtotal %s\t%s\t%s\t\n", group.Key, amount(subtotal.Debit()), amount(subtotal.Credit()))
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t\n", tb.TotalDebits.StringFixed(2), tb.TotalCredits.Neg().StringFixed(2))
	status := "balanced"
	if !tb.IsBalanced {
		status = "OUT OF BALANCE"
	}
	fmt.Fprintf(tw, "\t%s\t\t\t\n", status)
	return tw.Flush()
}

func renderGeneralLedger(w io.Writer, gl reports.GeneralLedger) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "General ledger %s %s (%s)\n", gl.Account.Code, gl.Account.Name, gl.Currency)
	fmt.Fprintln(tw, "Date\tReference\tDescription\tDebit\tCredit\tBalance")
	fmt.Fprintf(tw, "\t\tOpening balance\t\t\t%s\n", gl.OpeningBalance.StringFixed(2))
	for _, line := range gl.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			line.Date.Format(httpx.DateLayout), line.Reference, line.Description,
			amount(line.Debit), amount(line.Credit), line.Balance.StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\tClosing balance\t\t\t%s\n", gl.ClosingBalance.StringFixed(2))
	return tw.Flush()
}

func amount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}
