package posting

import (
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

func header(date time.Time, ref, narration string) accounting.Journal {
	return accounting.Journal{
		Date:      accounting.DateOf(date),
		Reference: ref,
		Narration: narration,
		Status:    accounting.JournalStatusPosted,
	}
}

func lineDescription(productName, desc string) string {
	if desc == "" {
		return productName
	}
	return productName + " - " + desc
}

// BuildInvoiceJournal turns an invoice and its mappings into a journal draft.
// Sales invoices debit the receivable and credit each line; purchase invoices
// debit each line and credit the payable. Lines are never merged.
func BuildInvoiceJournal(inv Invoice, m InvoiceMappings) accounting.Journal {
	j := header(inv.Date, inv.Reference, "Invoice "+inv.Reference)
	j.Source = accounting.InvoiceSource(inv.ID)
	j.Lines = make([]accounting.JournalLine, 0, len(inv.Lines)+1)
	sign := 1
	control := accounting.JournalLine{AccountID: m.ControlAccountID, Currency: inv.Currency}
	if inv.Type == InvoiceSales {
		control.Description = "Accounts Receivable"
		control.Amount = inv.Total
		sign = -1
	} else {
		control.Description = "Accounts Payable"
		control.Amount = inv.Total.Neg()
	}
	j.Lines = append(j.Lines, control)
	for i, line := range inv.Lines {
		amount := line.Subtotal
		if sign < 0 {
			amount = amount.Neg()
		}
		j.Lines = append(j.Lines, accounting.JournalLine{
			AccountID:   m.Lines[i].AccountID,
			Description: lineDescription(m.Lines[i].ProductName, line.Description),
			Amount:      amount,
			Currency:    inv.Currency,
		})
	}
	return j
}

// BuildPaymentJournal books cash against the contact control account.
func BuildPaymentJournal(pay Payment, m PaymentMappings) accounting.Journal {
	j := header(pay.Date, pay.Reference, "Payment "+pay.Reference)
	j.Source = accounting.PaymentSource(pay.ID)
	if pay.Type == PaymentOutbound {
		j.Lines = []accounting.JournalLine{
			{AccountID: m.ControlAccountID, Description: "Accounts Payable", Amount: pay.Amount, Currency: pay.Currency},
			{AccountID: m.BankAccountID, Description: "Bank", Amount: pay.Amount.Neg(), Currency: pay.Currency},
		}
		return j
	}
	j.Lines = []accounting.JournalLine{
		{AccountID: m.BankAccountID, Description: "Bank", Amount: pay.Amount, Currency: pay.Currency},
		{AccountID: m.ControlAccountID, Description: "Accounts Receivable", Amount: pay.Amount.Neg(), Currency: pay.Currency},
	}
	return j
}

// BuildStockJournal books cost of goods for a stock-out, one pair per line.
func BuildStockJournal(mv StockMovement, m StockMappings) accounting.Journal {
	j := header(mv.Date, mv.Reference, "Stock movement "+mv.Reference)
	j.Source = accounting.StockSource(mv.ID)
	j.Lines = make([]accounting.JournalLine, 0, 2*len(mv.Lines))
	for i, line := range mv.Lines {
		j.Lines = append(j.Lines,
			accounting.JournalLine{AccountID: m.Lines[i].ExpenseAccountID, Description: "COGS", Amount: line.TotalCost, Currency: mv.Currency},
			accounting.JournalLine{AccountID: m.Lines[i].InventoryAccountID, Description: "Inventory Asset", Amount: line.TotalCost.Neg(), Currency: mv.Currency},
		)
	}
	return j
}
