package posting

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// InvoiceType enumerates invoice directions.
type InvoiceType string

const (
	InvoiceSales    InvoiceType = "SALES"
	InvoicePurchase InvoiceType = "PURCHASE"
)

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	InvoiceStatusDraft      InvoiceStatus = "DRAFT"
	InvoiceStatusAuthorised InvoiceStatus = "AUTHORISED"
	InvoiceStatusPaid       InvoiceStatus = "PAID"
	InvoiceStatusVoided     InvoiceStatus = "VOIDED"
)

// PaymentType enumerates cash directions.
type PaymentType string

const (
	PaymentInbound  PaymentType = "INBOUND"
	PaymentOutbound PaymentType = "OUTBOUND"
)

// PaymentStatus enumerates payment lifecycle values.
type PaymentStatus string

const (
	PaymentStatusPosted PaymentStatus = "POSTED"
	PaymentStatusVoided PaymentStatus = "VOIDED"
)

// StockMovementType enumerates stock movement kinds. Only OUT posts a journal.
type StockMovementType string

const (
	StockIn         StockMovementType = "IN"
	StockOut        StockMovementType = "OUT"
	StockTransfer   StockMovementType = "TRANSFER"
	StockAdjustment StockMovementType = "ADJUSTMENT"
)

// StockMovementStatus enumerates movement lifecycle values.
type StockMovementStatus string

const (
	StockStatusDraft     StockMovementStatus = "DRAFT"
	StockStatusCompleted StockMovementStatus = "COMPLETED"
	StockStatusVoided    StockMovementStatus = "VOIDED"
)

// Invoice is a sales or purchase document.
type Invoice struct {
	ID           int64           `json:"id"`
	Type         InvoiceType     `json:"type"`
	ContactID    int64           `json:"contactId"`
	Reference    string          `json:"reference"`
	Date         time.Time       `json:"date"`
	DueDate      time.Time       `json:"dueDate"`
	Currency     string          `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	Status       InvoiceStatus   `json:"status"`
	Total        decimal.Decimal `json:"total"`
	BalanceDue   decimal.Decimal `json:"balanceDue"`
	Lines        []InvoiceLine   `json:"lines"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// InvoiceLine is one product line of an invoice.
type InvoiceLine struct {
	ID             int64           `json:"id"`
	InvoiceID      int64           `json:"invoiceId"`
	ProductID      int64           `json:"productId"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
}

// Payment is a cash receipt or disbursement against a bank account.
type Payment struct {
	ID            int64           `json:"id"`
	Type          PaymentType     `json:"type"`
	Date          time.Time       `json:"date"`
	ContactID     int64           `json:"contactId"`
	BankAccountID int64           `json:"bankAccountId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"`
	Reference     string          `json:"reference"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// StockMovement records goods moving in or out of a warehouse.
type StockMovement struct {
	ID          int64               `json:"id"`
	Type        StockMovementType   `json:"type"`
	Date        time.Time           `json:"date"`
	Reference   string              `json:"reference"`
	ContactID   *int64              `json:"contactId,omitempty"`
	WarehouseID int64               `json:"warehouseId"`
	Currency    string              `json:"currency"`
	Status      StockMovementStatus `json:"status"`
	Lines       []StockMovementLine `json:"lines"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// StockMovementLine carries the cost of one product movement.
type StockMovementLine struct {
	ID         int64           `json:"id"`
	MovementID int64           `json:"movementId"`
	ProductID  int64           `json:"productId"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unitCost"`
	TotalCost  decimal.Decimal `json:"totalCost"`
}

// InvoiceResult pairs a stored invoice with its journal.
type InvoiceResult struct {
	Invoice Invoice            `json:"invoice"`
	Journal accounting.Journal `json:"journal"`
}

// PaymentResult pairs a stored payment with its journal.
type PaymentResult struct {
	Payment Payment            `json:"payment"`
	Journal accounting.Journal `json:"journal"`
}

// StockMovementResult pairs a stored movement with its journal, if any.
type StockMovementResult struct {
	Movement StockMovement       `json:"movement"`
	Journal  *accounting.Journal `json:"journal,omitempty"`
}

type problems struct {
	err *multierror.Error
}

func (p *problems) add(field, format string, args ...any) {
	p.err = multierror.Append(p.err, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
}

func (p *problems) currency(field, code string) {
	if err := accounting.ValidateCurrency(field, code); err != nil {
		p.err = multierror.Append(p.err, err)
	}
}

func (p *problems) result(entity string) error {
	if p.err == nil {
		return nil
	}
	p.err.ErrorFormat = func(errs []error) string {
		parts := make([]string, 0, len(errs))
		for _, e := range errs {
			parts = append(parts, e.Error())
		}
		return strings.Join(parts, "; ")
	}
	return &accounting.ValidationError{Field: entity, Reason: p.err.Error()}
}

func defaultRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return rate
}

// Normalise derives omitted amounts: line subtotal and total, invoice total,
// balance due and dates.
func (inv *Invoice) Normalise() {
	inv.Type = InvoiceType(strings.ToUpper(string(inv.Type)))
	inv.Date = accounting.DateOf(inv.Date)
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.Date
	} else {
		inv.DueDate = accounting.DateOf(inv.DueDate)
	}
	inv.ExchangeRate = defaultRate(inv.ExchangeRate)
	sum := decimal.Zero
	for i := range inv.Lines {
		line := &inv.Lines[i]
		if line.Subtotal.IsZero() {
			line.Subtotal = line.Quantity.Mul(line.UnitPrice).Sub(line.DiscountAmount)
		}
		if line.Total.IsZero() {
			line.Total = line.Subtotal.Add(line.TaxAmount)
		}
		sum = sum.Add(line.Subtotal)
	}
	if inv.Total.IsZero() {
		inv.Total = sum
	}
	inv.BalanceDue = inv.Total
}

// Validate reports every field problem of the invoice.
func (inv Invoice) Validate() error {
	var p problems
	if inv.Type != InvoiceSales && inv.Type != InvoicePurchase {
		p.add("type", "unknown invoice type %q", inv.Type)
	}
	if inv.ContactID <= 0 {
		p.add("contactId", "contact is required")
	}
	if strings.TrimSpace(inv.Reference) == "" {
		p.add("reference", "reference is required")
	}
	if inv.Date.IsZero() {
		p.add("date", "date is required")
	}
	if inv.DueDate.Before(inv.Date) {
		p.add("dueDate", "due date precedes invoice date")
	}
	if !inv.ExchangeRate.IsPositive() {
		p.add("exchangeRate", "exchange rate must be positive")
	}
	p.currency("currency", inv.Currency)
	if len(inv.Lines) == 0 {
		p.add("lines", "at least one line is required")
	}
	sum := decimal.Zero
	for i, line := range inv.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if line.ProductID <= 0 {
			p.add(field+".productId", "product is required")
		}
		if line.Subtotal.IsNegative() {
			p.add(field+".subtotal", "subtotal must not be negative")
		}
		if line.Quantity.IsNegative() {
			p.add(field+".quantity", "quantity must not be negative")
		}
		sum = sum.Add(line.Subtotal)
	}
	if !inv.Total.IsPositive() {
		p.add("total", "total must be positive")
	} else if len(inv.Lines) > 0 && !inv.Total.Equal(sum) {
		p.add("total", "total %s does not equal line subtotals %s", inv.Total, sum)
	}
	return p.result("invoice")
}

// Normalise applies defaults to the payment.
func (pay *Payment) Normalise() {
	pay.Type = PaymentType(strings.ToUpper(string(pay.Type)))
	if pay.Type == "" {
		pay.Type = PaymentInbound
	}
	pay.Date = accounting.DateOf(pay.Date)
	pay.ExchangeRate = defaultRate(pay.ExchangeRate)
}

// Validate reports every field problem of the payment.
func (pay Payment) Validate() error {
	var p problems
	if pay.Type != PaymentInbound && pay.Type != PaymentOutbound {
		p.add("type", "unknown payment type %q", pay.Type)
	}
	if pay.ContactID <= 0 {
		p.add("contactId", "contact is required")
	}
	if pay.BankAccountID <= 0 {
		p.add("bankAccountId", "bank account is required")
	}
	if !pay.Amount.IsPositive() {
		p.add("amount", "amount must be positive")
	}
	if strings.TrimSpace(pay.Reference) == "" {
		p.add("reference", "reference is required")
	}
	if pay.Date.IsZero() {
		p.add("date", "date is required")
	}
	if !pay.ExchangeRate.IsPositive() {
		p.add("exchangeRate", "exchange rate must be positive")
	}
	p.currency("currency", pay.Currency)
	return p.result("payment")
}

// Normalise derives line costs and falls back to baseCurrency.
func (m *StockMovement) Normalise(baseCurrency string) {
	m.Type = StockMovementType(strings.ToUpper(string(m.Type)))
	m.Date = accounting.DateOf(m.Date)
	if m.Currency == "" {
		m.Currency = baseCurrency
	}
	for i := range m.Lines {
		line := &m.Lines[i]
		if line.TotalCost.IsZero() {
			line.TotalCost = line.Quantity.Mul(line.UnitCost)
		}
	}
}

// Validate reports every field problem of the movement.
func (m StockMovement) Validate() error {
	var p problems
	switch m.Type {
	case StockIn, StockOut, StockTransfer, StockAdjustment:
	default:
		p.add("type", "unknown movement type %q", m.Type)
	}
	if strings.TrimSpace(m.Reference) == "" {
		p.add("reference", "reference is required")
	}
	if m.Date.IsZero() {
		p.add("date", "date is required")
	}
	if m.WarehouseID <= 0 {
		p.add("warehouseId", "warehouse is required")
	}
	p.currency("currency", m.Currency)
	if len(m.Lines) == 0 {
		p.add("lines", "at least one line is required")
	}
	for i, line := range m.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if line.ProductID <= 0 {
			p.add(field+".productId", "product is required")
		}
		if m.Type != StockAdjustment && !line.Quantity.IsPositive() {
			p.add(field+".quantity", "quantity must be positive")
		}
		if line.UnitCost.IsNegative() || line.TotalCost.IsNegative() {
			p.add(field+".unitCost", "cost must not be negative")
		}
	}
	return p.result("stockMovement")
}
