package posting

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// InvoiceLineRequest is the wire form of an invoice line.
type InvoiceLineRequest struct {
	ProductID      int64           `json:"productId" validate:"required,gt=0"`
	Description    string          `json:"description" validate:"max=255"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
}

// InvoiceRequest is the body of POST /api/invoices.
type InvoiceRequest struct {
	Type         string               `json:"type" validate:"required,oneof=SALES PURCHASE sales purchase"`
	ContactID    int64                `json:"contactId" validate:"required,gt=0"`
	Reference    string               `json:"reference" validate:"required,max=64"`
	Date         string               `json:"date" validate:"required"`
	DueDate      string               `json:"dueDate"`
	Currency     string               `json:"currency" validate:"required,len=3"`
	ExchangeRate decimal.Decimal      `json:"exchangeRate"`
	Total        decimal.Decimal      `json:"total"`
	Lines        []InvoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ToInvoice converts the request into a domain invoice.
func (r InvoiceRequest) ToInvoice() (Invoice, error) {
	date, err := httpx.RequireDate("date", r.Date)
	if err != nil {
		return Invoice{}, err
	}
	due, err := httpx.ParseDate("dueDate", r.DueDate)
	if err != nil {
		return Invoice{}, err
	}
	inv := Invoice{
		Type:         InvoiceType(r.Type),
		ContactID:    r.ContactID,
		Reference:    r.Reference,
		Date:         date,
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate,
		Total:        r.Total,
		Lines:        make([]InvoiceLine, 0, len(r.Lines)),
	}
	if due != nil {
		inv.DueDate = *due
	}
	for _, l := range r.Lines {
		inv.Lines = append(inv.Lines, InvoiceLine{
			ProductID:      l.ProductID,
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountAmount: l.DiscountAmount,
			TaxAmount:      l.TaxAmount,
			Subtotal:       l.Subtotal,
			Total:          l.Total,
		})
	}
	return inv, nil
}

// PaymentRequest is the body of POST /api/payments.
type PaymentRequest struct {
	Type          string          `json:"type" validate:"omitempty,oneof=INBOUND OUTBOUND inbound outbound"`
	Date          string          `json:"date" validate:"required"`
	ContactID     int64           `json:"contactId" validate:"required,gt=0"`
	BankAccountID int64           `json:"bankAccountId" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"required,len=3"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"`
	Reference     string          `json:"reference" validate:"required,max=64"`
}

// ToPayment converts the request into a domain payment.
func (r PaymentRequest) ToPayment() (Payment, error) {
	date, err := httpx.RequireDate("date", r.Date)
	if err != nil {
		return Payment{}, err
	}
	return Payment{
		Type:          PaymentType(r.Type),
		Date:          date,
		ContactID:     r.ContactID,
		BankAccountID: r.BankAccountID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		ExchangeRate:  r.ExchangeRate,
		Reference:     r.Reference,
	}, nil
}

// StockLineRequest is the wire form of a movement line.
type StockLineRequest struct {
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// StockMovementRequest is the body of POST /api/stock-movements.
type StockMovementRequest struct {
	Type        string             `json:"type" validate:"required,oneof=IN OUT TRANSFER ADJUSTMENT in out transfer adjustment"`
	Date        string             `json:"date" validate:"required"`
	Reference   string             `json:"reference" validate:"required,max=64"`
	ContactID   *int64             `json:"contactId" validate:"omitempty,gt=0"`
	WarehouseID int64              `json:"warehouseId" validate:"required,gt=0"`
	Currency    string             `json:"currency" validate:"omitempty,len=3"`
	Lines       []StockLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ToStockMovement converts the request into a domain movement.
func (r StockMovementRequest) ToStockMovement() (StockMovement, error) {
	date, err := httpx.RequireDate("date", r.Date)
	if err != nil {
		return StockMovement{}, err
	}
	mv := StockMovement{
		Type:        StockMovementType(r.Type),
		Date:        date,
		Reference:   r.Reference,
		ContactID:   r.ContactID,
		WarehouseID: r.WarehouseID,
		Currency:    r.Currency,
		Lines:       make([]StockMovementLine, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		mv.Lines = append(mv.Lines, StockMovementLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitCost:  l.UnitCost,
			TotalCost: l.TotalCost,
		})
	}
	return mv, nil
}
