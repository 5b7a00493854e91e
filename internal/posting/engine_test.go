package posting

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(id int64) *int64 { return &id }

func TestBuildSalesInvoiceJournal(t *testing.T) {
	inv := Invoice{
		ID:        9,
		Type:      InvoiceSales,
		Reference: "INV-9",
		Date:      time.Date(2024, 4, 2, 15, 30, 0, 0, time.UTC),
		Currency:  "USD",
		Total:     dec("300"),
		Lines: []InvoiceLine{
			{ProductID: 1, Description: "April", Subtotal: dec("100")},
			{ProductID: 1, Subtotal: dec("200")},
		},
	}
	m := InvoiceMappings{ControlAccountID: 11, Lines: []LineMapping{
		{AccountID: 40, ProductName: "Audit"},
		{AccountID: 40, ProductName: "Audit"},
	}}

	got := BuildInvoiceJournal(inv, m)

	want := accounting.Journal{
		Date:      time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		Source:    accounting.InvoiceSource(9),
		Reference: "INV-9",
		Narration: "Invoice INV-9",
		Status:    accounting.JournalStatusPosted,
		Lines: []accounting.JournalLine{
			{AccountID: 11, Description: "Accounts Receivable", Amount: dec("300"), Currency: "USD"},
			{AccountID: 40, Description: "Audit - April", Amount: dec("-100"), Currency: "USD"},
			{AccountID: 40, Description: "Audit", Amount: dec("-200"), Currency: "USD"},
		},
	}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("journal mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, accounting.ValidateBalance(got.Lines))
}

func TestBuildPurchaseInvoiceJournal(t *testing.T) {
	inv := Invoice{ID: 3, Type: InvoicePurchase, Reference: "BILL-3", Currency: "EUR", Total: dec("80"),
		Lines: []InvoiceLine{{ProductID: 2, Subtotal: dec("80")}}}
	got := BuildInvoiceJournal(inv, InvoiceMappings{ControlAccountID: 21, Lines: []LineMapping{{AccountID: 12, ProductName: "Widget"}}})

	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Accounts Payable", got.Lines[0].Description)
	assert.True(t, got.Lines[0].Amount.Equal(dec("-80")))
	assert.True(t, got.Lines[1].Amount.Equal(dec("80")))
	require.NoError(t, accounting.ValidateBalance(got.Lines))
}

func TestBuildPaymentJournalDirections(t *testing.T) {
	m := PaymentMappings{BankAccountID: 10, ControlAccountID: 11}

	in := BuildPaymentJournal(Payment{ID: 1, Type: PaymentInbound, Reference: "RCPT-1", Amount: dec("50"), Currency: "USD"}, m)
	assert.Equal(t, "Payment RCPT-1", in.Narration)
	assert.Equal(t, int64(10), in.Lines[0].AccountID)
	assert.True(t, in.Lines[0].Amount.Equal(dec("50")))

	out := BuildPaymentJournal(Payment{ID: 2, Type: PaymentOutbound, Reference: "PAY-2", Amount: dec("50"), Currency: "USD"}, m)
	assert.Equal(t, int64(11), out.Lines[0].AccountID)
	assert.Equal(t, "Bank", out.Lines[1].Description)
	assert.True(t, out.Lines[1].Amount.Equal(dec("-50")))
}

func TestBuildStockJournalPairsPerLine(t *testing.T) {
	mv := StockMovement{ID: 4, Type: StockOut, Reference: "SO-4", Currency: "USD", Lines: []StockMovementLine{
		{ProductID: 1, TotalCost: dec("12.5")},
		{ProductID: 2, TotalCost: dec("7.5")},
	}}
	got := BuildStockJournal(mv, StockMappings{Lines: []StockLineMapping{
		{ExpenseAccountID: 50, InventoryAccountID: 12},
		{ExpenseAccountID: 51, InventoryAccountID: 13},
	}})
	require.Len(t, got.Lines, 4)
	assert.Equal(t, accounting.StockSource(4), got.Source)
	assert.Equal(t, "COGS", got.Lines[2].Description)
	assert.Equal(t, int64(13), got.Lines[3].AccountID)
	require.NoError(t, accounting.ValidateBalance(got.Lines))
}

type lookupStub struct {
	contacts map[int64]masterdata.Contact
	products map[int64]masterdata.Product
	accounts map[int64]bool
}

func (s lookupStub) GetContact(_ context.Context, id int64) (masterdata.Contact, error) {
	c, ok := s.contacts[id]
	if !ok {
		return masterdata.Contact{}, accounting.NotFound("contact", id)
	}
	return c, nil
}

func (s lookupStub) GetProduct(_ context.Context, id int64) (masterdata.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return masterdata.Product{}, accounting.NotFound("product", id)
	}
	return p, nil
}

func (s lookupStub) GetWarehouse(_ context.Context, id int64) (masterdata.Warehouse, error) {
	return masterdata.Warehouse{ID: id}, nil
}

func (s lookupStub) GetAccount(_ context.Context, id int64) (accounting.Account, error) {
	if !s.accounts[id] {
		return accounting.Account{}, accounting.NotFound("account", id)
	}
	return accounting.Account{ID: id}, nil
}

func newLookupStub() lookupStub {
	return lookupStub{
		contacts: map[int64]masterdata.Contact{
			1: {ID: 1, Name: "Acme", Type: masterdata.ContactCustomer, ReceivableAccountID: ptr(11)},
			2: {ID: 2, Name: "Globex", Type: masterdata.ContactVendor},
		},
		products: map[int64]masterdata.Product{
			7: {ID: 7, Name: "Widget", Type: masterdata.ProductGoods, SalesAccountID: ptr(40), InventoryAccountID: ptr(12)},
			8: {ID: 8, Name: "Audit", Type: masterdata.ProductService, SalesAccountID: ptr(40)},
		},
		accounts: map[int64]bool{10: true, 11: true, 12: true, 40: true},
	}
}

func TestResolverInvoiceMappings(t *testing.T) {
	r := NewResolver(newLookupStub())
	m, err := r.Invoice(context.Background(), Invoice{Type: InvoiceSales, ContactID: 1, Lines: []InvoiceLine{{ProductID: 7}, {ProductID: 8}}})
	require.NoError(t, err)
	assert.Equal(t, int64(11), m.ControlAccountID)
	assert.Equal(t, []LineMapping{{AccountID: 40, ProductName: "Widget"}, {AccountID: 40, ProductName: "Audit"}}, m.Lines)
}

func TestResolverNamesMissingRole(t *testing.T) {
	r := NewResolver(newLookupStub())
	ctx := context.Background()

	_, err := r.Invoice(ctx, Invoice{Type: InvoicePurchase, ContactID: 2, Reference: "BILL-1", Lines: []InvoiceLine{{ProductID: 7}}})
	var mapping *accounting.MappingError
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, accounting.RolePayable, mapping.Role)
	assert.Equal(t, -1, mapping.Line)

	stub := newLookupStub()
	stub.contacts[2] = masterdata.Contact{ID: 2, Type: masterdata.ContactVendor, PayableAccountID: ptr(11)}
	_, err = NewResolver(stub).Invoice(ctx, Invoice{Type: InvoicePurchase, ContactID: 2, Lines: []InvoiceLine{{ProductID: 7}, {ProductID: 8}}})
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, accounting.RoleExpense, mapping.Role)
	assert.Equal(t, 1, mapping.Line)
	assert.Equal(t, int64(8), mapping.EntityID)

	_, err = r.StockOut(ctx, StockMovement{Reference: "SO-1", Lines: []StockMovementLine{{ProductID: 8}}})
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, accounting.RoleExpense, mapping.Role)
	require.ErrorIs(t, err, accounting.ErrMappingNotFound)
}

func TestResolverUnknownEntities(t *testing.T) {
	r := NewResolver(newLookupStub())
	ctx := context.Background()

	_, err := r.Invoice(ctx, Invoice{Type: InvoiceSales, ContactID: 99})
	require.ErrorIs(t, err, accounting.ErrNotFound)

	_, err = r.Payment(ctx, Payment{Type: PaymentInbound, ContactID: 1, BankAccountID: 77})
	require.ErrorIs(t, err, accounting.ErrNotFound)

	m, err := r.Payment(ctx, Payment{Type: PaymentInbound, ContactID: 1, BankAccountID: 10})
	require.NoError(t, err)
	assert.Equal(t, PaymentMappings{BankAccountID: 10, ControlAccountID: 11}, m)
}
