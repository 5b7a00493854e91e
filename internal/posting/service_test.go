package posting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/kvstore"
	"github.com/odyssey-erp/odyssey-ledger/internal/posting"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

var catalog = masterdata.Catalog{
	Accounts: []masterdata.CatalogAccount{
		{Code: "1000", Name: "Bank", Type: "ASSET"},
		{Code: "1100", Name: "Accounts Receivable", Type: "ASSET"},
		{Code: "1200", Name: "Inventory", Type: "ASSET"},
		{Code: "2100", Name: "Accounts Payable", Type: "LIABILITY"},
		{Code: "4000", Name: "Sales", Type: "REVENUE"},
		{Code: "5000", Name: "Cost of Goods Sold", Type: "EXPENSE"},
		{Code: "6000", Name: "Services", Type: "EXPENSE"},
	},
	Contacts: []masterdata.CatalogContact{
		{Name: "Acme", Type: "CUSTOMER", Receivable: "1100"},
		{Name: "Globex", Type: "VENDOR", Payable: "2100"},
		{Name: "Initech", Type: "CUSTOMER"},
	},
	Products: []masterdata.CatalogProduct{
		{SKU: "WIDGET", Name: "Widget", Type: "GOODS", Sales: "4000", Expense: "5000", Inventory: "1200"},
		{SKU: "AUDIT", Name: "Audit", Type: "SERVICE", Sales: "4000", Expense: "6000"},
		{SKU: "LOOSE", Name: "Loose", Type: "GOODS", Sales: "4000"},
	},
	Warehouses: []masterdata.CatalogWarehouse{{Name: "Main"}},
}

type recordingAudit struct {
	actions []string
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.actions = append(r.actions, log.Action)
	return nil
}

type recordingObserver struct {
	posted []int64
	voided []int64
}

func (o *recordingObserver) JournalPosted(_ context.Context, j accounting.Journal) {
	o.posted = append(o.posted, j.ID)
}

func (o *recordingObserver) JournalVoided(_ context.Context, original, _ accounting.Journal) {
	o.voided = append(o.voided, original.ID)
}

type fixture struct {
	store    *kvstore.Store
	seeded   masterdata.SeedResult
	svc      *posting.Service
	reports  *reports.Service
	audit    *recordingAudit
	observer *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := kvstore.Open(kvstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	seeded, err := masterdata.NewSeeder(store.MasterData()).Seed(context.Background(), catalog)
	require.NoError(t, err)

	f := &fixture{store: store, seeded: seeded, audit: &recordingAudit{}, observer: &recordingObserver{}}
	f.svc = posting.NewService(store.Posting(), f.audit, nil, posting.Config{BaseCurrency: "USD"})
	f.svc.WithNow(func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) })
	f.svc.WithObserver(f.observer)
	f.reports = reports.NewService(store, nil, nil)
	return f
}

func (f *fixture) account(code string) int64 { return f.seeded.Accounts[code] }

func (f *fixture) trialBalance(t *testing.T) reports.TrialBalance {
	t.Helper()
	tb, err := f.reports.TrialBalance(context.Background(), reports.TrialBalanceQuery{Currency: "USD"})
	require.NoError(t, err)
	return tb
}

func (f *fixture) journalCount(t *testing.T) int {
	t.Helper()
	var n int
	err := f.store.Snapshot(context.Background(), func(ctx context.Context, snap reports.Snapshot) error {
		for _, code := range []string{"1000", "1100", "1200", "2100", "4000", "5000", "6000"} {
			entries, err := snap.LedgerEntries(ctx, f.account(code), "USD", nil, nil)
			if err != nil {
				return err
			}
			n += len(entries)
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

type postedLine struct {
	AccountID int64
	Amount    decimal.Decimal
}

func linesOf(j accounting.Journal) []postedLine {
	out := make([]postedLine, 0, len(j.Lines))
	for _, l := range j.Lines {
		out = append(out, postedLine{AccountID: l.AccountID, Amount: l.Amount})
	}
	return out
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (f *fixture) salesInvoice() posting.Invoice {
	return posting.Invoice{
		Type:      posting.InvoiceSales,
		ContactID: f.seeded.Contacts["Acme"],
		Reference: "INV-S-1",
		Date:      time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		Currency:  "USD",
		Total:     d(1000),
		Lines:     []posting.InvoiceLine{{ProductID: f.seeded.Products["WIDGET"], Quantity: d(1), UnitPrice: d(1000), Subtotal: d(1000)}},
	}
}

func (f *fixture) purchaseInvoice() posting.Invoice {
	return posting.Invoice{
		Type:      posting.InvoicePurchase,
		ContactID: f.seeded.Contacts["Globex"],
		Reference: "INV-P-1",
		Date:      time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		Currency:  "USD",
		Total:     d(500),
		Lines:     []posting.InvoiceLine{{ProductID: f.seeded.Products["WIDGET"], Quantity: d(5), UnitPrice: d(100), Subtotal: d(500)}},
	}
}

func TestSalesInvoicePostsReceivableAndSales(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CreateInvoice(context.Background(), f.salesInvoice())
	require.NoError(t, err)

	assert.Equal(t, posting.InvoiceStatusAuthorised, res.Invoice.Status)
	assert.Equal(t, accounting.InvoiceSource(res.Invoice.ID), res.Journal.Source)
	assert.Equal(t, accounting.JournalStatusPosted, res.Journal.Status)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), res.Journal.Date)
	want := []postedLine{{f.account("1100"), d(1000)}, {f.account("4000"), d(-1000)}}
	if diff := cmp.Diff(want, linesOf(res.Journal), decimalEqual); diff != "" {
		t.Fatalf("journal lines mismatch (-want +got):\n%s", diff)
	}

	tb := f.trialBalance(t)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "1100", tb.Rows[0].Code)
	assert.True(t, tb.Rows[0].Balance.Equal(d(1000)))
	assert.Equal(t, "4000", tb.Rows[1].Code)
	assert.True(t, tb.Rows[1].Balance.Equal(d(-1000)))
	assert.True(t, tb.IsBalanced)

	assert.Equal(t, []int64{res.Journal.ID}, f.observer.posted)
	assert.Equal(t, []string{"invoice.post"}, f.audit.actions)
}

func TestPurchaseInvoiceDebitsInventory(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CreateInvoice(context.Background(), f.purchaseInvoice())
	require.NoError(t, err)
	want := []postedLine{{f.account("2100"), d(-500)}, {f.account("1200"), d(500)}}
	if diff := cmp.Diff(want, linesOf(res.Journal), decimalEqual); diff != "" {
		t.Fatalf("journal lines mismatch (-want +got):\n%s", diff)
	}
}

func TestPurchaseOfServiceDebitsExpense(t *testing.T) {
	f := newFixture(t)
	inv := f.purchaseInvoice()
	inv.Lines[0].ProductID = f.seeded.Products["AUDIT"]
	res, err := f.svc.CreateInvoice(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, f.account("6000"), res.Journal.Lines[1].AccountID)
	assert.Equal(t, "Audit", res.Journal.Lines[1].Description)
}

func TestSalesAndPurchaseTrialBalanceTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateInvoice(ctx, f.salesInvoice())
	require.NoError(t, err)
	_, err = f.svc.CreateInvoice(ctx, f.purchaseInvoice())
	require.NoError(t, err)

	tb := f.trialBalance(t)
	assert.True(t, tb.TotalDebits.Equal(d(1500)), tb.TotalDebits.String())
	assert.True(t, tb.TotalCredits.Equal(d(-1500)), tb.TotalCredits.String())
	assert.True(t, tb.IsBalanced)
}

func TestMissingReceivableLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	inv := f.salesInvoice()
	inv.ContactID = f.seeded.Contacts["Initech"]

	_, err := f.svc.CreateInvoice(context.Background(), inv)
	var mapping *accounting.MappingError
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, accounting.RoleReceivable, mapping.Role)
	assert.True(t, errors.Is(err, accounting.ErrMappingNotFound))

	assert.Zero(t, f.journalCount(t))
	_, err = f.svc.GetInvoice(context.Background(), 1)
	assert.ErrorIs(t, err, accounting.ErrNotFound)
	assert.Empty(t, f.observer.posted)
}

func TestInvoiceValidationCollectsProblems(t *testing.T) {
	f := newFixture(t)
	inv := f.salesInvoice()
	inv.Currency = "usd"
	inv.Total = d(999)
	_, err := f.svc.CreateInvoice(context.Background(), inv)
	var verr *accounting.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "currency")
	assert.Contains(t, verr.Reason, "total")
}

func TestPaymentPostsBankAgainstReceivable(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CreatePayment(context.Background(), posting.Payment{
		Date:          time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		ContactID:     f.seeded.Contacts["Acme"],
		BankAccountID: f.account("1000"),
		Amount:        d(250),
		Currency:      "USD",
		Reference:     "RCPT-1",
	})
	require.NoError(t, err)
	assert.Equal(t, posting.PaymentInbound, res.Payment.Type)
	want := []postedLine{{f.account("1000"), d(250)}, {f.account("1100"), d(-250)}}
	if diff := cmp.Diff(want, linesOf(res.Journal), decimalEqual); diff != "" {
		t.Fatalf("journal lines mismatch (-want +got):\n%s", diff)
	}
}

func TestOutboundPaymentNeedsPayable(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreatePayment(context.Background(), posting.Payment{
		Type:          posting.PaymentOutbound,
		Date:          time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		ContactID:     f.seeded.Contacts["Acme"],
		BankAccountID: f.account("1000"),
		Amount:        d(250),
		Currency:      "USD",
		Reference:     "PAY-1",
	})
	var mapping *accounting.MappingError
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, accounting.RolePayable, mapping.Role)
}

func stockOut(f *fixture, product string) posting.StockMovement {
	return posting.StockMovement{
		Type:        posting.StockOut,
		Date:        time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Reference:   "DO-1",
		WarehouseID: f.seeded.Warehouses["Main"],
		Lines:       []posting.StockMovementLine{{ProductID: f.seeded.Products[product], Quantity: d(2), UnitCost: d(30)}},
	}
}

func TestStockOutPostsCostOfGoods(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.CreateStockMovement(context.Background(), stockOut(f, "WIDGET"))
	require.NoError(t, err)
	require.NotNil(t, res.Journal)
	assert.Equal(t, "USD", res.Movement.Currency)
	want := []postedLine{{f.account("5000"), d(60)}, {f.account("1200"), d(-60)}}
	if diff := cmp.Diff(want, linesOf(*res.Journal), decimalEqual); diff != "" {
		t.Fatalf("journal lines mismatch (-want +got):\n%s", diff)
	}
}

func TestStockOutWithoutMappingFails(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateStockMovement(context.Background(), stockOut(f, "LOOSE"))
	var mapping *accounting.MappingError
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, accounting.RoleExpense, mapping.Role)
	assert.Zero(t, f.journalCount(t))
}

func TestStockInPostsNothing(t *testing.T) {
	f := newFixture(t)
	mv := stockOut(f, "WIDGET")
	mv.Type = posting.StockIn
	res, err := f.svc.CreateStockMovement(context.Background(), mv)
	require.NoError(t, err)
	assert.Nil(t, res.Journal)

	rev, err := f.svc.VoidStockMovement(context.Background(), res.Movement.ID, accounting.VoidOptions{})
	require.NoError(t, err)
	assert.Nil(t, rev)
	stored, err := f.svc.GetStockMovement(context.Background(), res.Movement.ID)
	require.NoError(t, err)
	assert.Equal(t, posting.StockStatusVoided, stored.Status)
}

func TestVoidInvoicePostsReversal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateInvoice(ctx, f.salesInvoice())
	require.NoError(t, err)

	voidOn := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	rev, err := f.svc.VoidInvoice(ctx, res.Invoice.ID, accounting.VoidOptions{Date: &voidOn})
	require.NoError(t, err)
	assert.Equal(t, "INV-S-1 - Void", rev.Reference)
	assert.Equal(t, "Reversal of Invoice INV-S-1", rev.Narration)
	require.NotNil(t, rev.ReversalOf)
	assert.Equal(t, res.Journal.ID, *rev.ReversalOf)
	assert.Equal(t, voidOn, rev.Date)
	for i, l := range rev.Lines {
		assert.True(t, l.Amount.Equal(res.Journal.Lines[i].Amount.Neg()))
		assert.Equal(t, "Reversal - "+res.Journal.Lines[i].Description, l.Description)
	}

	inv, err := f.svc.GetInvoice(ctx, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, posting.InvoiceStatusVoided, inv.Status)

	// The voided original drops out; only the POSTED reversal remains.
	tb := f.trialBalance(t)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "1100", tb.Rows[0].Code)
	assert.True(t, tb.Rows[0].Balance.Equal(d(-1000)))
	assert.Equal(t, "4000", tb.Rows[1].Code)
	assert.True(t, tb.Rows[1].Balance.Equal(d(1000)))
	assert.True(t, tb.IsBalanced)

	asOf := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	before, err := f.reports.TrialBalance(ctx, reports.TrialBalanceQuery{Currency: "USD", AsOf: &asOf})
	require.NoError(t, err)
	assert.Empty(t, before.Rows)
}

func TestSecondVoidLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.CreateInvoice(ctx, f.salesInvoice())
	require.NoError(t, err)
	_, err = f.svc.VoidInvoice(ctx, res.Invoice.ID, accounting.VoidOptions{})
	require.NoError(t, err)

	linesBefore := f.journalCount(t)
	tbBefore := f.trialBalance(t)
	invBefore, err := f.svc.GetInvoice(ctx, res.Invoice.ID)
	require.NoError(t, err)

	_, err = f.svc.VoidInvoice(ctx, res.Invoice.ID, accounting.VoidOptions{})
	require.ErrorIs(t, err, accounting.ErrConflict)

	assert.Equal(t, linesBefore, f.journalCount(t))
	if diff := cmp.Diff(tbBefore, f.trialBalance(t), decimalEqual); diff != "" {
		t.Fatalf("trial balance changed after failed void (-before +after):\n%s", diff)
	}
	invAfter, err := f.svc.GetInvoice(ctx, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, posting.InvoiceStatusVoided, invAfter.Status)
	assert.Equal(t, invBefore.Status, invAfter.Status)
	assert.Equal(t, []int64{res.Journal.ID}, f.observer.voided)
}

func TestVoidUnknownDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.VoidPayment(context.Background(), 42, accounting.VoidOptions{})
	assert.ErrorIs(t, err, accounting.ErrNotFound)
}
