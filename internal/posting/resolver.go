package posting

import (
	"context"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
)

// LineMapping is the resolved account of one document line.
type LineMapping struct {
	AccountID   int64
	ProductName string
}

// InvoiceMappings holds every account an invoice posts to.
type InvoiceMappings struct {
	ControlAccountID int64
	Lines            []LineMapping
}

// PaymentMappings holds the two accounts a payment posts to.
type PaymentMappings struct {
	BankAccountID    int64
	ControlAccountID int64
}

// StockLineMapping holds the expense and inventory accounts of a line.
type StockLineMapping struct {
	ExpenseAccountID   int64
	InventoryAccountID int64
}

// StockMappings holds per-line accounts of a stock-out.
type StockMappings struct {
	Lines []StockLineMapping
}

type resolverTx interface {
	masterdata.Lookup
	GetAccount(ctx context.Context, id int64) (accounting.Account, error)
}

// Resolver turns documents into account mappings. It only reads; any missing
// role stops the posting before a write happens.
type Resolver struct {
	tx resolverTx
}

// NewResolver binds a resolver to a transaction.
func NewResolver(tx resolverTx) *Resolver {
	return &Resolver{tx: tx}
}

func (r *Resolver) require(ctx context.Context, id *int64, miss *accounting.MappingError) (int64, error) {
	if id == nil || *id == 0 {
		return 0, miss
	}
	if _, err := r.tx.GetAccount(ctx, *id); err != nil {
		return 0, err
	}
	return *id, nil
}

// Invoice resolves the contact control account and one account per line.
func (r *Resolver) Invoice(ctx context.Context, inv Invoice) (InvoiceMappings, error) {
	contact, err := r.tx.GetContact(ctx, inv.ContactID)
	if err != nil {
		return InvoiceMappings{}, err
	}
	miss := func(role accounting.MappingRole, line int, entity string, id int64) *accounting.MappingError {
		return &accounting.MappingError{Role: role, Document: accounting.SourceInvoice, Reference: inv.Reference, Line: line, Entity: entity, EntityID: id}
	}
	var out InvoiceMappings
	if inv.Type == InvoiceSales {
		out.ControlAccountID, err = r.require(ctx, contact.ReceivableAccountID, miss(accounting.RoleReceivable, -1, "contact", contact.ID))
	} else {
		out.ControlAccountID, err = r.require(ctx, contact.PayableAccountID, miss(accounting.RolePayable, -1, "contact", contact.ID))
	}
	if err != nil {
		return InvoiceMappings{}, err
	}
	out.Lines = make([]LineMapping, 0, len(inv.Lines))
	for i, line := range inv.Lines {
		product, err := r.tx.GetProduct(ctx, line.ProductID)
		if err != nil {
			return InvoiceMappings{}, err
		}
		var accountID int64
		switch {
		case inv.Type == InvoiceSales:
			accountID, err = r.require(ctx, product.SalesAccountID, miss(accounting.RoleSales, i, "product", product.ID))
		case product.Type == masterdata.ProductGoods:
			accountID, err = r.require(ctx, product.InventoryAccountID, miss(accounting.RoleInventory, i, "product", product.ID))
		default:
			accountID, err = r.require(ctx, product.ExpenseAccountID, miss(accounting.RoleExpense, i, "product", product.ID))
		}
		if err != nil {
			return InvoiceMappings{}, err
		}
		out.Lines = append(out.Lines, LineMapping{AccountID: accountID, ProductName: product.Name})
	}
	return out, nil
}

// Payment resolves the bank account and the contact control account.
func (r *Resolver) Payment(ctx context.Context, pay Payment) (PaymentMappings, error) {
	if _, err := r.tx.GetAccount(ctx, pay.BankAccountID); err != nil {
		return PaymentMappings{}, err
	}
	contact, err := r.tx.GetContact(ctx, pay.ContactID)
	if err != nil {
		return PaymentMappings{}, err
	}
	role, id := accounting.RoleReceivable, contact.ReceivableAccountID
	if pay.Type == PaymentOutbound {
		role, id = accounting.RolePayable, contact.PayableAccountID
	}
	control, err := r.require(ctx, id, &accounting.MappingError{
		Role: role, Document: accounting.SourcePayment, Reference: pay.Reference, Line: -1, Entity: "contact", EntityID: contact.ID,
	})
	if err != nil {
		return PaymentMappings{}, err
	}
	return PaymentMappings{BankAccountID: pay.BankAccountID, ControlAccountID: control}, nil
}

// StockOut resolves expense and inventory accounts for every line.
func (r *Resolver) StockOut(ctx context.Context, m StockMovement) (StockMappings, error) {
	out := StockMappings{Lines: make([]StockLineMapping, 0, len(m.Lines))}
	for i, line := range m.Lines {
		product, err := r.tx.GetProduct(ctx, line.ProductID)
		if err != nil {
			return StockMappings{}, err
		}
		miss := func(role accounting.MappingRole) *accounting.MappingError {
			return &accounting.MappingError{Role: role, Document: accounting.SourceStock, Reference: m.Reference, Line: i, Entity: "product", EntityID: product.ID}
		}
		expense, err := r.require(ctx, product.ExpenseAccountID, miss(accounting.RoleExpense))
		if err != nil {
			return StockMappings{}, err
		}
		inventory, err := r.require(ctx, product.InventoryAccountID, miss(accounting.RoleInventory))
		if err != nil {
			return StockMappings{}, err
		}
		out.Lines = append(out.Lines, StockLineMapping{ExpenseAccountID: expense, InventoryAccountID: inventory})
	}
	return out, nil
}
