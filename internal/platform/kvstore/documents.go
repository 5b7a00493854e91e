package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
	"github.com/odyssey-erp/odyssey-ledger/internal/posting"
)

func (r reader) load(prefix, entity string, id int64, dst any) error {
	if err := r.getJSON(idKey(prefix, id), dst); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return accounting.NotFound(entity, id)
		}
		return err
	}
	return nil
}

func (r reader) GetContact(_ context.Context, id int64) (masterdata.Contact, error) {
	var c masterdata.Contact
	if err := r.load("contact", "contact", id, &c); err != nil {
		return c, err
	}
	return c, nil
}

func (r reader) GetProduct(_ context.Context, id int64) (masterdata.Product, error) {
	var p masterdata.Product
	if err := r.load("product", "product", id, &p); err != nil {
		return p, err
	}
	return p, nil
}

func (r reader) GetWarehouse(_ context.Context, id int64) (masterdata.Warehouse, error) {
	var w masterdata.Warehouse
	if err := r.load("warehouse", "warehouse", id, &w); err != nil {
		return w, err
	}
	return w, nil
}

func (t *kvTx) GetInvoice(_ context.Context, id int64) (posting.Invoice, error) {
	var inv posting.Invoice
	if err := t.load("invoice", "invoice", id, &inv); err != nil {
		return inv, err
	}
	return inv, nil
}

func (t *kvTx) GetPayment(_ context.Context, id int64) (posting.Payment, error) {
	var pay posting.Payment
	if err := t.load("payment", "payment", id, &pay); err != nil {
		return pay, err
	}
	return pay, nil
}

func (t *kvTx) GetStockMovement(_ context.Context, id int64) (posting.StockMovement, error) {
	var mv posting.StockMovement
	if err := t.load("stock", "stock movement", id, &mv); err != nil {
		return mv, err
	}
	return mv, nil
}

func (t *kvTx) InsertInvoice(_ context.Context, inv posting.Invoice) (posting.Invoice, error) {
	id, err := t.store.nextID("invoice")
	if err != nil {
		return posting.Invoice{}, err
	}
	inv.ID = id
	inv.CreatedAt = t.store.now().UTC()
	for i := range inv.Lines {
		if inv.Lines[i].ID, err = t.store.nextID("invoice_line"); err != nil {
			return posting.Invoice{}, err
		}
		inv.Lines[i].InvoiceID = id
	}
	return inv, t.setJSON(idKey("invoice", id), inv)
}

func (t *kvTx) InsertPayment(_ context.Context, pay posting.Payment) (posting.Payment, error) {
	id, err := t.store.nextID("payment")
	if err != nil {
		return posting.Payment{}, err
	}
	pay.ID = id
	pay.CreatedAt = t.store.now().UTC()
	return pay, t.setJSON(idKey("payment", id), pay)
}

func (t *kvTx) InsertStockMovement(_ context.Context, mv posting.StockMovement) (posting.StockMovement, error) {
	id, err := t.store.nextID("stock")
	if err != nil {
		return posting.StockMovement{}, err
	}
	mv.ID = id
	mv.CreatedAt = t.store.now().UTC()
	for i := range mv.Lines {
		if mv.Lines[i].ID, err = t.store.nextID("stock_line"); err != nil {
			return posting.StockMovement{}, err
		}
		mv.Lines[i].MovementID = id
	}
	return mv, t.setJSON(idKey("stock", id), mv)
}

func (t *kvTx) MarkVoided(ctx context.Context, ref accounting.SourceRef) error {
	already := &accounting.ConflictError{Entity: string(ref.Type), ID: ref.ID, Reason: "document already voided"}
	switch ref.Type {
	case accounting.SourceInvoice:
		inv, err := t.GetInvoice(ctx, ref.ID)
		if err != nil {
			return err
		}
		if inv.Status == posting.InvoiceStatusVoided {
			return already
		}
		inv.Status = posting.InvoiceStatusVoided
		return t.setJSON(idKey("invoice", ref.ID), inv)
	case accounting.SourcePayment:
		pay, err := t.GetPayment(ctx, ref.ID)
		if err != nil {
			return err
		}
		if pay.Status == posting.PaymentStatusVoided {
			return already
		}
		pay.Status = posting.PaymentStatusVoided
		return t.setJSON(idKey("payment", ref.ID), pay)
	case accounting.SourceStock:
		mv, err := t.GetStockMovement(ctx, ref.ID)
		if err != nil {
			return err
		}
		if mv.Status == posting.StockStatusVoided {
			return already
		}
		mv.Status = posting.StockStatusVoided
		return t.setJSON(idKey("stock", ref.ID), mv)
	}
	return &accounting.ValidationError{Field: "source.type", Reason: fmt.Sprintf("%s has no document", ref.Type)}
}

// upsertByName resolves the id stored under the natural key index, allocating
// a new one when the key is unseen.
func (t *kvTx) upsertByName(index, seq, natural string) (int64, bool, error) {
	key := []byte(index + "/" + natural)
	item, err := t.txn.Get(key)
	switch {
	case err == nil:
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return 0, false, err
		}
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("kvstore: bad %s index %s: %w", index, natural, err)
		}
		return id, true, nil
	case !errors.Is(err, badger.ErrKeyNotFound):
		return 0, false, err
	}
	id, err := t.store.nextID(seq)
	if err != nil {
		return 0, false, err
	}
	return id, false, t.txn.Set(key, []byte(strconv.FormatInt(id, 10)))
}

func (t *kvTx) UpsertContact(ctx context.Context, c masterdata.Contact) (masterdata.Contact, error) {
	id, found, err := t.upsertByName("contactname", "contact", c.Name)
	if err != nil {
		return masterdata.Contact{}, err
	}
	now := t.store.now().UTC()
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	if found {
		prev, err := t.GetContact(ctx, id)
		if err != nil {
			return masterdata.Contact{}, err
		}
		c.CreatedAt = prev.CreatedAt
	}
	return c, t.setJSON(idKey("contact", id), c)
}

func (t *kvTx) UpsertProduct(ctx context.Context, p masterdata.Product) (masterdata.Product, error) {
	id, found, err := t.upsertByName("productsku", "product", p.SKU)
	if err != nil {
		return masterdata.Product{}, err
	}
	now := t.store.now().UTC()
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	if found {
		prev, err := t.GetProduct(ctx, id)
		if err != nil {
			return masterdata.Product{}, err
		}
		p.CreatedAt = prev.CreatedAt
	}
	return p, t.setJSON(idKey("product", id), p)
}

func (t *kvTx) UpsertWarehouse(ctx context.Context, w masterdata.Warehouse) (masterdata.Warehouse, error) {
	id, found, err := t.upsertByName("warehousename", "warehouse", w.Name)
	if err != nil {
		return masterdata.Warehouse{}, err
	}
	now := t.store.now().UTC()
	w.ID, w.CreatedAt, w.UpdatedAt = id, now, now
	if found {
		prev, err := t.GetWarehouse(ctx, id)
		if err != nil {
			return masterdata.Warehouse{}, err
		}
		w.CreatedAt = prev.CreatedAt
	}
	return w, t.setJSON(idKey("warehouse", id), w)
}
