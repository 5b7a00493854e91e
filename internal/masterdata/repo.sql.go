package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists master data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new master data repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("masterdata repository not initialised")
	}
	return accounting.TranslatePgError(db.WithTx(ctx, r.pool, db.ReadWrite, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{pgLookup: pgLookup{tx: tx}})
	}))
}

// NewLookup reads master data through an open transaction.
func NewLookup(tx pgx.Tx) Lookup {
	return pgLookup{tx: tx}
}

type pgLookup struct {
	tx pgx.Tx
}

type txRepository struct {
	pgLookup
}

func (r pgLookup) GetContact(ctx context.Context, id int64) (Contact, error) {
	var c Contact
	err := r.tx.QueryRow(ctx, `SELECT id, name, type, tax_id, currency, receivable_account_id, payable_account_id, created_at, updated_at
FROM contacts WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.TaxID, &c.Currency, &c.ReceivableAccountID, &c.PayableAccountID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, accounting.NotFound("contact", id)
	}
	return c, err
}

func (r pgLookup) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.tx.QueryRow(ctx, `SELECT id, sku, name, type, sales_account_id, expense_account_id, inventory_account_id, created_at, updated_at
FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Type, &p.SalesAccountID, &p.ExpenseAccountID, &p.InventoryAccountID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, accounting.NotFound("product", id)
	}
	return p, err
}

func (r pgLookup) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	var w Warehouse
	err := r.tx.QueryRow(ctx, `SELECT id, name, location, created_at, updated_at FROM warehouses WHERE id = $1`, id).
		Scan(&w.ID, &w.Name, &w.Location, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, accounting.NotFound("warehouse", id)
	}
	return w, err
}

func (r *txRepository) UpsertAccount(ctx context.Context, a accounting.Account) (accounting.Account, error) {
	query := `INSERT INTO accounts (code, name, type, parent_id) VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type, parent_id = EXCLUDED.parent_id, updated_at = NOW()
RETURNING id, created_at, updated_at`
	err := r.tx.QueryRow(ctx, query, a.Code, a.Name, a.Type, a.ParentID).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *txRepository) UpsertContact(ctx context.Context, c Contact) (Contact, error) {
	query := `INSERT INTO contacts (name, type, tax_id, currency, receivable_account_id, payable_account_id) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET type = EXCLUDED.type, tax_id = EXCLUDED.tax_id, currency = EXCLUDED.currency,
  receivable_account_id = EXCLUDED.receivable_account_id, payable_account_id = EXCLUDED.payable_account_id, updated_at = NOW()
RETURNING id, created_at, updated_at`
	err := r.tx.QueryRow(ctx, query, c.Name, c.Type, c.TaxID, c.Currency, c.ReceivableAccountID, c.PayableAccountID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *txRepository) UpsertProduct(ctx context.Context, p Product) (Product, error) {
	query := `INSERT INTO products (sku, name, type, sales_account_id, expense_account_id, inventory_account_id) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type, sales_account_id = EXCLUDED.sales_account_id,
  expense_account_id = EXCLUDED.expense_account_id, inventory_account_id = EXCLUDED.inventory_account_id, updated_at = NOW()
RETURNING id, created_at, updated_at`
	err := r.tx.QueryRow(ctx, query, p.SKU, p.Name, p.Type, p.SalesAccountID, p.ExpenseAccountID, p.InventoryAccountID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *txRepository) UpsertWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	query := `INSERT INTO warehouses (name, location) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET location = EXCLUDED.location, updated_at = NOW()
RETURNING id, created_at, updated_at`
	err := r.tx.QueryRow(ctx, query, w.Name, w.Location).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
