package posting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists source documents next to their journals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	accounting.TxRepository
	masterdata.Lookup
	tx pgx.Tx
}

// WithTx executes fn within repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("posting repository not initialised")
	}
	return accounting.TranslatePgError(db.WithTx(ctx, r.pool, db.ReadWrite, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			TxRepository: accounting.NewTxRepository(tx),
			Lookup:       masterdata.NewLookup(tx),
			tx:           tx,
		})
	}))
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (type, contact_id, reference, date, due_date, currency, exchange_rate, status, total, balance_due)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at`,
		inv.Type, inv.ContactID, inv.Reference, inv.Date, inv.DueDate, inv.Currency, inv.ExchangeRate, inv.Status, inv.Total, inv.BalanceDue).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, err
	}
	for i := range inv.Lines {
		line := &inv.Lines[i]
		line.InvoiceID = inv.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO invoice_lines (invoice_id, product_id, description, quantity, unit_price, discount_amount, tax_amount, subtotal, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
			inv.ID, line.ProductID, line.Description, line.Quantity, line.UnitPrice, line.DiscountAmount, line.TaxAmount, line.Subtotal, line.Total).
			Scan(&line.ID)
		if err != nil {
			return Invoice{}, fmt.Errorf("posting: insert invoice line %d: %w", i, err)
		}
	}
	return inv, nil
}

func (r *txRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.tx.QueryRow(ctx, `SELECT id, type, contact_id, reference, date, due_date, currency, exchange_rate, status, total, balance_due, created_at
FROM invoices WHERE id=$1`, id).
		Scan(&inv.ID, &inv.Type, &inv.ContactID, &inv.Reference, &inv.Date, &inv.DueDate, &inv.Currency, &inv.ExchangeRate, &inv.Status, &inv.Total, &inv.BalanceDue, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, accounting.NotFound("invoice", id)
		}
		return Invoice{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, invoice_id, product_id, description, quantity, unit_price, discount_amount, tax_amount, subtotal, total
FROM invoice_lines WHERE invoice_id=$1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Description, &l.Quantity, &l.UnitPrice, &l.DiscountAmount, &l.TaxAmount, &l.Subtotal, &l.Total); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}

func (r *txRepository) InsertPayment(ctx context.Context, pay Payment) (Payment, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (type, date, contact_id, bank_account_id, amount, currency, exchange_rate, reference, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		pay.Type, pay.Date, pay.ContactID, pay.BankAccountID, pay.Amount, pay.Currency, pay.ExchangeRate, pay.Reference, pay.Status).
		Scan(&pay.ID, &pay.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	return pay, nil
}

func (r *txRepository) GetPayment(ctx context.Context, id int64) (Payment, error) {
	var pay Payment
	err := r.tx.QueryRow(ctx, `SELECT id, type, date, contact_id, bank_account_id, amount, currency, exchange_rate, reference, status, created_at
FROM payments WHERE id=$1`, id).
		Scan(&pay.ID, &pay.Type, &pay.Date, &pay.ContactID, &pay.BankAccountID, &pay.Amount, &pay.Currency, &pay.ExchangeRate, &pay.Reference, &pay.Status, &pay.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, accounting.NotFound("payment", id)
		}
		return Payment{}, err
	}
	return pay, nil
}

func (r *txRepository) InsertStockMovement(ctx context.Context, mv StockMovement) (StockMovement, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (type, date, reference, contact_id, warehouse_id, currency, status)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		mv.Type, mv.Date, mv.Reference, mv.ContactID, mv.WarehouseID, mv.Currency, mv.Status).
		Scan(&mv.ID, &mv.CreatedAt)
	if err != nil {
		return StockMovement{}, err
	}
	for i := range mv.Lines {
		line := &mv.Lines[i]
		line.MovementID = mv.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO stock_movement_lines (movement_id, product_id, quantity, unit_cost, total_cost)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, mv.ID, line.ProductID, line.Quantity, line.UnitCost, line.TotalCost).Scan(&line.ID)
		if err != nil {
			return StockMovement{}, fmt.Errorf("posting: insert movement line %d: %w", i, err)
		}
	}
	return mv, nil
}

func (r *txRepository) GetStockMovement(ctx context.Context, id int64) (StockMovement, error) {
	var mv StockMovement
	err := r.tx.QueryRow(ctx, `SELECT id, type, date, reference, contact_id, warehouse_id, currency, status, created_at
FROM stock_movements WHERE id=$1`, id).
		Scan(&mv.ID, &mv.Type, &mv.Date, &mv.Reference, &mv.ContactID, &mv.WarehouseID, &mv.Currency, &mv.Status, &mv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockMovement{}, accounting.NotFound("stock movement", id)
		}
		return StockMovement{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, movement_id, product_id, quantity, unit_cost, total_cost
FROM stock_movement_lines WHERE movement_id=$1 ORDER BY id`, id)
	if err != nil {
		return StockMovement{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l StockMovementLine
		if err := rows.Scan(&l.ID, &l.MovementID, &l.ProductID, &l.Quantity, &l.UnitCost, &l.TotalCost); err != nil {
			return StockMovement{}, err
		}
		mv.Lines = append(mv.Lines, l)
	}
	return mv, rows.Err()
}

func (r *txRepository) MarkVoided(ctx context.Context, ref accounting.SourceRef) error {
	var table string
	switch ref.Type {
	case accounting.SourceInvoice:
		table = "invoices"
	case accounting.SourcePayment:
		table = "payments"
	case accounting.SourceStock:
		table = "stock_movements"
	default:
		return &accounting.ValidationError{Field: "source", Reason: fmt.Sprintf("%s has no document", ref.Type)}
	}
	cmd, err := r.tx.Exec(ctx, `UPDATE `+table+` SET status='VOIDED' WHERE id=$1 AND status<>'VOIDED'`, ref.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &accounting.ConflictError{Entity: string(ref.Type), ID: ref.ID, Reason: "document already voided"}
	}
	return nil
}
