package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository persists accounting entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	GetAccount(ctx context.Context, id int64) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	UpdateAccountParent(ctx context.Context, id int64, parentID *int64) error
	InsertJournal(ctx context.Context, journal Journal) (Journal, error)
	GetJournal(ctx context.Context, id int64) (Journal, error)
	FindOriginJournal(ctx context.Context, ref SourceRef) (Journal, error)
	CompareAndSetJournalStatus(ctx context.Context, id int64, from, to JournalStatus) error
}

// WithTx executes fn within repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("accounting repository not initialised")
	}
	return TranslatePgError(db.WithTx(ctx, r.pool, db.ReadWrite, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	}))
}

// NewTxRepository wraps an open transaction so other packages can compose
// ledger writes with their own.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

// TranslatePgError maps serialization failures and the posted-origin unique
// index onto ConflictError.
func TranslatePgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return &ConflictError{Entity: "transaction", Reason: "concurrent update, retry"}
	case "23505":
		if pgErr.ConstraintName == "uq_journals_posted_origin" {
			return &ConflictError{Entity: "journal", Reason: "source already has a posted journal"}
		}
	}
	return err
}

const accountColumns = `id, code, name, type, parent_id, created_at, updated_at`

func (r *txRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFound("account", id)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *txRepository) UpdateAccountParent(ctx context.Context, id int64, parentID *int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET parent_id=$2, updated_at=NOW() WHERE id=$1`, id, nullIntPtr(parentID))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return NotFound("account", id)
	}
	return nil
}

func (r *txRepository) InsertJournal(ctx context.Context, journal Journal) (Journal, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journals (date, source_type, source_id, reference, narration, status, reversal_of)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		journal.Date, journal.Source.Type, nullInt(journal.Source.ID), journal.Reference, journal.Narration, journal.Status, nullIntPtr(journal.ReversalOf))
	if err := row.Scan(&journal.ID, &journal.CreatedAt); err != nil {
		return Journal{}, err
	}
	for i := range journal.Lines {
		line := &journal.Lines[i]
		line.JournalID = journal.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (journal_id, account_id, description, amount, currency)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, journal.ID, line.AccountID, line.Description, line.Amount, line.Currency).Scan(&line.ID)
		if err != nil {
			return Journal{}, fmt.Errorf("accounting: insert line %d: %w", i, err)
		}
	}
	return journal, nil
}

func (r *txRepository) GetJournal(ctx context.Context, id int64) (Journal, error) {
	var (
		j        Journal
		sourceID *int64
	)
	err := r.tx.QueryRow(ctx, `SELECT id, date, source_type, source_id, reference, narration, status, reversal_of, created_at
FROM journals WHERE id=$1`, id).
		Scan(&j.ID, &j.Date, &j.Source.Type, &sourceID, &j.Reference, &j.Narration, &j.Status, &j.ReversalOf, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, NotFound("journal", id)
		}
		return Journal{}, err
	}
	if sourceID != nil {
		j.Source.ID = *sourceID
	}
	rows, err := r.tx.Query(ctx, `SELECT id, journal_id, account_id, description, amount, currency
FROM journal_lines WHERE journal_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Journal{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.JournalID, &line.AccountID, &line.Description, &line.Amount, &line.Currency); err != nil {
			return Journal{}, err
		}
		j.Lines = append(j.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Journal{}, err
	}
	return j, nil
}

func (r *txRepository) FindOriginJournal(ctx context.Context, ref SourceRef) (Journal, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `SELECT id FROM journals
WHERE source_type=$1 AND source_id=$2 AND reversal_of IS NULL
ORDER BY id DESC LIMIT 1`, ref.Type, ref.ID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journal{}, &NotFoundError{Entity: "journal for source", ID: ref.String()}
		}
		return Journal{}, err
	}
	return r.GetJournal(ctx, id)
}

func (r *txRepository) CompareAndSetJournalStatus(ctx context.Context, id int64, from, to JournalStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journals SET status=$3 WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &ConflictError{Entity: "journal", ID: id, Reason: fmt.Sprintf("expected status %s", from)}
	}
	return nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullIntPtr(val *int64) any {
	if val == nil || *val == 0 {
		return nil
	}
	return *val
}
