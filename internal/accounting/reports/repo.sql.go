package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository reads reports from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	qb   queryBuilder
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, qb: newQueryBuilder()}
}

// Snapshot runs fn inside a read-only repeatable-read transaction so every
// query of one report sees the same commit.
func (r *Repository) Snapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error {
	if r == nil {
		return errors.New("reports repository not initialised")
	}
	return db.WithTx(ctx, r.pool, db.ReadOnly, func(tx pgx.Tx) error {
		return fn(ctx, &pgSnapshot{tx: tx, qb: r.qb})
	})
}

type queryBuilder struct {
	psql sq.StatementBuilderType
}

func newQueryBuilder() queryBuilder {
	return queryBuilder{psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func posted() sq.Eq {
	return sq.Eq{"j.status": string(accounting.JournalStatusPosted)}
}

func (qb queryBuilder) balances(currency string, asOf *time.Time) (string, []any, error) {
	query := qb.psql.
		Select("a.id", "a.code", "a.name", "a.type", "COALESCE(SUM(l.amount), 0)").
		From("journal_lines l").
		Join("journals j ON j.id = l.journal_id").
		Join("accounts a ON a.id = l.account_id").
		Where(sq.Eq{"l.currency": currency}).
		Where(posted())
	if asOf != nil {
		query = query.Where(sq.LtOrEq{"j.date": *asOf})
	}
	return query.GroupBy("a.id", "a.code", "a.name", "a.type").OrderBy("a.code ASC").ToSql()
}

func (qb queryBuilder) opening(accountID int64, currency string, before time.Time) (string, []any, error) {
	return qb.psql.
		Select("COALESCE(SUM(l.amount), 0)").
		From("journal_lines l").
		Join("journals j ON j.id = l.journal_id").
		Where(sq.Eq{"l.account_id": accountID, "l.currency": currency}).
		Where(posted()).
		Where(sq.Lt{"j.date": before}).
		ToSql()
}

func (qb queryBuilder) entries(accountID int64, currency string, from, to *time.Time) (string, []any, error) {
	query := qb.psql.
		Select("j.id", "l.id", "j.date", "j.reference", "l.description", "l.amount").
		From("journal_lines l").
		Join("journals j ON j.id = l.journal_id").
		Where(sq.Eq{"l.account_id": accountID, "l.currency": currency}).
		Where(posted())
	if from != nil {
		query = query.Where(sq.GtOrEq{"j.date": *from})
	}
	if to != nil {
		query = query.Where(sq.LtOrEq{"j.date": *to})
	}
	return query.OrderBy("j.date ASC", "j.id ASC", "l.id ASC").ToSql()
}

func (qb queryBuilder) currencies() (string, []any, error) {
	return qb.psql.
		Select("DISTINCT l.currency").
		From("journal_lines l").
		Join("journals j ON j.id = l.journal_id").
		Where(posted()).
		OrderBy("l.currency ASC").
		ToSql()
}

func (qb queryBuilder) unbalanced() (string, []any, error) {
	return qb.psql.
		Select("j.id", "j.reference", "l.currency", "SUM(l.amount)").
		From("journals j").
		Join("journal_lines l ON l.journal_id = j.id").
		Where(posted()).
		GroupBy("j.id", "j.reference", "l.currency").
		Having("SUM(l.amount) <> 0").
		OrderBy("j.id ASC", "l.currency ASC").
		ToSql()
}

type pgSnapshot struct {
	tx pgx.Tx
	qb queryBuilder
}

func (s *pgSnapshot) GetAccount(ctx context.Context, id int64) (accounting.Account, error) {
	return accounting.NewTxRepository(s.tx).GetAccount(ctx, id)
}

func (s *pgSnapshot) AccountBalances(ctx context.Context, currency string, asOf *time.Time) ([]AccountBalance, error) {
	query, args, err := s.qb.balances(currency, asOf)
	if err != nil {
		return nil, fmt.Errorf("reports: build balances query: %w", err)
	}
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Balance); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *pgSnapshot) OpeningBalance(ctx context.Context, accountID int64, currency string, before time.Time) (decimal.Decimal, error) {
	query, args, err := s.qb.opening(accountID, currency, before)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reports: build opening query: %w", err)
	}
	var opening decimal.Decimal
	if err := s.tx.QueryRow(ctx, query, args...).Scan(&opening); err != nil {
		return decimal.Zero, err
	}
	return opening, nil
}

func (s *pgSnapshot) LedgerEntries(ctx context.Context, accountID int64, currency string, from, to *time.Time) ([]LedgerEntry, error) {
	query, args, err := s.qb.entries(accountID, currency, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: build ledger query: %w", err)
	}
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.JournalID, &e.LineID, &e.Date, &e.Reference, &e.Description, &e.Amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *pgSnapshot) Currencies(ctx context.Context) ([]string, error) {
	query, args, err := s.qb.currencies()
	if err != nil {
		return nil, fmt.Errorf("reports: build currencies query: %w", err)
	}
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *pgSnapshot) UnbalancedJournals(ctx context.Context) ([]JournalImbalance, error) {
	query, args, err := s.qb.unbalanced()
	if err != nil {
		return nil, fmt.Errorf("reports: build integrity query: %w", err)
	}
	rows, err := s.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JournalImbalance
	for rows.Next() {
		var j JournalImbalance
		if err := rows.Scan(&j.JournalID, &j.Reference, &j.Currency, &j.Net); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
