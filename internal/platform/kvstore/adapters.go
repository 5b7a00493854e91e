package kvstore

import (
	"context"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
	"github.com/odyssey-erp/odyssey-ledger/internal/posting"
)

// Accounting adapts the store to accounting.RepositoryPort.
func (s *Store) Accounting() accounting.RepositoryPort { return accountingPort{s} }

// Posting adapts the store to posting.RepositoryPort.
func (s *Store) Posting() posting.RepositoryPort { return postingPort{s} }

// MasterData adapts the store to masterdata.RepositoryPort.
func (s *Store) MasterData() masterdata.RepositoryPort { return masterdataPort{s} }

type accountingPort struct{ s *Store }

func (p accountingPort) WithTx(ctx context.Context, fn func(context.Context, accounting.TxRepository) error) error {
	return p.s.update(ctx, func(tx *kvTx) error { return fn(ctx, tx) })
}

type postingPort struct{ s *Store }

func (p postingPort) WithTx(ctx context.Context, fn func(context.Context, posting.TxRepository) error) error {
	return p.s.update(ctx, func(tx *kvTx) error { return fn(ctx, tx) })
}

type masterdataPort struct{ s *Store }

func (p masterdataPort) WithTx(ctx context.Context, fn func(context.Context, masterdata.TxRepository) error) error {
	return p.s.update(ctx, func(tx *kvTx) error { return fn(ctx, tx) })
}
