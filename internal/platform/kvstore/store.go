// Package kvstore is the embedded Badger implementation of the ledger store.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

const sequenceBandwidth = 64

// Options configures Open.
type Options struct {
	// Dir is the data directory. Empty runs fully in memory.
	Dir string
	Now func() time.Time
}

// Store keeps accounts, master data, documents and journals in Badger.
// Writes run in optimistic transactions; a commit that lost a race with a
// concurrent writer fails with accounting.ConflictError.
type Store struct {
	db  *badger.DB
	now func() time.Time

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now, seqs: make(map[string]*badger.Sequence)}, nil
}

// Close releases id leases and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	s.seqs = map[string]*badger.Sequence{}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// nextID hands out ids starting at 1. Ids of aborted transactions are not
// reused.
func (s *Store) nextID(name string) (int64, error) {
	s.mu.Lock()
	seq, ok := s.seqs[name]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte("seq/"+name), sequenceBandwidth)
		if err != nil {
			s.mu.Unlock()
			return 0, fmt.Errorf("kvstore: sequence %s: %w", name, err)
		}
		s.seqs[name] = seq
	}
	s.mu.Unlock()
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("kvstore: sequence %s: %w", name, err)
	}
	return int64(n) + 1, nil
}

// update runs fn in one read-write transaction and commits it.
func (s *Store) update(ctx context.Context, fn func(*kvTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.db.NewTransaction(true)
	defer txn.Discard()
	if err := fn(&kvTx{reader: reader{txn: txn}, store: s}); err != nil {
		return translate(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(txn.Commit())
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrConflict) {
		return &accounting.ConflictError{Entity: "transaction", Reason: "concurrent update, retry"}
	}
	return err
}

func idKey(prefix string, id int64) []byte {
	return []byte(fmt.Sprintf("%s/%016x", prefix, id))
}

// reader holds the lookups shared by write transactions and snapshots.
type reader struct {
	txn *badger.Txn
}

func (r reader) getJSON(key []byte, dst any) error {
	item, err := r.txn.Get(key)
	if err != nil {
		return err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("kvstore: decode %s: %w", key, err)
	}
	return nil
}

func (r reader) exists(key []byte) (bool, error) {
	_, err := r.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// scan visits every key under prefix in order, starting at start when given.
// fn returns false to stop.
func (r reader) scan(prefix, start []byte, withValues bool, fn func(key, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = withValues
	it := r.txn.NewIterator(opts)
	defer it.Close()
	if start == nil {
		start = prefix
	}
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var value []byte
		if withValues {
			var err error
			if value, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		more, err := fn(item.KeyCopy(nil), value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// kvTx is a write transaction. It implements the transactional repositories
// of accounting, posting and masterdata.
type kvTx struct {
	reader
	store *Store
}

func (t *kvTx) setJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode %s: %w", key, err)
	}
	return t.txn.Set(key, raw)
}
