package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

// Snapshot runs fn against one read-only view of the store.
func (s *Store) Snapshot(ctx context.Context, fn func(context.Context, reports.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	return fn(ctx, &kvSnapshot{reader: reader{txn: txn}, statuses: make(map[int64]accounting.JournalStatus)})
}

type kvSnapshot struct {
	reader
	statuses map[int64]accounting.JournalStatus
}

func (s *kvSnapshot) counts(ctx context.Context, journalID int64) (bool, error) {
	status, ok := s.statuses[journalID]
	if !ok {
		j, err := s.GetJournal(ctx, journalID)
		if err != nil {
			return false, err
		}
		status = j.Status
		s.statuses[journalID] = status
	}
	return reports.Counts(status), nil
}

func decodeEntry(value []byte) (lineEntry, error) {
	var e lineEntry
	if err := json.Unmarshal(value, &e); err != nil {
		return lineEntry{}, fmt.Errorf("kvstore: decode line entry: %w", err)
	}
	return e, nil
}

func (s *kvSnapshot) AccountBalances(ctx context.Context, currency string, asOf *time.Time) ([]reports.AccountBalance, error) {
	sums := make(map[int64]decimal.Decimal)
	err := s.scan(currencyLinePrefix(currency), nil, true, func(_, value []byte) (bool, error) {
		e, err := decodeEntry(value)
		if err != nil {
			return false, err
		}
		if asOf != nil && e.Date.After(*asOf) {
			return true, nil
		}
		ok, err := s.counts(ctx, e.JournalID)
		if err != nil {
			return false, err
		}
		if ok {
			sums[e.AccountID] = sums[e.AccountID].Add(e.Amount)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]reports.AccountBalance, 0, len(sums))
	for id, sum := range sums {
		a, err := s.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, reports.AccountBalance{AccountID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, Balance: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *kvSnapshot) OpeningBalance(ctx context.Context, accountID int64, currency string, before time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := s.scan(accountLinePrefix(accountID, currency), nil, true, func(_, value []byte) (bool, error) {
		e, err := decodeEntry(value)
		if err != nil {
			return false, err
		}
		if !e.Date.Before(before) {
			return false, nil
		}
		ok, err := s.counts(ctx, e.JournalID)
		if err != nil {
			return false, err
		}
		if ok {
			sum = sum.Add(e.Amount)
		}
		return true, nil
	})
	return sum, err
}

func (s *kvSnapshot) LedgerEntries(ctx context.Context, accountID int64, currency string, from, to *time.Time) ([]reports.LedgerEntry, error) {
	prefix := accountLinePrefix(accountID, currency)
	var start []byte
	if from != nil {
		start = append(append([]byte{}, prefix...), from.Format(dateKeyLayout)...)
	}
	var out []reports.LedgerEntry
	err := s.scan(prefix, start, true, func(_, value []byte) (bool, error) {
		e, err := decodeEntry(value)
		if err != nil {
			return false, err
		}
		if to != nil && e.Date.After(*to) {
			return false, nil
		}
		ok, err := s.counts(ctx, e.JournalID)
		if err != nil {
			return false, err
		}
		if ok {
			out = append(out, reports.LedgerEntry{
				JournalID:   e.JournalID,
				LineID:      e.LineID,
				Date:        e.Date,
				Reference:   e.Reference,
				Description: e.Description,
				Amount:      e.Amount,
			})
		}
		return true, nil
	})
	return out, err
}

func (s *kvSnapshot) Currencies(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.scan([]byte("lcur/"), nil, false, func(key, _ []byte) (bool, error) {
		parts := strings.Split(strings.TrimPrefix(string(key), "lcur/"), "/")
		if len(parts) != 4 {
			return false, fmt.Errorf("kvstore: bad line key %s", key)
		}
		if _, ok := seen[parts[0]]; ok {
			return true, nil
		}
		journalID, err := strconv.ParseInt(parts[2], 16, 64)
		if err != nil {
			return false, fmt.Errorf("kvstore: bad line key %s: %w", key, err)
		}
		ok, err := s.counts(ctx, journalID)
		if err != nil {
			return false, err
		}
		if ok {
			seen[parts[0]] = struct{}{}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *kvSnapshot) UnbalancedJournals(_ context.Context) ([]reports.JournalImbalance, error) {
	var out []reports.JournalImbalance
	err := s.scan([]byte("journal/"), nil, true, func(key, value []byte) (bool, error) {
		var j accounting.Journal
		if err := json.Unmarshal(value, &j); err != nil {
			return false, fmt.Errorf("kvstore: decode %s: %w", key, err)
		}
		if j.Status != accounting.JournalStatusPosted {
			return true, nil
		}
		nets := make(map[string]decimal.Decimal)
		for _, line := range j.Lines {
			nets[line.Currency] = nets[line.Currency].Add(line.Amount)
		}
		for cur, net := range nets {
			if !net.IsZero() {
				out = append(out, reports.JournalImbalance{JournalID: j.ID, Reference: j.Reference, Currency: cur, Net: net})
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JournalID != out[j].JournalID {
			return out[i].JournalID < out[j].JournalID
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}
