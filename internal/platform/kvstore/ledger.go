package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// lineEntry is the value of both line index keys.
type lineEntry struct {
	JournalID   int64           `json:"journalId"`
	LineID      int64           `json:"lineId"`
	AccountID   int64           `json:"accountId"`
	Date        time.Time       `json:"date"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

const dateKeyLayout = "20060102"

func accountCodeKey(code string) []byte { return []byte("acctcode/" + code) }

func sourcePrefix(ref accounting.SourceRef) []byte {
	return []byte(fmt.Sprintf("jsrc/%s/%016x/", ref.Type, ref.ID))
}

func accountLinePrefix(accountID int64, currency string) []byte {
	return []byte(fmt.Sprintf("lacct/%016x/%s/", accountID, currency))
}

func accountLineKey(currency string, e lineEntry) []byte {
	return []byte(fmt.Sprintf("lacct/%016x/%s/%s/%016x/%016x", e.AccountID, currency, e.Date.Format(dateKeyLayout), e.JournalID, e.LineID))
}

func currencyLinePrefix(currency string) []byte {
	return []byte("lcur/" + currency + "/")
}

func currencyLineKey(currency string, e lineEntry) []byte {
	return []byte(fmt.Sprintf("lcur/%s/%016x/%016x/%016x", currency, e.AccountID, e.JournalID, e.LineID))
}

func (r reader) GetAccount(_ context.Context, id int64) (accounting.Account, error) {
	var a accounting.Account
	if err := r.getJSON(idKey("acct", id), &a); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return accounting.Account{}, accounting.NotFound("account", id)
		}
		return accounting.Account{}, err
	}
	return a, nil
}

func (r reader) ListAccounts(_ context.Context) ([]accounting.Account, error) {
	var accounts []accounting.Account
	err := r.scan([]byte("acct/"), nil, true, func(_, value []byte) (bool, error) {
		var a accounting.Account
		if err := json.Unmarshal(value, &a); err != nil {
			return false, err
		}
		accounts = append(accounts, a)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

func (r reader) GetJournal(_ context.Context, id int64) (accounting.Journal, error) {
	var j accounting.Journal
	if err := r.getJSON(idKey("journal", id), &j); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return accounting.Journal{}, accounting.NotFound("journal", id)
		}
		return accounting.Journal{}, err
	}
	return j, nil
}

// journalsForSource returns every journal id tagged with ref, ascending.
func (r reader) journalsForSource(ref accounting.SourceRef) ([]int64, error) {
	prefix := sourcePrefix(ref)
	var ids []int64
	err := r.scan(prefix, nil, false, func(key, _ []byte) (bool, error) {
		id, err := strconv.ParseInt(strings.TrimPrefix(string(key), string(prefix)), 16, 64)
		if err != nil {
			return false, fmt.Errorf("kvstore: bad source key %s: %w", key, err)
		}
		ids = append(ids, id)
		return true, nil
	})
	return ids, err
}

func (r reader) FindOriginJournal(ctx context.Context, ref accounting.SourceRef) (accounting.Journal, error) {
	ids, err := r.journalsForSource(ref)
	if err != nil {
		return accounting.Journal{}, err
	}
	for i := len(ids) - 1; i >= 0; i-- {
		j, err := r.GetJournal(ctx, ids[i])
		if err != nil {
			return accounting.Journal{}, err
		}
		if !j.IsReversal() {
			return j, nil
		}
	}
	return accounting.Journal{}, &accounting.NotFoundError{Entity: "journal for source", ID: ref.String()}
}

func (t *kvTx) UpdateAccountParent(ctx context.Context, id int64, parentID *int64) error {
	a, err := t.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if parentID != nil && *parentID != 0 {
		p := *parentID
		a.ParentID = &p
	} else {
		a.ParentID = nil
	}
	a.UpdatedAt = t.store.now().UTC()
	return t.setJSON(idKey("acct", id), a)
}

func (t *kvTx) InsertJournal(ctx context.Context, journal accounting.Journal) (accounting.Journal, error) {
	if err := journal.Source.Validate(); err != nil {
		return accounting.Journal{}, err
	}
	if !journal.Source.IsManual() && !journal.IsReversal() && journal.Status == accounting.JournalStatusPosted {
		// Mirrors the posted-origin unique index of the SQL schema.
		if _, err := t.postedOrigin(ctx, journal.Source); err == nil {
			return accounting.Journal{}, &accounting.ConflictError{Entity: "journal", Reason: "source already has a posted journal"}
		} else if !errors.Is(err, accounting.ErrNotFound) {
			return accounting.Journal{}, err
		}
	}
	for _, line := range journal.Lines {
		ok, err := t.exists(idKey("acct", line.AccountID))
		if err != nil {
			return accounting.Journal{}, err
		}
		if !ok {
			return accounting.Journal{}, accounting.NotFound("account", line.AccountID)
		}
	}
	id, err := t.store.nextID("journal")
	if err != nil {
		return accounting.Journal{}, err
	}
	journal.ID = id
	journal.Date = accounting.DateOf(journal.Date)
	journal.CreatedAt = t.store.now().UTC()
	for i := range journal.Lines {
		line := &journal.Lines[i]
		if line.ID, err = t.store.nextID("journal_line"); err != nil {
			return accounting.Journal{}, err
		}
		line.JournalID = id
		entry := lineEntry{
			JournalID:   id,
			LineID:      line.ID,
			AccountID:   line.AccountID,
			Date:        journal.Date,
			Reference:   journal.Reference,
			Description: line.Description,
			Amount:      line.Amount,
		}
		if err := t.setJSON(accountLineKey(line.Currency, entry), entry); err != nil {
			return accounting.Journal{}, err
		}
		if err := t.setJSON(currencyLineKey(line.Currency, entry), entry); err != nil {
			return accounting.Journal{}, err
		}
	}
	if !journal.Source.IsManual() {
		key := append(sourcePrefix(journal.Source), []byte(fmt.Sprintf("%016x", id))...)
		if err := t.txn.Set(key, nil); err != nil {
			return accounting.Journal{}, err
		}
	}
	if err := t.setJSON(idKey("journal", id), journal); err != nil {
		return accounting.Journal{}, err
	}
	return journal, nil
}

func (t *kvTx) postedOrigin(ctx context.Context, ref accounting.SourceRef) (accounting.Journal, error) {
	ids, err := t.journalsForSource(ref)
	if err != nil {
		return accounting.Journal{}, err
	}
	for _, id := range ids {
		j, err := t.GetJournal(ctx, id)
		if err != nil {
			return accounting.Journal{}, err
		}
		if !j.IsReversal() && j.Status == accounting.JournalStatusPosted {
			return j, nil
		}
	}
	return accounting.Journal{}, &accounting.NotFoundError{Entity: "posted journal for source", ID: ref.String()}
}

func (t *kvTx) CompareAndSetJournalStatus(ctx context.Context, id int64, from, to accounting.JournalStatus) error {
	j, err := t.GetJournal(ctx, id)
	if err != nil {
		return err
	}
	if j.Status != from {
		return &accounting.ConflictError{Entity: "journal", ID: id, Reason: fmt.Sprintf("expected status %s", from)}
	}
	j.Status = to
	return t.setJSON(idKey("journal", id), j)
}

func (t *kvTx) UpsertAccount(_ context.Context, a accounting.Account) (accounting.Account, error) {
	now := t.store.now().UTC()
	var existing int64
	item, err := t.txn.Get(accountCodeKey(a.Code))
	switch {
	case err == nil:
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return accounting.Account{}, err
		}
		if existing, err = strconv.ParseInt(string(raw), 10, 64); err != nil {
			return accounting.Account{}, fmt.Errorf("kvstore: bad account code index %s: %w", a.Code, err)
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return accounting.Account{}, err
	}
	if existing != 0 {
		var prev accounting.Account
		if err := t.getJSON(idKey("acct", existing), &prev); err != nil {
			return accounting.Account{}, err
		}
		a.ID, a.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		if a.ID, err = t.store.nextID("account"); err != nil {
			return accounting.Account{}, err
		}
		a.CreatedAt = now
		if err := t.txn.Set(accountCodeKey(a.Code), []byte(strconv.FormatInt(a.ID, 10))); err != nil {
			return accounting.Account{}, err
		}
	}
	a.UpdatedAt = now
	if err := t.setJSON(idKey("acct", a.ID), a); err != nil {
		return accounting.Account{}, err
	}
	return a, nil
}
