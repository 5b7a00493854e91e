package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// TrialBalanceQuery selects a currency and an optional as-of date.
type TrialBalanceQuery struct {
	Currency string
	AsOf     *time.Time
}

// LedgerQuery selects an account, a currency and an optional date range.
type LedgerQuery struct {
	AccountID int64
	Currency  string
	From      *time.Time
	To        *time.Time
}

// AlarmRecorder counts ledger integrity alarms.
type AlarmRecorder interface {
	IntegrityAlarm(currency string)
}

// IntegrityReport is the outcome of a full ledger integrity check.
type IntegrityReport struct {
	CheckedAt  time.Time          `json:"checkedAt"`
	Currencies []string           `json:"currencies"`
	Unbalanced []TrialBalance     `json:"unbalancedTrialBalances"`
	Journals   []JournalImbalance `json:"unbalancedJournals"`
}

// OK reports whether the check found nothing.
func (r IntegrityReport) OK() bool {
	return len(r.Unbalanced) == 0 && len(r.Journals) == 0
}

// Service answers ledger report queries.
type Service struct {
	reader Reader
	cache  *Cache
	alarms AlarmRecorder
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group
}

// NewService constructs the report service. cache may be nil.
func NewService(reader Reader, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reader: reader, cache: cache, logger: logger, now: time.Now}
}

// WithAlarms registers the integrity alarm counter.
func (s *Service) WithAlarms(a AlarmRecorder) {
	s.alarms = a
}

func normaliseCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", &accounting.ValidationError{Field: "currency", Reason: "currency is required"}
	}
	if err := accounting.ValidateCurrency("currency", code); err != nil {
		return "", err
	}
	return code, nil
}

func dateOf(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := accounting.DateOf(*t)
	return &d
}

// TrialBalance builds the trial balance of one currency as of a date.
func (s *Service) TrialBalance(ctx context.Context, q TrialBalanceQuery) (TrialBalance, error) {
	currency, err := normaliseCurrency(q.Currency)
	if err != nil {
		return TrialBalance{}, err
	}
	q.Currency, q.AsOf = currency, dateOf(q.AsOf)
	var tb TrialBalance
	err = s.fetch(ctx, keyTrialBalance(q.Currency, q.AsOf), &tb, func(ctx context.Context) (any, error) {
		return s.loadTrialBalance(ctx, q)
	})
	return tb, err
}

func (s *Service) loadTrialBalance(ctx context.Context, q TrialBalanceQuery) (TrialBalance, error) {
	var tb TrialBalance
	err := s.reader.Snapshot(ctx, func(ctx context.Context, snap Snapshot) error {
		balances, err := snap.AccountBalances(ctx, q.Currency, q.AsOf)
		if err != nil {
			return err
		}
		tb = BuildTrialBalance(q.Currency, q.AsOf, balances)
		return nil
	})
	if err != nil {
		return TrialBalance{}, err
	}
	if !tb.IsBalanced {
		s.alarm(tb)
	}
	return tb, nil
}

func (s *Service) alarm(tb TrialBalance) {
	s.logger.Error("ledger integrity alarm: trial balance does not balance",
		slog.String("currency", tb.Currency),
		slog.String("total_debits", tb.TotalDebits.String()),
		slog.String("total_credits", tb.TotalCredits.String()),
	)
	if s.alarms != nil {
		s.alarms.IntegrityAlarm(tb.Currency)
	}
}

// GeneralLedger lists one account's movements with a running balance.
func (s *Service) GeneralLedger(ctx context.Context, q LedgerQuery) (GeneralLedger, error) {
	if q.AccountID <= 0 {
		return GeneralLedger{}, accounting.NotFound("account", q.AccountID)
	}
	currency, err := normaliseCurrency(q.Currency)
	if err != nil {
		return GeneralLedger{}, err
	}
	q.Currency, q.From, q.To = currency, dateOf(q.From), dateOf(q.To)
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return GeneralLedger{}, &accounting.ValidationError{Field: "toDate", Reason: "toDate precedes fromDate"}
	}
	var gl GeneralLedger
	err = s.fetch(ctx, keyGeneralLedger(q), &gl, func(ctx context.Context) (any, error) {
		return s.loadGeneralLedger(ctx, q)
	})
	return gl, err
}

func (s *Service) loadGeneralLedger(ctx context.Context, q LedgerQuery) (GeneralLedger, error) {
	var gl GeneralLedger
	err := s.reader.Snapshot(ctx, func(ctx context.Context, snap Snapshot) error {
		account, err := snap.GetAccount(ctx, q.AccountID)
		if err != nil {
			return err
		}
		opening := decimal.Zero
		if q.From != nil {
			if opening, err = snap.OpeningBalance(ctx, q.AccountID, q.Currency, *q.From); err != nil {
				return err
			}
		}
		entries, err := snap.LedgerEntries(ctx, q.AccountID, q.Currency, q.From, q.To)
		if err != nil {
			return err
		}
		gl = BuildGeneralLedger(account, q.Currency, q.From, q.To, opening, entries)
		return nil
	})
	return gl, err
}

// ProfitAndLoss derives the income statement from the trial balance.
func (s *Service) ProfitAndLoss(ctx context.Context, q TrialBalanceQuery) (ProfitAndLoss, error) {
	tb, err := s.TrialBalance(ctx, q)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return BuildProfitAndLoss(tb), nil
}

// BalanceSheet derives the statement of financial position from the trial balance.
func (s *Service) BalanceSheet(ctx context.Context, q TrialBalanceQuery) (BalanceSheet, error) {
	tb, err := s.TrialBalance(ctx, q)
	if err != nil {
		return BalanceSheet{}, err
	}
	return BuildBalanceSheet(tb), nil
}

// IntegrityCheck rebuilds the trial balance of every currency in parallel
// and lists posted journals that do not net to zero. It bypasses the cache.
func (s *Service) IntegrityCheck(ctx context.Context) (IntegrityReport, error) {
	report := IntegrityReport{CheckedAt: s.now().UTC()}
	err := s.reader.Snapshot(ctx, func(ctx context.Context, snap Snapshot) error {
		var err error
		if report.Currencies, err = snap.Currencies(ctx); err != nil {
			return err
		}
		report.Journals, err = snap.UnbalancedJournals(ctx)
		return err
	})
	if err != nil {
		return IntegrityReport{}, err
	}

	results := make([]TrialBalance, len(report.Currencies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, currency := range report.Currencies {
		i, currency := i, currency
		g.Go(func() error {
			tb, err := s.loadTrialBalance(gctx, TrialBalanceQuery{Currency: currency})
			if err != nil {
				return err
			}
			results[i] = tb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return IntegrityReport{}, err
	}
	for _, tb := range results {
		if !tb.IsBalanced {
			report.Unbalanced = append(report.Unbalanced, tb)
		}
	}
	sort.Slice(report.Unbalanced, func(i, j int) bool {
		return report.Unbalanced[i].Currency < report.Unbalanced[j].Currency
	})
	for _, j := range report.Journals {
		s.logger.Error("ledger integrity alarm: journal does not balance",
			slog.Int64("journal_id", j.JournalID),
			slog.String("reference", j.Reference),
			slog.String("currency", j.Currency),
			slog.String("net", j.Net.String()),
		)
		if s.alarms != nil {
			s.alarms.IntegrityAlarm(j.Currency)
		}
	}
	return report, nil
}

// fetch serves a report from the cache, collapsing concurrent identical
// requests. Cache failures fall back to the loader.
func (s *Service) fetch(ctx context.Context, parts []string, dest any, load func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		value, err := load(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var loadErr error
		tracked := func(ctx context.Context) (any, error) {
			value, err := load(ctx)
			loadErr = err
			return value, err
		}
		var raw json.RawMessage
		err := s.cache.FetchJSON(ctx, key, &raw, tracked)
		if err == nil || loadErr != nil {
			return raw, err
		}
		s.logger.Warn("report cache fetch", slog.String("key", key), slog.Any("error", err))
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		switch raw := res.Val.(type) {
		case json.RawMessage:
			return json.Unmarshal(raw, dest)
		case []byte:
			return json.Unmarshal(raw, dest)
		}
		return roundTrip(res.Val, dest)
	}
}
