package accounting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Observer is told about journals after their transaction commits.
type Observer interface {
	JournalPosted(ctx context.Context, journal Journal)
	JournalVoided(ctx context.Context, original, reversal Journal)
}

// Observers notifies each member in order.
type Observers []Observer

func (o Observers) JournalPosted(ctx context.Context, journal Journal) {
	for _, obs := range o {
		obs.JournalPosted(ctx, journal)
	}
}

func (o Observers) JournalVoided(ctx context.Context, original, reversal Journal) {
	for _, obs := range o {
		obs.JournalVoided(ctx, original, reversal)
	}
}

// Service coordinates manual journals, voids and hierarchy edits.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithObserver registers a post-commit observer.
func (s *Service) WithObserver(o Observer) {
	s.observer = o
}

// CreateManualJournal validates and persists a hand-authored journal.
func (s *Service) CreateManualJournal(ctx context.Context, in ManualJournalInput) (Journal, error) {
	if err := ValidateManual(in); err != nil {
		return Journal{}, err
	}
	status := JournalStatusPosted
	if in.Draft {
		status = JournalStatusDraft
	}
	draft := Journal{
		Date:      DateOf(in.Date),
		Source:    ManualSource(),
		Reference: in.Reference,
		Narration: in.Narration,
		Status:    status,
		Lines:     make([]JournalLine, 0, len(in.Lines)),
	}
	for _, line := range in.Lines {
		draft.Lines = append(draft.Lines, JournalLine{
			AccountID:   line.AccountID,
			Description: line.Description,
			Amount:      line.Amount,
			Currency:    line.Currency,
		})
	}
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range draft.Lines {
			if _, err := tx.GetAccount(ctx, line.AccountID); err != nil {
				return err
			}
		}
		inserted, err := tx.InsertJournal(ctx, draft)
		if err != nil {
			return err
		}
		journal = inserted
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.record(ctx, "journal.create", "journal", journal.ID, map[string]any{
		"reference": journal.Reference,
		"status":    string(journal.Status),
	})
	if journal.Status == JournalStatusPosted {
		s.notifyPosted(ctx, journal)
	}
	return journal, nil
}

// PostDraft promotes a draft journal to POSTED.
func (s *Service) PostDraft(ctx context.Context, id int64) (Journal, error) {
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournal(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return &ConflictError{Entity: "journal", ID: id, Reason: fmt.Sprintf("journal is %s", current.Status)}
		}
		if err := ValidateBalance(current.Lines); err != nil {
			return err
		}
		if err := tx.CompareAndSetJournalStatus(ctx, id, JournalStatusDraft, JournalStatusPosted); err != nil {
			return err
		}
		current.Status = JournalStatusPosted
		journal = current
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.record(ctx, "journal.post", "journal", journal.ID, map[string]any{"reference": journal.Reference})
	s.notifyPosted(ctx, journal)
	return journal, nil
}

// GetJournal loads a journal with its lines.
func (s *Service) GetJournal(ctx context.Context, id int64) (Journal, error) {
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		journal, err = tx.GetJournal(ctx, id)
		return err
	})
	return journal, err
}

// VoidSource reverses the posted journal of a source document.
func (s *Service) VoidSource(ctx context.Context, ref SourceRef, opts VoidOptions) (Journal, error) {
	if err := ref.Validate(); err != nil {
		return Journal{}, err
	}
	if ref.IsManual() {
		return Journal{}, &ValidationError{Field: "source", Reason: "manual journals are voided by journal id"}
	}
	date := s.voidDate(opts)
	var original, reversal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		original, reversal, err = ReverseSource(ctx, tx, ref, date)
		return err
	})
	if err != nil {
		return Journal{}, err
	}
	s.afterVoid(ctx, original, reversal)
	return reversal, nil
}

// VoidJournal reverses a posted journal by id.
func (s *Service) VoidJournal(ctx context.Context, id int64, opts VoidOptions) (Journal, error) {
	date := s.voidDate(opts)
	var original, reversal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournal(ctx, id)
		if err != nil {
			return err
		}
		if !current.Source.IsManual() {
			return &ValidationError{Field: "id", Reason: fmt.Sprintf("journal %d belongs to %s; void the document instead", id, current.Source)}
		}
		reversal, err = Reverse(ctx, tx, current, date)
		if err != nil {
			return err
		}
		current.Status = JournalStatusVoided
		original = current
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.afterVoid(ctx, original, reversal)
	return reversal, nil
}

// ListAccounts retrieves all chart of accounts entries.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx)
		return err
	})
	return accounts, err
}

// SetAccountParent moves an account within the hierarchy.
func (s *Service) SetAccountParent(ctx context.Context, id int64, parentID *int64) (Account, error) {
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		chart, err := NewChart(accounts)
		if err != nil {
			return err
		}
		if err := chart.SetParent(id, parentID); err != nil {
			return err
		}
		if err := tx.UpdateAccountParent(ctx, id, parentID); err != nil {
			return err
		}
		updated, _ = chart.Get(id)
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, "account.reparent", "account", id, map[string]any{"parent_id": parentID})
	return updated, nil
}

func (s *Service) voidDate(opts VoidOptions) time.Time {
	if opts.Date != nil {
		return DateOf(*opts.Date)
	}
	return DateOf(s.now())
}

func (s *Service) afterVoid(ctx context.Context, original, reversal Journal) {
	s.record(ctx, "journal.void", "journal", original.ID, map[string]any{
		"reversal_id": reversal.ID,
		"source":      original.Source.String(),
	})
	if s.observer != nil {
		s.observer.JournalVoided(ctx, original, reversal)
	}
}

func (s *Service) notifyPosted(ctx context.Context, journal Journal) {
	if s.observer != nil {
		s.observer.JournalPosted(ctx, journal)
	}
}

func (s *Service) record(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
