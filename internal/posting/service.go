package posting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository combines ledger writes, master data reads and documents in
// one transaction.
type TxRepository interface {
	accounting.TxRepository
	masterdata.Lookup
	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	InsertPayment(ctx context.Context, pay Payment) (Payment, error)
	GetPayment(ctx context.Context, id int64) (Payment, error)
	InsertStockMovement(ctx context.Context, mv StockMovement) (StockMovement, error)
	GetStockMovement(ctx context.Context, id int64) (StockMovement, error)
	// MarkVoided moves the document to its voided status and fails with a
	// ConflictError when it already is.
	MarkVoided(ctx context.Context, ref accounting.SourceRef) error
}

// Config tunes posting defaults.
type Config struct {
	BaseCurrency string
}

// Service posts source documents to the ledger.
type Service struct {
	repo     RepositoryPort
	audit    accounting.AuditPort
	observer accounting.Observer
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
}

// NewService constructs the posting service.
func NewService(repo RepositoryPort, audit accounting.AuditPort, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "USD"
	}
	return &Service{repo: repo, audit: audit, logger: logger, cfg: cfg, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithObserver registers a post-commit observer.
func (s *Service) WithObserver(o accounting.Observer) {
	s.observer = o
}

// post runs the shared posting pipeline: resolve and build with reads only,
// check the balance, then write the document followed by its journal.
func (s *Service) post(ctx context.Context, tx TxRepository, build func(*Resolver) (accounting.Journal, error), insert func() (int64, error)) (accounting.Journal, error) {
	draft, err := build(NewResolver(tx))
	if err != nil {
		return accounting.Journal{}, err
	}
	if len(draft.Lines) == 0 {
		return accounting.Journal{}, &accounting.ValidationError{Field: "lines", Reason: "document produced no journal lines"}
	}
	if err := accounting.ValidateBalance(draft.Lines); err != nil {
		return accounting.Journal{}, err
	}
	id, err := insert()
	if err != nil {
		return accounting.Journal{}, err
	}
	draft.Source.ID = id
	return tx.InsertJournal(ctx, draft)
}

// CreateInvoice stores an invoice and posts its journal atomically.
func (s *Service) CreateInvoice(ctx context.Context, inv Invoice) (InvoiceResult, error) {
	inv.Normalise()
	if err := inv.Validate(); err != nil {
		return InvoiceResult{}, err
	}
	inv.Status = InvoiceStatusAuthorised
	var result InvoiceResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		journal, err := s.post(ctx, tx,
			func(r *Resolver) (accounting.Journal, error) {
				m, err := r.Invoice(ctx, inv)
				if err != nil {
					return accounting.Journal{}, err
				}
				return BuildInvoiceJournal(inv, m), nil
			},
			func() (int64, error) {
				stored, err := tx.InsertInvoice(ctx, inv)
				if err != nil {
					return 0, err
				}
				inv = stored
				return stored.ID, nil
			})
		if err != nil {
			return err
		}
		result = InvoiceResult{Invoice: inv, Journal: journal}
		return nil
	})
	if err != nil {
		s.logger.Warn("post invoice", slog.String("reference", inv.Reference), slog.Any("error", err))
		return InvoiceResult{}, err
	}
	s.afterPost(ctx, "invoice", result.Invoice.ID, result.Journal)
	return result, nil
}

// CreatePayment stores a payment and posts its journal atomically.
func (s *Service) CreatePayment(ctx context.Context, pay Payment) (PaymentResult, error) {
	pay.Normalise()
	if err := pay.Validate(); err != nil {
		return PaymentResult{}, err
	}
	pay.Status = PaymentStatusPosted
	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		journal, err := s.post(ctx, tx,
			func(r *Resolver) (accounting.Journal, error) {
				m, err := r.Payment(ctx, pay)
				if err != nil {
					return accounting.Journal{}, err
				}
				return BuildPaymentJournal(pay, m), nil
			},
			func() (int64, error) {
				stored, err := tx.InsertPayment(ctx, pay)
				if err != nil {
					return 0, err
				}
				pay = stored
				return stored.ID, nil
			})
		if err != nil {
			return err
		}
		result = PaymentResult{Payment: pay, Journal: journal}
		return nil
	})
	if err != nil {
		s.logger.Warn("post payment", slog.String("reference", pay.Reference), slog.Any("error", err))
		return PaymentResult{}, err
	}
	s.afterPost(ctx, "payment", result.Payment.ID, result.Journal)
	return result, nil
}

// CreateStockMovement stores a movement. Only stock-outs post a journal.
func (s *Service) CreateStockMovement(ctx context.Context, mv StockMovement) (StockMovementResult, error) {
	mv.Normalise(s.cfg.BaseCurrency)
	if err := mv.Validate(); err != nil {
		return StockMovementResult{}, err
	}
	mv.Status = StockStatusCompleted
	var result StockMovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetWarehouse(ctx, mv.WarehouseID); err != nil {
			return err
		}
		if mv.Type != StockOut {
			stored, err := tx.InsertStockMovement(ctx, mv)
			if err != nil {
				return err
			}
			result = StockMovementResult{Movement: stored}
			return nil
		}
		journal, err := s.post(ctx, tx,
			func(r *Resolver) (accounting.Journal, error) {
				m, err := r.StockOut(ctx, mv)
				if err != nil {
					return accounting.Journal{}, err
				}
				return BuildStockJournal(mv, m), nil
			},
			func() (int64, error) {
				stored, err := tx.InsertStockMovement(ctx, mv)
				if err != nil {
					return 0, err
				}
				mv = stored
				return stored.ID, nil
			})
		if err != nil {
			return err
		}
		result = StockMovementResult{Movement: mv, Journal: &journal}
		return nil
	})
	if err != nil {
		s.logger.Warn("post stock movement", slog.String("reference", mv.Reference), slog.Any("error", err))
		return StockMovementResult{}, err
	}
	if result.Journal != nil {
		s.afterPost(ctx, "stock_movement", result.Movement.ID, *result.Journal)
	}
	return result, nil
}

// GetInvoice loads an invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		inv, err = tx.GetInvoice(ctx, id)
		return err
	})
	return inv, err
}

// GetPayment loads a payment.
func (s *Service) GetPayment(ctx context.Context, id int64) (Payment, error) {
	var pay Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		pay, err = tx.GetPayment(ctx, id)
		return err
	})
	return pay, err
}

// GetStockMovement loads a movement with its lines.
func (s *Service) GetStockMovement(ctx context.Context, id int64) (StockMovement, error) {
	var mv StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		mv, err = tx.GetStockMovement(ctx, id)
		return err
	})
	return mv, err
}

// VoidInvoice reverses the invoice journal and marks the invoice voided.
func (s *Service) VoidInvoice(ctx context.Context, id int64, opts accounting.VoidOptions) (accounting.Journal, error) {
	return s.void(ctx, accounting.InvoiceSource(id), opts, func(tx TxRepository) error {
		_, err := tx.GetInvoice(ctx, id)
		return err
	})
}

// VoidPayment reverses the payment journal and marks the payment voided.
func (s *Service) VoidPayment(ctx context.Context, id int64, opts accounting.VoidOptions) (accounting.Journal, error) {
	return s.void(ctx, accounting.PaymentSource(id), opts, func(tx TxRepository) error {
		_, err := tx.GetPayment(ctx, id)
		return err
	})
}

// VoidStockMovement voids a movement. Stock-outs get their journal reversed;
// other movements never posted one and are only marked voided, in which case
// the returned journal is nil.
func (s *Service) VoidStockMovement(ctx context.Context, id int64, opts accounting.VoidOptions) (*accounting.Journal, error) {
	ref := accounting.StockSource(id)
	var posted bool
	var reversal accounting.Journal
	var original accounting.Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		mv, err := tx.GetStockMovement(ctx, id)
		if err != nil {
			return err
		}
		if mv.Type == StockOut {
			posted = true
			original, reversal, err = accounting.ReverseSource(ctx, tx, ref, s.voidDate(opts))
			if err != nil {
				return err
			}
		}
		return tx.MarkVoided(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	if !posted {
		s.record(ctx, "stock_movement.void", "stock_movement", id, nil)
		return nil, nil
	}
	s.afterVoid(ctx, original, reversal)
	return &reversal, nil
}

func (s *Service) void(ctx context.Context, ref accounting.SourceRef, opts accounting.VoidOptions, load func(TxRepository) error) (accounting.Journal, error) {
	var original, reversal accounting.Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := load(tx); err != nil {
			return err
		}
		var err error
		original, reversal, err = accounting.ReverseSource(ctx, tx, ref, s.voidDate(opts))
		if err != nil {
			return err
		}
		return tx.MarkVoided(ctx, ref)
	})
	if err != nil {
		s.logger.Warn("void document", slog.String("source", ref.String()), slog.Any("error", err))
		return accounting.Journal{}, err
	}
	s.afterVoid(ctx, original, reversal)
	return reversal, nil
}

func (s *Service) voidDate(opts accounting.VoidOptions) time.Time {
	if opts.Date != nil {
		return accounting.DateOf(*opts.Date)
	}
	return accounting.DateOf(s.now())
}

func (s *Service) afterPost(ctx context.Context, entity string, docID int64, journal accounting.Journal) {
	s.logger.Info("document posted",
		slog.String("source", journal.Source.String()),
		slog.Int64("journal_id", journal.ID),
		slog.Int("lines", len(journal.Lines)),
	)
	s.record(ctx, entity+".post", entity, docID, map[string]any{
		"journal_id": journal.ID,
		"reference":  journal.Reference,
	})
	if s.observer != nil {
		s.observer.JournalPosted(ctx, journal)
	}
}

func (s *Service) afterVoid(ctx context.Context, original, reversal accounting.Journal) {
	s.logger.Info("document voided",
		slog.String("source", original.Source.String()),
		slog.Int64("journal_id", original.ID),
		slog.Int64("reversal_id", reversal.ID),
	)
	s.record(ctx, strings.ToLower(string(original.Source.Type))+".void", "journal", original.ID, map[string]any{
		"reversal_id": reversal.ID,
		"source":      original.Source.String(),
	})
	if s.observer != nil {
		s.observer.JournalVoided(ctx, original, reversal)
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
