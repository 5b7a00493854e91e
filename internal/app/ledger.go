package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/masterdata"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/kvstore"
	"github.com/odyssey-erp/odyssey-ledger/internal/posting"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Ledger bundles the services shared by the server, the worker and the CLI.
type Ledger struct {
	Accounting *accounting.Service
	Posting    *posting.Service
	Reports    *reports.Service
	Seeder     *masterdata.Seeder
	Metrics    *observability.Metrics
	Redis      *redis.Client

	closers []func() error
}

// Close releases the store and cache connections.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type ledgerStores struct {
	accounting accounting.RepositoryPort
	posting    posting.RepositoryPort
	masterdata masterdata.RepositoryPort
	reports    reports.Reader
	audit      accounting.AuditPort
}

// OpenLedger connects the configured store and cache and wires the services.
// metrics may be nil.
func OpenLedger(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{Metrics: metrics}

	var stores ledgerStores
	switch cfg.LedgerStore {
	case StoreBadger:
		store, err := kvstore.Open(kvstore.Options{Dir: cfg.BadgerDir})
		if err != nil {
			return nil, err
		}
		l.closers = append(l.closers, store.Close)
		stores = ledgerStores{
			accounting: store.Accounting(),
			posting:    store.Posting(),
			masterdata: store.MasterData(),
			reports:    store,
			audit:      shared.NewSlogAuditor(logger),
		}
		logger.Info("ledger store opened", slog.String("store", StoreBadger), slog.Bool("in_memory", cfg.BadgerDir == ""))
	case StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN, logger)
		if err != nil {
			return nil, err
		}
		l.closers = append(l.closers, func() error { pool.Close(); return nil })
		stores = postgresStores(pool)
		logger.Info("ledger store opened", slog.String("store", StorePostgres))
	default:
		return nil, fmt.Errorf("app: unknown ledger store %q", cfg.LedgerStore)
	}

	var reportCache *reports.Cache
	if cfg.QueueEnabled() {
		client, err := cache.New(ctx, cfg.RedisAddr, logger)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		l.Redis = client
		l.closers = append(l.closers, client.Close)
		reportCache = reports.NewCache(client, cfg.ReportCacheTTL)
	}

	var observers accounting.Observers
	if reportCache != nil {
		observers = append(observers, reports.NewInvalidator(reportCache, logger))
	}
	if metrics != nil {
		observers = append(observers, metrics)
	}

	l.Accounting = accounting.NewService(stores.accounting, stores.audit, logger)
	l.Posting = posting.NewService(stores.posting, stores.audit, logger, posting.Config{BaseCurrency: cfg.BaseCurrency})
	l.Reports = reports.NewService(stores.reports, reportCache, logger)
	l.Seeder = masterdata.NewSeeder(stores.masterdata)
	if len(observers) > 0 {
		l.Accounting.WithObserver(observers)
		l.Posting.WithObserver(observers)
	}
	if metrics != nil {
		l.Reports.WithAlarms(metrics)
	}
	return l, nil
}

func postgresStores(pool *pgxpool.Pool) ledgerStores {
	return ledgerStores{
		accounting: accounting.NewRepository(pool),
		posting:    posting.NewRepository(pool),
		masterdata: masterdata.NewRepository(pool),
		reports:    reports.NewRepository(pool),
		audit:      shared.NewAuditLogger(pool),
	}
}
