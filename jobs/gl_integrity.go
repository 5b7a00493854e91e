package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// ErrLedgerOutOfBalance is returned when an integrity run finds problems, so
// the run is counted as failed and retried.
var ErrLedgerOutOfBalance = errors.New("jobs: ledger out of balance")

// IntegrityChecker runs a full ledger integrity check.
type IntegrityChecker interface {
	IntegrityCheck(ctx context.Context) (reports.IntegrityReport, error)
}

// GLIntegrityJob rebuilds every trial balance and looks for journals that
// do not net to zero.
type GLIntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGLIntegrityJob initialises the integrity handler.
func NewGLIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// Handle executes the integrity check for an Asynq task.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Checker == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("gl integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run performs one integrity pass and returns its report.
func (j *GLIntegrityJob) Run(ctx context.Context, payload GLIntegrityPayload) (report reports.IntegrityReport, resultErr error) {
	tracker := j.Metrics.Track("gl_integrity")
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("job", "gl_integrity"), slog.String("trigger", payload.Trigger))
	report, err := j.Checker.IntegrityCheck(ctx)
	if err != nil {
		logger.Error("integrity check failed", slog.Any("error", err))
		return reports.IntegrityReport{}, err
	}

	j.Metrics.AddFindings("trial_balance", len(report.Unbalanced))
	j.Metrics.AddFindings("journal", len(report.Journals))
	for _, tb := range report.Unbalanced {
		logger.Error("trial balance does not balance",
			slog.String("currency", tb.Currency),
			slog.String("debits", tb.TotalDebits.String()),
			slog.String("credits", tb.TotalCredits.String()),
		)
	}
	if !report.OK() {
		return report, fmt.Errorf("%w: %d currencies, %d journals", ErrLedgerOutOfBalance, len(report.Unbalanced), len(report.Journals))
	}
	logger.Info("GL integrity check passed", slog.Int("currencies", len(report.Currencies)))
	return report, nil
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
