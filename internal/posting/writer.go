package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cleared-dev/ucto/internal/clock"
	"github.com/cleared-dev/ucto/internal/ledger"
	"github.com/cleared-dev/ucto/internal/metrics"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/rules"
)

// TransactionWriter persists one transaction and returns it as stored.
type TransactionWriter interface {
	PutTransaction(ctx context.Context, tx model.Transaction) (model.Transaction, error)
}

// PayrollReserver guards against running payroll twice for a period.
type PayrollReserver interface {
	PayrollRunExists(ctx context.Context, companyID, period string) (bool, error)
	ReservePayrollRun(ctx context.Context, run model.PayrollRun) error
	CompletePayrollRun(ctx context.Context, companyID, period string, txIDs []string) error
	ReleasePayrollRun(ctx context.Context, companyID, period string) error
}

// Validator is the rule engine.
type Validator interface {
	Validate(ctx context.Context, ent rules.Entity, rc rules.Context) (model.RuleResult, error)
}

// Writer emits generated transactions to the store.
type Writer struct {
	store   TransactionWriter
	payroll PayrollReserver
	rules   Validator
	chart   Chart
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithChart checks generated lines against a chart of accounts.
func WithChart(c Chart) WriterOption {
	return func(w *Writer) { w.chart = c }
}

// WithClock sets the clock used for payroll run timestamps.
func WithClock(c clock.Clock) WriterOption {
	return func(w *Writer) { w.clock = c }
}

// WithLogger sets the writer's logger.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// WithMetrics counts written transactions.
func WithMetrics(r *metrics.Recorder) WriterOption {
	return func(w *Writer) { w.metrics = r }
}

// NewWriter creates a Writer. payroll and v are only needed for payroll runs.
func NewWriter(store TransactionWriter, payroll PayrollReserver, v Validator, opts ...WriterOption) *Writer {
	w := &Writer{store: store, payroll: payroll, rules: v, clock: clock.System{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Emit writes txs one after another and returns how many were written.
// There is no atomicity across transactions: on failure the first n are
// stored, and each of them balances on its own.
func (w *Writer) Emit(ctx context.Context, txs []model.Transaction) (int, error) {
	for i, tx := range txs {
		if err := ledger.Verify(tx); err != nil {
			return i, err
		}
		stored, err := w.store.PutTransaction(ctx, tx)
		w.metrics.ObservePosting(tx.TemplateID, err)
		if err != nil {
			w.logger.Error("posting stopped", "company", tx.CompanyID, "written", i, "of", len(txs), "error", err)
			return i, fmt.Errorf("writing transaction %d of %d (%s): %w", i+1, len(txs), tx.TemplateID, err)
		}
		w.logger.Debug("posted transaction", "company", stored.CompanyID, "number", stored.Number, "template", stored.TemplateID)
	}
	return len(txs), nil
}

// PostEntry generates and writes the invoice posting of an entry.
func (w *Writer) PostEntry(ctx context.Context, companyID string, e model.FinancialEntry) (model.Transaction, error) {
	tx, err := FromEntry(companyID, e, w.chart)
	if err != nil {
		return model.Transaction{}, err
	}
	stored, err := w.store.PutTransaction(ctx, tx)
	w.metrics.ObservePosting(tx.TemplateID, err)
	return stored, err
}

// PayrollRun is the outcome of a payroll run. When Result is not valid
// nothing was written.
type PayrollRun struct {
	Result       model.RuleResult
	Breakdown    PayrollBreakdown
	Transactions []model.Transaction
	Written      int
}

// ErrPayrollBlocked is returned when the rule engine blocks a payroll run.
var ErrPayrollBlocked = errors.New("payroll run blocked")

// PlanPayroll validates a payroll request and builds its transactions
// without writing anything. hasConfig tells the rules whether cfg came from
// the company's settings or from DefaultPayrollConfig.
func (w *Writer) PlanPayroll(ctx context.Context, in PayrollInput, cfg PayrollConfig, hasConfig bool) (PayrollRun, error) {
	var out PayrollRun

	exists, err := w.payroll.PayrollRunExists(ctx, in.CompanyID, in.Period)
	if err != nil {
		return out, err
	}
	out.Result, err = w.rules.Validate(ctx, rules.Payroll{
		Period:                 in.Period,
		GrossSalary:            in.GrossSalary,
		RunExists:              exists,
		HasConfig:              hasConfig,
		AutoCreateTransactions: cfg.AutoCreateTransactions,
	}, rules.Context{CompanyID: in.CompanyID, Period: in.Period})
	if err != nil {
		return out, err
	}
	if !out.Result.IsValid {
		return out, ErrPayrollBlocked
	}

	txs, breakdown, err := Payroll(in, cfg, w.chart)
	out.Breakdown = breakdown
	if err != nil {
		return out, err
	}
	out.Transactions = txs
	return out, nil
}

// PostPayroll reserves the period and writes a planned run. A reservation
// whose run wrote nothing is released again, so the period can be retried;
// after a partial write it stays.
func (w *Writer) PostPayroll(ctx context.Context, in PayrollInput, run PayrollRun) (PayrollRun, error) {
	if !run.Result.IsValid {
		return run, ErrPayrollBlocked
	}

	// The rule check is advisory; the reservation is what prevents two
	// concurrent runs from both posting.
	err := w.payroll.ReservePayrollRun(ctx, model.PayrollRun{
		CompanyID:  in.CompanyID,
		Period:     in.Period,
		GrossTotal: run.Breakdown.Gross,
		Employees:  in.Employees,
		CreatedAt:  w.clock.Now(),
	})
	if err != nil {
		return run, err
	}

	run.Written, err = w.Emit(ctx, run.Transactions)
	if err != nil {
		if run.Written == 0 {
			if rerr := w.payroll.ReleasePayrollRun(ctx, in.CompanyID, in.Period); rerr != nil {
				w.logger.Error("payroll reservation kept", "company", in.CompanyID, "period", in.Period, "error", rerr)
			}
		}
		return run, err
	}

	ids := make([]string, len(run.Transactions))
	for i, tx := range run.Transactions {
		ids[i] = tx.ID
	}
	if err := w.payroll.CompletePayrollRun(ctx, in.CompanyID, in.Period, ids); err != nil {
		return run, err
	}
	w.logger.Info("payroll posted", "company", in.CompanyID, "period", in.Period, "transactions", run.Written)
	return run, nil
}

// RunPayroll plans a payroll run and, when cfg enables automatic
// transactions, posts it.
func (w *Writer) RunPayroll(ctx context.Context, in PayrollInput, cfg PayrollConfig, hasConfig bool) (PayrollRun, error) {
	run, err := w.PlanPayroll(ctx, in, cfg, hasConfig)
	if err != nil || !cfg.AutoCreateTransactions {
		return run, err
	}
	return w.PostPayroll(ctx, in, run)
}
