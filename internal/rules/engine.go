// Package rules runs the guardrail checks that accept, warn about or block
// candidate ledger entities before they are posted.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cleared-dev/ucto/internal/metrics"
	"github.com/cleared-dev/ucto/internal/model"
)

// DefaultLowConfidence is the extraction confidence below which a field is flagged.
const DefaultLowConfidence = 0.70

// DefaultLockTimeout bounds the period-lock read.
const DefaultLockTimeout = 2 * time.Second

// Context identifies who is validating what. CompanyID is required.
type Context struct {
	CompanyID string
	Period    string // YYYY-MM, optional
	UserID    string
}

// LockReader reports whether a company's period is locked. A period without
// a lock record is unlocked and must not return an error.
type LockReader interface {
	IsLocked(ctx context.Context, companyID, period string) (bool, error)
}

// Engine dispatches candidates to their rule set.
type Engine struct {
	locks            LockReader
	lockTimeout      time.Duration
	allowUnknownLock bool
	lowConfidence    float64
	logger           *slog.Logger
	metrics          *metrics.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLockTimeout bounds each period-lock read.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// WithAllowUnknownLock makes a failed period-lock read count as "not locked"
// (with a warning) instead of failing the validation.
func WithAllowUnknownLock(allow bool) Option {
	return func(e *Engine) { e.allowUnknownLock = allow }
}

// WithLowConfidence sets the extraction confidence threshold.
func WithLowConfidence(threshold float64) Option {
	return func(e *Engine) { e.lowConfidence = threshold }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records validation outcomes.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// New creates an Engine. locks may be nil, in which case period locks are
// not consulted.
func New(locks LockReader, opts ...Option) *Engine {
	e := &Engine{
		locks:         locks,
		lockTimeout:   DefaultLockTimeout,
		lowConfidence: DefaultLowConfidence,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs the rule set for ent. Rule failures are reported as hits in
// the result; an error is returned only when a required read failed, and
// then wraps model.ErrTransient.
func (e *Engine) Validate(ctx context.Context, ent Entity, rc Context) (model.RuleResult, error) {
	if rc.CompanyID == "" {
		return model.RuleResult{}, &model.ConfigError{Field: "company_id", Reason: "validation needs a company"}
	}

	var hits []model.RuleHit
	var err error
	switch v := ent.(type) {
	case Transaction:
		hits, err = e.transaction(ctx, v, rc)
	case Document:
		hits = e.document(v)
	case BankPairing:
		hits = bankPairing(v)
	case Payroll:
		hits = payroll(v)
	case PeriodClosing:
		hits = periodClosing(v)
	default:
		return model.RuleResult{}, fmt.Errorf("unsupported entity %T", ent)
	}
	if err != nil {
		e.metrics.ObserveError(string(ent.Kind()))
		return model.RuleResult{}, err
	}

	res := model.NewRuleResult(hits)
	e.metrics.ObserveResult(string(ent.Kind()), res)
	e.logger.Debug("validated entity",
		"entity", ent.Kind(),
		"company", rc.CompanyID,
		"user", rc.UserID,
		"blocks", len(res.Blocks),
		"warnings", len(res.Warnings),
		"infos", len(res.Infos))
	return res, nil
}

// periodLocked reads the lock for rc.Period under the engine's timeout.
func (e *Engine) periodLocked(ctx context.Context, rc Context) (bool, error) {
	if e.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.lockTimeout)
		defer cancel()
	}
	start := time.Now()
	locked, err := e.locks.IsLocked(ctx, rc.CompanyID, rc.Period)
	e.metrics.ObserveLockLookup(time.Since(start))
	if err != nil {
		return false, model.Transient(fmt.Sprintf("reading lock for %s/%s", rc.CompanyID, rc.Period), err)
	}
	return locked, nil
}

func block(code, message, fix, field string) model.RuleHit {
	return model.RuleHit{Code: code, Severity: model.SeverityBlock, Message: message, FixSuggestion: fix, FieldPath: field}
}

func warn(code, message, fix, field string) model.RuleHit {
	return model.RuleHit{Code: code, Severity: model.SeverityWarn, Message: message, FixSuggestion: fix, FieldPath: field}
}

func info(code, message, fix, field string) model.RuleHit {
	return model.RuleHit{Code: code, Severity: model.SeverityInfo, Message: message, FixSuggestion: fix, FieldPath: field}
}
