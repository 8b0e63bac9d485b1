// Package metrics exposes Prometheus counters for the validation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cleared-dev/ucto/internal/model"
)

// Recorder holds the engine's collectors. A nil *Recorder records nothing.
type Recorder struct {
	RuleHits    *prometheus.CounterVec
	Validations *prometheus.CounterVec
	LockLookup  prometheus.Histogram
	Postings    *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		RuleHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucto",
			Name:      "rule_hits_total",
			Help:      "Guardrail findings by entity kind, rule code and severity.",
		}, []string{"entity", "code", "severity"}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucto",
			Name:      "validations_total",
			Help:      "Validation passes by entity kind and outcome.",
		}, []string{"entity", "outcome"}),
		LockLookup: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ucto",
			Name:      "period_lock_lookup_seconds",
			Help:      "Latency of period-lock reads made during validation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		Postings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ucto",
			Name:      "postings_total",
			Help:      "Transactions written by the posting generator by template and outcome.",
		}, []string{"template", "outcome"}),
	}
}

// Outcomes recorded in validations_total.
const (
	OutcomeValid   = "valid"
	OutcomeBlocked = "blocked"
	OutcomeError   = "error"
)

// ObserveResult counts a finished validation and each of its hits.
func (r *Recorder) ObserveResult(entity string, res model.RuleResult) {
	if r == nil {
		return
	}
	for _, h := range res.All() {
		r.RuleHits.WithLabelValues(entity, h.Code, string(h.Severity)).Inc()
	}
	outcome := OutcomeValid
	if !res.IsValid {
		outcome = OutcomeBlocked
	}
	r.Validations.WithLabelValues(entity, outcome).Inc()
}

// ObserveError counts a validation that could not complete.
func (r *Recorder) ObserveError(entity string) {
	if r == nil {
		return
	}
	r.Validations.WithLabelValues(entity, OutcomeError).Inc()
}

// ObserveLockLookup records how long a period-lock read took.
func (r *Recorder) ObserveLockLookup(d time.Duration) {
	if r == nil {
		return
	}
	r.LockLookup.Observe(d.Seconds())
}

// ObservePosting counts a transaction write attempt.
func (r *Recorder) ObservePosting(template string, err error) {
	if r == nil {
		return
	}
	outcome := "written"
	if err != nil {
		outcome = "failed"
	}
	r.Postings.WithLabelValues(template, outcome).Inc()
}
