// Package quality scores how close a company's books are to being closable.
package quality

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cleared-dev/ucto/internal/clock"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/rules"
)

// Weights of the score formula.
const (
	InboxPenalty      = 5
	LowConfPenalty    = 3
	UnpairedPenalty   = 2
	OpenItemPenalty   = 1
	LockedMonthsBonus = 2
)

// Compute fills in Score and Grade from the counts in q.
func Compute(q model.QualityScore) model.QualityScore {
	score := 100 -
		InboxPenalty*q.InboxPending -
		LowConfPenalty*q.LowConfidenceDocs -
		UnpairedPenalty*q.UnpairedBankMovements -
		OpenItemPenalty*(q.Open311Items+q.Open321Items) +
		LockedMonthsBonus*q.LockedMonths
	q.Score = max(0, min(100, score))
	q.Grade = GradeOf(q.Score)
	return q
}

// GradeOf maps a 0..100 score to a letter grade.
func GradeOf(score int) model.Grade {
	switch {
	case score >= 90:
		return model.GradeA
	case score >= 80:
		return model.GradeB
	case score >= 70:
		return model.GradeC
	case score >= 60:
		return model.GradeD
	default:
		return model.GradeF
	}
}

// Neutral is returned when the counts cannot be read.
func Neutral() model.QualityScore {
	return model.QualityScore{Score: 100, Grade: model.GradeA}
}

// Source reads the counts behind the score.
type Source interface {
	InboxPending(ctx context.Context, companyID string) (int, error)
	LowConfidenceDocs(ctx context.Context, companyID string, threshold float64) (int, error)
	UnpairedBankMovements(ctx context.Context, companyID string) (int, error)
	LockedPeriods(ctx context.Context, companyID string, year int) (int, error)
}

// OpenCounter counts partners with an open balance in an account class.
type OpenCounter interface {
	OpenCount(ctx context.Context, companyID, class string) (int, error)
}

// Calculator gathers the counts and computes the score.
type Calculator struct {
	Source        Source
	Open          OpenCounter
	Clock         clock.Clock
	LowConfidence float64 // zero means rules.DefaultLowConfidence
	Logger        *slog.Logger
}

// Score returns the company's quality score. It never fails: when any count
// cannot be read the neutral score is returned and the failure is logged.
func (c *Calculator) Score(ctx context.Context, companyID string) model.QualityScore {
	q, err := c.counts(ctx, companyID)
	if err != nil {
		logger := c.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("quality score unavailable, using neutral score", "company", companyID, "error", err)
		return Neutral()
	}
	return Compute(q)
}

func (c *Calculator) counts(ctx context.Context, companyID string) (model.QualityScore, error) {
	var q model.QualityScore
	var err error

	if q.InboxPending, err = c.Source.InboxPending(ctx, companyID); err != nil {
		return q, fmt.Errorf("counting inbox: %w", err)
	}
	threshold := c.LowConfidence
	if threshold == 0 {
		threshold = rules.DefaultLowConfidence
	}
	if q.LowConfidenceDocs, err = c.Source.LowConfidenceDocs(ctx, companyID, threshold); err != nil {
		return q, fmt.Errorf("counting low-confidence documents: %w", err)
	}
	if q.UnpairedBankMovements, err = c.Source.UnpairedBankMovements(ctx, companyID); err != nil {
		return q, fmt.Errorf("counting unpaired movements: %w", err)
	}
	if q.Open311Items, err = c.Open.OpenCount(ctx, companyID, model.ClassReceivable); err != nil {
		return q, fmt.Errorf("counting open receivables: %w", err)
	}
	if q.Open321Items, err = c.Open.OpenCount(ctx, companyID, model.ClassPayable); err != nil {
		return q, fmt.Errorf("counting open payables: %w", err)
	}

	now := clock.OrSystem(c.Clock).Now()
	if q.LockedMonths, err = c.Source.LockedPeriods(ctx, companyID, now.Year()); err != nil {
		return q, fmt.Errorf("counting locked periods: %w", err)
	}
	q.TotalMonths = int(now.Month())
	return q, nil
}
