package store

import (
	"context"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/ucto/internal/model"
)

// ReservePayrollRun records a payroll run for run.Period unless one exists
// or the period is locked. The checks and the write happen in one update
// transaction, so of two concurrent reservations exactly one fails with
// model.ErrPayrollRunExists.
func (s *Store) ReservePayrollRun(ctx context.Context, run model.PayrollRun) error {
	if err := checkCompany(run.CompanyID); err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}
	return s.update(ctx, "reserving payroll "+run.CompanyID+"/"+run.Period, func(btx *bolt.Tx) error {
		if err := checkUnlocked(btx, run.CompanyID, run.Period); err != nil {
			return err
		}
		b := btx.Bucket([]byte(BucketPayrollRuns))
		k := key(run.CompanyID, run.Period)
		if b.Get(k) != nil {
			return fmt.Errorf("%s/%s: %w", run.CompanyID, run.Period, model.ErrPayrollRunExists)
		}
		return putJSON(b, k, run)
	})
}

// CompletePayrollRun attaches the posted transaction IDs to a reserved run.
func (s *Store) CompletePayrollRun(ctx context.Context, companyID, period string, txIDs []string) error {
	return s.update(ctx, "completing payroll "+companyID+"/"+period, func(btx *bolt.Tx) error {
		b := btx.Bucket([]byte(BucketPayrollRuns))
		var run model.PayrollRun
		if err := getJSON(b, key(companyID, period), &run); err != nil {
			return err
		}
		run.TransactionIDs = txIDs
		return putJSON(b, key(companyID, period), run)
	})
}

// ReleasePayrollRun drops a reservation that posted nothing. A completed
// run cannot be released.
func (s *Store) ReleasePayrollRun(ctx context.Context, companyID, period string) error {
	return s.update(ctx, "releasing payroll "+companyID+"/"+period, func(btx *bolt.Tx) error {
		b := btx.Bucket([]byte(BucketPayrollRuns))
		var run model.PayrollRun
		if err := getJSON(b, key(companyID, period), &run); err != nil {
			return err
		}
		if len(run.TransactionIDs) > 0 {
			return fmt.Errorf("payroll %s/%s: %w", companyID, period, model.ErrImmutable)
		}
		return b.Delete(key(companyID, period))
	})
}

// PayrollRun returns the run of a period or model.ErrNotFound.
func (s *Store) PayrollRun(ctx context.Context, companyID, period string) (model.PayrollRun, error) {
	var run model.PayrollRun
	err := s.view(ctx, "reading payroll "+companyID+"/"+period, func(btx *bolt.Tx) error {
		return getJSON(btx.Bucket([]byte(BucketPayrollRuns)), key(companyID, period), &run)
	})
	return run, err
}

// PayrollRunExists reports whether payroll has been run for a period.
func (s *Store) PayrollRunExists(ctx context.Context, companyID, period string) (bool, error) {
	_, err := s.PayrollRun(ctx, companyID, period)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, model.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
