package store

import (
	"context"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
)

// IsLocked reports whether a period is locked. A period that was never
// locked has no record and is unlocked.
func (s *Store) IsLocked(ctx context.Context, companyID, period string) (bool, error) {
	var locked bool
	err := s.view(ctx, "reading lock "+companyID+"/"+period, func(btx *bolt.Tx) error {
		l, err := readLock(btx, companyID, period)
		if err != nil {
			return err
		}
		locked = l.Status == model.LockLocked
		return nil
	})
	return locked, err
}

// PeriodLock returns the lock record of a period or model.ErrNotFound.
func (s *Store) PeriodLock(ctx context.Context, companyID, period string) (model.PeriodLock, error) {
	var l model.PeriodLock
	err := s.view(ctx, "reading lock "+companyID+"/"+period, func(btx *bolt.Tx) error {
		return getJSON(btx.Bucket([]byte(BucketLocks)), key(companyID, period), &l)
	})
	return l, err
}

// Lock closes a period. Posted transactions dated in it become LOCKED.
// Locking an already locked period is a no-op.
func (s *Store) Lock(ctx context.Context, companyID, period, by string) error {
	return s.setLock(ctx, companyID, period, by, model.LockLocked)
}

// Unlock reopens a period. Its transactions stay LOCKED and keep their lines.
func (s *Store) Unlock(ctx context.Context, companyID, period, by string) error {
	return s.setLock(ctx, companyID, period, by, model.LockUnlocked)
}

func (s *Store) setLock(ctx context.Context, companyID, period, by string, status model.LockStatus) error {
	if err := checkCompany(companyID); err != nil {
		return err
	}
	if _, _, err := id.ParsePeriod(period); err != nil {
		return &model.ConfigError{Field: "period", Reason: err.Error()}
	}

	changed := false
	err := s.update(ctx, fmt.Sprintf("setting lock %s/%s", companyID, period), func(btx *bolt.Tx) error {
		cur, err := readLock(btx, companyID, period)
		if err != nil {
			return err
		}
		if cur.Status == status {
			return nil
		}
		changed = true

		l := model.PeriodLock{CompanyID: companyID, Period: period, Status: status, ChangedAt: s.clock.Now(), ChangedBy: by}
		if err := putJSON(btx.Bucket([]byte(BucketLocks)), key(companyID, period), l); err != nil {
			return err
		}
		if status != model.LockLocked {
			return nil
		}

		b := btx.Bucket([]byte(BucketTransactions))
		var posted []model.Transaction
		err = scan(btx, BucketTransactions, companyID, func(tx model.Transaction) error {
			if tx.Period == period && tx.Status == model.StatusPosted {
				posted = append(posted, tx)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, tx := range posted {
			tx.Status = model.StatusLocked
			if err := putJSON(b, key(companyID, tx.ID), tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		s.notify(companyID)
	}
	return nil
}

// LockedPeriods counts the locked periods of a calendar year.
func (s *Store) LockedPeriods(ctx context.Context, companyID string, year int) (int, error) {
	n := 0
	err := s.view(ctx, "counting locked periods of "+companyID, func(btx *bolt.Tx) error {
		for _, p := range id.PeriodsOfYear(year) {
			l, err := readLock(btx, companyID, p)
			if err != nil {
				return err
			}
			if l.Status == model.LockLocked {
				n++
			}
		}
		return nil
	})
	return n, err
}

// readLock returns the lock record, or an UNLOCKED record if none exists.
func readLock(btx *bolt.Tx, companyID, period string) (model.PeriodLock, error) {
	var l model.PeriodLock
	err := getJSON(btx.Bucket([]byte(BucketLocks)), key(companyID, period), &l)
	if errors.Is(err, model.ErrNotFound) {
		return model.PeriodLock{CompanyID: companyID, Period: period, Status: model.LockUnlocked}, nil
	}
	return l, err
}

func checkUnlocked(btx *bolt.Tx, companyID, period string) error {
	l, err := readLock(btx, companyID, period)
	if err != nil {
		return err
	}
	if l.Status == model.LockLocked {
		return fmt.Errorf("%s/%s: %w", companyID, period, model.ErrPeriodLocked)
	}
	return nil
}
