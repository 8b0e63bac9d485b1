package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
)

// PutTransaction creates or updates a transaction. Missing IDs, the period
// and the journal number are filled in, and tx is returned as stored.
//
// Writes into a locked period fail with model.ErrPeriodLocked, and changing
// the lines of a non-draft transaction fails with model.ErrImmutable.
func (s *Store) PutTransaction(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	if err := checkCompany(tx.CompanyID); err != nil {
		return tx, err
	}
	if tx.Date.IsZero() {
		return tx, &model.ConfigError{Field: "date", Reason: "transaction has no date"}
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	for i := range tx.Lines {
		if tx.Lines[i].ID == "" {
			tx.Lines[i].ID = uuid.NewString()
		}
	}
	tx.Period = id.Period(tx.Date)
	if tx.Status == "" {
		tx.Status = model.StatusDraft
	}
	if tx.Status != model.StatusDraft && tx.PostedAt == nil {
		now := s.clock.Now()
		tx.PostedAt = &now
	}

	err := s.update(ctx, "writing transaction "+tx.ID, func(btx *bolt.Tx) error {
		if err := checkUnlocked(btx, tx.CompanyID, tx.Period); err != nil {
			return err
		}

		b := btx.Bucket([]byte(BucketTransactions))
		var prev model.Transaction
		switch err := getJSON(b, key(tx.CompanyID, tx.ID), &prev); {
		case err == nil:
			if err := checkUnlocked(btx, prev.CompanyID, prev.Period); err != nil {
				return err
			}
			if !prev.Editable() && !sameLines(prev.Lines, tx.Lines) {
				return fmt.Errorf("transaction %s: %w", tx.ID, model.ErrImmutable)
			}
			if tx.Number == "" {
				tx.Number = prev.Number
			}
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		if tx.Number == "" {
			n, err := nextNumber(btx, tx.CompanyID, tx.Date)
			if err != nil {
				return err
			}
			tx.Number = n
		}
		return putJSON(b, key(tx.CompanyID, tx.ID), tx)
	})
	if err != nil {
		return tx, err
	}
	s.notify(tx.CompanyID)
	return tx, nil
}

// DeleteTransaction removes a draft transaction.
func (s *Store) DeleteTransaction(ctx context.Context, companyID, txID string) error {
	if err := checkCompany(companyID); err != nil {
		return err
	}
	err := s.update(ctx, "deleting transaction "+txID, func(btx *bolt.Tx) error {
		b := btx.Bucket([]byte(BucketTransactions))
		var prev model.Transaction
		if err := getJSON(b, key(companyID, txID), &prev); err != nil {
			return err
		}
		if err := checkUnlocked(btx, companyID, prev.Period); err != nil {
			return err
		}
		if !prev.Editable() {
			return fmt.Errorf("transaction %s is %s: %w", txID, prev.Status, model.ErrImmutable)
		}
		return b.Delete(key(companyID, txID))
	})
	if err != nil {
		return err
	}
	s.notify(companyID)
	return nil
}

// Transaction returns one transaction or model.ErrNotFound.
func (s *Store) Transaction(ctx context.Context, companyID, txID string) (model.Transaction, error) {
	var tx model.Transaction
	err := s.view(ctx, "reading transaction "+txID, func(btx *bolt.Tx) error {
		return getJSON(btx.Bucket([]byte(BucketTransactions)), key(companyID, txID), &tx)
	})
	return tx, err
}

// Transactions returns every transaction of a company ordered by date and number.
func (s *Store) Transactions(ctx context.Context, companyID string) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := s.view(ctx, "listing transactions of "+companyID, func(btx *bolt.Tx) error {
		return scan(btx, BucketTransactions, companyID, func(tx model.Transaction) error {
			txs = append(txs, tx)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].Number < txs[j].Number
	})
	return txs, nil
}

// DraftCount returns how many draft transactions are dated in period.
func (s *Store) DraftCount(ctx context.Context, companyID, period string) (int, error) {
	n := 0
	err := s.view(ctx, "counting drafts of "+companyID, func(btx *bolt.Tx) error {
		return scan(btx, BucketTransactions, companyID, func(tx model.Transaction) error {
			if tx.Period == period && tx.Status == model.StatusDraft {
				n++
			}
			return nil
		})
	})
	return n, err
}

// nextNumber returns the next journal number within the month of date.
func nextNumber(btx *bolt.Tx, companyID string, date time.Time) (string, error) {
	period := id.Period(date)
	maxSeq := 0
	err := scan(btx, BucketTransactions, companyID, func(tx model.Transaction) error {
		if tx.Period != period || tx.Number == "" {
			return nil
		}
		if _, _, seq, err := id.ParseNumber(tx.Number); err == nil && seq > maxSeq {
			maxSeq = seq
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id.FormatNumber(date.Year(), int(date.Month()), maxSeq+1), nil
}

func sameLines(a, b []model.Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.AccountCode != y.AccountCode || x.Side != y.Side || !x.Amount.Equal(y.Amount) ||
			x.PartnerID != y.PartnerID || x.Description != y.Description {
			return false
		}
	}
	return true
}
