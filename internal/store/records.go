package store

import (
	"bytes"
	"context"
	"strconv"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/ucto/internal/model"
)

// PutAccounts replaces the stored chart of accounts of a company.
func (s *Store) PutAccounts(ctx context.Context, companyID string, accounts []model.Account) error {
	if err := checkCompany(companyID); err != nil {
		return err
	}
	return s.update(ctx, "writing accounts of "+companyID, func(btx *bolt.Tx) error {
		b := btx.Bucket([]byte(BucketAccounts))
		var stale [][]byte
		c := b.Cursor()
		p := prefix(companyID)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		for _, a := range accounts {
			if err := putJSON(b, key(companyID, a.Code), a); err != nil {
				return err
			}
		}
		return nil
	})
}

// Accounts returns a company's chart of accounts in code order.
func (s *Store) Accounts(ctx context.Context, companyID string) ([]model.Account, error) {
	var out []model.Account
	err := s.view(ctx, "listing accounts of "+companyID, func(btx *bolt.Tx) error {
		return scan(btx, BucketAccounts, companyID, func(a model.Account) error {
			out = append(out, a)
			return nil
		})
	})
	return out, err
}

// PutBankMovements stores imported movements. Movements without an ID get
// one; movements already stored are kept as they are, so re-importing a
// statement does not undo pairings.
func (s *Store) PutBankMovements(ctx context.Context, companyID string, mvs []model.BankMovement) error {
	if err := checkCompany(companyID); err != nil {
		return err
	}
	return s.update(ctx, "writing bank movements of "+companyID, func(btx *bolt.Tx) error {
		b := btx.Bucket([]byte(BucketBankMovements))
		for _, mv := range mvs {
			mv.CompanyID = companyID
			if mv.ID == "" {
				mv.ID = uuid.NewString()
			}
			k := key(companyID, mv.ID)
			if b.Get(k) != nil {
				continue
			}
			if err := putJSON(b, k, mv); err != nil {
				return err
			}
		}
		return nil
	})
}

// BankMovement returns one movement or model.ErrNotFound.
func (s *Store) BankMovement(ctx context.Context, companyID, movementID string) (model.BankMovement, error) {
	var mv model.BankMovement
	err := s.view(ctx, "reading bank movement "+movementID, func(btx *bolt.Tx) error {
		return getJSON(btx.Bucket([]byte(BucketBankMovements)), key(companyID, movementID), &mv)
	})
	return mv, err
}

// BankMovements lists a company's movements.
func (s *Store) BankMovements(ctx context.Context, companyID string) ([]model.BankMovement, error) {
	var out []model.BankMovement
	err := s.view(ctx, "listing bank movements of "+companyID, func(btx *bolt.Tx) error {
		return scan(btx, BucketBankMovements, companyID, func(mv model.BankMovement) error {
			out = append(out, mv)
			return nil
		})
	})
	return out, err
}

// MarkPaired records that a movement was paired with a partner's open item.
func (s *Store) MarkPaired(ctx context.Context, companyID, movementID, partnerID string) error {
	return s.update(ctx, "pairing bank movement "+movementID, func(btx *bolt.Tx) error {
		b := btx.Bucket([]byte(BucketBankMovements))
		var mv model.BankMovement
		if err := getJSON(b, key(companyID, movementID), &mv); err != nil {
			return err
		}
		mv.PartnerID = partnerID
		mv.Paired = true
		return putJSON(b, key(companyID, movementID), mv)
	})
}

// UnpairedBankMovements counts movements not yet paired.
func (s *Store) UnpairedBankMovements(ctx context.Context, companyID string) (int, error) {
	n := 0
	err := s.view(ctx, "counting unpaired movements of "+companyID, func(btx *bolt.Tx) error {
		return scan(btx, BucketBankMovements, companyID, func(mv model.BankMovement) error {
			if !mv.Paired {
				n++
			}
			return nil
		})
	})
	return n, err
}

// PutInboxItem stores an uploaded document awaiting processing.
func (s *Store) PutInboxItem(ctx context.Context, item model.InboxItem) (model.InboxItem, error) {
	if err := checkCompany(item.CompanyID); err != nil {
		return item, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.clock.Now()
	}
	err := s.update(ctx, "writing inbox item "+item.ID, func(btx *bolt.Tx) error {
		return putJSON(btx.Bucket([]byte(BucketInbox)), key(item.CompanyID, item.ID), item)
	})
	return item, err
}

// ResolveInboxItem marks a document as processed.
func (s *Store) ResolveInboxItem(ctx context.Context, companyID, itemID string) error {
	return s.update(ctx, "resolving inbox item "+itemID, func(btx *bolt.Tx) error {
		b := btx.Bucket([]byte(BucketInbox))
		var item model.InboxItem
		if err := getJSON(b, key(companyID, itemID), &item); err != nil {
			return err
		}
		item.Resolved = true
		return putJSON(b, key(companyID, itemID), item)
	})
}

func (s *Store) countInbox(ctx context.Context, companyID string, match func(model.InboxItem) bool) (int, error) {
	n := 0
	err := s.view(ctx, "counting inbox of "+companyID, func(btx *bolt.Tx) error {
		return scan(btx, BucketInbox, companyID, func(item model.InboxItem) error {
			if !item.Resolved && match(item) {
				n++
			}
			return nil
		})
	})
	return n, err
}

// InboxPending counts unresolved documents.
func (s *Store) InboxPending(ctx context.Context, companyID string) (int, error) {
	return s.countInbox(ctx, companyID, func(model.InboxItem) bool { return true })
}

// InboxPendingInPeriod counts unresolved documents of one period.
func (s *Store) InboxPendingInPeriod(ctx context.Context, companyID, period string) (int, error) {
	return s.countInbox(ctx, companyID, func(item model.InboxItem) bool { return item.Period == period })
}

// LowConfidenceDocs counts unresolved documents extracted below threshold.
func (s *Store) LowConfidenceDocs(ctx context.Context, companyID string, threshold float64) (int, error) {
	return s.countInbox(ctx, companyID, func(item model.InboxItem) bool { return item.Confidence < threshold })
}

// PutEntry stores an invoice or receipt in the register.
func (s *Store) PutEntry(ctx context.Context, companyID string, e model.FinancialEntry) (model.FinancialEntry, error) {
	if err := checkCompany(companyID); err != nil {
		return e, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	err := s.update(ctx, "writing entry "+e.ID, func(btx *bolt.Tx) error {
		return putJSON(btx.Bucket([]byte(BucketEntries)), key(companyID, e.ID), e)
	})
	return e, err
}

// Entries lists the register of a company.
func (s *Store) Entries(ctx context.Context, companyID string) ([]model.FinancialEntry, error) {
	var out []model.FinancialEntry
	err := s.view(ctx, "listing entries of "+companyID, func(btx *bolt.Tx) error {
		return scan(btx, BucketEntries, companyID, func(e model.FinancialEntry) error {
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

// PutTaxSettings stores the tax settings of one year.
func (s *Store) PutTaxSettings(ctx context.Context, companyID string, ts model.TaxSettings) error {
	if err := checkCompany(companyID); err != nil {
		return err
	}
	return s.update(ctx, "writing tax settings of "+companyID, func(btx *bolt.Tx) error {
		return putJSON(btx.Bucket([]byte(BucketSettings)), key(companyID, "tax/"+strconv.Itoa(ts.Year)), ts)
	})
}

// TaxSettings returns the settings of a year or model.ErrNotFound.
func (s *Store) TaxSettings(ctx context.Context, companyID string, year int) (model.TaxSettings, error) {
	var ts model.TaxSettings
	err := s.view(ctx, "reading tax settings of "+companyID, func(btx *bolt.Tx) error {
		return getJSON(btx.Bucket([]byte(BucketSettings)), key(companyID, "tax/"+strconv.Itoa(year)), &ts)
	})
	return ts, err
}
