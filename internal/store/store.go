// Package store persists a company's books in a bbolt file. Every record is
// keyed by company, and values are stored as JSON.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/ucto/internal/clock"
	"github.com/cleared-dev/ucto/internal/model"
)

// Bucket names.
const (
	BucketAccounts      = "accounts"
	BucketTransactions  = "transactions"
	BucketLocks         = "period_locks"
	BucketPayrollRuns   = "payroll_runs"
	BucketBankMovements = "bank_movements"
	BucketInbox         = "inbox"
	BucketEntries       = "entries"
	BucketSettings      = "settings"
)

var allBuckets = []string{
	BucketAccounts, BucketTransactions, BucketLocks, BucketPayrollRuns,
	BucketBankMovements, BucketInbox, BucketEntries, BucketSettings,
}

// Store wraps the bbolt database.
type Store struct {
	db      *bolt.DB
	clock   clock.Clock
	onWrite []func(companyID string)
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithWriteHook registers fn to run after every committed change to a
// company's transactions or period locks.
func WithWriteHook(fn func(companyID string)) Option {
	return func(s *Store) { s.onWrite = append(s.onWrite, fn) }
}

// Open opens (creating if needed) the database at path and its buckets.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, model.Transient("opening database "+path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, clock: clock.System{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddWriteHook registers fn after the store has been opened.
func (s *Store) AddWriteHook(fn func(companyID string)) {
	s.onWrite = append(s.onWrite, fn)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) notify(companyID string) {
	for _, fn := range s.onWrite {
		fn(companyID)
	}
}

// key builds the company-scoped key "<company>/<id>".
func key(companyID, id string) []byte {
	return []byte(companyID + "/" + id)
}

func prefix(companyID string) []byte {
	return []byte(companyID + "/")
}

func checkCompany(companyID string) error {
	if companyID == "" || strings.Contains(companyID, "/") {
		return &model.ConfigError{Field: "company_id", Reason: fmt.Sprintf("%q is not a valid company identifier", companyID)}
	}
	return nil
}

// view and update check ctx before touching the file; bbolt itself is not
// cancellable.
func (s *Store) view(ctx context.Context, op string, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(op, err)
	}
	return wrap(op, s.db.View(fn))
}

func (s *Store) update(ctx context.Context, op string, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(op, err)
	}
	return wrap(op, s.db.Update(fn))
}

// wrap passes domain errors through unchanged and marks everything else as
// a retryable I/O failure.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var cfgErr *model.ConfigError
	switch {
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrPeriodLocked),
		errors.Is(err, model.ErrImmutable),
		errors.Is(err, model.ErrPayrollRunExists),
		errors.As(err, &cfgErr):
		return err
	}
	return model.Transient(op, err)
}

func putJSON(b *bolt.Bucket, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", k, err)
	}
	return b.Put(k, data)
}

func getJSON(b *bolt.Bucket, k []byte, v any) error {
	data := b.Get(k)
	if data == nil {
		return model.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

// scan decodes every value of a company in bucket name, in key order.
func scan[T any](tx *bolt.Tx, name, companyID string, fn func(T) error) error {
	c := tx.Bucket([]byte(name)).Cursor()
	p := prefix(companyID)
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		var rec T
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("decoding %s: %w", k, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}
