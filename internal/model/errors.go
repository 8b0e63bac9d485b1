package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrTransient marks store or service failures the caller may retry.
	ErrTransient = errors.New("transient I/O failure")

	ErrPeriodLocked     = errors.New("period is locked")
	ErrImmutable        = errors.New("transaction lines are immutable once posted")
	ErrSystemAccount    = errors.New("system accounts cannot be deleted")
	ErrAccountInUse     = errors.New("account is referenced by a posted transaction")
	ErrPayrollRunExists = errors.New("payroll run already exists for period")
)

// ConfigError reports malformed or missing configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// InvariantViolation reports a posted transaction that breaks a ledger invariant.
// It indicates a bug in whatever produced the transaction and must not be ignored.
type InvariantViolation struct {
	TransactionID string
	Detail        string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("ledger invariant violated by %s: %s", e.TransactionID, e.Detail)
}

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
