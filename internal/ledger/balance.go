// Package ledger enforces the structural invariants of double-entry transactions.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/model"
)

// Failure codes reported by CheckBalance.
const (
	CodeNoDebit       = "TRX_NO_DEBIT"
	CodeNoCredit      = "TRX_NO_CREDIT"
	CodeUnbalanced    = "TRX_UNBALANCED"
	CodeInvalidAmount = "TRX_INVALID_AMOUNT"
)

// Epsilon is the monetary rounding tolerance between debit and credit totals.
// A difference of exactly one cent still balances.
var Epsilon = decimal.New(1, -2)

// Failure describes a single structural defect of a transaction.
type Failure struct {
	Code      string
	Message   string
	FieldPath string
}

func (f Failure) Error() string {
	if f.FieldPath != "" {
		return fmt.Sprintf("%s [%s]: %s", f.Code, f.FieldPath, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Report is the outcome of CheckBalance.
type Report struct {
	Balanced bool
	TotalMD  decimal.Decimal
	TotalD   decimal.Decimal
	Diff     decimal.Decimal // TotalMD - TotalD
	Failures []Failure
}

// CheckBalance runs every structural check on a set of lines and reports all
// failures together. Balanced is true only when there are no failures.
func CheckBalance(lines []model.Line) Report {
	var failures []Failure

	totalMD := decimal.Zero
	totalD := decimal.Zero
	hasMD, hasD := false, false

	for i, line := range lines {
		switch line.Side {
		case model.SideMD:
			hasMD = true
			totalMD = totalMD.Add(line.Amount)
		case model.SideD:
			hasD = true
			totalD = totalD.Add(line.Amount)
		}

		if !line.Amount.IsPositive() {
			failures = append(failures, Failure{
				Code:      CodeInvalidAmount,
				Message:   fmt.Sprintf("line amount must be positive, got %s", line.Amount.StringFixed(2)),
				FieldPath: fmt.Sprintf("lines[%d].amount", i),
			})
		}
	}

	if !hasMD {
		failures = append(failures, Failure{Code: CodeNoDebit, Message: "transaction has no MD (debit) line", FieldPath: "lines"})
	}
	if !hasD {
		failures = append(failures, Failure{Code: CodeNoCredit, Message: "transaction has no D (credit) line", FieldPath: "lines"})
	}

	diff := totalMD.Sub(totalD)
	if diff.Abs().GreaterThan(Epsilon) {
		failures = append(failures, Failure{
			Code:    CodeUnbalanced,
			Message: fmt.Sprintf("MD total (%s) != D total (%s), difference %s", totalMD.StringFixed(2), totalD.StringFixed(2), diff.Abs().StringFixed(2)),
		})
	}

	return Report{
		Balanced: len(failures) == 0,
		TotalMD:  totalMD,
		TotalD:   totalD,
		Diff:     diff,
		Failures: failures,
	}
}

// Audit re-checks every non-draft transaction. A posted transaction that fails
// CheckBalance is returned as an *model.InvariantViolation.
func Audit(txs []model.Transaction) error {
	for _, tx := range txs {
		if tx.Status == model.StatusDraft {
			continue
		}
		if err := Verify(tx); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks a single transaction and converts failures into an
// *model.InvariantViolation.
func Verify(tx model.Transaction) error {
	rep := CheckBalance(tx.Lines)
	if rep.Balanced {
		return nil
	}
	ref := tx.ID
	if ref == "" {
		ref = tx.Number
	}
	return &model.InvariantViolation{TransactionID: ref, Detail: rep.Failures[0].Error()}
}
