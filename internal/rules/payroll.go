package rules

import (
	"fmt"

	"github.com/cleared-dev/ucto/internal/model"
)

// Payroll rule codes.
const (
	CodePayrollDuplicate     = "PAYROLL_DUPLICATE_RUN"
	CodePayrollInvalidGross  = "PAYROLL_INVALID_GROSS"
	CodePayrollMissingConfig = "PAYROLL_MISSING_CONFIG"
	CodePayrollAutoPosting   = "PAYROLL_AUTO_TRANSACTIONS"
)

func payroll(p Payroll) []model.RuleHit {
	var hits []model.RuleHit

	if p.RunExists {
		hits = append(hits, block(CodePayrollDuplicate,
			fmt.Sprintf("Payroll for %s has already been run.", p.Period),
			"Correct the existing payroll run instead of creating a second one.", "period"))
	}
	if !p.GrossSalary.IsPositive() {
		hits = append(hits, block(CodePayrollInvalidGross,
			"Gross salary must be positive.",
			"Enter the gross salary for the period.", "gross_salary"))
	}
	if !p.HasConfig {
		hits = append(hits, warn(CodePayrollMissingConfig,
			"No payroll configuration found; default contribution rates will be used.",
			"Set the insurance and tax rates in the payroll settings.", "config"))
	}
	if p.AutoCreateTransactions {
		hits = append(hits, info(CodePayrollAutoPosting,
			"Four ledger transactions will be posted automatically: wages, withholdings, employer contributions and net pay.",
			"", ""))
	}
	return hits
}
