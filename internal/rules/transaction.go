package rules

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cleared-dev/ucto/internal/ledger"
	"github.com/cleared-dev/ucto/internal/model"
)

// Transaction rule codes. Structural failures reuse the ledger codes.
const (
	CodePeriodLocked     = "TRX_PERIOD_LOCKED"
	CodeLockUnknown      = "TRX_LOCK_UNKNOWN"
	CodeShortDescription = "TRX_SHORT_DESCRIPTION"
	CodeMissingPartner   = "TRX_MISSING_PARTNER"
	CodePaymentNoCash    = "TRX_PAYMENT_NO_CASH"
	CodeSuggestTemplate  = "TRX_SUGGEST_TEMPLATE"
)

const minDescriptionLen = 3

var ledgerFixes = map[string]string{
	ledger.CodeNoDebit:       "Add at least one MD line.",
	ledger.CodeNoCredit:      "Add at least one D line.",
	ledger.CodeUnbalanced:    "Adjust the amounts so that MD and D totals are equal.",
	ledger.CodeInvalidAmount: "Enter a positive amount; use the opposite side instead of a negative number.",
}

func (e *Engine) transaction(ctx context.Context, tx Transaction, rc Context) ([]model.RuleHit, error) {
	var hits []model.RuleHit

	// (a) period lock
	if rc.Period != "" && e.locks != nil {
		locked, err := e.periodLocked(ctx, rc)
		switch {
		case err != nil && !e.allowUnknownLock:
			return nil, err
		case err != nil:
			e.logger.Warn("period lock unknown, treating as unlocked", "company", rc.CompanyID, "period", rc.Period, "error", err)
			hits = append(hits, warn(CodeLockUnknown,
				fmt.Sprintf("Could not verify whether period %s is locked.", rc.Period),
				"Retry later before posting if the period may already be closed.", "period"))
		case locked:
			hits = append(hits, block(CodePeriodLocked,
				fmt.Sprintf("Period %s is locked.", rc.Period),
				"Date the transaction in an open period or ask an administrator to unlock the period.", "period"))
		}
	}

	// (b) double-entry structure
	for _, f := range ledger.CheckBalance(tx.Lines).Failures {
		hits = append(hits, block(f.Code, f.Message, ledgerFixes[f.Code], f.FieldPath))
	}

	// (c) description
	if utf8.RuneCountInString(strings.TrimSpace(tx.Description)) < minDescriptionLen {
		hits = append(hits, warn(CodeShortDescription,
			"The description is too short to identify the transaction later.",
			"Describe what the transaction is for, e.g. the invoice number and partner.", "description"))
	}

	// (d) partner on receivable/payable lines
	for i, line := range tx.Lines {
		if line.PartnerID != "" {
			continue
		}
		if model.IsReceivable(line.AccountCode) || model.IsPayable(line.AccountCode) {
			hits = append(hits, warn(CodeMissingPartner,
				fmt.Sprintf("Line %d on account %s has no partner, so it cannot be matched in the saldokonto.", i+1, line.AccountCode),
				"Select the customer or supplier for this line.", fmt.Sprintf("lines[%d].partner_id", i)))
		}
	}

	hasCash, hasBank, hasReceivable := false, false, false
	for _, line := range tx.Lines {
		hasCash = hasCash || model.IsCashOrBank(line.AccountCode)
		hasBank = hasBank || model.InClass(line.AccountCode, model.ClassBank)
		hasReceivable = hasReceivable || model.IsReceivable(line.AccountCode)
	}

	// (e) payment templates move money
	if model.IsPaymentTemplate(tx.TemplateID) && !hasCash {
		hits = append(hits, warn(CodePaymentNoCash,
			"A payment transaction has no cash or bank line.",
			"Post the payment against a 211 (cash) or 221 (bank) account.", "lines"))
	}

	// (f) template suggestion
	if hasBank && hasReceivable && tx.TemplateID == "" {
		hits = append(hits, info(CodeSuggestTemplate,
			"This looks like a customer payment received to the bank.",
			fmt.Sprintf("Use the %q template to fill in the lines automatically.", model.TemplatePaymentReceived), "template_id"))
	}

	return hits, nil
}
