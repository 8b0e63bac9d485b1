package rules

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/ucto/internal/model"
)

// Document rule codes.
const (
	CodeDocInvalidAmount   = "DOC_INVALID_AMOUNT"
	CodeDocMissingDate     = "DOC_MISSING_DATE"
	CodeDocLowConfAmount   = "DOC_LOW_CONFIDENCE_AMOUNT"
	CodeDocLowConfSupplier = "DOC_LOW_CONFIDENCE_SUPPLIER"
	CodeDocMissingTaxID    = "DOC_MISSING_TAX_ID"
	CodeDocMissingNumber   = "DOC_MISSING_NUMBER"
	CodeDocSuggestTemplate = "DOC_SUGGEST_TEMPLATE"
)

func (e *Engine) document(doc Document) []model.RuleHit {
	var hits []model.RuleHit

	if doc.Amount == nil || !doc.Amount.IsPositive() {
		hits = append(hits, block(CodeDocInvalidAmount,
			"The document has no positive amount.",
			"Enter the total amount shown on the document.", "amount"))
	}
	if doc.IssueDate == nil || doc.IssueDate.IsZero() {
		hits = append(hits, block(CodeDocMissingDate,
			"The document has no issue date.",
			"Enter the issue date shown on the document.", "issue_date"))
	}
	if doc.AmountConfidence != nil && *doc.AmountConfidence < e.lowConfidence {
		hits = append(hits, warn(CodeDocLowConfAmount,
			fmt.Sprintf("The amount was read with low confidence (%.0f%%).", *doc.AmountConfidence*100),
			"Check the amount against the original document.", "amount"))
	}
	if doc.SupplierConfidence != nil && *doc.SupplierConfidence < e.lowConfidence {
		hits = append(hits, warn(CodeDocLowConfSupplier,
			fmt.Sprintf("The supplier was read with low confidence (%.0f%%).", *doc.SupplierConfidence*100),
			"Check the supplier name against the original document.", "supplier_name"))
	}
	if strings.TrimSpace(doc.SupplierName) != "" && strings.TrimSpace(doc.SupplierTaxID) == "" {
		hits = append(hits, warn(CodeDocMissingTaxID,
			fmt.Sprintf("Supplier %q has no tax ID.", doc.SupplierName),
			"Look up the supplier's IČO/DIČ in the business register.", "supplier_tax_id"))
	}
	if strings.TrimSpace(doc.Number) == "" {
		hits = append(hits, warn(CodeDocMissingNumber,
			"The document has no number.",
			"Enter the invoice or receipt number so the payment can be matched.", "number"))
	}

	if len(hits) == 0 {
		hits = append(hits, info(CodeDocSuggestTemplate,
			"The document is complete.",
			fmt.Sprintf("Post it with the %q template.", model.TemplateInvoiceReceived), ""))
	}
	return hits
}
