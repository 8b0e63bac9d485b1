// Package extract turns the output of a document extraction service into a
// Document candidate for the rule engine.
package extract

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/rules"
)

// Field is one extracted value with the extractor's confidence in [0, 1].
type Field struct {
	Value      string  `json:"value" yaml:"value"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Result holds the fields an extractor found on an invoice or receipt.
// A zero Field means the extractor found nothing.
type Result struct {
	Amount        Field `json:"amount" yaml:"amount"`
	IssueDate     Field `json:"issue_date" yaml:"issue_date"`
	Number        Field `json:"number" yaml:"number"`
	SupplierName  Field `json:"supplier_name" yaml:"supplier_name"`
	SupplierTaxID Field `json:"supplier_tax_id" yaml:"supplier_tax_id"`
}

// Extractor reads a scanned document. Implementations live outside this module.
type Extractor interface {
	Extract(ctx context.Context, fileName string, content io.Reader) (Result, error)
}

var dateLayouts = []string{"2006-01-02", "02.01.2006", "2.1.2006", "02/01/2006"}

// ToDocument converts an extraction result. Values that do not parse are
// left nil so that the document rules report them as missing.
func ToDocument(r Result) rules.Document {
	doc := rules.Document{
		Number:        strings.TrimSpace(r.Number.Value),
		SupplierName:  strings.TrimSpace(r.SupplierName.Value),
		SupplierTaxID: strings.TrimSpace(r.SupplierTaxID.Value),
	}
	if amt, ok := ParseAmount(r.Amount.Value); ok {
		doc.Amount = &amt
		c := r.Amount.Confidence
		doc.AmountConfidence = &c
	}
	if d, ok := ParseDate(r.IssueDate.Value); ok {
		doc.IssueDate = &d
	}
	if doc.SupplierName != "" {
		c := r.SupplierName.Confidence
		doc.SupplierConfidence = &c
	}
	return doc
}

// LowestConfidence returns the smallest confidence among the fields that
// carry a value, or 1 when none do.
func LowestConfidence(r Result) float64 {
	lowest := 1.0
	for _, f := range []Field{r.Amount, r.IssueDate, r.Number, r.SupplierName, r.SupplierTaxID} {
		if strings.TrimSpace(f.Value) != "" && f.Confidence < lowest {
			lowest = f.Confidence
		}
	}
	return lowest
}

// ParseAmount accepts "1234.50", "1 234,50" and "1234,50 EUR".
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "EUR")
	s = strings.TrimSuffix(s, "€")
	s = strings.NewReplacer(" ", "", "\u00a0", "").Replace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDate accepts ISO and Slovak day-first dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
