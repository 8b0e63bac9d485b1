package model

import "strings"

// Posting template identifiers.
const (
	TemplateInvoiceIssued   = "invoice_issued"
	TemplateInvoiceReceived = "invoice_received"
	TemplatePaymentReceived = "payment_received"
	TemplatePaymentSent     = "payment_sent"
	TemplatePayrollWages    = "payroll_wages"
	TemplatePayrollWithheld = "payroll_withholdings"
	TemplatePayrollEmployer = "payroll_employer_contributions"
	TemplatePayrollNetPay   = "payroll_net_pay"
)

// IsPaymentTemplate reports whether a template settles an open item through
// cash or bank.
func IsPaymentTemplate(templateID string) bool {
	return strings.HasPrefix(templateID, "payment")
}
