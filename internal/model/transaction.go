package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	StatusDraft  TransactionStatus = "DRAFT"
	StatusPosted TransactionStatus = "POSTED"
	StatusLocked TransactionStatus = "LOCKED"
)

// Line is one side of a double-entry transaction.
type Line struct {
	ID          string          `json:"id"`
	AccountCode string          `json:"account_code"`
	Side        Side            `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	PartnerID   string          `json:"partner_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Transaction is a set of balanced lines posted to one period.
type Transaction struct {
	ID          string            `json:"id"`
	CompanyID   string            `json:"company_id"`
	Number      string            `json:"number"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Lines       []Line            `json:"lines"`
	Status      TransactionStatus `json:"status"`
	Period      string            `json:"period"` // YYYY-MM
	TemplateID  string            `json:"template_id,omitempty"`
	PostedAt    *time.Time        `json:"posted_at,omitempty"`
}

// Editable reports whether the lines of t may still change.
func (t Transaction) Editable() bool {
	return t.Status == StatusDraft
}

// Total returns the sum of line amounts on one side.
func (t Transaction) Total(side Side) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range t.Lines {
		if l.Side == side {
			sum = sum.Add(l.Amount)
		}
	}
	return sum
}

// LockStatus is the state of a period lock.
type LockStatus string

const (
	LockLocked   LockStatus = "LOCKED"
	LockUnlocked LockStatus = "UNLOCKED"
)

// PeriodLock freezes one accounting period of a company.
type PeriodLock struct {
	CompanyID string     `json:"company_id"`
	Period    string     `json:"period"`
	Status    LockStatus `json:"status"`
	ChangedAt time.Time  `json:"changed_at"`
	ChangedBy string     `json:"changed_by,omitempty"`
}

// PayrollRun records that payroll for a period has been posted.
type PayrollRun struct {
	CompanyID      string          `json:"company_id"`
	Period         string          `json:"period"`
	GrossTotal     decimal.Decimal `json:"gross_total"`
	Employees      int             `json:"employees"`
	TransactionIDs []string        `json:"transaction_ids,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BankMovement is one row of a bank statement.
type BankMovement struct {
	ID             string          `json:"id"`
	CompanyID      string          `json:"company_id"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"` // negative = outgoing, positive = incoming
	Description    string          `json:"description"`
	Counterparty   string          `json:"counterparty,omitempty"`
	VariableSymbol string          `json:"variable_symbol,omitempty"`
	PartnerID      string          `json:"partner_id,omitempty"`
	Paired         bool            `json:"paired"`
}

// InboxItem is an uploaded document waiting to be processed.
type InboxItem struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	Period     string    `json:"period"`
	FileName   string    `json:"file_name"`
	Resolved   bool      `json:"resolved"`
	Confidence float64   `json:"confidence"` // lowest extracted-field confidence
	CreatedAt  time.Time `json:"created_at"`
}

// Direction distinguishes income from expense entries.
type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

// FinancialEntry is an invoice or receipt in the company's register.
type FinancialEntry struct {
	ID         string          `json:"id"`
	Direction  Direction       `json:"direction"`
	Date       time.Time       `json:"date"`
	Number     string          `json:"number"`
	Category   string          `json:"category"`
	PartnerID  string          `json:"partner_id"`
	Net        decimal.Decimal `json:"net"`
	VAT        decimal.Decimal `json:"vat"`
	Total      decimal.Decimal `json:"total"`
	Paid       bool            `json:"paid"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// Unpaid returns the amount still owed on the entry.
func (e FinancialEntry) Unpaid() decimal.Decimal {
	if e.Paid {
		return decimal.Zero
	}
	rest := e.Total.Sub(e.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}
