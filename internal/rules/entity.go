package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/model"
)

// Kind names one of the five entity kinds the engine validates.
type Kind string

const (
	KindTransaction   Kind = "transaction"
	KindDocument      Kind = "document"
	KindBankPairing   Kind = "bank_pairing"
	KindPayroll       Kind = "payroll"
	KindPeriodClosing Kind = "period_closing"
)

// Entity is a candidate submitted for validation. The set of implementations
// is closed: Transaction, Document, BankPairing, Payroll and PeriodClosing.
type Entity interface {
	Kind() Kind
	sealed()
}

// Transaction is a proposed ledger transaction.
type Transaction struct {
	Description string
	Lines       []model.Line
	TemplateID  string
}

// FromTransaction builds a candidate from a stored or generated transaction.
func FromTransaction(tx model.Transaction) Transaction {
	return Transaction{Description: tx.Description, Lines: tx.Lines, TemplateID: tx.TemplateID}
}

// Document is an uploaded invoice or receipt, usually pre-filled by extraction.
// A nil confidence means the field was entered by hand.
type Document struct {
	Amount             *decimal.Decimal
	IssueDate          *time.Time
	Number             string
	SupplierName       string
	SupplierTaxID      string
	AmountConfidence   *float64
	SupplierConfidence *float64
}

// BankPairing proposes settling a partner's open item with a bank movement.
type BankPairing struct {
	MovementAmount    decimal.Decimal
	OpenItemRemaining decimal.Decimal
	HasOpenItem       bool
	PartnerID         string
	Note              string
}

// Payroll is a request to run payroll for a period.
type Payroll struct {
	Period                 string
	GrossSalary            decimal.Decimal
	RunExists              bool
	HasConfig              bool
	AutoCreateTransactions bool
}

// PeriodClosing is a request to lock a period.
type PeriodClosing struct {
	Period            string
	AlreadyLocked     bool
	InboxPending      int
	DraftTransactions int
	OpenReceivables   int
	OpenPayables      int
}

func (Transaction) Kind() Kind   { return KindTransaction }
func (Document) Kind() Kind      { return KindDocument }
func (BankPairing) Kind() Kind   { return KindBankPairing }
func (Payroll) Kind() Kind       { return KindPayroll }
func (PeriodClosing) Kind() Kind { return KindPeriodClosing }

func (Transaction) sealed()   {}
func (Document) sealed()      {}
func (BankPairing) sealed()   {}
func (Payroll) sealed()       {}
func (PeriodClosing) sealed() {}
