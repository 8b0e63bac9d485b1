// Package posting expands business events (invoices, payments, payroll runs)
// into balanced ledger transactions and writes them in a fixed order.
package posting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/ledger"
	"github.com/cleared-dev/ucto/internal/model"
)

// ErrInvalidEntry is returned when an event cannot be posted as given.
var ErrInvalidEntry = errors.New("invalid entry")

// Chart resolves account codes. *accounts.Service satisfies it.
type Chart interface {
	Get(code string) (model.Account, bool)
}

type builder struct {
	tx model.Transaction
}

func newTransaction(companyID, templateID, description string, date time.Time) *builder {
	return &builder{tx: model.Transaction{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Date:        date,
		Period:      id.Period(date),
		Description: description,
		Status:      model.StatusPosted,
		TemplateID:  templateID,
	}}
}

// line appends a line; zero amounts are skipped.
func (b *builder) line(account string, side model.Side, amount decimal.Decimal, partnerID string) *builder {
	if amount.IsZero() {
		return b
	}
	b.tx.Lines = append(b.tx.Lines, model.Line{
		ID:          uuid.NewString(),
		AccountCode: account,
		Side:        side,
		Amount:      amount,
		PartnerID:   partnerID,
	})
	return b
}

// done checks the accounts against chart and the result against the ledger
// invariants. An unbalanced result is a bug in the template.
func (b *builder) done(chart Chart) (model.Transaction, error) {
	if chart != nil {
		for _, l := range b.tx.Lines {
			acct, ok := chart.Get(l.AccountCode)
			if !ok || !acct.Active {
				return model.Transaction{}, &model.ConfigError{
					Field:  "accounts." + l.AccountCode,
					Reason: fmt.Sprintf("template %s needs an active account %s", b.tx.TemplateID, l.AccountCode),
				}
			}
		}
	}
	if err := ledger.Verify(b.tx); err != nil {
		return model.Transaction{}, err
	}
	return b.tx, nil
}

// FromEntry posts an invoice from the register. Issued invoices debit the
// receivable and credit sales and VAT; received invoices debit services and
// VAT and credit the payable. A zero VAT amount omits the VAT line.
func FromEntry(companyID string, e model.FinancialEntry, chart Chart) (model.Transaction, error) {
	if !e.Total.IsPositive() || e.Net.IsNegative() || e.VAT.IsNegative() {
		return model.Transaction{}, fmt.Errorf("entry %s: amounts must be positive: %w", e.Number, ErrInvalidEntry)
	}
	if e.Net.Add(e.VAT).Sub(e.Total).Abs().GreaterThan(ledger.Epsilon) {
		return model.Transaction{}, fmt.Errorf("entry %s: net %s + VAT %s != total %s: %w",
			e.Number, e.Net.StringFixed(2), e.VAT.StringFixed(2), e.Total.StringFixed(2), ErrInvalidEntry)
	}
	if e.Date.IsZero() {
		return model.Transaction{}, fmt.Errorf("entry %s: no date: %w", e.Number, ErrInvalidEntry)
	}

	switch e.Direction {
	case model.DirectionIncome:
		return newTransaction(companyID, model.TemplateInvoiceIssued, "Issued invoice "+e.Number, e.Date).
			line(model.ClassReceivable, model.SideMD, e.Total, e.PartnerID).
			line(model.ClassSales, model.SideD, e.Net, "").
			line(model.ClassVAT, model.SideD, e.VAT, "").
			done(chart)
	case model.DirectionExpense:
		return newTransaction(companyID, model.TemplateInvoiceReceived, "Received invoice "+e.Number, e.Date).
			line(model.ClassServices, model.SideMD, e.Net, "").
			line(model.ClassVAT, model.SideMD, e.VAT, "").
			line(model.ClassPayable, model.SideD, e.Total, e.PartnerID).
			done(chart)
	default:
		return model.Transaction{}, fmt.Errorf("entry %s: unknown direction %q: %w", e.Number, e.Direction, ErrInvalidEntry)
	}
}

// FromMovement posts a paired bank movement. Incoming money settles the
// partner's receivable, outgoing money their payable.
func FromMovement(companyID string, mv model.BankMovement, partnerID string, chart Chart) (model.Transaction, error) {
	if mv.Amount.IsZero() {
		return model.Transaction{}, fmt.Errorf("movement %s: zero amount: %w", mv.ID, ErrInvalidEntry)
	}
	desc := "Payment " + mv.Description
	if mv.VariableSymbol != "" {
		desc = "Payment VS " + mv.VariableSymbol
	}
	amount := mv.Amount.Abs()

	if mv.Amount.IsPositive() {
		return newTransaction(companyID, model.TemplatePaymentReceived, desc, mv.Date).
			line(model.ClassBank, model.SideMD, amount, "").
			line(model.ClassReceivable, model.SideD, amount, partnerID).
			done(chart)
	}
	return newTransaction(companyID, model.TemplatePaymentSent, desc, mv.Date).
		line(model.ClassPayable, model.SideMD, amount, partnerID).
		line(model.ClassBank, model.SideD, amount, "").
		done(chart)
}
