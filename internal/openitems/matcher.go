package openitems

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/rules"
)

// Matcher answers open-item questions for the rule engine and the CLI.
type Matcher struct {
	balances Balancer
}

// NewMatcher creates a Matcher. Pass a *Cache or a Scanner.
func NewMatcher(b Balancer) *Matcher {
	return &Matcher{balances: b}
}

// OpenItems returns the open balances of class for a company.
func (m *Matcher) OpenItems(ctx context.Context, companyID, class string) (map[string]decimal.Decimal, error) {
	b, err := m.balances.Balances(ctx, companyID, class)
	if err != nil {
		return nil, err
	}
	return Open(b), nil
}

// OpenCount returns how many partners have an open balance in class.
func (m *Matcher) OpenCount(ctx context.Context, companyID, class string) (int, error) {
	open, err := m.OpenItems(ctx, companyID, class)
	if err != nil {
		return 0, err
	}
	return len(open), nil
}

// Pairing builds the candidate for settling partnerID's open item with a
// bank movement. Incoming money settles receivables, outgoing money payables.
// A balance in the partner's favour (an advance) is not an open item.
func (m *Matcher) Pairing(ctx context.Context, companyID string, mv model.BankMovement, partnerID, note string) (rules.BankPairing, error) {
	p := rules.BankPairing{MovementAmount: mv.Amount, PartnerID: partnerID, Note: note}
	if partnerID == "" {
		return p, nil
	}

	class := model.ClassReceivable
	if mv.Amount.IsNegative() {
		class = model.ClassPayable
	}
	open, err := m.OpenItems(ctx, companyID, class)
	if err != nil {
		return rules.BankPairing{}, err
	}
	if b, ok := open[partnerID]; ok && b.IsPositive() {
		p.HasOpenItem = true
		p.OpenItemRemaining = b
	}
	return p, nil
}
