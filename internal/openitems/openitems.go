// Package openitems derives partner balances (the saldokonto) from posted
// transactions and builds bank-pairing candidates from them.
package openitems

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/ledger"
	"github.com/cleared-dev/ucto/internal/model"
)

// Compute sums the partner balances of one account class over all non-draft
// transactions. Receivable classes grow on MD, payable classes on D. Lines
// without a partner cannot be matched and are ignored.
func Compute(txs []model.Transaction, class string) map[string]decimal.Decimal {
	grow := model.SideMD
	if model.IsPayable(class) {
		grow = model.SideD
	}

	balances := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Status == model.StatusDraft {
			continue
		}
		for _, line := range tx.Lines {
			if line.PartnerID == "" || !model.InClass(line.AccountCode, class) {
				continue
			}
			amt := line.Amount
			if line.Side != grow {
				amt = amt.Neg()
			}
			balances[line.PartnerID] = balances[line.PartnerID].Add(amt)
		}
	}
	return balances
}

// Open keeps the balances whose magnitude exceeds the rounding tolerance.
func Open(balances map[string]decimal.Decimal) map[string]decimal.Decimal {
	open := make(map[string]decimal.Decimal)
	for partner, b := range balances {
		if b.Abs().GreaterThan(ledger.Epsilon) {
			open[partner] = b
		}
	}
	return open
}

// Item is one partner's open balance.
type Item struct {
	PartnerID string
	Balance   decimal.Decimal
}

// Sorted returns balances ordered by partner ID.
func Sorted(balances map[string]decimal.Decimal) []Item {
	items := make([]Item, 0, len(balances))
	for p, b := range balances {
		items = append(items, Item{PartnerID: p, Balance: b})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].PartnerID < items[j].PartnerID })
	return items
}

// TransactionSource lists every transaction of a company.
type TransactionSource interface {
	Transactions(ctx context.Context, companyID string) ([]model.Transaction, error)
}

// Balancer returns the raw (not yet filtered) balances of a class.
type Balancer interface {
	Balances(ctx context.Context, companyID, class string) (map[string]decimal.Decimal, error)
}

// Scanner recomputes balances from a full scan on every call.
type Scanner struct {
	Source TransactionSource
}

// Balances implements Balancer.
func (s Scanner) Balances(ctx context.Context, companyID, class string) (map[string]decimal.Decimal, error) {
	txs, err := s.Source.Transactions(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions for %s: %w", companyID, err)
	}
	return Compute(txs, class), nil
}
