package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
)

// MonthSummary is one month of the income/expense report.
type MonthSummary struct {
	Period  string          `json:"period"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Profit  decimal.Decimal `json:"profit"`
}

// CategoryShare is one category's share of a direction's total.
type CategoryShare struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
}

// OpenTotal counts unpaid entries and sums what is still owed.
type OpenTotal struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Unpaid splits unpaid entries into what customers owe and what the company owes.
type Unpaid struct {
	Receivable OpenTotal `json:"receivable"`
	Payable    OpenTotal `json:"payable"`
}

// Uncategorized labels entries without a category.
const Uncategorized = "uncategorized"

// entryAmount is the amount an entry contributes to profit: its net amount,
// or the total when no net amount was recorded.
func entryAmount(e model.FinancialEntry) decimal.Decimal {
	if !e.Net.IsZero() {
		return e.Net
	}
	return e.Total
}

// MonthlyBreakdown returns twelve months of income, expense and profit for year.
func MonthlyBreakdown(entries []model.FinancialEntry, year int) []MonthSummary {
	months := make([]MonthSummary, 12)
	for i, p := range id.PeriodsOfYear(year) {
		months[i] = MonthSummary{Period: p, Income: decimal.Zero, Expense: decimal.Zero, Profit: decimal.Zero}
	}

	for _, e := range entries {
		if e.Date.Year() != year {
			continue
		}
		m := &months[int(e.Date.Month())-1]
		switch e.Direction {
		case model.DirectionIncome:
			m.Income = m.Income.Add(entryAmount(e))
		case model.DirectionExpense:
			m.Expense = m.Expense.Add(entryAmount(e))
		}
	}

	for i := range months {
		months[i].Income = Round2(months[i].Income)
		months[i].Expense = Round2(months[i].Expense)
		months[i].Profit = Round2(months[i].Income.Sub(months[i].Expense))
	}
	return months
}

// CategoryBreakdown groups entries of one direction by category, largest first.
func CategoryBreakdown(entries []model.FinancialEntry, dir model.Direction) []CategoryShare {
	byCat := make(map[string]*CategoryShare)
	total := decimal.Zero
	for _, e := range entries {
		if e.Direction != dir {
			continue
		}
		cat := e.Category
		if cat == "" {
			cat = Uncategorized
		}
		share, ok := byCat[cat]
		if !ok {
			share = &CategoryShare{Category: cat, Amount: decimal.Zero}
			byCat[cat] = share
		}
		amt := entryAmount(e)
		share.Count++
		share.Amount = share.Amount.Add(amt)
		total = total.Add(amt)
	}

	out := make([]CategoryShare, 0, len(byCat))
	for _, share := range byCat {
		share.Amount = Round2(share.Amount)
		share.Percent = decimal.Zero
		if total.IsPositive() {
			share.Percent = Round2(share.Amount.Div(total).Mul(hundred))
		}
		out = append(out, *share)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// UnpaidSummary sums the open amounts of unpaid entries by direction.
func UnpaidSummary(entries []model.FinancialEntry) Unpaid {
	u := Unpaid{
		Receivable: OpenTotal{Amount: decimal.Zero},
		Payable:    OpenTotal{Amount: decimal.Zero},
	}
	for _, e := range entries {
		rest := e.Unpaid()
		if !rest.IsPositive() {
			continue
		}
		switch e.Direction {
		case model.DirectionIncome:
			u.Receivable.Count++
			u.Receivable.Amount = u.Receivable.Amount.Add(rest)
		case model.DirectionExpense:
			u.Payable.Count++
			u.Payable.Amount = u.Payable.Amount.Add(rest)
		}
	}
	u.Receivable.Amount = Round2(u.Receivable.Amount)
	u.Payable.Amount = Round2(u.Payable.Amount)
	return u
}
