package tax

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/model"
)

// Input is the yearly data a tax calculation needs.
type Input struct {
	Income             decimal.Decimal
	Expense            decimal.Decimal
	DeductibleExpenses decimal.Decimal
	// DividendPayoutPercent is 0..100 of profit after tax.
	DividendPayoutPercent decimal.Decimal
}

// Result is the full tax breakdown. Every amount is rounded to cents.
type Result struct {
	ProfitBeforeTax  decimal.Decimal `json:"profit_before_tax"`
	TaxBase          decimal.Decimal `json:"tax_base"`
	CorporateRate    decimal.Decimal `json:"corporate_rate"`
	RateLabel        string          `json:"rate_label"`
	CorporateTax     decimal.Decimal `json:"corporate_tax"`
	ProfitAfterTax   decimal.Decimal `json:"profit_after_tax"`
	DividendPayout   decimal.Decimal `json:"dividend_payout"`
	DividendTax      decimal.Decimal `json:"dividend_tax"`
	NetDividend      decimal.Decimal `json:"net_dividend"`
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
	EffectiveTaxRate decimal.Decimal `json:"effective_tax_rate"` // percent
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Calculate runs the corporate and dividend tax computation. Each step is
// rounded to cents as soon as it is computed so that results match
// previously filed reports exactly.
func Calculate(in Input, s model.TaxSettings) Result {
	pbt := Round2(in.Income.Sub(in.Expense))

	base := in.Income.Sub(in.DeductibleExpenses).Sub(s.LossCarryforward)
	if base.IsNegative() {
		base = decimal.Zero
	}
	base = Round2(base)

	rate := CorporateRate(in.Income, s)
	corporateTax := Round2(base.Mul(rate.Rate))
	pat := Round2(pbt.Sub(corporateTax))

	distributable := pat
	if distributable.IsNegative() {
		distributable = decimal.Zero
	}
	payout := Round2(distributable.Mul(in.DividendPayoutPercent).Div(hundred))
	dividendTax := Round2(payout.Mul(s.DividendWithholdingRate))

	effective := decimal.Zero
	if pbt.IsPositive() {
		effective = Round2(corporateTax.Add(dividendTax).Div(pbt).Mul(hundred))
	}

	return Result{
		ProfitBeforeTax:  pbt,
		TaxBase:          base,
		CorporateRate:    rate.Rate,
		RateLabel:        rate.Label,
		CorporateTax:     corporateTax,
		ProfitAfterTax:   pat,
		DividendPayout:   payout,
		DividendTax:      dividendTax,
		NetDividend:      Round2(payout.Sub(dividendTax)),
		RetainedEarnings: Round2(pat.Sub(payout)),
		EffectiveTaxRate: effective,
	}
}
