// Package tax computes corporate income tax, dividend withholding and the
// income/expense reports derived from them. All functions are pure.
package tax

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/model"
)

// DefaultCorporateRate applies when no bracket matches a malformed bracket table.
var DefaultCorporateRate = decimal.RequireFromString("0.21")

var hundred = decimal.NewFromInt(100)

// Rate is the corporate tax rate selected for an income level.
type Rate struct {
	Rate  decimal.Decimal
	Label string
	// Bracket is the index into the ascending bracket table, or -1 when the
	// rate did not come from a bracket.
	Bracket int
}

// CorporateRate selects the corporate tax rate for a year's income.
//
// In AUTO_BRACKETS mode the brackets are cumulative revenue ceilings: the
// first bracket (in ascending order) whose ceiling is unbounded or at least
// income supplies a single rate for the whole tax base. Brackets are not
// marginal slabs.
func CorporateRate(income decimal.Decimal, s model.TaxSettings) Rate {
	if s.CorporateTaxMode != model.TaxModeAutoBrackets {
		return Rate{
			Rate:    s.CorporateTaxFixedRate,
			Label:   fmt.Sprintf("fixed %s%%", percent(s.CorporateTaxFixedRate)),
			Bracket: -1,
		}
	}

	for i, b := range sortedBrackets(s.CorporateBrackets) {
		if b.UpToRevenue == nil {
			return Rate{Rate: b.Rate, Label: fmt.Sprintf("%s%% (no revenue ceiling)", percent(b.Rate)), Bracket: i}
		}
		if b.UpToRevenue.GreaterThanOrEqual(income) {
			return Rate{
				Rate:    b.Rate,
				Label:   fmt.Sprintf("%s%% (revenue up to %s)", percent(b.Rate), b.UpToRevenue.StringFixed(2)),
				Bracket: i,
			}
		}
	}

	return Rate{
		Rate:    DefaultCorporateRate,
		Label:   fmt.Sprintf("%s%% (default, no bracket matched)", percent(DefaultCorporateRate)),
		Bracket: -1,
	}
}

// sortedBrackets returns a copy ordered by ceiling with unbounded brackets last.
func sortedBrackets(in []model.TaxBracket) []model.TaxBracket {
	out := append([]model.TaxBracket(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].UpToRevenue, out[j].UpToRevenue
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.LessThan(*b)
		}
	})
	return out
}

// Validate reports malformed settings as a *model.ConfigError.
func Validate(s model.TaxSettings) error {
	if err := checkRate("corporate_tax_fixed_rate", s.CorporateTaxFixedRate); err != nil && s.CorporateTaxMode == model.TaxModeFixed {
		return err
	}
	if err := checkRate("dividend_withholding_rate", s.DividendWithholdingRate); err != nil {
		return err
	}
	if s.LossCarryforward.IsNegative() {
		return &model.ConfigError{Field: "loss_carryforward", Reason: "must not be negative"}
	}

	switch s.CorporateTaxMode {
	case model.TaxModeFixed:
		return nil
	case model.TaxModeAutoBrackets:
	default:
		return &model.ConfigError{Field: "corporate_tax_mode", Reason: fmt.Sprintf("unknown mode %q", s.CorporateTaxMode)}
	}

	if len(s.CorporateBrackets) == 0 {
		return &model.ConfigError{Field: "corporate_brackets", Reason: "AUTO_BRACKETS mode needs at least one bracket"}
	}
	last := len(s.CorporateBrackets) - 1
	for i, b := range s.CorporateBrackets {
		field := fmt.Sprintf("corporate_brackets[%d]", i)
		if err := checkRate(field+".rate", b.Rate); err != nil {
			return err
		}
		if b.UpToRevenue == nil {
			if i != last {
				return &model.ConfigError{Field: field, Reason: "only the last bracket may be unbounded"}
			}
			continue
		}
		if i == last {
			return &model.ConfigError{Field: field, Reason: "the last bracket must be unbounded"}
		}
		if i > 0 && !b.UpToRevenue.GreaterThan(*s.CorporateBrackets[i-1].UpToRevenue) {
			return &model.ConfigError{Field: field, Reason: "brackets must be in ascending order"}
		}
	}
	return nil
}

func checkRate(field string, r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return &model.ConfigError{Field: field, Reason: fmt.Sprintf("rate %s outside [0, 1]", r.String())}
	}
	return nil
}

func percent(rate decimal.Decimal) string {
	return rate.Mul(hundred).String()
}
