package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/tax"
)

func newTaxCommand(opts *globalOptions) *cobra.Command {
	var year int
	var deductible, payout string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Compute corporate income tax and dividend withholding for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payoutPct, err := parseDecimal("payout", payout)
			if err != nil {
				return err
			}
			if payoutPct.IsNegative() || payoutPct.GreaterThan(decimal.NewFromInt(100)) {
				return fmt.Errorf("--payout must be between 0 and 100")
			}
			var deductibleAmt *decimal.Decimal
			if deductible != "" {
				d, err := parseDecimal("deductible", deductible)
				if err != nil {
					return err
				}
				deductibleAmt = &d
			}

			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runTax(cmd.Context(), cmd.OutOrStdout(), p, year, deductibleAmt, payoutPct, asJSON)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "tax year")
	cmd.Flags().StringVar(&deductible, "deductible", "", "tax-deductible expenses (default all expenses)")
	cmd.Flags().StringVar(&payout, "payout", "0", "percent of profit after tax paid out as dividends")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

// taxSettings prefers the configuration file and falls back to the settings
// recorded in the store.
func (p *project) taxSettings(ctx context.Context, year int) (model.TaxSettings, error) {
	ts, cfgErr := p.cfg.TaxFor(year)
	if cfgErr == nil {
		return ts, nil
	}
	ts, err := p.store.TaxSettings(ctx, p.company(), year)
	if errors.Is(err, model.ErrNotFound) {
		return ts, cfgErr
	}
	if err != nil {
		return ts, err
	}
	return ts, tax.Validate(ts)
}

func runTax(ctx context.Context, out io.Writer, p *project, year int, deductible *decimal.Decimal, payout decimal.Decimal, asJSON bool) error {
	settings, err := p.taxSettings(ctx, year)
	if err != nil {
		return err
	}
	entries, err := p.store.Entries(ctx, p.company())
	if err != nil {
		return err
	}

	in := tax.Input{Income: decimal.Zero, Expense: decimal.Zero, DividendPayoutPercent: payout}
	for _, m := range tax.MonthlyBreakdown(entries, year) {
		in.Income = in.Income.Add(m.Income)
		in.Expense = in.Expense.Add(m.Expense)
	}
	in.DeductibleExpenses = in.Expense
	if deductible != nil {
		in.DeductibleExpenses = *deductible
	}

	res := tax.Calculate(in, settings)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	rows := []struct {
		label string
		value decimal.Decimal
	}{
		{"Income", in.Income},
		{"Expense", in.Expense},
		{"Profit before tax", res.ProfitBeforeTax},
		{"Tax base", res.TaxBase},
		{"Corporate tax", res.CorporateTax},
		{"Profit after tax", res.ProfitAfterTax},
		{"Dividend payout", res.DividendPayout},
		{"Dividend tax", res.DividendTax},
		{"Net dividend", res.NetDividend},
		{"Retained earnings", res.RetainedEarnings},
	}
	fmt.Fprintf(out, "Tax year %d, rate %s\n", year, res.RateLabel)
	for _, r := range rows {
		fmt.Fprintf(out, "  %-18s %14s\n", r.label, r.value.StringFixed(2))
	}
	fmt.Fprintf(out, "  %-18s %13s%%\n", "Effective rate", res.EffectiveTaxRate.StringFixed(2))
	return nil
}
