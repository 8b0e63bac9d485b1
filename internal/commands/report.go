package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/tax"
)

func newReportCommand(opts *globalOptions) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the income and expense report of a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runReport(cmd.Context(), cmd.OutOrStdout(), p, year)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "report year")

	return cmd
}

func runReport(ctx context.Context, out io.Writer, p *project, year int) error {
	entries, err := p.store.Entries(ctx, p.company())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-8s %14s %14s %14s\n", "period", "income", "expense", "profit")
	for _, m := range tax.MonthlyBreakdown(entries, year) {
		fmt.Fprintf(out, "%-8s %14s %14s %14s\n", m.Period, m.Income.StringFixed(2), m.Expense.StringFixed(2), m.Profit.StringFixed(2))
	}

	var inYear []model.FinancialEntry
	for _, e := range entries {
		if e.Date.Year() == year {
			inYear = append(inYear, e)
		}
	}
	for _, dir := range []model.Direction{model.DirectionIncome, model.DirectionExpense} {
		shares := tax.CategoryBreakdown(inYear, dir)
		if len(shares) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s by category\n", dir)
		for _, s := range shares {
			fmt.Fprintf(out, "  %-20s %4d %14s %6s%%\n", s.Category, s.Count, s.Amount.StringFixed(2), s.Percent.StringFixed(2))
		}
	}

	u := tax.UnpaidSummary(entries)
	fmt.Fprintf(out, "\nUnpaid receivables: %d (%s)\n", u.Receivable.Count, u.Receivable.Amount.StringFixed(2))
	fmt.Fprintf(out, "Unpaid payables:    %d (%s)\n", u.Payable.Count, u.Payable.Amount.StringFixed(2))
	return nil
}
