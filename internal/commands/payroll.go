package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/posting"
	"github.com/cleared-dev/ucto/internal/rules"
)

func newPayrollCommand(opts *globalOptions) *cobra.Command {
	var period, gross, date, overrideReason string
	var employees int

	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Run payroll for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := id.ParsePeriod(period); err != nil {
				return err
			}
			in := posting.PayrollInput{Period: period, Employees: employees}
			var err error
			if in.GrossSalary, err = parseDecimal("gross", gross); err != nil {
				return err
			}
			if date != "" {
				if in.Date, err = time.Parse(dateLayout, date); err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
			}

			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			in.CompanyID = p.company()
			return runPayroll(cmd.Context(), cmd.OutOrStdout(), p, in, overrideReason)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "payroll period, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("period")
	cmd.Flags().StringVar(&gross, "gross", "", "total gross salary (required)")
	_ = cmd.MarkFlagRequired("gross")
	cmd.Flags().IntVar(&employees, "employees", 1, "number of employees")
	cmd.Flags().StringVar(&date, "date", "", "posting date, YYYY-MM-DD (default last day of the period)")
	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "accept warnings and record why")

	return cmd
}

func runPayroll(ctx context.Context, out io.Writer, p *project, in posting.PayrollInput, overrideReason string) error {
	cfg, hasConfig := p.cfg.PayrollConfig()
	run, err := p.writer.PlanPayroll(ctx, in, cfg, hasConfig)
	if err != nil && !errors.Is(err, posting.ErrPayrollBlocked) {
		return err
	}
	if err := p.accept(out, run.Result, rules.KindPayroll, in.Period, overrideReason); err != nil {
		return err
	}

	b := run.Breakdown
	fmt.Fprintf(out, "Gross:                  %12s\n", b.Gross.StringFixed(2))
	fmt.Fprintf(out, "Employee insurance:     %12s\n", b.EmployeeInsurance.StringFixed(2))
	fmt.Fprintf(out, "Income tax:             %12s\n", b.IncomeTax.StringFixed(2))
	fmt.Fprintf(out, "Net pay:                %12s\n", b.NetPay.StringFixed(2))
	fmt.Fprintf(out, "Employer contributions: %12s\n", b.EmployerContributions.StringFixed(2))
	if !cfg.AutoCreateTransactions {
		fmt.Fprintf(out, "Preview only: %d transaction(s) not posted\n", len(run.Transactions))
		return nil
	}

	run, err = p.writer.PostPayroll(ctx, in, run)
	if err != nil {
		if run.Written > 0 {
			fmt.Fprintf(out, "Posted %d of %d transaction(s) before failing\n", run.Written, len(run.Transactions))
		}
		return err
	}
	fmt.Fprintf(out, "Posted %d transaction(s) for %s\n", run.Written, in.Period)
	return nil
}
