package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/posting"
	"github.com/cleared-dev/ucto/internal/rules"
)

const dateLayout = "2006-01-02"

func newPostCommand(opts *globalOptions) *cobra.Command {
	var direction, date, number, category, partnerID string
	var net, vat string
	var overrideReason string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Record an invoice in the register and post it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := parseEntry(direction, date, number, category, partnerID, net, vat)
			if err != nil {
				return err
			}
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runPost(cmd.Context(), cmd.OutOrStdout(), p, e, overrideReason)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "income or expense (required)")
	_ = cmd.MarkFlagRequired("direction")
	cmd.Flags().StringVar(&date, "date", "", "invoice date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("date")
	cmd.Flags().StringVar(&number, "number", "", "invoice number")
	cmd.Flags().StringVar(&category, "category", "", "report category")
	cmd.Flags().StringVar(&partnerID, "partner", "", "partner ID")
	cmd.Flags().StringVar(&net, "net", "", "amount without VAT (required)")
	_ = cmd.MarkFlagRequired("net")
	cmd.Flags().StringVar(&vat, "vat", "0", "VAT amount")
	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "accept warnings and record why")

	return cmd
}

func parseEntry(direction, date, number, category, partnerID, net, vat string) (model.FinancialEntry, error) {
	e := model.FinancialEntry{
		Direction: model.Direction(strings.ToUpper(direction)),
		Number:    number,
		Category:  category,
		PartnerID: partnerID,
	}
	var err error
	if e.Date, err = time.Parse(dateLayout, date); err != nil {
		return e, fmt.Errorf("invalid --date %q: %w", date, err)
	}
	if e.Net, err = parseDecimal("net", net); err != nil {
		return e, err
	}
	if e.VAT, err = parseDecimal("vat", vat); err != nil {
		return e, err
	}
	e.Total = e.Net.Add(e.VAT)
	return e, nil
}

func parseDecimal(flag, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	return d, nil
}

func runPost(ctx context.Context, out io.Writer, p *project, e model.FinancialEntry, overrideReason string) error {
	tx, err := posting.FromEntry(p.company(), e, p.chart)
	if err != nil {
		return err
	}
	res, err := p.engine.Validate(ctx, rules.FromTransaction(tx), p.rulesContext(id.Period(e.Date)))
	if err != nil {
		return err
	}
	if err := p.accept(out, res, rules.KindTransaction, e.Number, overrideReason); err != nil {
		return err
	}

	// The register only lists entries whose posting is in the ledger.
	if _, err := p.writer.Emit(ctx, []model.Transaction{tx}); err != nil {
		return err
	}
	if _, err := p.store.PutEntry(ctx, p.company(), e); err != nil {
		return fmt.Errorf("posted %s but not registered: %w", e.Number, err)
	}
	fmt.Fprintf(out, "Posted %s %s: %s\n", strings.ToLower(string(e.Direction)), e.Number, e.Total.StringFixed(2))
	return nil
}
