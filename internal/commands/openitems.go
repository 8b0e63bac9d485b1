package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/openitems"
)

func newOpenItemsCommand(opts *globalOptions) *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:   "open-items",
		Short: "List partners with an open receivable or payable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if class != model.ClassReceivable && class != model.ClassPayable {
				return fmt.Errorf("--class must be %s or %s", model.ClassReceivable, model.ClassPayable)
			}
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runOpenItems(cmd.Context(), cmd.OutOrStdout(), p, class)
		},
	}

	cmd.Flags().StringVar(&class, "class", model.ClassReceivable, "account class: 311 receivables, 321 payables")

	return cmd
}

func runOpenItems(ctx context.Context, out io.Writer, p *project, class string) error {
	open, err := p.matcher.OpenItems(ctx, p.company(), class)
	if err != nil {
		return err
	}
	items := openitems.Sorted(open)
	for _, it := range items {
		fmt.Fprintf(out, "%-20s %12s\n", it.PartnerID, it.Balance.StringFixed(2))
	}
	fmt.Fprintf(out, "%d open item(s) on %s\n", len(items), class)
	return nil
}
