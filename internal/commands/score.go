package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newScoreCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Show the bookkeeping quality score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runScore(cmd.Context(), cmd.OutOrStdout(), p)
		},
	}
}

func runScore(ctx context.Context, out io.Writer, p *project) error {
	q := p.quality.Score(ctx, p.company())
	fmt.Fprintf(out, "Score: %d (%s)\n", q.Score, q.Grade)
	fmt.Fprintf(out, "  inbox pending:         %d\n", q.InboxPending)
	fmt.Fprintf(out, "  low-confidence docs:   %d\n", q.LowConfidenceDocs)
	fmt.Fprintf(out, "  unpaired movements:    %d\n", q.UnpairedBankMovements)
	fmt.Fprintf(out, "  open receivables:      %d\n", q.Open311Items)
	fmt.Fprintf(out, "  open payables:         %d\n", q.Open321Items)
	fmt.Fprintf(out, "  locked months:         %d/%d\n", q.LockedMonths, q.TotalMonths)
	return nil
}
