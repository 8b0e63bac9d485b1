package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/journal"
)

// journalDir holds the exported monthly journals.
const journalDir = "journal"

func newExportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export posted transactions to monthly journal CSVs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runExport(cmd.Context(), cmd.OutOrStdout(), p)
		},
	}
}

func runExport(ctx context.Context, out io.Writer, p *project) error {
	txs, err := p.store.Transactions(ctx, p.company())
	if err != nil {
		return err
	}
	paths, err := journal.NewExporter(filepath.Join(p.root, journalDir)).Export(txs)
	if err != nil {
		return err
	}
	for _, path := range paths {
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			rel = path
		}
		fmt.Fprintln(out, rel)
	}
	fmt.Fprintf(out, "Exported %d journal file(s)\n", len(paths))
	return nil
}
