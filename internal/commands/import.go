package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/importer"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import bank statements waiting in import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != importer.AutoDetect && importer.DefaultFormats().Get(format) == nil {
				return fmt.Errorf("unknown statement format %q", format)
			}
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runImport(cmd.Context(), cmd.OutOrStdout(), p, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", importer.AutoDetect, "statement format (auto, tatra, generic)")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, p *project, format string) error {
	im := &importer.Importer{
		Root:      p.root,
		CompanyID: p.company(),
		Formats:   importer.DefaultFormats(),
		Format:    format,
		Sink:      p.store,
		Logger:    p.logger,
	}
	done, err := im.Run(ctx)
	for _, st := range done {
		fmt.Fprintf(out, "%s: %d movements (%s)\n", st.Name, st.Movements, st.Format)
	}
	if err != nil {
		return err
	}
	if len(done) == 0 {
		fmt.Fprintln(out, "Nothing to import")
	}
	return nil
}
