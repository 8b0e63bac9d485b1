package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ucto/internal/extract"
	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/partner"
)

func newInboxCommand(opts *globalOptions) *cobra.Command {
	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Track uploaded documents awaiting processing",
	}
	inboxCmd.AddCommand(newInboxAddCommand(opts), newInboxResolveCommand(opts))
	return inboxCmd
}

func newInboxAddCommand(opts *globalOptions) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "add <extracted.yaml>",
		Short: "Check an extracted document and add it to the inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runInboxAdd(cmd.Context(), cmd.OutOrStdout(), p, args[0], period)
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "period the document belongs to (default from its issue date)")

	return cmd
}

func runInboxAdd(ctx context.Context, out io.Writer, p *project, path, period string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading extraction: %w", err)
	}
	var r extract.Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("parsing extraction: %w", err)
	}

	reg, err := partner.LoadStatic(filepath.Join(p.root, partnersFile))
	if err != nil {
		return err
	}
	pf := &partner.Prefiller{Registry: reg, Logger: p.logger}
	doc := pf.Prefill(ctx, extract.ToDocument(r))

	if period == "" && doc.IssueDate != nil {
		period = id.Period(*doc.IssueDate)
	}
	res, err := p.engine.Validate(ctx, doc, p.rulesContext(period))
	if err != nil {
		return err
	}
	printResult(out, res)

	item, err := p.store.PutInboxItem(ctx, model.InboxItem{
		CompanyID:  p.company(),
		Period:     period,
		FileName:   filepath.Base(path),
		Confidence: extract.LowestConfidence(r),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %s to the inbox\n", item.ID)
	return nil
}

func newInboxResolveCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <item-id>",
		Short: "Mark an inbox document as processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.store.ResolveInboxItem(cmd.Context(), p.company(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s\n", args[0])
			return nil
		},
	}
}
