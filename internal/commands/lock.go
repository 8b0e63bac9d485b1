package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/rules"
)

func newLockCommand(opts *globalOptions) *cobra.Command {
	var overrideReason string

	cmd := &cobra.Command{
		Use:   "lock <YYYY-MM>",
		Short: "Close a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := id.ParsePeriod(args[0]); err != nil {
				return err
			}
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runLock(cmd.Context(), cmd.OutOrStdout(), p, args[0], overrideReason)
		},
	}

	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "accept warnings and record why")

	return cmd
}

func runLock(ctx context.Context, out io.Writer, p *project, period, overrideReason string) error {
	candidate, err := p.closing(ctx, period)
	if err != nil {
		return err
	}
	res, err := p.engine.Validate(ctx, candidate, p.rulesContext(period))
	if err != nil {
		return err
	}
	if err := p.accept(out, res, rules.KindPeriodClosing, period, overrideReason); err != nil {
		return err
	}
	if err := p.store.Lock(ctx, p.company(), period, p.user); err != nil {
		return err
	}
	fmt.Fprintf(out, "Locked %s\n", period)
	return nil
}

func newUnlockCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <YYYY-MM>",
		Short: "Reopen a closed period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := id.ParsePeriod(args[0]); err != nil {
				return err
			}
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			if err := p.store.Unlock(cmd.Context(), p.company(), args[0], p.user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unlocked %s\n", args[0])
			return nil
		},
	}
}
