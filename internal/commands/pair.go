package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/posting"
	"github.com/cleared-dev/ucto/internal/rules"
)

func newPairCommand(opts *globalOptions) *cobra.Command {
	var partnerID, note, overrideReason string

	cmd := &cobra.Command{
		Use:   "pair <movement-id>",
		Short: "Settle a partner's open item with a bank movement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer p.Close()
			return runPair(cmd.Context(), cmd.OutOrStdout(), p, args[0], partnerID, note, overrideReason)
		},
	}

	cmd.Flags().StringVar(&partnerID, "partner", "", "partner whose open item is settled")
	cmd.Flags().StringVar(&note, "note", "", "explanation, required for partial payments")
	cmd.Flags().StringVar(&overrideReason, "override-reason", "", "accept warnings and record why")

	return cmd
}

func runPair(ctx context.Context, out io.Writer, p *project, movementID, partnerID, note, overrideReason string) error {
	mv, err := p.store.BankMovement(ctx, p.company(), movementID)
	if err != nil {
		return fmt.Errorf("bank movement %s: %w", movementID, err)
	}
	if mv.Paired {
		return fmt.Errorf("bank movement %s is already paired with %s", movementID, mv.PartnerID)
	}

	candidate, err := p.matcher.Pairing(ctx, p.company(), mv, partnerID, note)
	if err != nil {
		return err
	}
	period := id.Period(mv.Date)
	res, err := p.engine.Validate(ctx, candidate, p.rulesContext(period))
	if err != nil {
		return err
	}
	if err := p.accept(out, res, rules.KindBankPairing, movementID, overrideReason); err != nil {
		return err
	}

	tx, err := posting.FromMovement(p.company(), mv, partnerID, p.chart)
	if err != nil {
		return err
	}
	if _, err := p.writer.Emit(ctx, []model.Transaction{tx}); err != nil {
		return err
	}
	if err := p.store.MarkPaired(ctx, p.company(), movementID, partnerID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Paired %s with %s (%s)\n", movementID, partnerID, mv.Amount.StringFixed(2))
	return nil
}
