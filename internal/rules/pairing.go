package rules

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/ucto/internal/ledger"
	"github.com/cleared-dev/ucto/internal/model"
)

// Bank pairing rule codes.
const (
	CodePairOverpayment   = "PAIR_OVERPAYMENT"
	CodePairPartialNoNote = "PAIR_PARTIAL_NO_NOTE"
	CodePairNoPartner     = "PAIR_NO_PARTNER"
	CodePairNoOpenItem    = "PAIR_NO_OPEN_ITEM"
)

func bankPairing(p BankPairing) []model.RuleHit {
	var hits []model.RuleHit
	amount := p.MovementAmount.Abs()

	if p.HasOpenItem {
		if amount.GreaterThan(p.OpenItemRemaining.Add(ledger.Epsilon)) {
			hits = append(hits, block(CodePairOverpayment,
				fmt.Sprintf("The movement (%s) exceeds the open item (%s).", amount.StringFixed(2), p.OpenItemRemaining.StringFixed(2)),
				"Split the movement or pair it with another open item; overpayments are never adjusted automatically.", "movement_amount"))
		} else if p.OpenItemRemaining.Sub(amount).GreaterThan(ledger.Epsilon) && strings.TrimSpace(p.Note) == "" {
			hits = append(hits, warn(CodePairPartialNoNote,
				fmt.Sprintf("Partial payment: %s of %s remains open.", p.OpenItemRemaining.Sub(amount).StringFixed(2), p.OpenItemRemaining.StringFixed(2)),
				"Add a note explaining why the payment is partial.", "note"))
		}
	}

	if p.PartnerID == "" {
		hits = append(hits, warn(CodePairNoPartner,
			"No partner is assigned to the movement.",
			"Select the customer or supplier who paid or was paid.", "partner_id"))
	}

	if !p.HasOpenItem {
		hits = append(hits, info(CodePairNoOpenItem,
			"The partner has no open item to settle.",
			"Post the movement as an advance or pick another partner.", "partner_id"))
	}
	return hits
}
