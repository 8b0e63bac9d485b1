package rules

import (
	"fmt"

	"github.com/cleared-dev/ucto/internal/model"
)

// Period closing rule codes.
const (
	CodeCloseAlreadyLocked   = "CLOSE_ALREADY_LOCKED"
	CodeCloseInboxPending    = "CLOSE_INBOX_PENDING"
	CodeCloseDraftsPresent   = "CLOSE_DRAFTS_PRESENT"
	CodeCloseOpenReceivables = "CLOSE_OPEN_RECEIVABLES"
	CodeCloseOpenPayables    = "CLOSE_OPEN_PAYABLES"
	CodeCloseConsequence     = "CLOSE_LOCK_CONSEQUENCE"
)

func periodClosing(c PeriodClosing) []model.RuleHit {
	var hits []model.RuleHit

	if c.AlreadyLocked {
		hits = append(hits, block(CodeCloseAlreadyLocked,
			fmt.Sprintf("Period %s is already locked.", c.Period), "", "period"))
	}
	if c.InboxPending > 0 {
		hits = append(hits, block(CodeCloseInboxPending,
			fmt.Sprintf("%d document(s) in the inbox are not processed.", c.InboxPending),
			"Post or discard the remaining inbox documents.", "inbox"))
	}
	if c.DraftTransactions > 0 {
		hits = append(hits, block(CodeCloseDraftsPresent,
			fmt.Sprintf("%d draft transaction(s) remain in the period.", c.DraftTransactions),
			"Post or delete the draft transactions.", "transactions"))
	}
	if c.OpenReceivables > 0 {
		hits = append(hits, warn(CodeCloseOpenReceivables,
			fmt.Sprintf("%d customer(s) still have open receivables.", c.OpenReceivables),
			"Pair incoming payments before closing if they have arrived.", "open_311"))
	}
	if c.OpenPayables > 0 {
		hits = append(hits, warn(CodeCloseOpenPayables,
			fmt.Sprintf("%d supplier(s) still have open payables.", c.OpenPayables),
			"Pair outgoing payments before closing if they were made.", "open_321"))
	}
	hits = append(hits, info(CodeCloseConsequence,
		fmt.Sprintf("After locking, no transaction dated in %s can be created, changed or deleted until an administrator unlocks it.", c.Period),
		"", ""))
	return hits
}
