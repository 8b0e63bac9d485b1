package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ucto/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func md(account, amount string) model.Line {
	return model.Line{AccountCode: account, Side: model.SideMD, Amount: dec(amount)}
}

func d(account, amount string) model.Line {
	return model.Line{AccountCode: account, Side: model.SideD, Amount: dec(amount)}
}

func codes(rep Report) []string {
	var out []string
	for _, f := range rep.Failures {
		out = append(out, f.Code)
	}
	return out
}

func TestCheckBalance_Balanced(t *testing.T) {
	rep := CheckBalance([]model.Line{md("518", "100.00"), d("321", "100.00")})
	assert.True(t, rep.Balanced)
	assert.Empty(t, rep.Failures)
	assert.True(t, rep.TotalMD.Equal(dec("100")))
	assert.True(t, rep.TotalD.Equal(dec("100")))
	assert.True(t, rep.Diff.IsZero())
}

func TestCheckBalance_MultiLine(t *testing.T) {
	rep := CheckBalance([]model.Line{
		md("518", "60.00"),
		md("343", "12.00"),
		d("321", "72.00"),
	})
	assert.True(t, rep.Balanced)
}

func TestCheckBalance_Tolerance(t *testing.T) {
	tests := []struct {
		name     string
		credit   string
		balanced bool
	}{
		{"exact", "100.00", true},
		{"one cent short passes", "99.99", true},
		{"one cent over passes", "100.01", true},
		{"just over a cent blocks", "99.989", false},
		{"two cents blocks", "99.98", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := CheckBalance([]model.Line{md("311", "100.00"), d("602", tt.credit)})
			assert.Equal(t, tt.balanced, rep.Balanced)
			if !tt.balanced {
				assert.Equal(t, []string{CodeUnbalanced}, codes(rep))
			}
		})
	}
}

func TestCheckBalance_NoDebit(t *testing.T) {
	rep := CheckBalance([]model.Line{d("602", "10.00")})
	assert.False(t, rep.Balanced)
	assert.Contains(t, codes(rep), CodeNoDebit)
	assert.Contains(t, codes(rep), CodeUnbalanced)
}

func TestCheckBalance_NoCredit(t *testing.T) {
	rep := CheckBalance([]model.Line{md("311", "10.00")})
	assert.Contains(t, codes(rep), CodeNoCredit)
}

func TestCheckBalance_Empty(t *testing.T) {
	rep := CheckBalance(nil)
	assert.False(t, rep.Balanced)
	assert.ElementsMatch(t, []string{CodeNoDebit, CodeNoCredit}, codes(rep))
}

func TestCheckBalance_NonPositiveAmounts(t *testing.T) {
	rep := CheckBalance([]model.Line{
		md("311", "0"),
		md("311", "-5.00"),
		d("602", "-5.00"),
	})
	assert.False(t, rep.Balanced)

	var paths []string
	for _, f := range rep.Failures {
		if f.Code == CodeInvalidAmount {
			paths = append(paths, f.FieldPath)
		}
	}
	assert.Equal(t, []string{"lines[0].amount", "lines[1].amount", "lines[2].amount"}, paths)
}

func TestCheckBalance_AllFailuresReported(t *testing.T) {
	// Debit only, unbalanced, and a zero amount: every defect shows up at once.
	rep := CheckBalance([]model.Line{md("311", "100.00"), md("311", "0")})
	assert.ElementsMatch(t, []string{CodeInvalidAmount, CodeNoCredit, CodeUnbalanced}, codes(rep))
}

func TestCheckBalance_BalancedImpliesInvariants(t *testing.T) {
	cases := [][]model.Line{
		{md("311", "1.00"), d("602", "1.00")},
		{md("311", "33.33"), md("311", "33.33"), md("311", "33.34"), d("602", "100.00")},
		{md("518", "0.01"), d("221", "0.01")},
	}
	for _, lines := range cases {
		rep := CheckBalance(lines)
		require.True(t, rep.Balanced)
		assert.True(t, rep.Diff.Abs().LessThanOrEqual(Epsilon))
		for _, l := range lines {
			assert.True(t, l.Amount.IsPositive())
		}
	}
}

func TestAudit(t *testing.T) {
	good := model.Transaction{ID: "t1", Status: model.StatusPosted, Lines: []model.Line{md("311", "10"), d("602", "10")}}
	draft := model.Transaction{ID: "t2", Status: model.StatusDraft, Lines: []model.Line{md("311", "10")}}
	require.NoError(t, Audit([]model.Transaction{good, draft}))

	bad := model.Transaction{ID: "t3", Status: model.StatusLocked, Lines: []model.Line{md("311", "10"), d("602", "9")}}
	err := Audit([]model.Transaction{good, bad})
	var iv *model.InvariantViolation
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, "t3", iv.TransactionID)
	assert.Contains(t, iv.Detail, CodeUnbalanced)
}
