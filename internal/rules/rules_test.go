package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ucto/internal/ledger"
	"github.com/cleared-dev/ucto/internal/metrics"
	"github.com/cleared-dev/ucto/internal/model"
)

type fakeLocks struct {
	locked map[string]bool
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeLocks) IsLocked(ctx context.Context, companyID, period string) (bool, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if f.err != nil {
		return false, f.err
	}
	return f.locked[companyID+"/"+period], nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func floatPtr(f float64) *float64 {
	return &f
}

func md(account, amount string) model.Line {
	return model.Line{AccountCode: account, Side: model.SideMD, Amount: dec(amount)}
}

func d(account, amount string) model.Line {
	return model.Line{AccountCode: account, Side: model.SideD, Amount: dec(amount)}
}

func codes(hits []model.RuleHit) []string {
	out := []string{}
	for _, h := range hits {
		out = append(out, h.Code)
	}
	return out
}

var rc = Context{CompanyID: "acme", Period: "2025-01", UserID: "jana"}

func validate(t *testing.T, e *Engine, ent Entity) model.RuleResult {
	t.Helper()
	res, err := e.Validate(context.Background(), ent, rc)
	require.NoError(t, err)
	return res
}

func TestValidate_RequiresCompany(t *testing.T) {
	e := New(nil)
	_, err := e.Validate(context.Background(), Payroll{GrossSalary: dec("1000")}, Context{})
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "company_id", cfgErr.Field)
}

func TestTransaction_BalanceTolerance(t *testing.T) {
	e := New(&fakeLocks{})
	desc := "Invoice 2025-001 ACME"

	res := validate(t, e, Transaction{Description: desc, Lines: []model.Line{md("518", "100.00"), d("428", "99.99")}})
	assert.True(t, res.IsValid)
	assert.False(t, res.Has(ledger.CodeUnbalanced))

	res = validate(t, e, Transaction{Description: desc, Lines: []model.Line{md("518", "100.00"), d("428", "99.98")}})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{ledger.CodeUnbalanced}, codes(res.Blocks))
	assert.NotEmpty(t, res.Blocks[0].FixSuggestion)
}

func TestTransaction_ReportsEveryStructuralFailure(t *testing.T) {
	e := New(nil)
	res := validate(t, e, Transaction{Description: "Broken", Lines: []model.Line{md("518", "-5.00")}})
	assert.False(t, res.IsValid)
	assert.ElementsMatch(t, []string{"TRX_INVALID_AMOUNT", "TRX_NO_CREDIT", "TRX_UNBALANCED"}, codes(res.Blocks))
	for _, h := range res.Blocks {
		if h.Code == "TRX_INVALID_AMOUNT" {
			assert.Equal(t, "lines[0].amount", h.FieldPath)
		}
	}
}

func TestTransaction_PeriodLocked(t *testing.T) {
	locks := &fakeLocks{locked: map[string]bool{"acme/2025-01": true}}
	e := New(locks)
	res := validate(t, e, Transaction{Description: "Office rent", Lines: []model.Line{md("518", "10"), d("221", "10")}})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{CodePeriodLocked}, codes(res.Blocks))
	assert.Equal(t, "period", res.Blocks[0].FieldPath)
}

func TestTransaction_LockScopedByCompany(t *testing.T) {
	locks := &fakeLocks{locked: map[string]bool{"other/2025-01": true}}
	e := New(locks)
	res := validate(t, e, Transaction{Description: "Office rent", Lines: []model.Line{md("518", "10"), d("221", "10")}})
	assert.True(t, res.IsValid)
}

func TestTransaction_NoPeriodSkipsLockRead(t *testing.T) {
	locks := &fakeLocks{err: errors.New("boom")}
	e := New(locks)
	res, err := e.Validate(context.Background(),
		Transaction{Description: "Office rent", Lines: []model.Line{md("518", "10"), d("221", "10")}},
		Context{CompanyID: "acme"})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Zero(t, locks.calls)
}

func TestTransaction_LockReadFailureIsTransient(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	e := New(&fakeLocks{err: errors.New("connection reset")}, WithMetrics(rec))

	_, err := e.Validate(context.Background(),
		Transaction{Description: "Office rent", Lines: []model.Line{md("518", "10"), d("221", "10")}}, rc)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Validations.WithLabelValues("transaction", metrics.OutcomeError)))
}

func TestTransaction_LockReadTimeout(t *testing.T) {
	e := New(&fakeLocks{delay: time.Second}, WithLockTimeout(10*time.Millisecond))
	_, err := e.Validate(context.Background(),
		Transaction{Description: "Office rent", Lines: []model.Line{md("518", "10"), d("221", "10")}}, rc)
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransaction_AllowUnknownLockDegrades(t *testing.T) {
	e := New(&fakeLocks{err: errors.New("timeout")}, WithAllowUnknownLock(true))
	res := validate(t, e, Transaction{Description: "Office rent", Lines: []model.Line{md("518", "10"), d("221", "10")}})
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{CodeLockUnknown}, codes(res.Warnings))
}

func TestTransaction_Warnings(t *testing.T) {
	e := New(nil)
	res := validate(t, e, Transaction{
		Description: " ab ",
		Lines:       []model.Line{md("311", "121"), d("602", "100"), d("343", "21")},
	})
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{CodeShortDescription, CodeMissingPartner}, codes(res.Warnings))
	assert.Equal(t, "description", res.Warnings[0].FieldPath)
	assert.Equal(t, "lines[0].partner_id", res.Warnings[1].FieldPath)
}

func TestTransaction_ShortDescriptionCountsRunes(t *testing.T) {
	e := New(nil)
	res := validate(t, e, Transaction{Description: "Čaj", Lines: []model.Line{md("518", "10"), d("211", "10")}})
	assert.False(t, res.Has(CodeShortDescription))
}

func TestTransaction_PaymentWithoutCash(t *testing.T) {
	e := New(nil)
	res := validate(t, e, Transaction{
		Description: "Payment of invoice 7",
		TemplateID:  model.TemplatePaymentSent,
		Lines: []model.Line{
			{AccountCode: "321", Side: model.SideMD, Amount: dec("50"), PartnerID: "p1"},
			d("428", "50"),
		},
	})
	assert.Equal(t, []string{CodePaymentNoCash}, codes(res.Warnings))
}

func TestTransaction_SuggestsTemplate(t *testing.T) {
	e := New(nil)
	tx := Transaction{
		Description: "Customer paid invoice 12",
		Lines: []model.Line{
			md("221", "121"),
			{AccountCode: "311", Side: model.SideD, Amount: dec("121"), PartnerID: "c1"},
		},
	}
	res := validate(t, e, tx)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{CodeSuggestTemplate}, codes(res.Infos))

	tx.TemplateID = model.TemplatePaymentReceived
	res = validate(t, e, tx)
	assert.Empty(t, res.Infos)
}

func TestDocument_Complete(t *testing.T) {
	e := New(nil)
	issued := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	res := validate(t, e, Document{
		Amount:             decPtr("1210"),
		IssueDate:          &issued,
		Number:             "FV-2025-01",
		SupplierName:       "Acme s.r.o.",
		SupplierTaxID:      "12345678",
		AmountConfidence:   floatPtr(0.95),
		SupplierConfidence: floatPtr(0.70),
	})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{CodeDocSuggestTemplate}, codes(res.Infos))
}

func TestDocument_Problems(t *testing.T) {
	e := New(nil)
	res := validate(t, e, Document{
		Amount:             decPtr("0"),
		SupplierName:       "Acme s.r.o.",
		AmountConfidence:   floatPtr(0.5),
		SupplierConfidence: floatPtr(0.69),
	})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{CodeDocInvalidAmount, CodeDocMissingDate}, codes(res.Blocks))
	assert.Equal(t, []string{CodeDocLowConfAmount, CodeDocLowConfSupplier, CodeDocMissingTaxID, CodeDocMissingNumber}, codes(res.Warnings))
	assert.Empty(t, res.Infos)
}

func TestDocument_ConfidenceThresholdOption(t *testing.T) {
	e := New(nil, WithLowConfidence(0.9))
	issued := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	res := validate(t, e, Document{Amount: decPtr("10"), IssueDate: &issued, Number: "1", AmountConfidence: floatPtr(0.85)})
	assert.Equal(t, []string{CodeDocLowConfAmount}, codes(res.Warnings))
}

func TestBankPairing(t *testing.T) {
	tests := []struct {
		name     string
		pairing  BankPairing
		blocks   []string
		warnings []string
		infos    []string
	}{
		{
			name:    "overpayment",
			pairing: BankPairing{MovementAmount: dec("150"), OpenItemRemaining: dec("100"), HasOpenItem: true, PartnerID: "c1"},
			blocks:  []string{CodePairOverpayment},
		},
		{
			name:    "overpayment within a cent",
			pairing: BankPairing{MovementAmount: dec("100.01"), OpenItemRemaining: dec("100"), HasOpenItem: true, PartnerID: "c1"},
		},
		{
			name:    "outgoing amount compared by magnitude",
			pairing: BankPairing{MovementAmount: dec("-150"), OpenItemRemaining: dec("100"), HasOpenItem: true, PartnerID: "s1"},
			blocks:  []string{CodePairOverpayment},
		},
		{
			name:    "full payment",
			pairing: BankPairing{MovementAmount: dec("100"), OpenItemRemaining: dec("100"), HasOpenItem: true, PartnerID: "c1"},
		},
		{
			name:     "partial without note",
			pairing:  BankPairing{MovementAmount: dec("40"), OpenItemRemaining: dec("100"), HasOpenItem: true, PartnerID: "c1"},
			warnings: []string{CodePairPartialNoNote},
		},
		{
			name:    "partial with note",
			pairing: BankPairing{MovementAmount: dec("40"), OpenItemRemaining: dec("100"), HasOpenItem: true, PartnerID: "c1", Note: "instalment 1/3"},
		},
		{
			name:     "no partner and no open item",
			pairing:  BankPairing{MovementAmount: dec("40")},
			warnings: []string{CodePairNoPartner},
			infos:    []string{CodePairNoOpenItem},
		},
	}
	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, e, tt.pairing)
			assert.ElementsMatch(t, tt.blocks, codes(res.Blocks))
			assert.ElementsMatch(t, tt.warnings, codes(res.Warnings))
			assert.ElementsMatch(t, tt.infos, codes(res.Infos))
			assert.Equal(t, len(tt.blocks) == 0, res.IsValid)
		})
	}
}

func TestPayroll(t *testing.T) {
	e := New(nil)

	res := validate(t, e, Payroll{Period: "2025-01", GrossSalary: dec("3000"), RunExists: true, HasConfig: true})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{CodePayrollDuplicate}, codes(res.Blocks))

	res = validate(t, e, Payroll{Period: "2025-01", GrossSalary: dec("0"), AutoCreateTransactions: true})
	assert.Equal(t, []string{CodePayrollInvalidGross}, codes(res.Blocks))
	assert.Equal(t, []string{CodePayrollMissingConfig}, codes(res.Warnings))
	assert.Equal(t, []string{CodePayrollAutoPosting}, codes(res.Infos))

	res = validate(t, e, Payroll{Period: "2025-02", GrossSalary: dec("3000"), HasConfig: true})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.All())
}

func TestPeriodClosing(t *testing.T) {
	e := New(nil)

	res := validate(t, e, PeriodClosing{Period: "2025-01", OpenReceivables: 2})
	assert.True(t, res.IsValid)
	assert.Equal(t, []string{CodeCloseOpenReceivables}, codes(res.Warnings))
	assert.Equal(t, []string{CodeCloseConsequence}, codes(res.Infos))

	res = validate(t, e, PeriodClosing{Period: "2025-01", AlreadyLocked: true, InboxPending: 1, DraftTransactions: 3, OpenPayables: 1})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{CodeCloseAlreadyLocked, CodeCloseInboxPending, CodeCloseDraftsPresent}, codes(res.Blocks))
	assert.Equal(t, []string{CodeCloseOpenPayables}, codes(res.Warnings))
}

func TestValidate_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	e := New(nil, WithMetrics(rec))

	validate(t, e, BankPairing{MovementAmount: dec("150"), OpenItemRemaining: dec("100"), HasOpenItem: true, PartnerID: "c1"})
	validate(t, e, PeriodClosing{Period: "2025-01"})

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Validations.WithLabelValues("bank_pairing", metrics.OutcomeBlocked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Validations.WithLabelValues("period_closing", metrics.OutcomeValid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.RuleHits.WithLabelValues("bank_pairing", CodePairOverpayment, "BLOCK")))
}
