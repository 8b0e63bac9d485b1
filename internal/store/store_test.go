package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ucto/internal/clock"
	"github.com/cleared-dev/ucto/internal/model"
)

var now = time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(clock.Fixed(now))}, opts...)
	s, err := Open(filepath.Join(t.TempDir(), "ucto.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func rent(company, day string, status model.TransactionStatus) model.Transaction {
	return model.Transaction{
		CompanyID:   company,
		Date:        date(day),
		Description: "Office rent",
		Status:      status,
		Lines: []model.Line{
			{AccountCode: "518", Side: model.SideMD, Amount: dec("500")},
			{AccountCode: "221", Side: model.SideD, Amount: dec("500")},
		},
	}
}

func TestPutTransaction_FillsIdentity(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	tx, err := s.PutTransaction(ctx, rent("acme", "2025-01-15", model.StatusPosted))
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.NotEmpty(t, tx.Lines[0].ID)
	assert.Equal(t, "2025-01", tx.Period)
	assert.Equal(t, "2025-01-001", tx.Number)
	require.NotNil(t, tx.PostedAt)
	assert.Equal(t, now, *tx.PostedAt)

	tx2, err := s.PutTransaction(ctx, rent("acme", "2025-01-20", model.StatusPosted))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-002", tx2.Number)

	other, err := s.PutTransaction(ctx, rent("other", "2025-01-20", model.StatusPosted))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-001", other.Number)

	got, err := s.Transaction(ctx, "acme", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.Number, got.Number)
	assert.True(t, got.Lines[0].Amount.Equal(dec("500")))

	all, err := s.Transactions(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "2025-01-001", all[0].Number)
}

func TestTransaction_NotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Transaction(context.Background(), "acme", "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NotErrorIs(t, err, model.ErrTransient)
}

func TestPutTransaction_RequiresCompany(t *testing.T) {
	s := openStore(t)
	_, err := s.PutTransaction(context.Background(), rent("", "2025-01-15", model.StatusDraft))
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestPutTransaction_PostedLinesImmutable(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	tx, err := s.PutTransaction(ctx, rent("acme", "2025-01-15", model.StatusPosted))
	require.NoError(t, err)

	tx.Description = "Office rent January"
	_, err = s.PutTransaction(ctx, tx)
	require.NoError(t, err, "description may change")

	tx.Lines[0].Amount = dec("600")
	tx.Lines[1].Amount = dec("600")
	_, err = s.PutTransaction(ctx, tx)
	assert.ErrorIs(t, err, model.ErrImmutable)

	assert.ErrorIs(t, s.DeleteTransaction(ctx, "acme", tx.ID), model.ErrImmutable)
}

func TestDraftEditableAndDeletable(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	tx, err := s.PutTransaction(ctx, rent("acme", "2025-01-15", model.StatusDraft))
	require.NoError(t, err)
	assert.Nil(t, tx.PostedAt)

	tx.Lines[0].Amount = dec("600")
	tx.Lines[1].Amount = dec("600")
	_, err = s.PutTransaction(ctx, tx)
	require.NoError(t, err)

	n, err := s.DraftCount(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.DeleteTransaction(ctx, "acme", tx.ID))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "acme", tx.ID), model.ErrNotFound)
}

func TestPeriodLock(t *testing.T) {
	var hooked []string
	s := openStore(t, WithWriteHook(func(c string) { hooked = append(hooked, c) }))
	ctx := context.Background()

	posted, err := s.PutTransaction(ctx, rent("acme", "2025-01-15", model.StatusPosted))
	require.NoError(t, err)
	draft, err := s.PutTransaction(ctx, rent("acme", "2025-01-16", model.StatusDraft))
	require.NoError(t, err)

	locked, err := s.IsLocked(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.False(t, locked)

	hooked = nil
	require.NoError(t, s.Lock(ctx, "acme", "2025-01", "jana"))
	assert.Equal(t, []string{"acme"}, hooked)

	locked, err = s.IsLocked(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.True(t, locked)

	other, err := s.IsLocked(ctx, "other", "2025-01")
	require.NoError(t, err)
	assert.False(t, other)

	l, err := s.PeriodLock(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, "jana", l.ChangedBy)
	assert.Equal(t, now, l.ChangedAt)

	got, err := s.Transaction(ctx, "acme", posted.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLocked, got.Status)

	_, err = s.PutTransaction(ctx, rent("acme", "2025-01-20", model.StatusPosted))
	assert.ErrorIs(t, err, model.ErrPeriodLocked)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, "acme", draft.ID), model.ErrPeriodLocked)

	// moving a transaction out of a locked period is a mutation too
	draft.Date = date("2025-02-01")
	_, err = s.PutTransaction(ctx, draft)
	assert.ErrorIs(t, err, model.ErrPeriodLocked)

	n, err := s.LockedPeriods(ctx, "acme", 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hooked = nil
	require.NoError(t, s.Lock(ctx, "acme", "2025-01", "jana"))
	assert.Empty(t, hooked, "relocking is a no-op")

	require.NoError(t, s.Unlock(ctx, "acme", "2025-01", "admin"))
	_, err = s.PutTransaction(ctx, rent("acme", "2025-01-20", model.StatusPosted))
	require.NoError(t, err)
}

func TestLock_InvalidPeriod(t *testing.T) {
	s := openStore(t)
	err := s.Lock(context.Background(), "acme", "2025-1", "jana")
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "period", cfgErr.Field)
}

func TestCancelledContextIsTransient(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.IsLocked(ctx, "acme", "2025-01")
	assert.ErrorIs(t, err, model.ErrTransient)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReservePayrollRun_OnlyOnce(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.ReservePayrollRun(ctx, model.PayrollRun{CompanyID: "acme", Period: "2025-01", GrossTotal: dec("3000")})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, model.ErrPayrollRunExists)
	}
	assert.Equal(t, 1, ok)

	exists, err := s.PayrollRunExists(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.PayrollRunExists(ctx, "acme", "2025-02")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CompletePayrollRun(ctx, "acme", "2025-01", []string{"a", "b"}))
	run, err := s.PayrollRun(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, run.TransactionIDs)
	assert.Equal(t, now, run.CreatedAt)
}

func TestReservePayrollRun_LockedPeriod(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Lock(ctx, "acme", "2025-01", "anna"))

	err := s.ReservePayrollRun(ctx, model.PayrollRun{CompanyID: "acme", Period: "2025-01", GrossTotal: dec("3000")})
	assert.ErrorIs(t, err, model.ErrPeriodLocked)
	exists, err := s.PayrollRunExists(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Unlock(ctx, "acme", "2025-01", "anna"))
	require.NoError(t, s.ReservePayrollRun(ctx, model.PayrollRun{CompanyID: "acme", Period: "2025-01", GrossTotal: dec("3000")}))
}

func TestReleasePayrollRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	run := model.PayrollRun{CompanyID: "acme", Period: "2025-01", GrossTotal: dec("3000")}

	require.NoError(t, s.ReservePayrollRun(ctx, run))
	require.NoError(t, s.ReleasePayrollRun(ctx, "acme", "2025-01"))
	exists, err := s.PayrollRunExists(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, s.ReleasePayrollRun(ctx, "acme", "2025-01"), model.ErrNotFound)

	require.NoError(t, s.ReservePayrollRun(ctx, run))
	require.NoError(t, s.CompletePayrollRun(ctx, "acme", "2025-01", []string{"a"}))
	assert.ErrorIs(t, s.ReleasePayrollRun(ctx, "acme", "2025-01"), model.ErrImmutable)
}

func TestBankMovements(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutBankMovements(ctx, "acme", []model.BankMovement{
		{ID: "m1", Date: date("2025-01-05"), Amount: dec("121")},
		{Date: date("2025-01-06"), Amount: dec("-60")},
	}))

	n, err := s.UnpairedBankMovements(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.MarkPaired(ctx, "acme", "m1", "c1"))
	mv, err := s.BankMovement(ctx, "acme", "m1")
	require.NoError(t, err)
	assert.True(t, mv.Paired)
	assert.Equal(t, "c1", mv.PartnerID)
	assert.Equal(t, "acme", mv.CompanyID)

	n, err = s.UnpairedBankMovements(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Re-importing the same movement keeps the pairing.
	require.NoError(t, s.PutBankMovements(ctx, "acme", []model.BankMovement{
		{ID: "m1", Date: date("2025-01-05"), Amount: dec("121")},
	}))
	mv, err = s.BankMovement(ctx, "acme", "m1")
	require.NoError(t, err)
	assert.True(t, mv.Paired)

	assert.ErrorIs(t, s.MarkPaired(ctx, "acme", "nope", "c1"), model.ErrNotFound)
}

func TestInbox(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a, err := s.PutInboxItem(ctx, model.InboxItem{CompanyID: "acme", Period: "2025-01", Confidence: 0.95})
	require.NoError(t, err)
	_, err = s.PutInboxItem(ctx, model.InboxItem{CompanyID: "acme", Period: "2025-02", Confidence: 0.4})
	require.NoError(t, err)

	n, err := s.InboxPending(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.InboxPendingInPeriod(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.LowConfidenceDocs(ctx, "acme", 0.7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.ResolveInboxItem(ctx, "acme", a.ID))
	n, err = s.InboxPendingInPeriod(ctx, "acme", "2025-01")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAccountsEntriesAndSettings(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutAccounts(ctx, "acme", []model.Account{{Code: "602"}, {Code: "311"}}))
	require.NoError(t, s.PutAccounts(ctx, "acme", []model.Account{{Code: "311"}, {Code: "221"}}))
	accts, err := s.Accounts(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.Equal(t, "221", accts[0].Code)

	e, err := s.PutEntry(ctx, "acme", model.FinancialEntry{Direction: model.DirectionIncome, Total: dec("121")})
	require.NoError(t, err)
	entries, err := s.Entries(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)

	_, err = s.TaxSettings(ctx, "acme", 2025)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.PutTaxSettings(ctx, "acme", model.TaxSettings{Year: 2025, CorporateTaxMode: model.TaxModeFixed, CorporateTaxFixedRate: dec("0.10")}))
	ts, err := s.TaxSettings(ctx, "acme", 2025)
	require.NoError(t, err)
	assert.True(t, ts.CorporateTaxFixedRate.Equal(dec("0.10")))

	// settings do not leak into the chart of accounts
	accts, err = s.Accounts(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, accts, 2)
}
