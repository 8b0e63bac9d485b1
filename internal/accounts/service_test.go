package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ucto/internal/model"
)

func TestNewService(t *testing.T) {
	chart := DefaultChart("sro")
	svc := NewService(chart)

	assert.Len(t, svc.All(), len(chart))
}

func TestGetExists(t *testing.T) {
	svc := NewService(DefaultChart("sro"))

	acct, ok := svc.Get("221")
	assert.True(t, ok)
	assert.Equal(t, "Bank accounts", acct.Name)
	assert.Equal(t, model.SideMD, acct.NormalSide)

	_, ok = svc.Get("999")
	assert.False(t, ok)

	assert.True(t, svc.Exists("311"))
	assert.False(t, svc.Exists("999"))
}

func TestByType(t *testing.T) {
	svc := NewService(DefaultChart("sro"))

	assets := svc.ByType(model.AccountTypeAsset)
	assert.Len(t, assets, 3, "expected cash, bank and receivables")
	for _, a := range assets {
		assert.Equal(t, model.AccountTypeAsset, a.Type)
	}

	assert.Len(t, svc.ByType(model.AccountTypeExpense), 4)
}

func TestInClass(t *testing.T) {
	svc := NewService(DefaultChart("sro"))
	require.NoError(t, svc.Add(model.Account{Code: "311100", Name: "Receivables EU", Type: model.AccountTypeAsset, NormalSide: model.SideMD, Active: true}))
	require.NoError(t, svc.Add(model.Account{Code: "311200", Name: "Old receivables", Type: model.AccountTypeAsset, NormalSide: model.SideMD}))

	got := svc.InClass(model.ClassReceivable)
	require.Len(t, got, 2, "inactive analytic accounts are skipped")
	assert.Equal(t, "311", got[0].Code)
	assert.Equal(t, "311100", got[1].Code)
}

func TestAdd_Duplicate(t *testing.T) {
	svc := NewService(DefaultChart("sro"))
	err := svc.Add(model.Account{Code: "221", Name: "Dup", Type: model.AccountTypeAsset, NormalSide: model.SideMD})
	assert.Error(t, err)

	err = svc.Add(model.Account{Code: "222", Name: "No side", Type: model.AccountTypeAsset})
	assert.Error(t, err)
}

func TestUpdate_ReferencedOnlyActive(t *testing.T) {
	svc := NewService(DefaultChart("sro"))
	acct, _ := svc.Get("501")

	deactivated := acct
	deactivated.Active = false
	require.NoError(t, svc.Update(deactivated, true))
	got, _ := svc.Get("501")
	assert.False(t, got.Active)

	renamed := got
	renamed.Name = "Materials"
	err := svc.Update(renamed, true)
	assert.ErrorIs(t, err, model.ErrAccountInUse)

	require.NoError(t, svc.Update(renamed, false))
	got, _ = svc.Get("501")
	assert.Equal(t, "Materials", got.Name)
}

func TestDelete(t *testing.T) {
	svc := NewService(DefaultChart("sro"))

	assert.ErrorIs(t, svc.Delete("221", false), model.ErrSystemAccount)
	assert.ErrorIs(t, svc.Delete("501", true), model.ErrAccountInUse)
	assert.ErrorIs(t, svc.Delete("999", false), model.ErrNotFound)

	require.NoError(t, svc.Delete("501", false))
	assert.False(t, svc.Exists("501"))
	assert.True(t, svc.Exists("518"), "index is rebuilt after delete")
	acct, ok := svc.Get("604")
	require.True(t, ok)
	assert.Equal(t, "Sales of goods", acct.Name)
}

func TestSaveRoundTrip(t *testing.T) {
	chart := DefaultChart("sro")
	svc := NewService(chart)

	dir := t.TempDir()
	require.NoError(t, svc.Save(dir))

	svc2, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, svc2.All(), len(chart))

	for _, orig := range chart {
		got, ok := svc2.Get(orig.Code)
		require.True(t, ok, "account %s should exist", orig.Code)
		assert.Equal(t, orig, got)
	}
}
