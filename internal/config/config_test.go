package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ucto/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("acme", "Acme s.r.o.", "sro", 2025)
	cfg.Thresholds.AllowUnknownLock = true

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Company, got.Company)
	assert.InDelta(t, 0.70, got.Thresholds.LowConfidence, 0.001)
	assert.Equal(t, 2*time.Second, got.Thresholds.LockTimeout)
	assert.True(t, got.Thresholds.AllowUnknownLock)
	assert.Equal(t, "ucto.db", got.Store.Path)

	require.Len(t, got.Tax, 1)
	ts := got.Tax[0]
	assert.Equal(t, 2025, ts.Year)
	assert.Equal(t, model.TaxModeAutoBrackets, ts.CorporateTaxMode)
	require.Len(t, ts.CorporateBrackets, 3)
	require.NotNil(t, ts.CorporateBrackets[0].UpToRevenue)
	assert.True(t, ts.CorporateBrackets[0].UpToRevenue.Equal(decimal.NewFromInt(100000)))
	assert.Nil(t, ts.CorporateBrackets[2].UpToRevenue)
	assert.True(t, ts.DividendWithholdingRate.Equal(decimal.RequireFromString("0.07")))

	require.NotNil(t, got.Payroll)
	assert.True(t, got.Payroll.TaxAllowance.Equal(decimal.RequireFromString("470.54")))
	require.NoError(t, got.Validate())
}

func TestLoad_PlainNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	yml := `company:
  id: acme
thresholds:
  low_confidence: 0.8
  lock_timeout: 500ms
tax:
  - year: 2024
    corporate_tax_mode: FIXED
    corporate_tax_fixed_rate: 0.10
    dividend_withholding_rate: 0.07
    loss_carryforward: 1500.50
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500*time.Millisecond, cfg.Thresholds.LockTimeout)

	ts, err := cfg.TaxFor(2024)
	require.NoError(t, err)
	assert.True(t, ts.CorporateTaxFixedRate.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, ts.LossCarryforward.Equal(decimal.RequireFromString("1500.50")))

	_, err = cfg.TaxFor(2025)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	p, ok := cfg.PayrollConfig()
	assert.False(t, ok)
	assert.True(t, p.IncomeTaxRate.Equal(decimal.RequireFromString("0.19")))
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("acme", "Acme s.r.o.", "sro", 2025)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "id: acme")
	assert.Contains(t, contents, "entity_type: sro")
	assert.Contains(t, contents, "lock_timeout: 2s")
	assert.Contains(t, contents, "corporate_tax_mode: AUTO_BRACKETS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing company", func(c *Config) { c.Company.ID = "" }, "company.id"},
		{"confidence above one", func(c *Config) { c.Thresholds.LowConfidence = 1.5 }, "thresholds.low_confidence"},
		{"negative timeout", func(c *Config) { c.Thresholds.LockTimeout = -time.Second }, "thresholds.lock_timeout"},
		{"duplicate tax year", func(c *Config) { c.Tax = append(c.Tax, DefaultTax(2025)) }, "tax[1].year"},
		{"malformed brackets", func(c *Config) { c.Tax[0].CorporateBrackets[2].UpToRevenue = c.Tax[0].CorporateBrackets[0].UpToRevenue }, "corporate_brackets[2]"},
		{"payroll rate", func(c *Config) { c.Payroll.IncomeTaxRate = decimal.NewFromInt(2) }, "payroll.income_tax_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("acme", "Acme", "sro", 2025)
			tt.mutate(cfg)
			var cfgErr *model.ConfigError
			require.ErrorAs(t, cfg.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("UCTO_DB_PATH=/var/lib/ucto/books.db\n"), 0o644))
	t.Setenv(EnvCompanyID, "beta")
	t.Setenv(EnvAllowUnknownLock, "true")
	t.Setenv(EnvDBPath, "")
	os.Unsetenv(EnvDBPath)

	cfg := Default("acme", "Acme", "sro", 2025)
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, "/var/lib/ucto/books.db", cfg.Store.Path)
	assert.Equal(t, "beta", cfg.Company.ID)
	assert.True(t, cfg.Thresholds.AllowUnknownLock)
	assert.Len(t, cfg.RuleOptions(), 3)
}

func TestApplyEnv_BadBool(t *testing.T) {
	t.Setenv(EnvAllowUnknownLock, "maybe")
	cfg := Default("acme", "Acme", "sro", 2025)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, nil, 0o644))

	var cfgErr *model.ConfigError
	require.ErrorAs(t, cfg.ApplyEnv(envFile), &cfgErr)
	assert.Equal(t, EnvAllowUnknownLock, cfgErr.Field)
}
