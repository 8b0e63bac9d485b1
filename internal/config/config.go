// Package config loads ucto.yaml and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/posting"
	"github.com/cleared-dev/ucto/internal/rules"
	"github.com/cleared-dev/ucto/internal/tax"
)

// FileName is the project configuration file.
const FileName = "ucto.yaml"

// Environment variables that override the file.
const (
	EnvDBPath           = "UCTO_DB_PATH"
	EnvCompanyID        = "UCTO_COMPANY_ID"
	EnvAllowUnknownLock = "UCTO_ALLOW_UNKNOWN_LOCK"
)

// Config represents the top-level ucto.yaml configuration.
type Config struct {
	Company    CompanyConfig          `yaml:"company"`
	Thresholds ThresholdsConfig       `yaml:"thresholds"`
	Store      StoreConfig            `yaml:"store"`
	Tax        []model.TaxSettings    `yaml:"tax,omitempty"`
	Payroll    *posting.PayrollConfig `yaml:"payroll,omitempty"`
}

// CompanyConfig identifies the bookkeeping entity.
type CompanyConfig struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// ThresholdsConfig tunes the guardrails.
type ThresholdsConfig struct {
	LowConfidence    float64       `yaml:"low_confidence"`
	LockTimeout      time.Duration `yaml:"lock_timeout"`
	AllowUnknownLock bool          `yaml:"allow_unknown_lock"`
}

// StoreConfig locates the database.
type StoreConfig struct {
	Path string `yaml:"path"` // relative to the project root
}

// Load reads a ucto.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(companyID, name, entityType string, year int) *Config {
	payroll := posting.DefaultPayrollConfig()
	return &Config{
		Company: CompanyConfig{
			ID:         companyID,
			Name:       name,
			EntityType: entityType,
		},
		Thresholds: ThresholdsConfig{
			LowConfidence: rules.DefaultLowConfidence,
			LockTimeout:   rules.DefaultLockTimeout,
		},
		Store: StoreConfig{
			Path: "ucto.db",
		},
		Tax:     []model.TaxSettings{DefaultTax(year)},
		Payroll: &payroll,
	}
}

// DefaultTax returns the Slovak corporate tax table for a year: 10 % up to
// 100 000 of revenue, 21 % up to 5 000 000, 24 % above, and 7 % dividend
// withholding.
func DefaultTax(year int) model.TaxSettings {
	upTo := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	return model.TaxSettings{
		Year:             year,
		CorporateTaxMode: model.TaxModeAutoBrackets,
		CorporateBrackets: []model.TaxBracket{
			{UpToRevenue: upTo("100000"), Rate: decimal.RequireFromString("0.10")},
			{UpToRevenue: upTo("5000000"), Rate: decimal.RequireFromString("0.21")},
			{Rate: decimal.RequireFromString("0.24")},
		},
		CorporateTaxFixedRate:   decimal.RequireFromString("0.21"),
		DividendWithholdingRate: decimal.RequireFromString("0.07"),
		LossCarryforward:        decimal.Zero,
	}
}

// ApplyEnv loads envPath (or ./.env when empty, if present) and applies the
// UCTO_* overrides.
func (c *Config) ApplyEnv(envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("loading %s: %w", envPath, err)
		}
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv(EnvDBPath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvCompanyID); v != "" {
		c.Company.ID = v
	}
	if v := os.Getenv(EnvAllowUnknownLock); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return &model.ConfigError{Field: EnvAllowUnknownLock, Reason: fmt.Sprintf("%q is not a boolean", v)}
		}
		c.Thresholds.AllowUnknownLock = allow
	}
	return nil
}

// Validate reports the first configuration problem as a *model.ConfigError.
func (c *Config) Validate() error {
	if c.Company.ID == "" {
		return &model.ConfigError{Field: "company.id", Reason: "required"}
	}
	if c.Thresholds.LowConfidence < 0 || c.Thresholds.LowConfidence > 1 {
		return &model.ConfigError{Field: "thresholds.low_confidence", Reason: "must be between 0 and 1"}
	}
	if c.Thresholds.LockTimeout < 0 {
		return &model.ConfigError{Field: "thresholds.lock_timeout", Reason: "must not be negative"}
	}
	years := make(map[int]bool)
	for i, ts := range c.Tax {
		if years[ts.Year] {
			return &model.ConfigError{Field: fmt.Sprintf("tax[%d].year", i), Reason: fmt.Sprintf("duplicate year %d", ts.Year)}
		}
		years[ts.Year] = true
		if err := tax.Validate(ts); err != nil {
			return fmt.Errorf("tax[%d]: %w", i, err)
		}
	}
	if p := c.Payroll; p != nil {
		rates := []struct {
			field string
			rate  decimal.Decimal
		}{
			{"employee_insurance_rate", p.EmployeeInsuranceRate},
			{"employer_insurance_rate", p.EmployerInsuranceRate},
			{"income_tax_rate", p.IncomeTaxRate},
		}
		for _, r := range rates {
			if r.rate.IsNegative() || r.rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
				return &model.ConfigError{Field: "payroll." + r.field, Reason: "must be in [0, 1)"}
			}
		}
		if p.TaxAllowance.IsNegative() {
			return &model.ConfigError{Field: "payroll.tax_allowance", Reason: "must not be negative"}
		}
	}
	return nil
}

// TaxFor returns the tax settings of a year. A missing year is a
// configuration error: rates are never guessed.
func (c *Config) TaxFor(year int) (model.TaxSettings, error) {
	for _, ts := range c.Tax {
		if ts.Year == year {
			return ts, nil
		}
	}
	return model.TaxSettings{}, &model.ConfigError{Field: "tax", Reason: fmt.Sprintf("no settings for %d", year)}
}

// PayrollConfig returns the configured payroll rates, or the defaults and
// false when the file has none.
func (c *Config) PayrollConfig() (posting.PayrollConfig, bool) {
	if c.Payroll == nil {
		return posting.DefaultPayrollConfig(), false
	}
	return *c.Payroll, true
}

// RuleOptions translates the thresholds into rule engine options.
func (c *Config) RuleOptions() []rules.Option {
	opts := []rules.Option{rules.WithAllowUnknownLock(c.Thresholds.AllowUnknownLock)}
	if c.Thresholds.LowConfidence > 0 {
		opts = append(opts, rules.WithLowConfidence(c.Thresholds.LowConfidence))
	}
	if c.Thresholds.LockTimeout > 0 {
		opts = append(opts, rules.WithLockTimeout(c.Thresholds.LockTimeout))
	}
	return opts
}
