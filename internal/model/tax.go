package model

import "github.com/shopspring/decimal"

// CorporateTaxMode selects how the corporate income tax rate is chosen.
type CorporateTaxMode string

const (
	TaxModeFixed        CorporateTaxMode = "FIXED"
	TaxModeAutoBrackets CorporateTaxMode = "AUTO_BRACKETS"
)

// TaxBracket is a cumulative revenue ceiling. A nil UpToRevenue is unbounded.
type TaxBracket struct {
	UpToRevenue *decimal.Decimal `yaml:"up_to_revenue" json:"up_to_revenue"`
	Rate        decimal.Decimal  `yaml:"rate" json:"rate"`
}

// TaxSettings holds one year's tax configuration. Rates are fractions (0.21 = 21 %).
type TaxSettings struct {
	Year                    int              `yaml:"year" json:"year"`
	CorporateTaxMode        CorporateTaxMode `yaml:"corporate_tax_mode" json:"corporate_tax_mode"`
	CorporateTaxFixedRate   decimal.Decimal  `yaml:"corporate_tax_fixed_rate" json:"corporate_tax_fixed_rate"`
	CorporateBrackets       []TaxBracket     `yaml:"corporate_brackets,omitempty" json:"corporate_brackets,omitempty"`
	DividendWithholdingRate decimal.Decimal  `yaml:"dividend_withholding_rate" json:"dividend_withholding_rate"`
	LossCarryforward        decimal.Decimal  `yaml:"loss_carryforward" json:"loss_carryforward"`
}
