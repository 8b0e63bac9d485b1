package model

import "strings"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Side is one side of a double-entry line: MD (Má dať, debit) or D (Dal, credit).
type Side string

const (
	SideMD Side = "MD"
	SideD  Side = "D"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideMD {
		return SideD
	}
	return SideMD
}

// Valid reports whether s is MD or D.
func (s Side) Valid() bool {
	return s == SideMD || s == SideD
}

// Account is one row of the chart of accounts.
type Account struct {
	Code       string
	Name       string
	Type       AccountType
	NormalSide Side
	Active     bool
	System     bool // system accounts cannot be deleted
}

// Synthetic account classes used by the guardrails.
const (
	ClassCash       = "211"
	ClassBank       = "221"
	ClassReceivable = "311"
	ClassPayable    = "321"
	ClassEmployees  = "331"
	ClassInsurance  = "336"
	ClassIncomeTax  = "342"
	ClassVAT        = "343"
	ClassServices   = "518"
	ClassWages      = "521"
	ClassSocialCost = "524"
	ClassSales      = "602"
)

// InClass reports whether an account code belongs to a synthetic class.
// "311001" and "311" are both in class "311".
func InClass(code, class string) bool {
	return class != "" && strings.HasPrefix(code, class)
}

// IsReceivable reports whether code is a receivable (311) account.
func IsReceivable(code string) bool { return InClass(code, ClassReceivable) }

// IsPayable reports whether code is a payable (321) account.
func IsPayable(code string) bool { return InClass(code, ClassPayable) }

// IsCashOrBank reports whether code is a cash (211) or bank (221) account.
func IsCashOrBank(code string) bool {
	return InClass(code, ClassCash) || InClass(code, ClassBank)
}
