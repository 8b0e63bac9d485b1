package posting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ucto/internal/id"
	"github.com/cleared-dev/ucto/internal/model"
	"github.com/cleared-dev/ucto/internal/tax"
)

// PayrollConfig holds the contribution and tax rates of a payroll run.
type PayrollConfig struct {
	EmployeeInsuranceRate decimal.Decimal `yaml:"employee_insurance_rate"`
	EmployerInsuranceRate decimal.Decimal `yaml:"employer_insurance_rate"`
	IncomeTaxRate         decimal.Decimal `yaml:"income_tax_rate"`
	// TaxAllowance is the monthly non-taxable part per employee.
	TaxAllowance           decimal.Decimal `yaml:"tax_allowance"`
	AutoCreateTransactions bool            `yaml:"auto_create_transactions"`
}

// DefaultPayrollConfig returns the rates used when a company has none.
func DefaultPayrollConfig() PayrollConfig {
	return PayrollConfig{
		EmployeeInsuranceRate:  decimal.RequireFromString("0.134"),
		EmployerInsuranceRate:  decimal.RequireFromString("0.362"),
		IncomeTaxRate:          decimal.RequireFromString("0.19"),
		TaxAllowance:           decimal.RequireFromString("470.54"),
		AutoCreateTransactions: true,
	}
}

// PayrollInput is one period's payroll.
type PayrollInput struct {
	CompanyID   string
	Period      string // YYYY-MM
	GrossSalary decimal.Decimal
	Employees   int
	// Date of the postings; defaults to the last day of Period.
	Date time.Time
}

// PayrollBreakdown is the computed split of the gross salary.
type PayrollBreakdown struct {
	Gross                 decimal.Decimal `json:"gross"`
	EmployeeInsurance     decimal.Decimal `json:"employee_insurance"`
	TaxBase               decimal.Decimal `json:"tax_base"`
	IncomeTax             decimal.Decimal `json:"income_tax"`
	NetPay                decimal.Decimal `json:"net_pay"`
	EmployerContributions decimal.Decimal `json:"employer_contributions"`
}

// ComputePayroll splits gross salary into withholdings and net pay. Each
// amount is rounded to cents before it is used further.
func ComputePayroll(gross decimal.Decimal, employees int, cfg PayrollConfig) PayrollBreakdown {
	if employees < 1 {
		employees = 1
	}
	b := PayrollBreakdown{Gross: tax.Round2(gross)}
	b.EmployeeInsurance = tax.Round2(b.Gross.Mul(cfg.EmployeeInsuranceRate))

	allowance := cfg.TaxAllowance.Mul(decimal.NewFromInt(int64(employees)))
	b.TaxBase = tax.Round2(decimal.Max(decimal.Zero, b.Gross.Sub(b.EmployeeInsurance).Sub(allowance)))
	b.IncomeTax = tax.Round2(b.TaxBase.Mul(cfg.IncomeTaxRate))
	b.NetPay = b.Gross.Sub(b.EmployeeInsurance).Sub(b.IncomeTax)
	b.EmployerContributions = tax.Round2(b.Gross.Mul(cfg.EmployerInsuranceRate))
	return b
}

// Payroll expands a payroll run into its transactions, in posting order:
// gross wages, employee withholdings, employer contributions, net pay.
// A step whose amount is zero is left out.
func Payroll(in PayrollInput, cfg PayrollConfig, chart Chart) ([]model.Transaction, PayrollBreakdown, error) {
	year, month, err := id.ParsePeriod(in.Period)
	if err != nil {
		return nil, PayrollBreakdown{}, fmt.Errorf("payroll: %w: %w", ErrInvalidEntry, err)
	}
	if !in.GrossSalary.IsPositive() {
		return nil, PayrollBreakdown{}, fmt.Errorf("payroll %s: gross salary must be positive: %w", in.Period, ErrInvalidEntry)
	}
	date := in.Date
	if date.IsZero() {
		date = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	}

	b := ComputePayroll(in.GrossSalary, in.Employees, cfg)
	withheld := b.EmployeeInsurance.Add(b.IncomeTax)

	steps := []*builder{
		newTransaction(in.CompanyID, model.TemplatePayrollWages, "Wages "+in.Period, date).
			line(model.ClassWages, model.SideMD, b.Gross, "").
			line(model.ClassEmployees, model.SideD, b.Gross, ""),
		newTransaction(in.CompanyID, model.TemplatePayrollWithheld, "Employee withholdings "+in.Period, date).
			line(model.ClassEmployees, model.SideMD, withheld, "").
			line(model.ClassInsurance, model.SideD, b.EmployeeInsurance, "").
			line(model.ClassIncomeTax, model.SideD, b.IncomeTax, ""),
		newTransaction(in.CompanyID, model.TemplatePayrollEmployer, "Employer contributions "+in.Period, date).
			line(model.ClassSocialCost, model.SideMD, b.EmployerContributions, "").
			line(model.ClassInsurance, model.SideD, b.EmployerContributions, ""),
		newTransaction(in.CompanyID, model.TemplatePayrollNetPay, "Net pay "+in.Period, date).
			line(model.ClassEmployees, model.SideMD, b.NetPay, "").
			line(model.ClassBank, model.SideD, b.NetPay, ""),
	}

	var txs []model.Transaction
	for _, step := range steps {
		if len(step.tx.Lines) == 0 {
			continue
		}
		tx, err := step.done(chart)
		if err != nil {
			return nil, b, err
		}
		txs = append(txs, tx)
	}
	return txs, b, nil
}
