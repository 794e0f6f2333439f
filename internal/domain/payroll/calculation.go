package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/shopspring/decimal"
)

// ComponentInput is a {code, amount} pair in monthly-equivalent terms.
type ComponentInput struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// CalculationInput is everything the line calculator needs for one
// employee and one period. Rule tables are looked up by country and date.
type CalculationInput struct {
	CountryCode      string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	PaymentFrequency employee.PaymentFrequency
	Employee         employee.Employee

	// Explicit employee components. They win over activated templates
	// carrying the same code.
	Components  []ComponentInput
	Activations []salarycomponent.Activation
	Definitions []salarycomponent.Definition

	// TimeEntries is nil when the employee has no approved entries.
	TimeEntries *attendance.Aggregate
	// OvertimeBands overrides the bands of TimeEntries when set.
	OvertimeBands []attendance.OvertimeBand

	// HiringPreview trusts caller-supplied auto-calculated amounts.
	HiringPreview bool
}

// CalculationResult is the gross-to-net breakdown of one employee/period.
type CalculationResult struct {
	EmployeeID            string
	RateType              employee.RateType
	ContractType          employee.ContractType
	BaseSalary            decimal.Decimal
	TotalAllowances       decimal.Decimal
	TotalBonuses          decimal.Decimal
	OvertimePay           decimal.Decimal
	GrossSalary           decimal.Decimal
	TaxableGross          decimal.Decimal
	FiscalParts           decimal.Decimal
	IncomeTax             decimal.Decimal
	EmployeeContributions decimal.Decimal
	EmployerContributions decimal.Decimal
	OtherTaxesTotal       decimal.Decimal
	OtherDeductions       decimal.Decimal
	NetSalary             decimal.Decimal
	NetPayable            decimal.Decimal
	EmployerCost          decimal.Decimal
	DaysWorked            decimal.Decimal
	HoursWorked           decimal.Decimal
	Earnings              []EarningLine
	Deductions            []DeductionLine
	Contributions         []ContributionLine
	OtherTaxes            []OtherTaxLine
	Warnings              []string
}

// LineItem converts the result into the persisted shape.
func (r CalculationResult) LineItem(runID, companyID string, calculatedAt time.Time) PayrollLineItem {
	return PayrollLineItem{
		RunID:                      runID,
		CompanyID:                  companyID,
		EmployeeID:                 r.EmployeeID,
		RateType:                   r.RateType,
		ContractType:               r.ContractType,
		BaseSalary:                 r.BaseSalary,
		TotalAllowances:            r.TotalAllowances,
		TotalBonuses:               r.TotalBonuses,
		OvertimePay:                r.OvertimePay,
		GrossSalary:                r.GrossSalary,
		TaxableGross:               r.TaxableGross,
		FiscalParts:                r.FiscalParts,
		IncomeTax:                  r.IncomeTax,
		TotalEmployeeContributions: r.EmployeeContributions,
		TotalEmployerContributions: r.EmployerContributions,
		TotalOtherTaxes:            r.OtherTaxesTotal,
		TotalDeductions:            r.IncomeTax.Add(r.EmployeeContributions),
		OtherDeductions:            r.OtherDeductions,
		NetSalary:                  r.NetSalary,
		NetPayable:                 r.NetPayable,
		EmployerCost:               r.EmployerCost,
		DaysWorked:                 r.DaysWorked,
		HoursWorked:                r.HoursWorked,
		Earnings:                   r.Earnings,
		Deductions:                 r.Deductions,
		Contributions:              r.Contributions,
		OtherTaxes:                 r.OtherTaxes,
		CalculatedAt:               calculatedAt,
	}
}
