package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

const maxCountedChildren = 4

var halfPart = decimal.NewFromFloat(0.5)

// FiscalParts is 1, plus 1 for married/divorced/widowed, plus 0.5 per
// verified dependent counting at most four.
func FiscalParts(status employee.MaritalStatus, dependents int) decimal.Decimal {
	parts := decimal.NewFromInt(1)
	switch status {
	case employee.MaritalStatusMarried, employee.MaritalStatusDivorced, employee.MaritalStatusWidowed:
		parts = parts.Add(decimal.NewFromInt(1))
	}
	if dependents > maxCountedChildren {
		dependents = maxCountedChildren
	}
	if dependents > 0 {
		parts = parts.Add(halfPart.Mul(decimal.NewFromInt(int64(dependents))))
	}
	return parts
}

// TaxInput is the gross-side data the calculator needs.
type TaxInput struct {
	Gross              decimal.Decimal
	TaxExempt          decimal.Decimal
	MaritalStatus      employee.MaritalStatus
	VerifiedDependents int
	SectorCode         string
	Classification     employee.Classification
	// PeriodFraction is the share of a month the gross covers. Zero means
	// a full month.
	PeriodFraction decimal.Decimal
}

// TaxResult is the gross-to-net outcome. Every line is rounded.
type TaxResult struct {
	Gross                 decimal.Decimal
	TaxableGross          decimal.Decimal
	FiscalParts           decimal.Decimal
	IncomeTax             decimal.Decimal
	Contributions         []payroll.ContributionLine
	OtherTaxes            []payroll.OtherTaxLine
	EmployeeContributions decimal.Decimal
	EmployerContributions decimal.Decimal
	OtherTaxesTotal       decimal.Decimal
	NetSalary             decimal.Decimal
	EmployerCost          decimal.Decimal
}

// TaxCalculator computes contributions, income tax and employer levies.
type TaxCalculator struct {
	strategies map[countryrule.BracketMethod]BracketStrategy
}

// NewTaxCalculator uses DefaultBracketStrategies when strategies is nil.
func NewTaxCalculator(strategies map[countryrule.BracketMethod]BracketStrategy) *TaxCalculator {
	if strategies == nil {
		strategies = DefaultBracketStrategies()
	}
	return &TaxCalculator{strategies: strategies}
}

func (c *TaxCalculator) Calculate(cfg countryrule.CountryConfig, in TaxInput) (TaxResult, error) {
	if cfg.TaxSystem == nil {
		return TaxResult{}, fmt.Errorf("%s: %w", cfg.CountryCode, countryrule.ErrUnsupportedCountry)
	}
	strategy, ok := c.strategies[cfg.TaxSystem.Method]
	if !ok {
		return TaxResult{}, fmt.Errorf("%s method %q: %w", cfg.CountryCode, cfg.TaxSystem.Method, countryrule.ErrUnknownBracketMethod)
	}

	if !in.PeriodFraction.IsPositive() {
		in.PeriodFraction = decimal.NewFromInt(1)
	}

	res := TaxResult{
		Gross:       in.Gross,
		FiscalParts: FiscalParts(in.MaritalStatus, in.VerifiedDependents),
	}

	// Social contributions
	deductible := decimal.Zero
	for _, ct := range cfg.SocialScheme.Contributions {
		line, err := contributionLine(cfg, ct, in)
		if err != nil {
			return TaxResult{}, err
		}
		res.Contributions = append(res.Contributions, line)
		res.EmployeeContributions = res.EmployeeContributions.Add(line.EmployeeAmount)
		res.EmployerContributions = res.EmployerContributions.Add(line.EmployerAmount)
		if ct.TaxDeductible {
			deductible = deductible.Add(line.EmployeeAmount)
		}
	}

	// Brut imposable
	res.TaxableGross = floorZero(in.Gross.Sub(deductible).Sub(in.TaxExempt))

	// Income tax. Brackets and family deductions are monthly, so the base
	// is taken to its monthly equivalent and the tax scaled back.
	monthlyTaxable := res.TaxableGross.Div(in.PeriodFraction)
	monthlyTax := strategy.Tax(*cfg.TaxSystem, monthlyTaxable, res.FiscalParts)
	res.IncomeTax = floorZero(monthlyTax.Mul(in.PeriodFraction).Round(0))

	// Employer-only levies
	for _, ot := range cfg.OtherTaxes {
		base := in.Gross
		if ot.Base == countryrule.TaxBaseTaxable {
			base = res.TaxableGross
		}
		rate := ot.Rate
		if r, ok := ot.ClassificationRates[string(in.Classification)]; ok {
			rate = r
		}
		amount := base.Mul(rate).Round(0)
		res.OtherTaxes = append(res.OtherTaxes, payroll.OtherTaxLine{
			Code:   ot.Code,
			Name:   ot.Name,
			Base:   base,
			Rate:   rate,
			Amount: amount,
		})
		res.OtherTaxesTotal = res.OtherTaxesTotal.Add(amount)
	}

	res.NetSalary = in.Gross.Sub(res.IncomeTax).Sub(res.EmployeeContributions)
	res.EmployerCost = in.Gross.Add(res.EmployerContributions).Add(res.OtherTaxesTotal)

	return res, nil
}

func contributionLine(cfg countryrule.CountryConfig, ct countryrule.ContributionType, in TaxInput) (payroll.ContributionLine, error) {
	line := payroll.ContributionLine{
		Code:          ct.Code,
		Name:          ct.Name,
		EmployeeRate:  ct.EmployeeRate,
		EmployerRate:  ct.EmployerRate,
		TaxDeductible: ct.TaxDeductible,
	}

	// Fixed amounts and ceilings are monthly; shorter periods pay pro rata.
	if ct.Base == countryrule.ContributionBaseFixed {
		line.EmployeeAmount = ct.EmployeeAmount.Mul(in.PeriodFraction).Round(0)
		line.EmployerAmount = ct.EmployerAmount.Mul(in.PeriodFraction).Round(0)
		return line, nil
	}

	base := in.Gross
	if ct.Ceiling != nil {
		ceiling := ct.Ceiling.Mul(in.PeriodFraction).Round(0)
		if base.GreaterThan(ceiling) {
			base = ceiling
		}
	}
	line.Base = base

	if ct.SectorDependent {
		rate, err := cfg.SectorWorkInjuryRate(in.SectorCode)
		if err != nil {
			return payroll.ContributionLine{}, fmt.Errorf("contribution %s sector %q: %w", ct.Code, in.SectorCode, err)
		}
		line.EmployerRate = rate
	}

	line.EmployeeAmount = base.Mul(line.EmployeeRate).Round(0)
	line.EmployerAmount = base.Mul(line.EmployerRate).Round(0)
	return line, nil
}
