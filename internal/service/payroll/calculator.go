package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/shopspring/decimal"
)

// TemplateKindTransport marks templates whose amount must meet the city
// transport minimum.
const TemplateKindTransport = "transport"

// LineCalculator composes the resolver, proration engine and tax
// calculator into one gross-to-net calculation per employee.
type LineCalculator struct {
	rules       countryrule.CountryRuleRepository
	components  salarycomponent.SalaryComponentRepository
	payrollRepo payroll.PayrollRepository
	resolver    *ComponentResolver
	proration   *ProrationEngine
	tax         *TaxCalculator
}

func NewLineCalculator(
	rules countryrule.CountryRuleRepository,
	components salarycomponent.SalaryComponentRepository,
	payrollRepo payroll.PayrollRepository,
	resolver *ComponentResolver,
	proration *ProrationEngine,
	tax *TaxCalculator,
) *LineCalculator {
	return &LineCalculator{
		rules:       rules,
		components:  components,
		payrollRepo: payrollRepo,
		resolver:    resolver,
		proration:   proration,
		tax:         tax,
	}
}

// Calculate runs one employee through resolution, proration and tax. It
// reads nothing beyond its arguments.
func (c *LineCalculator) Calculate(cfg countryrule.CountryConfig, in payroll.CalculationInput) (payroll.CalculationResult, error) {
	if in.PeriodEnd.Before(in.PeriodStart) {
		return payroll.CalculationResult{}, payroll.ErrInvalidPeriod
	}
	emp := in.Employee
	if emp.VerifiedDependents < 0 {
		return payroll.CalculationResult{}, employee.ErrNegativeDependents
	}
	if ActiveFactor(emp, in.PeriodStart, in.PeriodEnd).IsZero() {
		return payroll.CalculationResult{}, employee.ErrEmployeeNotCalculable
	}

	frequency := in.PaymentFrequency
	if frequency == "" {
		frequency = emp.EffectivePaymentFrequency()
	}

	classified, err := c.resolver.Classify(in.Components, in.Definitions, in.Activations)
	if err != nil {
		return payroll.CalculationResult{}, err
	}
	resolution, err := c.resolver.Resolve(classified, ResolveOptions{
		HiringPreview:  in.HiringPreview,
		YearsOfService: emp.YearsOfService(in.PeriodEnd),
	})
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	prorated, err := c.proration.Prorate(cfg, ProrationInput{
		Employee:      emp,
		Frequency:     frequency,
		PeriodStart:   in.PeriodStart,
		PeriodEnd:     in.PeriodEnd,
		BaseSalary:    resolution.BaseSalary,
		Components:    resolution.Components,
		TimeEntries:   in.TimeEntries,
		OvertimeBands: in.OvertimeBands,
	})
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	res := payroll.CalculationResult{
		EmployeeID:   emp.ID,
		RateType:     prorated.RateType,
		ContractType: emp.ContractType,
		OvertimePay:  prorated.OvertimePay,
		DaysWorked:   prorated.DaysWorked,
		HoursWorked:  prorated.HoursWorked,
		Warnings:     resolution.Warnings,
	}

	exempt := decimal.Zero
	for _, pc := range prorated.Components {
		if pc.Category == salarycomponent.CategoryDeduction {
			res.Deductions = append(res.Deductions, payroll.DeductionLine{
				Code:   pc.Code,
				Name:   pc.Name,
				Amount: pc.Amount,
			})
			res.OtherDeductions = res.OtherDeductions.Add(pc.Amount)
			continue
		}

		line := payroll.EarningLine{
			Code:          pc.Code,
			Name:          pc.Name,
			Category:      string(pc.Category),
			Method:        string(pc.Method),
			MonthlyAmount: pc.MonthlyAmount,
			Amount:        pc.Amount,
			TaxExempt:     exemptPortion(pc),
		}
		res.Earnings = append(res.Earnings, line)
		exempt = exempt.Add(line.TaxExempt)

		switch {
		case pc.IsBase:
			res.BaseSalary = res.BaseSalary.Add(pc.Amount)
		case pc.Category == salarycomponent.CategoryBonus:
			res.TotalBonuses = res.TotalBonuses.Add(pc.Amount)
		default:
			res.TotalAllowances = res.TotalAllowances.Add(pc.Amount)
		}
	}
	res.Earnings = append(res.Earnings, prorated.Overtime...)

	res.GrossSalary = res.BaseSalary.Add(res.TotalAllowances).Add(res.TotalBonuses).Add(res.OvertimePay)

	taxed, err := c.tax.Calculate(cfg, TaxInput{
		Gross:              res.GrossSalary,
		TaxExempt:          exempt,
		MaritalStatus:      emp.MaritalStatus,
		VerifiedDependents: emp.VerifiedDependents,
		SectorCode:         emp.SectorCode,
		Classification:     emp.Classification,
		PeriodFraction:     PeriodFraction(frequency),
	})
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	res.TaxableGross = taxed.TaxableGross
	res.FiscalParts = taxed.FiscalParts
	res.IncomeTax = taxed.IncomeTax
	res.Contributions = taxed.Contributions
	res.OtherTaxes = taxed.OtherTaxes
	res.EmployeeContributions = taxed.EmployeeContributions
	res.EmployerContributions = taxed.EmployerContributions
	res.OtherTaxesTotal = taxed.OtherTaxesTotal
	res.NetSalary = taxed.NetSalary
	res.EmployerCost = taxed.EmployerCost
	res.NetPayable = res.NetSalary.Sub(res.OtherDeductions)

	if cfg.MinimumWage.IsPositive() && resolution.BaseSalary.LessThan(cfg.MinimumWage) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"base salary %s is below the minimum wage %s", resolution.BaseSalary.StringFixed(0), cfg.MinimumWage.StringFixed(0)))
	}

	return res, nil
}

// exemptPortion is the part of an earning excluded from the taxable gross.
// Caps are monthly and scale with proration.
func exemptPortion(pc ProratedComponent) decimal.Decimal {
	if pc.TaxExemptCap == nil {
		if pc.IsTaxable {
			return decimal.Zero
		}
		return pc.Amount
	}
	if !pc.MonthlyAmount.IsPositive() {
		return decimal.Zero
	}
	monthly := decimal.Min(pc.MonthlyAmount, *pc.TaxExemptCap)
	return monthly.Mul(pc.Amount).Div(pc.MonthlyAmount).Round(0)
}

// Preview loads rules for the input and calculates without persisting.
// Definitions and activations are loaded when the input does not carry them.
func (c *LineCalculator) Preview(ctx context.Context, in payroll.CalculationInput) (payroll.CalculationResult, error) {
	cfg, err := c.rules.GetCountryConfig(ctx, in.CountryCode, in.PeriodStart)
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	if in.Definitions == nil {
		in.Definitions, err = c.components.ListDefinitions(ctx, in.CountryCode)
		if err != nil {
			return payroll.CalculationResult{}, fmt.Errorf("failed to load component definitions: %w", err)
		}
	}
	if in.Activations == nil && in.Employee.CompanyID != "" {
		in.Activations, err = c.components.ListActiveActivations(ctx, in.Employee.CompanyID, in.CountryCode)
		if err != nil {
			return payroll.CalculationResult{}, fmt.Errorf("failed to load component activations: %w", err)
		}
	}

	res, err := c.Calculate(cfg, in)
	if err != nil {
		return payroll.CalculationResult{}, err
	}

	warnings, err := c.transportWarnings(ctx, in, res)
	if err != nil {
		return payroll.CalculationResult{}, err
	}
	res.Warnings = append(res.Warnings, warnings...)

	return res, nil
}

func (c *LineCalculator) transportWarnings(ctx context.Context, in payroll.CalculationInput, res payroll.CalculationResult) ([]string, error) {
	if in.Employee.City == nil || strings.TrimSpace(*in.Employee.City) == "" {
		return nil, nil
	}

	templates, err := c.components.ListTemplates(ctx, in.CountryCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load component templates: %w", err)
	}
	transport := make(map[string]bool)
	for _, t := range templates {
		if t.Metadata["kind"] == TemplateKindTransport {
			transport[t.Code] = true
		}
	}
	if len(transport) == 0 {
		return nil, nil
	}

	var warnings []string
	var minimum *countryrule.CityTransportMinimum
	for _, e := range res.Earnings {
		if !transport[e.Code] {
			continue
		}
		if minimum == nil {
			m, err := c.rules.GetCityTransportMinimum(ctx, in.CountryCode, *in.Employee.City, in.PeriodStart)
			if errors.Is(err, countryrule.ErrTransportMinimumNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			minimum = &m
		}
		if e.MonthlyAmount.LessThan(minimum.MonthlyMinimum) {
			warnings = append(warnings, fmt.Sprintf(
				"transport allowance %s is below the %s minimum %s",
				e.MonthlyAmount.StringFixed(0), minimum.City, minimum.MonthlyMinimum.StringFixed(0)))
		}
	}
	return warnings, nil
}

// Commit stores the result as the line item of (run, employee), replacing
// an earlier calculation. Approved and paid runs are locked.
func (c *LineCalculator) Commit(ctx context.Context, run payroll.PayrollRun, res payroll.CalculationResult, calculatedAt time.Time) (payroll.PayrollLineItem, error) {
	if run.LinesLocked() {
		return payroll.PayrollLineItem{}, payroll.ErrLineItemsLocked
	}
	item, err := c.payrollRepo.UpsertLineItem(ctx, res.LineItem(run.ID, run.CompanyID, calculatedAt))
	if err != nil {
		return payroll.PayrollLineItem{}, fmt.Errorf("failed to save line item for employee %s: %w", res.EmployeeID, err)
	}
	return item, nil
}
