package payroll

import (
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/shopspring/decimal"
)

// BracketStrategy turns a taxable base into income tax for one bracket
// method. Results are unrounded; the caller rounds once per line.
type BracketStrategy interface {
	Tax(system countryrule.TaxSystem, taxable, fiscalParts decimal.Decimal) decimal.Decimal
}

// BracketStrategyFunc adapts a function to BracketStrategy.
type BracketStrategyFunc func(system countryrule.TaxSystem, taxable, fiscalParts decimal.Decimal) decimal.Decimal

func (f BracketStrategyFunc) Tax(system countryrule.TaxSystem, taxable, fiscalParts decimal.Decimal) decimal.Decimal {
	return f(system, taxable, fiscalParts)
}

// DefaultBracketStrategies covers the methods country configs declare.
func DefaultBracketStrategies() map[countryrule.BracketMethod]BracketStrategy {
	return map[countryrule.BracketMethod]BracketStrategy{
		countryrule.BracketMethodQuotient:       BracketStrategyFunc(quotientTax),
		countryrule.BracketMethodDeductionTable: BracketStrategyFunc(deductionTableTax),
		countryrule.BracketMethodProgressive:    BracketStrategyFunc(progressiveTax),
	}
}

// applyBrackets sums rate × slice over the cumulative marginal table.
func applyBrackets(brackets []countryrule.TaxBracket, income decimal.Decimal) decimal.Decimal {
	tax := decimal.Zero
	for _, b := range brackets {
		if income.LessThanOrEqual(b.Min) {
			continue
		}
		upper := income
		if b.Max != nil && b.Max.LessThan(upper) {
			upper = *b.Max
		}
		tax = tax.Add(upper.Sub(b.Min).Mul(b.Rate))
	}
	return tax
}

// familyDeduction returns the table entry for parts, falling back to the
// closest lower entry.
func familyDeduction(system countryrule.TaxSystem, parts decimal.Decimal) decimal.Decimal {
	if !system.SupportsFamilyDeductions {
		return decimal.Zero
	}
	best := decimal.Zero
	bestParts := decimal.Zero
	for _, d := range system.FamilyDeductions {
		if d.FiscalParts.LessThanOrEqual(parts) && d.FiscalParts.GreaterThanOrEqual(bestParts) {
			best = d.Amount
			bestParts = d.FiscalParts
		}
	}
	return best
}

// quotientTax divides by parts, applies the brackets and multiplies back.
func quotientTax(system countryrule.TaxSystem, taxable, parts decimal.Decimal) decimal.Decimal {
	if !system.SupportsFamilyDeductions || !parts.IsPositive() {
		return applyBrackets(system.Brackets, taxable)
	}
	perPart := taxable.Div(parts)
	tax := applyBrackets(system.Brackets, perPart).Mul(parts)
	return floorZero(tax.Sub(familyDeduction(system, parts)))
}

// deductionTableTax applies the brackets to the full base and subtracts
// the flat deduction for the parts value.
func deductionTableTax(system countryrule.TaxSystem, taxable, parts decimal.Decimal) decimal.Decimal {
	tax := applyBrackets(system.Brackets, taxable)
	return floorZero(tax.Sub(familyDeduction(system, parts)))
}

func progressiveTax(system countryrule.TaxSystem, taxable, _ decimal.Decimal) decimal.Decimal {
	return applyBrackets(system.Brackets, taxable)
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
