package fixtures

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/shopspring/decimal"
)

// ==========================================
// HELPER FUNCTIONS
// ==========================================

func dec(v int64) decimal.Decimal     { return decimal.NewFromInt(v) }
func decPtr(v int64) *decimal.Decimal { d := decimal.NewFromInt(v); return &d }
func rate(s string) decimal.Decimal   { return decimal.RequireFromString(s) }

// CountryCodeCI is Côte d'Ivoire.
const CountryCodeCI = "CI"

// CIValidFrom is the first day the seeded CI rules apply.
var CIValidFrom = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ==========================================
// COUNTRY CONFIG
// ==========================================

// CIConfig returns the Côte d'Ivoire payroll rules: ITS with the RICF
// family deduction table, CNPS contributions, CMU and employer levies.
func CIConfig() countryrule.CountryConfig {
	return countryrule.CountryConfig{
		CountryCode: CountryCodeCI,
		Name:        "Côte d'Ivoire",
		Currency:    "XOF",
		ValidFrom:   CIValidFrom,
		MinimumWage: dec(75000), // SMIG

		TaxSystem: &countryrule.TaxSystem{
			Code:   "ITS",
			Method: countryrule.BracketMethodDeductionTable,
			Brackets: []countryrule.TaxBracket{
				{Min: dec(0), Max: decPtr(75000), Rate: rate("0")},
				{Min: dec(75000), Max: decPtr(240000), Rate: rate("0.16")},
				{Min: dec(240000), Max: decPtr(800000), Rate: rate("0.21")},
				{Min: dec(800000), Max: decPtr(2400000), Rate: rate("0.24")},
				{Min: dec(2400000), Max: decPtr(8000000), Rate: rate("0.28")},
				{Min: dec(8000000), Rate: rate("0.32")},
			},
			SupportsFamilyDeductions: true,
			// RICF: réduction d'impôt pour charge de famille
			FamilyDeductions: []countryrule.FamilyDeduction{
				{FiscalParts: rate("1"), Amount: dec(0)},
				{FiscalParts: rate("1.5"), Amount: dec(5500)},
				{FiscalParts: rate("2"), Amount: dec(11000)},
				{FiscalParts: rate("2.5"), Amount: dec(16500)},
				{FiscalParts: rate("3"), Amount: dec(22000)},
				{FiscalParts: rate("3.5"), Amount: dec(27500)},
				{FiscalParts: rate("4"), Amount: dec(33000)},
				{FiscalParts: rate("4.5"), Amount: dec(38500)},
				{FiscalParts: rate("5"), Amount: dec(44000)},
			},
		},

		SocialScheme: countryrule.SocialScheme{
			Name: "CNPS",
			Contributions: []countryrule.ContributionType{
				{
					Code:          "CNPS_RETRAITE",
					Name:          "Retraite",
					Base:          countryrule.ContributionBaseGross,
					EmployeeRate:  rate("0.063"),
					EmployerRate:  rate("0.077"),
					Ceiling:       decPtr(3375000), // 45 × SMIG
					TaxDeductible: true,
				},
				{
					Code:         "CNPS_PF",
					Name:         "Prestations familiales",
					Base:         countryrule.ContributionBaseGross,
					EmployerRate: rate("0.05"),
					Ceiling:      decPtr(75000),
				},
				{
					Code:            "CNPS_AT",
					Name:            "Accident du travail",
					Base:            countryrule.ContributionBaseGross,
					Ceiling:         decPtr(75000),
					SectorDependent: true,
				},
				{
					Code:         "CNPS_MATERNITE",
					Name:         "Assurance maternité",
					Base:         countryrule.ContributionBaseGross,
					EmployerRate: rate("0.0075"),
					Ceiling:      decPtr(75000),
				},
				{
					Code:           "CMU",
					Name:           "Couverture maladie universelle",
					Base:           countryrule.ContributionBaseFixed,
					EmployeeAmount: dec(1000),
					EmployerAmount: dec(1000),
				},
			},
		},

		OtherTaxes: []countryrule.OtherTax{
			{
				Code: "IS",
				Name: "Impôt sur salaires",
				Base: countryrule.TaxBaseTaxable,
				Rate: rate("0.012"),
				ClassificationRates: map[string]decimal.Decimal{
					"expatriate": rate("0.104"),
				},
			},
			{Code: "TA", Name: "Taxe d'apprentissage", Base: countryrule.TaxBaseGross, Rate: rate("0.004")},
			{Code: "FPC", Name: "Formation professionnelle continue", Base: countryrule.TaxBaseGross, Rate: rate("0.012")},
		},

		Sectors: []countryrule.SectorRate{
			{SectorCode: "services", Name: "Services", WorkInjuryRate: rate("0.02")},
			{SectorCode: "commerce", Name: "Commerce", WorkInjuryRate: rate("0.02")},
			{SectorCode: "transport", Name: "Transport", WorkInjuryRate: rate("0.03")},
			{SectorCode: "industry", Name: "Industrie", WorkInjuryRate: rate("0.04")},
			{SectorCode: "construction", Name: "BTP", WorkInjuryRate: rate("0.05")},
		},
		DefaultSector: "services",

		OvertimeMultipliers: map[string]decimal.Decimal{
			"41_46":                rate("1.15"),
			"over_46":              rate("1.50"),
			"night":                rate("1.75"),
			"sunday_holiday":       rate("1.75"),
			"night_sunday_holiday": rate("2.00"),
		},

		MonthlyDayThreshold: 21,
	}
}

// CITransportMinimums returns the legal transport allowance floor per city.
func CITransportMinimums() []countryrule.CityTransportMinimum {
	return []countryrule.CityTransportMinimum{
		{CountryCode: CountryCodeCI, City: "Abidjan", MonthlyMinimum: dec(30000), DailyRate: dec(1364), ValidFrom: CIValidFrom},
		{CountryCode: CountryCodeCI, City: "Bouaké", MonthlyMinimum: dec(24000), DailyRate: dec(1091), ValidFrom: CIValidFrom},
		{CountryCode: CountryCodeCI, City: "Yamoussoukro", MonthlyMinimum: dec(24000), DailyRate: dec(1091), ValidFrom: CIValidFrom},
	}
}

// ==========================================
// COMPONENT DEFINITIONS
// ==========================================

// SeniorityFormula is the prime d'ancienneté rate: nothing below two years,
// then one percent per year capped at 25.
const SeniorityFormula = "years_of_service < 2 ? 0 : min(years_of_service, 25) / 100"

// CIDefinitions returns the CI component codes.
func CIDefinitions() []salarycomponent.Definition {
	return []salarycomponent.Definition{
		{Code: "11", CountryCode: CountryCodeCI, Name: "Salaire catégoriel", Category: salarycomponent.CategoryBase, Method: salarycomponent.MethodFlat, IsBaseComponent: true, IsTaxable: true},
		{Code: "12", CountryCode: CountryCodeCI, Name: "Sursalaire", Category: salarycomponent.CategoryAllowance, Method: salarycomponent.MethodFlat, IsTaxable: true},
		{Code: "13", CountryCode: CountryCodeCI, Name: "Prime d'ancienneté", Category: salarycomponent.CategoryAllowance, Method: salarycomponent.MethodAuto, IsTaxable: true, Formula: SeniorityFormula},
		{Code: "14", CountryCode: CountryCodeCI, Name: "Prime de rendement", Category: salarycomponent.CategoryAllowance, Method: salarycomponent.MethodPercentage, IsTaxable: true},
		{Code: "21", CountryCode: CountryCodeCI, Name: "Indemnité de transport", Category: salarycomponent.CategoryAllowance, Method: salarycomponent.MethodFlat, IsTaxable: true, TaxExemptCap: decPtr(30000)},
		{Code: "22", CountryCode: CountryCodeCI, Name: "Indemnité de logement", Category: salarycomponent.CategoryAllowance, Method: salarycomponent.MethodFlat, IsTaxable: true},
		{Code: "31", CountryCode: CountryCodeCI, Name: "Prime exceptionnelle", Category: salarycomponent.CategoryBonus, Method: salarycomponent.MethodFlat, IsTaxable: true},
		{Code: "41", CountryCode: CountryCodeCI, Name: "Avance sur salaire", Category: salarycomponent.CategoryDeduction, Method: salarycomponent.MethodFlat},
	}
}

// ==========================================
// COMPONENT TEMPLATES
// ==========================================

// CITemplates returns the presets tenants can activate.
func CITemplates() []salarycomponent.Template {
	return []salarycomponent.Template{
		{
			CountryCode:   CountryCodeCI,
			Code:          "21",
			Name:          "Indemnité de transport",
			Category:      salarycomponent.CategoryAllowance,
			Method:        salarycomponent.MethodFlat,
			DefaultAmount: dec(30000),
			MinAmount:     decPtr(24000),
			MaxAmount:     decPtr(100000),
			Metadata:      map[string]string{"kind": "transport"},
		},
		{
			CountryCode:   CountryCodeCI,
			Code:          "22",
			Name:          "Indemnité de logement",
			Category:      salarycomponent.CategoryAllowance,
			Method:        salarycomponent.MethodFlat,
			DefaultAmount: dec(50000),
			MinAmount:     decPtr(0),
		},
		{
			CountryCode:   CountryCodeCI,
			Code:          "TPL_PANIER",
			Name:          "Prime de panier",
			Category:      salarycomponent.CategoryBenefit,
			Method:        salarycomponent.MethodFlat,
			DefaultAmount: dec(15000),
			MinAmount:     decPtr(0),
			MaxAmount:     decPtr(40000),
		},
	}
}
