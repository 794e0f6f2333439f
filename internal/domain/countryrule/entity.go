package countryrule

import (
	"time"

	"github.com/shopspring/decimal"
)

// CountryConfig is one effective-dated version of a country's payroll rules.
// It is written by seeding only and treated as immutable by calculation code.
type CountryConfig struct {
	ID          string          `json:"id"`
	CountryCode string          `json:"country_code"`
	Name        string          `json:"name"`
	Currency    string          `json:"currency"`
	ValidFrom   time.Time       `json:"valid_from"`
	ValidTo     *time.Time      `json:"valid_to,omitempty"`
	MinimumWage decimal.Decimal `json:"minimum_wage"` // SMIG, monthly

	TaxSystem     *TaxSystem   `json:"tax_system,omitempty"`
	SocialScheme  SocialScheme `json:"social_scheme"`
	OtherTaxes    []OtherTax   `json:"other_taxes"`
	Sectors       []SectorRate `json:"sectors"`
	DefaultSector string       `json:"default_sector"`

	// Overtime multipliers keyed by band type ("41_46", "over_46", ...).
	OvertimeMultipliers map[string]decimal.Decimal `json:"overtime_multipliers"`

	// MonthlyDayThreshold is the worked-day threshold regulatory exports
	// evaluate on monthly totals.
	MonthlyDayThreshold int `json:"monthly_day_threshold"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BracketMethod selects how fiscal parts interact with the bracket table.
type BracketMethod string

const (
	// BracketMethodQuotient divides the base by fiscal parts, applies the
	// brackets, then multiplies the tax back.
	BracketMethodQuotient BracketMethod = "quotient"
	// BracketMethodDeductionTable applies the brackets to the full base and
	// subtracts a flat deduction looked up by fiscal parts.
	BracketMethodDeductionTable BracketMethod = "deduction_table"
	// BracketMethodProgressive ignores family status.
	BracketMethodProgressive BracketMethod = "progressive"
)

type TaxSystem struct {
	Code                     string            `json:"code"` // e.g. "ITS"
	Method                   BracketMethod     `json:"method"`
	Brackets                 []TaxBracket      `json:"brackets"`
	SupportsFamilyDeductions bool              `json:"supports_family_deductions"`
	FamilyDeductions         []FamilyDeduction `json:"family_deductions"`
}

// TaxBracket applies Rate to the slice of income between Min and Max.
// A nil Max means unbounded.
type TaxBracket struct {
	Min  decimal.Decimal  `json:"min"`
	Max  *decimal.Decimal `json:"max,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// FamilyDeduction is the flat monthly deduction for a fiscal-parts value.
type FamilyDeduction struct {
	FiscalParts decimal.Decimal `json:"fiscal_parts"`
	Amount      decimal.Decimal `json:"amount"`
}

type SocialScheme struct {
	Name          string             `json:"name"`
	Contributions []ContributionType `json:"contributions"`
}

// ContributionBase tells which amount a contribution rate applies to.
type ContributionBase string

const (
	ContributionBaseGross ContributionBase = "gross"
	ContributionBaseFixed ContributionBase = "fixed"
)

type ContributionType struct {
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Base         ContributionBase `json:"base"`
	EmployeeRate decimal.Decimal  `json:"employee_rate"`
	EmployerRate decimal.Decimal  `json:"employer_rate"`
	Ceiling      *decimal.Decimal `json:"ceiling,omitempty"`

	// Used when Base is "fixed".
	EmployeeAmount decimal.Decimal `json:"employee_amount"`
	EmployerAmount decimal.Decimal `json:"employer_amount"`

	// TaxDeductible employee shares are subtracted from the taxable gross.
	TaxDeductible bool `json:"tax_deductible"`
	// SectorDependent employer rates come from the sector table.
	SectorDependent bool `json:"sector_dependent"`
}

// OtherTax is an employer-only levy.
type OtherTax struct {
	Code                string                     `json:"code"`
	Name                string                     `json:"name"`
	Base                TaxBase                    `json:"base"`
	Rate                decimal.Decimal            `json:"rate"`
	ClassificationRates map[string]decimal.Decimal `json:"classification_rates,omitempty"`
}

type TaxBase string

const (
	TaxBaseGross   TaxBase = "gross"
	TaxBaseTaxable TaxBase = "taxable"
)

type SectorRate struct {
	SectorCode     string          `json:"sector_code"`
	Name           string          `json:"name"`
	WorkInjuryRate decimal.Decimal `json:"work_injury_rate"`
}

// CityTransportMinimum is the legal floor for the transport allowance in a city.
type CityTransportMinimum struct {
	CountryCode    string          `json:"country_code"`
	City           string          `json:"city"`
	MonthlyMinimum decimal.Decimal `json:"monthly_minimum"`
	DailyRate      decimal.Decimal `json:"daily_rate"`
	ValidFrom      time.Time       `json:"valid_from"`
	ValidTo        *time.Time      `json:"valid_to,omitempty"`
}

// IsActiveAt reports whether the version covers date.
func (c CountryConfig) IsActiveAt(date time.Time) bool {
	if date.Before(c.ValidFrom) {
		return false
	}
	return c.ValidTo == nil || !date.After(*c.ValidTo)
}

// SectorWorkInjuryRate returns the work-injury employer rate for a sector.
// An empty code falls back to the configured default sector.
func (c CountryConfig) SectorWorkInjuryRate(sectorCode string) (decimal.Decimal, error) {
	if sectorCode == "" {
		sectorCode = c.DefaultSector
	}
	for _, s := range c.Sectors {
		if s.SectorCode == sectorCode {
			return s.WorkInjuryRate, nil
		}
	}
	return decimal.Zero, ErrSectorNotFound
}

// OvertimeMultiplier returns the multiplier for a band type.
func (c CountryConfig) OvertimeMultiplier(bandType string) (decimal.Decimal, bool) {
	m, ok := c.OvertimeMultipliers[bandType]
	return m, ok
}
