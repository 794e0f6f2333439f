package salarycomponent

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryBase      Category = "base"
	CategoryAllowance Category = "allowance"
	CategoryBonus     Category = "bonus"
	CategoryDeduction Category = "deduction"
	CategoryBenefit   Category = "benefit"
	CategoryCustom    Category = "custom"
)

type CalculationMethod string

const (
	MethodFlat       CalculationMethod = "flat"
	MethodPercentage CalculationMethod = "percentage"
	MethodAuto       CalculationMethod = "auto"
)

// Definition describes a component code for a country.
// Code "11" is the base categorical salary.
type Definition struct {
	Code            string
	CountryCode     string
	Name            string
	Category        Category
	Method          CalculationMethod
	IsBaseComponent bool
	IsTaxable       bool

	// TaxExemptCap is the monthly amount excluded from the taxable gross.
	// Nil means fully taxable (or fully exempt when IsTaxable is false).
	TaxExemptCap *decimal.Decimal

	// Rate is the stored rate for auto-calculated components.
	Rate *decimal.Decimal
	// Formula, when set, is evaluated instead of Rate with years_of_service bound.
	Formula string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Template is a country-level component preset tenants can activate.
type Template struct {
	ID            string
	CountryCode   string
	Code          string
	Name          string
	Category      Category
	Method        CalculationMethod
	DefaultAmount decimal.Decimal
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Metadata      map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Activation is a tenant's customized copy of a template.
type Activation struct {
	ID           string
	CompanyID    string
	TemplateID   string
	Code         string
	CustomName   *string
	CustomAmount *decimal.Decimal
	Metadata     map[string]string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Joined fields
	Template *Template
}

// Amount is the activation amount, falling back to the template default.
func (a Activation) Amount() decimal.Decimal {
	if a.CustomAmount != nil {
		return *a.CustomAmount
	}
	if a.Template != nil {
		return a.Template.DefaultAmount
	}
	return decimal.Zero
}

// Name is the customized name, falling back to the template name.
func (a Activation) Name() string {
	if a.CustomName != nil && *a.CustomName != "" {
		return *a.CustomName
	}
	if a.Template != nil {
		return a.Template.Name
	}
	return a.Code
}

// Counts reports whether a category adds to gross pay.
func (c Category) Counts() bool {
	return c != CategoryDeduction
}
