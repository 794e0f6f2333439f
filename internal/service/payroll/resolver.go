package payroll

import (
	"fmt"
	"sort"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Component is one classified salary component. It is one of
// FlatComponent, PercentageComponent, AutoComponent or CustomComponent.
type Component interface {
	meta() componentMeta
}

type componentMeta struct {
	Code         string
	Name         string
	Category     salarycomponent.Category
	IsBase       bool
	IsTaxable    bool
	TaxExemptCap *decimal.Decimal
}

func (m componentMeta) meta() componentMeta { return m }

// FlatComponent passes its amount through unchanged.
type FlatComponent struct {
	componentMeta
	Amount decimal.Decimal
}

// PercentageComponent is Percent points of the categorical base.
type PercentageComponent struct {
	componentMeta
	Percent decimal.Decimal
}

// AutoComponent is computed from a stored rate or formula against the base.
type AutoComponent struct {
	componentMeta
	Rate     *decimal.Decimal
	Formula  string
	Supplied decimal.Decimal
	// FromInput is set when the caller supplied the amount, zero included.
	FromInput bool
}

// CustomComponent has no definition and no template; it is paid as given.
type CustomComponent struct {
	componentMeta
	Amount decimal.Decimal
}

// ResolvedComponent is a component with its final monthly-equivalent amount.
type ResolvedComponent struct {
	Code         string
	Name         string
	Category     salarycomponent.Category
	Method       salarycomponent.CalculationMethod
	Amount       decimal.Decimal
	IsBase       bool
	IsTaxable    bool
	TaxExemptCap *decimal.Decimal
}

// ResolveOptions carries the context auto-calculated components depend on.
type ResolveOptions struct {
	HiringPreview  bool
	YearsOfService int
}

// Resolution is the resolver output.
type Resolution struct {
	BaseSalary decimal.Decimal
	Components []ResolvedComponent
	Warnings   []string
}

// ComponentResolver classifies {code, amount} pairs against the country's
// definitions and the tenant's activations, then resolves amounts.
type ComponentResolver struct {
	formulas *formula.Evaluator
}

func NewComponentResolver(formulas *formula.Evaluator) *ComponentResolver {
	return &ComponentResolver{formulas: formulas}
}

// Classify turns inputs into tagged components. Explicit inputs win over
// activations with the same code; codes with neither a definition nor a
// template become custom components.
func (r *ComponentResolver) Classify(
	inputs []payroll.ComponentInput,
	definitions []salarycomponent.Definition,
	activations []salarycomponent.Activation,
) ([]Component, error) {
	defs := make(map[string]salarycomponent.Definition, len(definitions))
	for _, d := range definitions {
		defs[d.Code] = d
	}
	templates := make(map[string]salarycomponent.Activation, len(activations))
	for _, a := range activations {
		if a.IsActive {
			templates[a.Code] = a
		}
	}

	seen := make(map[string]bool, len(inputs))
	var components []Component

	for _, in := range inputs {
		if in.Amount.IsNegative() {
			return nil, fmt.Errorf("component %s: %w", in.Code, payroll.ErrNegativeAmount)
		}
		if seen[in.Code] {
			continue
		}
		seen[in.Code] = true

		if def, ok := defs[in.Code]; ok {
			components = append(components, fromDefinition(def, in.Amount, true))
			continue
		}
		if act, ok := templates[in.Code]; ok && act.Template != nil {
			components = append(components, fromTemplate(act, in.Amount, true))
			continue
		}
		components = append(components, CustomComponent{
			componentMeta: componentMeta{
				Code:      in.Code,
				Name:      in.Code,
				Category:  salarycomponent.CategoryCustom,
				IsTaxable: true,
			},
			Amount: in.Amount,
		})
	}

	// Activated templates fill in codes the employee does not carry.
	codes := make([]string, 0, len(templates))
	for code := range templates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if seen[code] {
			continue
		}
		act := templates[code]
		if act.Template == nil {
			continue
		}
		amount := act.Amount()
		if def, ok := defs[code]; ok {
			c := fromDefinition(def, amount, false)
			if name := act.Name(); name != "" {
				c = rename(c, name)
			}
			components = append(components, c)
			continue
		}
		components = append(components, fromTemplate(act, amount, false))
	}

	return components, nil
}

func fromDefinition(def salarycomponent.Definition, amount decimal.Decimal, fromInput bool) Component {
	m := componentMeta{
		Code:         def.Code,
		Name:         def.Name,
		Category:     def.Category,
		IsBase:       def.IsBaseComponent,
		IsTaxable:    def.IsTaxable,
		TaxExemptCap: def.TaxExemptCap,
	}
	switch def.Method {
	case salarycomponent.MethodPercentage:
		return PercentageComponent{componentMeta: m, Percent: amount}
	case salarycomponent.MethodAuto:
		return AutoComponent{componentMeta: m, Rate: def.Rate, Formula: def.Formula, Supplied: amount, FromInput: fromInput}
	default:
		return FlatComponent{componentMeta: m, Amount: amount}
	}
}

func fromTemplate(act salarycomponent.Activation, amount decimal.Decimal, fromInput bool) Component {
	m := componentMeta{
		Code:      act.Code,
		Name:      act.Name(),
		Category:  act.Template.Category,
		IsBase:    act.Template.Category == salarycomponent.CategoryBase,
		IsTaxable: true,
	}
	switch act.Template.Method {
	case salarycomponent.MethodPercentage:
		return PercentageComponent{componentMeta: m, Percent: amount}
	case salarycomponent.MethodAuto:
		return AutoComponent{componentMeta: m, Supplied: amount, FromInput: fromInput}
	default:
		return FlatComponent{componentMeta: m, Amount: amount}
	}
}

func rename(c Component, name string) Component {
	switch v := c.(type) {
	case FlatComponent:
		v.Name = name
		return v
	case PercentageComponent:
		v.Name = name
		return v
	case AutoComponent:
		v.Name = name
		return v
	case CustomComponent:
		v.Name = name
		return v
	}
	return c
}

// Resolve computes the categorical base from flat base components, then
// the final amount of every component.
func (r *ComponentResolver) Resolve(components []Component, opts ResolveOptions) (Resolution, error) {
	base := decimal.Zero
	for _, c := range components {
		if f, ok := c.(FlatComponent); ok && f.IsBase {
			base = base.Add(f.Amount)
		}
	}

	res := Resolution{BaseSalary: base}
	for _, c := range components {
		m := c.meta()
		out := ResolvedComponent{
			Code:         m.Code,
			Name:         m.Name,
			Category:     m.Category,
			IsBase:       m.IsBase,
			IsTaxable:    m.IsTaxable,
			TaxExemptCap: m.TaxExemptCap,
		}

		switch v := c.(type) {
		case FlatComponent:
			out.Method = salarycomponent.MethodFlat
			out.Amount = v.Amount
		case CustomComponent:
			out.Method = salarycomponent.MethodFlat
			out.Amount = v.Amount
		case PercentageComponent:
			out.Method = salarycomponent.MethodPercentage
			out.Amount = base.Mul(v.Percent).Div(hundred).Round(0)
		case AutoComponent:
			out.Method = salarycomponent.MethodAuto
			amount, warning, err := r.resolveAuto(v, base, opts)
			if err != nil {
				return Resolution{}, err
			}
			out.Amount = amount
			if warning != "" {
				res.Warnings = append(res.Warnings, warning)
			}
		default:
			return Resolution{}, fmt.Errorf("unhandled component type %T", c)
		}

		res.Components = append(res.Components, out)
	}

	return res, nil
}

func (r *ComponentResolver) resolveAuto(c AutoComponent, base decimal.Decimal, opts ResolveOptions) (decimal.Decimal, string, error) {
	if opts.HiringPreview && c.FromInput {
		return c.Supplied, "", nil
	}

	switch {
	case c.Formula != "":
		rate, err := r.formulas.Decimal(c.Formula, map[string]interface{}{
			"years_of_service": float64(opts.YearsOfService),
		})
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("component %s: %w: %v", c.Code, salarycomponent.ErrInvalidFormula, err)
		}
		return base.Mul(rate).Round(0), "", nil
	case c.Rate != nil:
		return base.Mul(*c.Rate).Round(0), "", nil
	default:
		return c.Supplied, fmt.Sprintf("component %s has no stored rate, supplied amount used", c.Code), nil
	}
}
