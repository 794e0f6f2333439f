package payroll

import (
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedByCode(res Resolution) map[string]ResolvedComponent {
	out := make(map[string]ResolvedComponent, len(res.Components))
	for _, c := range res.Components {
		out[c.Code] = c
	}
	return out
}

func transportActivation(amount int64) salarycomponent.Activation {
	tpl := fixtures.CITemplates()[0]
	custom := d(amount)
	return salarycomponent.Activation{
		ID:           "act-1",
		CompanyID:    testCompanyID,
		Code:         tpl.Code,
		CustomAmount: &custom,
		IsActive:     true,
		Template:     &tpl,
	}
}

func TestComponentResolver_Resolve_PercentageAndSeniority(t *testing.T) {
	// Arrange
	resolver := NewComponentResolver(formula.NewEvaluator())
	inputs := []payroll.ComponentInput{
		{Code: "11", Amount: d(200000)},
		{Code: "13", Amount: d(0)},
		{Code: "14", Amount: d(10)},
	}

	// Act
	classified, err := resolver.Classify(inputs, fixtures.CIDefinitions(), nil)
	require.NoError(t, err)
	res, err := resolver.Resolve(classified, ResolveOptions{YearsOfService: 5})
	require.NoError(t, err)

	// Assert
	byCode := resolvedByCode(res)
	assert.True(t, res.BaseSalary.Equal(d(200000)))
	assert.True(t, byCode["14"].Amount.Equal(d(20000)), "10 percent points of base")
	assert.True(t, byCode["13"].Amount.Equal(d(10000)), "5 years of service is 5 percent")
	assert.Equal(t, salarycomponent.MethodAuto, byCode["13"].Method)
}

func TestComponentResolver_Resolve_SeniorityBelowTwoYears(t *testing.T) {
	resolver := NewComponentResolver(formula.NewEvaluator())
	inputs := []payroll.ComponentInput{{Code: "11", Amount: d(200000)}, {Code: "13", Amount: d(0)}}

	classified, err := resolver.Classify(inputs, fixtures.CIDefinitions(), nil)
	require.NoError(t, err)
	res, err := resolver.Resolve(classified, ResolveOptions{YearsOfService: 1})
	require.NoError(t, err)

	assert.True(t, resolvedByCode(res)["13"].Amount.IsZero())
}

func TestComponentResolver_Resolve_HiringPreviewTrustsSuppliedAmount(t *testing.T) {
	resolver := NewComponentResolver(formula.NewEvaluator())
	inputs := []payroll.ComponentInput{{Code: "11", Amount: d(200000)}, {Code: "13", Amount: d(12345)}}

	classified, err := resolver.Classify(inputs, fixtures.CIDefinitions(), nil)
	require.NoError(t, err)
	res, err := resolver.Resolve(classified, ResolveOptions{HiringPreview: true, YearsOfService: 10})
	require.NoError(t, err)

	assert.True(t, resolvedByCode(res)["13"].Amount.Equal(d(12345)))
}

func TestComponentResolver_Resolve_HiringPreviewTrustsSuppliedZero(t *testing.T) {
	// Arrange
	resolver := NewComponentResolver(formula.NewEvaluator())
	inputs := []payroll.ComponentInput{{Code: "11", Amount: d(200000)}, {Code: "13", Amount: d(0)}}

	// Act
	classified, err := resolver.Classify(inputs, fixtures.CIDefinitions(), nil)
	require.NoError(t, err)
	preview, err := resolver.Resolve(classified, ResolveOptions{HiringPreview: true, YearsOfService: 10})
	require.NoError(t, err)
	regular, err := resolver.Resolve(classified, ResolveOptions{YearsOfService: 10})
	require.NoError(t, err)

	// Assert
	assert.True(t, resolvedByCode(preview)["13"].Amount.IsZero(), "supplied zero is used as given")
	assert.True(t, resolvedByCode(regular)["13"].Amount.Equal(d(20000)), "formula applies outside preview")
}

func TestComponentResolver_Classify_ExplicitBeatsActivation(t *testing.T) {
	// Arrange
	resolver := NewComponentResolver(formula.NewEvaluator())
	inputs := []payroll.ComponentInput{
		{Code: "11", Amount: d(150000)},
		{Code: "21", Amount: d(40000)},
	}
	activations := []salarycomponent.Activation{transportActivation(30000)}

	// Act
	classified, err := resolver.Classify(inputs, fixtures.CIDefinitions(), activations)
	require.NoError(t, err)
	res, err := resolver.Resolve(classified, ResolveOptions{})
	require.NoError(t, err)

	// Assert
	require.Len(t, res.Components, 2)
	assert.True(t, resolvedByCode(res)["21"].Amount.Equal(d(40000)))
}

func TestComponentResolver_Classify_ActivationFillsMissingCode(t *testing.T) {
	resolver := NewComponentResolver(formula.NewEvaluator())
	act := transportActivation(32000)
	name := "Transport Abidjan"
	act.CustomName = &name

	classified, err := resolver.Classify([]payroll.ComponentInput{{Code: "11", Amount: d(150000)}}, fixtures.CIDefinitions(), []salarycomponent.Activation{act})
	require.NoError(t, err)
	res, err := resolver.Resolve(classified, ResolveOptions{})
	require.NoError(t, err)

	transport := resolvedByCode(res)["21"]
	assert.True(t, transport.Amount.Equal(d(32000)))
	assert.Equal(t, "Transport Abidjan", transport.Name)
	require.NotNil(t, transport.TaxExemptCap, "definition metadata is kept")
}

func TestComponentResolver_Classify_UnknownCodeIsCustom(t *testing.T) {
	resolver := NewComponentResolver(formula.NewEvaluator())

	classified, err := resolver.Classify([]payroll.ComponentInput{{Code: "99", Amount: d(7777)}}, fixtures.CIDefinitions(), nil)
	require.NoError(t, err)
	res, err := resolver.Resolve(classified, ResolveOptions{})
	require.NoError(t, err)

	require.Len(t, res.Components, 1)
	assert.Equal(t, salarycomponent.CategoryCustom, res.Components[0].Category)
	assert.True(t, res.Components[0].IsTaxable)
	assert.True(t, res.Components[0].Amount.Equal(d(7777)))
}

func TestComponentResolver_Classify_NegativeAmount(t *testing.T) {
	resolver := NewComponentResolver(formula.NewEvaluator())

	_, err := resolver.Classify([]payroll.ComponentInput{{Code: "11", Amount: d(-1)}}, fixtures.CIDefinitions(), nil)

	assert.ErrorIs(t, err, payroll.ErrNegativeAmount)
}
