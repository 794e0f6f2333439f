package payroll

import (
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseComponent(amount int64) ResolvedComponent {
	return ResolvedComponent{
		Code:      "11",
		Name:      "Salaire catégoriel",
		Category:  salarycomponent.CategoryBase,
		Method:    salarycomponent.MethodFlat,
		Amount:    d(amount),
		IsBase:    true,
		IsTaxable: true,
	}
}

func TestMonthlyHours(t *testing.T) {
	assert.Equal(t, "173.33", MonthlyHours(d(40)).StringFixed(2))
	assert.Equal(t, "208.00", MonthlyHours(d(48)).StringFixed(2))
}

func TestBasisFor(t *testing.T) {
	tests := []struct {
		frequency employee.PaymentFrequency
		hours     string
		days      int64
	}{
		{employee.PaymentFrequencyMonthly, "173.33", 22},
		{employee.PaymentFrequencyWeekly, "40.00", 5},
		{employee.PaymentFrequencyBiweekly, "80.00", 10},
		{employee.PaymentFrequencyDaily, "8.00", 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			basis := BasisFor(tt.frequency, d(40))
			assert.Equal(t, tt.hours, basis.Hours.StringFixed(2))
			assert.True(t, basis.Days.Equal(d(tt.days)))
		})
	}
}

func TestPeriodFraction(t *testing.T) {
	tests := []struct {
		frequency employee.PaymentFrequency
		expected  string
	}{
		{employee.PaymentFrequencyMonthly, "1.0000"},
		{employee.PaymentFrequencyWeekly, "0.2308"},
		{employee.PaymentFrequencyBiweekly, "0.4615"},
		{employee.PaymentFrequencyDaily, "0.0462"},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			fraction := PeriodFraction(tt.frequency)
			assert.Equal(t, tt.expected, fraction.StringFixed(4))

			basis := BasisFor(tt.frequency, d(40))
			assert.Equal(t, basis.Hours.Div(MonthlyHours(d(40))).StringFixed(4), fraction.StringFixed(4))
		})
	}
}

func TestProrationEngine_Prorate_MonthlyRateWeeklyFrequency(t *testing.T) {
	// Arrange
	engine := NewProrationEngine()
	in := ProrationInput{
		Employee:    ciEmployee("e1"),
		Frequency:   employee.PaymentFrequencyWeekly,
		PeriodStart: date("2024-03-04"),
		PeriodEnd:   date("2024-03-10"),
		BaseSalary:  d(300000),
		Components:  []ResolvedComponent{baseComponent(300000)},
	}

	// Act
	res, err := engine.Prorate(fixtures.CIConfig(), in)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, employee.RateTypeMonthly, res.RateType)
	assert.True(t, res.Components[0].Amount.Equal(d(69231)), "300000 × 40 / 173.33")
	assert.True(t, res.Components[0].MonthlyAmount.Equal(d(300000)))
	assert.True(t, res.HoursWorked.Equal(d(40)))
	assert.True(t, res.DaysWorked.Equal(d(5)))
}

func TestProrationEngine_Prorate_CDDTIForcesHourly(t *testing.T) {
	// Arrange
	engine := NewProrationEngine()
	emp := ciEmployee("e1")
	emp.ContractType = employee.ContractTypeCDDTI
	emp.RateType = employee.RateTypeMonthly
	in := ProrationInput{
		Employee:    emp,
		Frequency:   employee.PaymentFrequencyMonthly,
		PeriodStart: date("2024-03-01"),
		PeriodEnd:   date("2024-03-31"),
		BaseSalary:  d(300000),
		Components:  []ResolvedComponent{baseComponent(300000)},
		TimeEntries: &attendance.Aggregate{EmployeeID: "e1", RegularHours: d(104), DaysWorked: 13},
	}

	// Act
	res, err := engine.Prorate(fixtures.CIConfig(), in)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, employee.RateTypeHourly, res.RateType)
	assert.True(t, res.Components[0].Amount.Equal(d(180000)), "104 of 173.33 monthly hours")
	assert.True(t, res.HoursWorked.Equal(d(104)))
	assert.True(t, res.DaysWorked.Equal(d(13)))
}

func TestProrationEngine_Prorate_Overtime(t *testing.T) {
	engine := NewProrationEngine()
	in := ProrationInput{
		Employee:      ciEmployee("e1"),
		Frequency:     employee.PaymentFrequencyMonthly,
		PeriodStart:   date("2024-03-01"),
		PeriodEnd:     date("2024-03-31"),
		BaseSalary:    d(300000),
		Components:    []ResolvedComponent{baseComponent(300000)},
		OvertimeBands: []attendance.OvertimeBand{{Type: attendance.OvertimeHours41To46, Count: d(6)}},
	}

	res, err := engine.Prorate(fixtures.CIConfig(), in)

	require.NoError(t, err)
	assert.True(t, res.OvertimePay.Equal(d(11942)), "6h × 1730.77 × 1.15, got %s", res.OvertimePay)
	require.Len(t, res.Overtime, 1)
	assert.Equal(t, "OT_41_46", res.Overtime[0].Code)
}

func TestProrationEngine_Prorate_UnknownOvertimeBand(t *testing.T) {
	engine := NewProrationEngine()
	cfg := fixtures.CIConfig()
	delete(cfg.OvertimeMultipliers, "night")
	in := ProrationInput{
		Employee:      ciEmployee("e1"),
		Frequency:     employee.PaymentFrequencyMonthly,
		PeriodStart:   date("2024-03-01"),
		PeriodEnd:     date("2024-03-31"),
		BaseSalary:    d(300000),
		OvertimeBands: []attendance.OvertimeBand{{Type: attendance.OvertimeNight, Count: d(2)}},
	}

	_, err := engine.Prorate(cfg, in)

	assert.ErrorIs(t, err, attendance.ErrInvalidOvertimeType)
}

func TestProrationEngine_Prorate_DeductionsNotProrated(t *testing.T) {
	engine := NewProrationEngine()
	advance := ResolvedComponent{Code: "41", Category: salarycomponent.CategoryDeduction, Amount: d(20000)}
	in := ProrationInput{
		Employee:    ciEmployee("e1"),
		Frequency:   employee.PaymentFrequencyWeekly,
		PeriodStart: date("2024-03-04"),
		PeriodEnd:   date("2024-03-10"),
		BaseSalary:  d(300000),
		Components:  []ResolvedComponent{baseComponent(300000), advance},
	}

	res, err := engine.Prorate(fixtures.CIConfig(), in)

	require.NoError(t, err)
	assert.True(t, res.Components[1].Amount.Equal(d(20000)))
}

func TestActiveFactor_MidPeriodHire(t *testing.T) {
	// March 2024 has 21 weekdays; hired on Monday the 18th leaves 10.
	emp := ciEmployee("e1")
	emp.HireDate = date("2024-03-18")

	factor := ActiveFactor(emp, date("2024-03-01"), date("2024-03-31"))

	assert.True(t, factor.Equal(decimal.NewFromInt(10).Div(decimal.NewFromInt(21))))
}

func TestActiveFactor_TerminatedBeforePeriod(t *testing.T) {
	emp := ciEmployee("e1")
	terminated := date("2024-02-15")
	emp.TerminationDate = &terminated

	assert.True(t, ActiveFactor(emp, date("2024-03-01"), date("2024-03-31")).IsZero())
}
