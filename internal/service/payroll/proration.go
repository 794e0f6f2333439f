package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/shopspring/decimal"
)

var (
	weeksPerYear    = decimal.NewFromInt(52)
	monthsPerYear   = decimal.NewFromInt(12)
	workDaysPerWeek = decimal.NewFromInt(5)
	// MonthlyWorkDays is the day count a MONTHLY period is worth.
	MonthlyWorkDays = decimal.NewFromInt(22)
)

// PeriodBasis is the hours and days one pay period is worth.
type PeriodBasis struct {
	Hours decimal.Decimal
	Days  decimal.Decimal
}

// MonthlyHours converts a weekly regime into monthly hours (weekly × 52 / 12).
func MonthlyHours(weeklyHours decimal.Decimal) decimal.Decimal {
	return weeklyHours.Mul(weeksPerYear).Div(monthsPerYear)
}

// BasisFor returns the period hours/days for a payment frequency.
func BasisFor(frequency employee.PaymentFrequency, weeklyHours decimal.Decimal) PeriodBasis {
	switch frequency {
	case employee.PaymentFrequencyWeekly:
		return PeriodBasis{Hours: weeklyHours, Days: workDaysPerWeek}
	case employee.PaymentFrequencyBiweekly:
		return PeriodBasis{Hours: weeklyHours.Mul(decimal.NewFromInt(2)), Days: workDaysPerWeek.Mul(decimal.NewFromInt(2))}
	case employee.PaymentFrequencyDaily:
		return PeriodBasis{Hours: weeklyHours.Div(workDaysPerWeek), Days: decimal.NewFromInt(1)}
	default:
		return PeriodBasis{Hours: MonthlyHours(weeklyHours), Days: MonthlyWorkDays}
	}
}

// PeriodFraction is the share of a month one pay period represents, on the
// same hours basis BasisFor uses. Monthly rule amounts are scaled by it.
func PeriodFraction(frequency employee.PaymentFrequency) decimal.Decimal {
	switch frequency {
	case employee.PaymentFrequencyWeekly:
		return monthsPerYear.Div(weeksPerYear)
	case employee.PaymentFrequencyBiweekly:
		return monthsPerYear.Mul(decimal.NewFromInt(2)).Div(weeksPerYear)
	case employee.PaymentFrequencyDaily:
		return monthsPerYear.Div(weeksPerYear.Mul(workDaysPerWeek))
	default:
		return decimal.NewFromInt(1)
	}
}

// ProrationInput is what the engine needs for one employee and period.
type ProrationInput struct {
	Employee      employee.Employee
	Frequency     employee.PaymentFrequency
	PeriodStart   time.Time
	PeriodEnd     time.Time
	BaseSalary    decimal.Decimal
	Components    []ResolvedComponent
	TimeEntries   *attendance.Aggregate
	OvertimeBands []attendance.OvertimeBand
}

// ProratedComponent is a resolved component with its amount for the period.
type ProratedComponent struct {
	ResolvedComponent
	MonthlyAmount decimal.Decimal
}

// ProrationResult holds payable amounts and worked figures for the period.
type ProrationResult struct {
	RateType    employee.RateType
	Components  []ProratedComponent
	OvertimePay decimal.Decimal
	Overtime    []payroll.EarningLine
	DaysWorked  decimal.Decimal
	HoursWorked decimal.Decimal
}

// ProrationEngine converts monthly-equivalent amounts into period amounts.
type ProrationEngine struct{}

func NewProrationEngine() *ProrationEngine {
	return &ProrationEngine{}
}

// Prorate applies the employee's effective rate type. Deduction components
// are withheld as given.
func (e *ProrationEngine) Prorate(cfg countryrule.CountryConfig, in ProrationInput) (ProrationResult, error) {
	weekly := in.Employee.WeeklyHoursValue()
	monthlyHours := MonthlyHours(weekly)
	basis := BasisFor(in.Frequency, weekly)
	factor := ActiveFactor(in.Employee, in.PeriodStart, in.PeriodEnd)

	res := ProrationResult{RateType: in.Employee.EffectiveRateType()}

	// ratio maps a monthly-equivalent amount onto the period.
	var ratio decimal.Decimal
	switch res.RateType {
	case employee.RateTypeHourly:
		hours := basis.Hours.Mul(factor)
		days := basis.Days.Mul(factor)
		if in.TimeEntries != nil {
			hours = in.TimeEntries.RegularHours
			days = decimal.NewFromInt(int64(in.TimeEntries.DaysWorked))
		}
		res.HoursWorked = hours
		res.DaysWorked = days
		ratio = hours.Div(monthlyHours)
	case employee.RateTypeDaily:
		days := basis.Days.Mul(factor)
		if in.TimeEntries != nil {
			days = decimal.NewFromInt(int64(in.TimeEntries.DaysWorked))
		}
		res.DaysWorked = days
		res.HoursWorked = days.Mul(weekly).Div(workDaysPerWeek)
		ratio = days.Div(MonthlyWorkDays)
	default:
		res.HoursWorked = basis.Hours.Mul(factor)
		res.DaysWorked = basis.Days.Mul(factor)
		ratio = basis.Hours.Div(monthlyHours).Mul(factor)
	}
	res.HoursWorked = res.HoursWorked.Round(2)
	res.DaysWorked = res.DaysWorked.Round(2)

	for _, c := range in.Components {
		pc := ProratedComponent{ResolvedComponent: c, MonthlyAmount: c.Amount}
		if c.Category != salarycomponent.CategoryDeduction {
			pc.Amount = c.Amount.Mul(ratio).Round(0)
		}
		res.Components = append(res.Components, pc)
	}

	bands := in.OvertimeBands
	if len(bands) == 0 && in.TimeEntries != nil {
		bands = in.TimeEntries.OvertimeBands
	}
	if len(bands) > 0 {
		hourlyRate := in.BaseSalary.Div(monthlyHours)
		for _, band := range bands {
			if band.Count.IsNegative() {
				return ProrationResult{}, attendance.ErrNegativeHours
			}
			multiplier, ok := cfg.OvertimeMultiplier(string(band.Type))
			if !ok {
				return ProrationResult{}, fmt.Errorf("overtime band %q: %w", band.Type, attendance.ErrInvalidOvertimeType)
			}
			pay := band.Count.Mul(hourlyRate).Mul(multiplier).Round(0)
			res.OvertimePay = res.OvertimePay.Add(pay)
			res.Overtime = append(res.Overtime, payroll.EarningLine{
				Code:     "OT_" + string(band.Type),
				Name:     "Overtime " + string(band.Type),
				Category: "overtime",
				Method:   string(salarycomponent.MethodAuto),
				Amount:   pay,
			})
		}
	}

	return res, nil
}

// ActiveFactor is the share of the period's weekdays the employee was
// employed, accounting for hire and termination dates inside the period.
func ActiveFactor(emp employee.Employee, start, end time.Time) decimal.Decimal {
	total := weekdaysBetween(start, end)
	if total == 0 {
		return decimal.NewFromInt(1)
	}

	activeStart, activeEnd := start, end
	if !emp.HireDate.IsZero() && emp.HireDate.After(activeStart) {
		activeStart = emp.HireDate
	}
	if emp.TerminationDate != nil && emp.TerminationDate.Before(activeEnd) {
		activeEnd = *emp.TerminationDate
	}
	if activeEnd.Before(activeStart) {
		return decimal.Zero
	}

	active := weekdaysBetween(activeStart, activeEnd)
	if active >= total {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(active)).Div(decimal.NewFromInt(int64(total)))
}

func weekdaysBetween(start, end time.Time) int {
	start = truncateDay(start)
	end = truncateDay(end)
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
