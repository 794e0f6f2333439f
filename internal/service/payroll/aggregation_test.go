package payroll

import (
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cddtiLine(id string, days, gross int64) payroll.MonthlyAggregate {
	return payroll.MonthlyAggregate{
		EmployeeID:                 id,
		EmployeeCode:               "EMP-" + id,
		EmployeeName:               "Employee " + id,
		ContractType:               employee.ContractTypeCDDTI,
		RunCount:                   1,
		DaysWorked:                 d(days),
		HoursWorked:                d(days * 8),
		GrossSalary:                d(gross),
		TotalEmployeeContributions: d(gross / 10),
		TotalEmployerContributions: d(gross / 5),
	}
}

func TestFoldMonthly(t *testing.T) {
	lines := []payroll.MonthlyAggregate{
		cddtiLine("b", 12, 120000),
		cddtiLine("a", 5, 50000),
		cddtiLine("b", 10, 100000),
	}

	got := FoldMonthly(lines)

	require.Len(t, got, 2)
	assert.Equal(t, "EMP-a", got[0].EmployeeCode)
	assert.Equal(t, 1, got[0].RunCount)
	assert.Equal(t, "EMP-b", got[1].EmployeeCode)
	assert.Equal(t, 2, got[1].RunCount)
	assertDecimal(t, 22, got[1].DaysWorked, "days")
	assertDecimal(t, 176, got[1].HoursWorked, "hours")
	assertDecimal(t, 220000, got[1].GrossSalary, "gross")
	assertDecimal(t, 22000, got[1].TotalEmployeeContributions, "employee contributions")
}

func TestPayrollService_GetMonthlyAggregation_DayThreshold(t *testing.T) {
	// Arrange
	f := newServiceFixture(t, &recordingRunner{}, BatchOptions{})
	f.repo.monthlyLines = []payroll.MonthlyAggregate{
		cddtiLine("e1", 12, 120000),
		cddtiLine("e1", 10, 100000),
		cddtiLine("e2", 20, 200000),
		{EmployeeID: "e3", EmployeeCode: "EMP-e3", ContractType: employee.ContractTypeCDI, DaysWorked: d(22)},
	}

	// Act
	res, err := f.svc.GetMonthlyAggregation(claimsContext(testCompanyID, testUserID), payroll.MonthlyAggregationRequest{
		Year:        2024,
		Month:       3,
		CountryCode: "CI",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 21, res.DayThreshold)
	require.Len(t, res.Employees, 2, "only CDDTI lines by default")

	e1 := res.Employees[0]
	assert.Equal(t, "e1", e1.EmployeeID)
	assert.Equal(t, 2, e1.RunCount)
	assertDecimal(t, 22, e1.DaysWorked, "12 + 10 days")
	assert.True(t, e1.MeetsDayThreshold)

	e2 := res.Employees[1]
	assertDecimal(t, 20, e2.DaysWorked, "days")
	assert.False(t, e2.MeetsDayThreshold)
}

func TestPayrollService_GetMonthlyAggregation_InvalidMonth(t *testing.T) {
	f := newServiceFixture(t, &recordingRunner{}, BatchOptions{})

	_, err := f.svc.GetMonthlyAggregation(claimsContext(testCompanyID, testUserID), payroll.MonthlyAggregationRequest{Year: 2024, Month: 13})

	assert.Error(t, err)
}
