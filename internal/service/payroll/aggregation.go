package payroll

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// DefaultMonthlyDayThreshold applies when no country config is selected.
const DefaultMonthlyDayThreshold = 21

// FoldMonthly sums per-line totals into one aggregate per employee, ordered
// by employee code.
func FoldMonthly(lines []payroll.MonthlyAggregate) []payroll.MonthlyAggregate {
	byEmployee := make(map[string]*payroll.MonthlyAggregate)
	var order []string

	for _, l := range lines {
		agg, ok := byEmployee[l.EmployeeID]
		if !ok {
			agg = &payroll.MonthlyAggregate{
				EmployeeID:   l.EmployeeID,
				EmployeeCode: l.EmployeeCode,
				EmployeeName: l.EmployeeName,
				ContractType: l.ContractType,
			}
			byEmployee[l.EmployeeID] = agg
			order = append(order, l.EmployeeID)
		}
		runs := l.RunCount
		if runs == 0 {
			runs = 1
		}
		agg.RunCount += runs
		agg.DaysWorked = agg.DaysWorked.Add(l.DaysWorked)
		agg.HoursWorked = agg.HoursWorked.Add(l.HoursWorked)
		agg.GrossSalary = agg.GrossSalary.Add(l.GrossSalary)
		agg.TotalEmployeeContributions = agg.TotalEmployeeContributions.Add(l.TotalEmployeeContributions)
		agg.TotalEmployerContributions = agg.TotalEmployerContributions.Add(l.TotalEmployerContributions)
	}

	out := make([]payroll.MonthlyAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byEmployee[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EmployeeCode < out[j].EmployeeCode
	})
	return out
}

// GetMonthlyAggregation totals approved and paid runs whose period ends in
// the month and evaluates the day threshold on the totals.
func (s *PayrollServiceImpl) GetMonthlyAggregation(ctx context.Context, req payroll.MonthlyAggregationRequest) (payroll.MonthlyAggregationResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.MonthlyAggregationResponse{}, err
	}

	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.MonthlyAggregationResponse{}, err
	}

	contractType := employee.ContractType(strings.ToUpper(req.ContractType))
	if contractType == "" {
		contractType = employee.ContractTypeCDDTI
	}

	monthStart := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	threshold := DefaultMonthlyDayThreshold
	if req.CountryCode != "" {
		cfg, err := s.rules.GetCountryConfig(ctx, req.CountryCode, monthEnd)
		if err != nil {
			return payroll.MonthlyAggregationResponse{}, err
		}
		if cfg.MonthlyDayThreshold > 0 {
			threshold = cfg.MonthlyDayThreshold
		}
	}

	lines, err := s.payrollRepo.ListMonthlyLineTotals(ctx, companyID, monthStart, monthEnd, contractType)
	if err != nil {
		return payroll.MonthlyAggregationResponse{}, err
	}

	limit := decimal.NewFromInt(int64(threshold))
	employees := make([]payroll.MonthlyAggregateResponse, 0, len(lines))
	for _, agg := range FoldMonthly(lines) {
		employees = append(employees, payroll.MonthlyAggregateResponse{
			EmployeeID:                 agg.EmployeeID,
			EmployeeCode:               agg.EmployeeCode,
			EmployeeName:               agg.EmployeeName,
			ContractType:               string(agg.ContractType),
			RunCount:                   agg.RunCount,
			DaysWorked:                 agg.DaysWorked,
			HoursWorked:                agg.HoursWorked,
			GrossSalary:                agg.GrossSalary,
			TotalEmployeeContributions: agg.TotalEmployeeContributions,
			TotalEmployerContributions: agg.TotalEmployerContributions,
			MeetsDayThreshold:          agg.DaysWorked.GreaterThanOrEqual(limit),
		})
	}

	return payroll.MonthlyAggregationResponse{
		Year:         req.Year,
		Month:        req.Month,
		DayThreshold: threshold,
		Employees:    employees,
	}, nil
}
