package payroll

import "time"

const timestampLayout = time.RFC3339

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timestampLayout)
	return &s
}

// NewRunResponse maps a run entity to its API shape.
func NewRunResponse(r PayrollRun) RunResponse {
	return RunResponse{
		ID:                r.ID,
		CompanyID:         r.CompanyID,
		CountryCode:       r.CountryCode,
		PeriodStart:       FormatDate(r.PeriodStart),
		PeriodEnd:         FormatDate(r.PeriodEnd),
		PaymentDate:       FormatDate(r.PaymentDate),
		PaymentFrequency:  string(r.PaymentFrequency),
		Status:            string(r.Status),
		EmployeeCount:     r.EmployeeCount,
		TotalGross:        r.TotalGross,
		TotalNet:          r.TotalNet,
		TotalEmployerCost: r.TotalEmployerCost,
		ApprovedBy:        r.ApprovedBy,
		ApprovedAt:        formatTimePtr(r.ApprovedAt),
		PaidAt:            formatTimePtr(r.PaidAt),
		CreatedAt:         r.CreatedAt.Format(timestampLayout),
	}
}

// NewProgressResponse maps a progress record to its API shape.
func NewProgressResponse(p PayrollRunProgress) ProgressResponse {
	errs := p.Errors
	if errs == nil {
		errs = []EmployeeError{}
	}
	return ProgressResponse{
		RunID:           p.RunID,
		Status:          string(p.Status),
		TotalEmployees:  p.TotalEmployees,
		ProcessedCount:  p.ProcessedCount,
		SuccessCount:    p.SuccessCount,
		ErrorCount:      p.ErrorCount,
		CurrentChunk:    p.CurrentChunk,
		TotalChunks:     p.TotalChunks,
		PercentComplete: p.PercentComplete(),
		Errors:          errs,
		StartedAt:       formatTimePtr(p.StartedAt),
		CompletedAt:     formatTimePtr(p.CompletedAt),
	}
}

// NewLineItemResponse maps a stored line item to its API shape.
func NewLineItemResponse(li PayrollLineItem) LineItemResponse {
	return LineItemResponse{
		RunID:                      li.RunID,
		EmployeeID:                 li.EmployeeID,
		EmployeeCode:               li.EmployeeCode,
		EmployeeName:               li.EmployeeName,
		RateType:                   string(li.RateType),
		ContractType:               string(li.ContractType),
		BaseSalary:                 li.BaseSalary,
		TotalAllowances:            li.TotalAllowances,
		TotalBonuses:               li.TotalBonuses,
		OvertimePay:                li.OvertimePay,
		GrossSalary:                li.GrossSalary,
		TaxableGross:               li.TaxableGross,
		FiscalParts:                li.FiscalParts,
		IncomeTax:                  li.IncomeTax,
		TotalEmployeeContributions: li.TotalEmployeeContributions,
		TotalEmployerContributions: li.TotalEmployerContributions,
		TotalOtherTaxes:            li.TotalOtherTaxes,
		TotalDeductions:            li.TotalDeductions,
		OtherDeductions:            li.OtherDeductions,
		NetSalary:                  li.NetSalary,
		NetPayable:                 li.NetPayable,
		EmployerCost:               li.EmployerCost,
		DaysWorked:                 li.DaysWorked,
		HoursWorked:                li.HoursWorked,
		Earnings:                   li.Earnings,
		Deductions:                 li.Deductions,
		Contributions:              li.Contributions,
		OtherTaxes:                 li.OtherTaxes,
		CalculatedAt:               li.CalculatedAt.Format(timestampLayout),
	}
}
