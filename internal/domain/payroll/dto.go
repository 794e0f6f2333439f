package payroll

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== RUN DTOs ==========

type CreateRunRequest struct {
	CountryCode      string `json:"country_code"`
	PeriodStart      string `json:"period_start"` // YYYY-MM-DD
	PeriodEnd        string `json:"period_end"`
	PaymentDate      string `json:"payment_date"`
	PaymentFrequency string `json:"payment_frequency"`
}

func (r *CreateRunRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidCountryCode(r.CountryCode) {
		errs = append(errs, validator.ValidationError{Field: "country_code", Message: "must be a 2-letter ISO country code"})
	}

	start, startOK := validator.IsValidDate(r.PeriodStart)
	if !startOK {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be a date in YYYY-MM-DD format"})
	}
	end, endOK := validator.IsValidDate(r.PeriodEnd)
	if !endOK {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be a date in YYYY-MM-DD format"})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must not be before period_start"})
	}

	payDate, payOK := validator.IsValidDate(r.PaymentDate)
	if !payOK {
		errs = append(errs, validator.ValidationError{Field: "payment_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	if payOK && startOK && payDate.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "payment_date", Message: "must not be before period_start"})
	}

	if !employee.PaymentFrequency(strings.ToUpper(r.PaymentFrequency)).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "payment_frequency", Message: "must be MONTHLY, WEEKLY, BIWEEKLY or DAILY"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RunResponse struct {
	ID                string          `json:"id"`
	CompanyID         string          `json:"company_id"`
	CountryCode       string          `json:"country_code"`
	PeriodStart       string          `json:"period_start"`
	PeriodEnd         string          `json:"period_end"`
	PaymentDate       string          `json:"payment_date"`
	PaymentFrequency  string          `json:"payment_frequency"`
	Status            string          `json:"status"`
	EmployeeCount     int             `json:"employee_count"`
	TotalGross        decimal.Decimal `json:"total_gross"`
	TotalNet          decimal.Decimal `json:"total_net"`
	TotalEmployerCost decimal.Decimal `json:"total_employer_cost"`
	ApprovedBy        *string         `json:"approved_by,omitempty"`
	ApprovedAt        *string         `json:"approved_at,omitempty"`
	PaidAt            *string         `json:"paid_at,omitempty"`
	CreatedAt         string          `json:"created_at"`
}

type RunFilter struct {
	Status           *string `json:"status,omitempty"`
	PaymentFrequency *string `json:"payment_frequency,omitempty"`
	Page             int     `json:"page"`
	Limit            int     `json:"limit"`
}

type ListRunResponse struct {
	Data       []RunResponse `json:"data"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
}

// ========== PROGRESS DTOs ==========

type ProgressResponse struct {
	RunID           string          `json:"run_id"`
	Status          string          `json:"status"`
	TotalEmployees  int             `json:"total_employees"`
	ProcessedCount  int             `json:"processed_count"`
	SuccessCount    int             `json:"success_count"`
	ErrorCount      int             `json:"error_count"`
	CurrentChunk    int             `json:"current_chunk"`
	TotalChunks     int             `json:"total_chunks"`
	PercentComplete float64         `json:"percent_complete"`
	Errors          []EmployeeError `json:"errors"`
	StartedAt       *string         `json:"started_at,omitempty"`
	CompletedAt     *string         `json:"completed_at,omitempty"`
}

// StreamTokenResponse carries the short-lived token for the progress stream.
type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ========== LINE ITEM DTOs ==========

type LineItemResponse struct {
	RunID                      string             `json:"run_id"`
	EmployeeID                 string             `json:"employee_id"`
	EmployeeCode               *string            `json:"employee_code,omitempty"`
	EmployeeName               *string            `json:"employee_name,omitempty"`
	RateType                   string             `json:"rate_type"`
	ContractType               string             `json:"contract_type"`
	BaseSalary                 decimal.Decimal    `json:"base_salary"`
	TotalAllowances            decimal.Decimal    `json:"total_allowances"`
	TotalBonuses               decimal.Decimal    `json:"total_bonuses"`
	OvertimePay                decimal.Decimal    `json:"overtime_pay"`
	GrossSalary                decimal.Decimal    `json:"gross_salary"`
	TaxableGross               decimal.Decimal    `json:"taxable_gross"`
	FiscalParts                decimal.Decimal    `json:"fiscal_parts"`
	IncomeTax                  decimal.Decimal    `json:"income_tax"`
	TotalEmployeeContributions decimal.Decimal    `json:"total_employee_contributions"`
	TotalEmployerContributions decimal.Decimal    `json:"total_employer_contributions"`
	TotalOtherTaxes            decimal.Decimal    `json:"total_other_taxes"`
	TotalDeductions            decimal.Decimal    `json:"total_deductions"`
	OtherDeductions            decimal.Decimal    `json:"other_deductions"`
	NetSalary                  decimal.Decimal    `json:"net_salary"`
	NetPayable                 decimal.Decimal    `json:"net_payable"`
	EmployerCost               decimal.Decimal    `json:"employer_cost"`
	DaysWorked                 decimal.Decimal    `json:"days_worked"`
	HoursWorked                decimal.Decimal    `json:"hours_worked"`
	Earnings                   []EarningLine      `json:"earnings"`
	Deductions                 []DeductionLine    `json:"deductions"`
	Contributions              []ContributionLine `json:"contributions"`
	OtherTaxes                 []OtherTaxLine     `json:"other_taxes"`
	CalculatedAt               string             `json:"calculated_at"`
}

type LineItemFilter struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type ListLineItemResponse struct {
	Data       []LineItemResponse `json:"data"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

// ========== PREVIEW DTOs ==========

// PreviewRequest calculates one employee without persisting anything.
// Either EmployeeID (stored employee) or Employee (ad-hoc, e.g. a hiring
// simulation) must be given.
type PreviewRequest struct {
	CountryCode      string                    `json:"country_code"`
	PeriodStart      string                    `json:"period_start"`
	PeriodEnd        string                    `json:"period_end"`
	PaymentFrequency string                    `json:"payment_frequency"`
	EmployeeID       *string                   `json:"employee_id,omitempty"`
	Employee         *PreviewEmployee          `json:"employee,omitempty"`
	Components       []ComponentInput          `json:"components"`
	OvertimeBands    []attendance.OvertimeBand `json:"overtime_bands,omitempty"`
	HiringPreview    bool                      `json:"hiring_preview"`
}

type PreviewEmployee struct {
	RateType           string  `json:"rate_type"`
	ContractType       string  `json:"contract_type"`
	WeeklyHours        string  `json:"weekly_hours"`
	MaritalStatus      string  `json:"marital_status"`
	VerifiedDependents int     `json:"verified_dependents"`
	HireDate           string  `json:"hire_date"`
	SectorCode         string  `json:"sector_code"`
	Classification     string  `json:"classification"`
	City               *string `json:"city,omitempty"`
}

// ToEmployee builds an ad-hoc employee for a preview. Call Validate first.
func (p PreviewEmployee) ToEmployee(companyID string) employee.Employee {
	emp := employee.Employee{
		CompanyID:          companyID,
		FullName:           "preview",
		RateType:           employee.RateType(strings.ToUpper(p.RateType)),
		ContractType:       employee.ContractType(strings.ToUpper(p.ContractType)),
		WeeklyHours:        p.WeeklyHours,
		MaritalStatus:      employee.MaritalStatus(strings.ToLower(p.MaritalStatus)),
		VerifiedDependents: p.VerifiedDependents,
		SectorCode:         p.SectorCode,
		Classification:     employee.Classification(strings.ToLower(p.Classification)),
		City:               p.City,
		EmploymentStatus:   employee.EmploymentStatusActive,
	}
	if emp.MaritalStatus == "" {
		emp.MaritalStatus = employee.MaritalStatusSingle
	}
	if emp.Classification == "" {
		emp.Classification = employee.ClassificationLocal
	}
	if hire, ok := validator.IsValidDate(p.HireDate); ok {
		emp.HireDate = hire
	}
	return emp
}

func (r *PreviewRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidCountryCode(r.CountryCode) {
		errs = append(errs, validator.ValidationError{Field: "country_code", Message: "must be a 2-letter ISO country code"})
	}
	start, startOK := validator.IsValidDate(r.PeriodStart)
	if !startOK {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be a date in YYYY-MM-DD format"})
	}
	end, endOK := validator.IsValidDate(r.PeriodEnd)
	if !endOK {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be a date in YYYY-MM-DD format"})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must not be before period_start"})
	}
	if r.PaymentFrequency != "" && !employee.PaymentFrequency(strings.ToUpper(r.PaymentFrequency)).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "payment_frequency", Message: "must be MONTHLY, WEEKLY, BIWEEKLY or DAILY"})
	}
	if (r.EmployeeID == nil || *r.EmployeeID == "") && r.Employee == nil {
		errs = append(errs, validator.ValidationError{Field: "employee", Message: "employee_id or employee is required"})
	}
	if r.Employee != nil {
		if r.Employee.VerifiedDependents < 0 {
			errs = append(errs, validator.ValidationError{Field: "employee.verified_dependents", Message: "must be non-negative"})
		}
		if r.Employee.RateType != "" && !employee.RateType(strings.ToUpper(r.Employee.RateType)).IsValid() {
			errs = append(errs, validator.ValidationError{Field: "employee.rate_type", Message: "must be MONTHLY, DAILY or HOURLY"})
		}
		if r.Employee.ContractType != "" && !employee.ContractType(strings.ToUpper(r.Employee.ContractType)).IsValid() {
			errs = append(errs, validator.ValidationError{Field: "employee.contract_type", Message: "must be CDI, CDD, CDDTI, INTERIM or STAGE"})
		}
		if r.Employee.HireDate != "" {
			if _, ok := validator.IsValidDate(r.Employee.HireDate); !ok {
				errs = append(errs, validator.ValidationError{Field: "employee.hire_date", Message: "must be a date in YYYY-MM-DD format"})
			}
		}
	}
	for _, c := range r.Components {
		if validator.IsEmpty(c.Code) {
			errs = append(errs, validator.ValidationError{Field: "components", Message: "component code is required"})
			break
		}
	}
	for _, b := range r.OvertimeBands {
		if !b.Type.IsValid() {
			errs = append(errs, validator.ValidationError{Field: "overtime_bands", Message: "invalid overtime band type: " + string(b.Type)})
			break
		}
		if b.Count.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "overtime_bands", Message: "count must be non-negative"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PreviewResponse struct {
	LineItemResponse
	Warnings []string `json:"warnings,omitempty"`
}

// ========== MONTHLY AGGREGATION DTOs ==========

type MonthlyAggregationRequest struct {
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	ContractType string `json:"contract_type"` // default CDDTI
	// CountryCode selects the config whose day threshold applies.
	CountryCode string `json:"country_code"`
}

func (r *MonthlyAggregationRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Month < 1 || r.Month > 12 {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "must be between 1 and 12"})
	}
	if r.Year < 2000 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "must be 2000 or later"})
	}
	if r.CountryCode != "" && !validator.IsValidCountryCode(r.CountryCode) {
		errs = append(errs, validator.ValidationError{Field: "country_code", Message: "must be a 2-letter ISO country code"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MonthlyAggregateResponse struct {
	EmployeeID                 string          `json:"employee_id"`
	EmployeeCode               string          `json:"employee_code"`
	EmployeeName               string          `json:"employee_name"`
	ContractType               string          `json:"contract_type"`
	RunCount                   int             `json:"run_count"`
	DaysWorked                 decimal.Decimal `json:"days_worked"`
	HoursWorked                decimal.Decimal `json:"hours_worked"`
	GrossSalary                decimal.Decimal `json:"gross_salary"`
	TotalEmployeeContributions decimal.Decimal `json:"total_employee_contributions"`
	TotalEmployerContributions decimal.Decimal `json:"total_employer_contributions"`
	MeetsDayThreshold          bool            `json:"meets_day_threshold"`
}

type MonthlyAggregationResponse struct {
	Year         int                        `json:"year"`
	Month        int                        `json:"month"`
	DayThreshold int                        `json:"day_threshold"`
	Employees    []MonthlyAggregateResponse `json:"employees"`
}

const dateLayout = "2006-01-02"

// FormatDate renders dates the way requests accept them.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
