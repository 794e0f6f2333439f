package payroll

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// RunStatus enum
type RunStatus string

const (
	RunStatusDraft       RunStatus = "draft"
	RunStatusCalculating RunStatus = "calculating"
	RunStatusCalculated  RunStatus = "calculated"
	RunStatusApproved    RunStatus = "approved"
	RunStatusPaid        RunStatus = "paid"
	RunStatusFailed      RunStatus = "failed"
)

// PayrollRun - one tenant's payroll for a period and payment frequency
type PayrollRun struct {
	ID                string
	CompanyID         string
	CountryCode       string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	PaymentDate       time.Time
	PaymentFrequency  employee.PaymentFrequency
	Status            RunStatus
	EmployeeCount     int
	TotalGross        decimal.Decimal
	TotalNet          decimal.Decimal
	TotalEmployerCost decimal.Decimal
	CreatedBy         *string
	ApprovedBy        *string
	ApprovedAt        *time.Time
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LinesLocked reports whether line items can no longer be recalculated.
func (r PayrollRun) LinesLocked() bool {
	return r.Status == RunStatusApproved || r.Status == RunStatusPaid
}

// EarningLine - one payable component in a line item
type EarningLine struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Method        string          `json:"method"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	Amount        decimal.Decimal `json:"amount"`
	TaxExempt     decimal.Decimal `json:"tax_exempt"`
}

// DeductionLine - a non-statutory deduction (advance, loan) withheld from net
type DeductionLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ContributionLine - one social contribution split between employee and employer
type ContributionLine struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Base           decimal.Decimal `json:"base"`
	EmployeeRate   decimal.Decimal `json:"employee_rate"`
	EmployerRate   decimal.Decimal `json:"employer_rate"`
	EmployeeAmount decimal.Decimal `json:"employee_amount"`
	EmployerAmount decimal.Decimal `json:"employer_amount"`
	TaxDeductible  bool            `json:"tax_deductible"`
}

// OtherTaxLine - an employer-only levy
type OtherTaxLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Base   decimal.Decimal `json:"base"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// PayrollLineItem - calculated result for one employee in one run
type PayrollLineItem struct {
	ID                         string
	RunID                      string
	CompanyID                  string
	EmployeeID                 string
	RateType                   employee.RateType
	ContractType               employee.ContractType // as of calculation
	BaseSalary                 decimal.Decimal
	TotalAllowances            decimal.Decimal
	TotalBonuses               decimal.Decimal
	OvertimePay                decimal.Decimal
	GrossSalary                decimal.Decimal
	TaxableGross               decimal.Decimal
	FiscalParts                decimal.Decimal
	IncomeTax                  decimal.Decimal
	TotalEmployeeContributions decimal.Decimal
	TotalEmployerContributions decimal.Decimal
	TotalOtherTaxes            decimal.Decimal
	TotalDeductions            decimal.Decimal
	OtherDeductions            decimal.Decimal
	NetSalary                  decimal.Decimal
	NetPayable                 decimal.Decimal
	EmployerCost               decimal.Decimal
	DaysWorked                 decimal.Decimal
	HoursWorked                decimal.Decimal
	Earnings                   []EarningLine
	Deductions                 []DeductionLine
	Contributions              []ContributionLine
	OtherTaxes                 []OtherTaxLine
	CalculatedAt               time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// ProgressStatus enum
type ProgressStatus string

const (
	ProgressStatusPending    ProgressStatus = "pending"
	ProgressStatusProcessing ProgressStatus = "processing"
	ProgressStatusCompleted  ProgressStatus = "completed"
	ProgressStatusFailed     ProgressStatus = "failed"
	ProgressStatusPaused     ProgressStatus = "paused"
)

// EmployeeError - a per-employee calculation failure recorded on the run
type EmployeeError struct {
	EmployeeID   string    `json:"employee_id"`
	EmployeeCode string    `json:"employee_code,omitempty"`
	Message      string    `json:"message"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// PayrollRunProgress - batch progress, one row per run
type PayrollRunProgress struct {
	RunID          string
	CompanyID      string
	Status         ProgressStatus
	TotalEmployees int
	ProcessedCount int
	SuccessCount   int
	ErrorCount     int
	CurrentChunk   int
	TotalChunks    int
	Errors         []EmployeeError
	StartedAt      *time.Time
	CompletedAt    *time.Time
	UpdatedAt      time.Time
}

// PercentComplete is processedCount / totalEmployees × 100.
func (p PayrollRunProgress) PercentComplete() float64 {
	if p.TotalEmployees <= 0 {
		if p.Status == ProgressStatusCompleted {
			return 100
		}
		return 0
	}
	pct := float64(p.ProcessedCount) / float64(p.TotalEmployees) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// InFlight reports whether a batch worker owns the progress record.
func (p PayrollRunProgress) InFlight() bool {
	return p.Status == ProgressStatusPending || p.Status == ProgressStatusProcessing
}

// MonthlyAggregate - totals across approved/paid runs of a calendar month
type MonthlyAggregate struct {
	EmployeeID                 string
	EmployeeCode               string
	EmployeeName               string
	ContractType               employee.ContractType
	RunCount                   int
	DaysWorked                 decimal.Decimal
	HoursWorked                decimal.Decimal
	GrossSalary                decimal.Decimal
	TotalEmployeeContributions decimal.Decimal
	TotalEmployerContributions decimal.Decimal
}
