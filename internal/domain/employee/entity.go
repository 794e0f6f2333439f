package employee

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Employee holds the fields payroll needs to calculate one line.
type Employee struct {
	ID                 string
	CompanyID          string
	EmployeeCode       string
	FullName           string
	RateType           RateType
	ContractType       ContractType
	PaymentFrequency   *PaymentFrequency
	WeeklyHours        string // regime, e.g. "40h"
	MaritalStatus      MaritalStatus
	VerifiedDependents int
	HireDate           time.Time
	TerminationDate    *time.Time
	SectorCode         string
	Classification     Classification
	City               *string
	EmploymentStatus   EmploymentStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SalaryComponent is an explicit component assigned to an employee.
// Amounts are monthly-equivalent.
type SalaryComponent struct {
	EmployeeID string
	Code       string
	Amount     decimal.Decimal
}

type RateType string

const (
	RateTypeMonthly RateType = "MONTHLY"
	RateTypeDaily   RateType = "DAILY"
	RateTypeHourly  RateType = "HOURLY"
)

func (t RateType) IsValid() bool {
	switch t {
	case RateTypeMonthly, RateTypeDaily, RateTypeHourly:
		return true
	}
	return false
}

type ContractType string

const (
	ContractTypeCDI     ContractType = "CDI"
	ContractTypeCDD     ContractType = "CDD"
	ContractTypeCDDTI   ContractType = "CDDTI"
	ContractTypeInterim ContractType = "INTERIM"
	ContractTypeStage   ContractType = "STAGE"
)

func (t ContractType) IsValid() bool {
	switch t {
	case ContractTypeCDI, ContractTypeCDD, ContractTypeCDDTI, ContractTypeInterim, ContractTypeStage:
		return true
	}
	return false
}

type PaymentFrequency string

const (
	PaymentFrequencyMonthly  PaymentFrequency = "MONTHLY"
	PaymentFrequencyWeekly   PaymentFrequency = "WEEKLY"
	PaymentFrequencyBiweekly PaymentFrequency = "BIWEEKLY"
	PaymentFrequencyDaily    PaymentFrequency = "DAILY"
)

func (f PaymentFrequency) IsValid() bool {
	switch f {
	case PaymentFrequencyMonthly, PaymentFrequencyWeekly, PaymentFrequencyBiweekly, PaymentFrequencyDaily:
		return true
	}
	return false
}

type MaritalStatus string

const (
	MaritalStatusSingle   MaritalStatus = "single"
	MaritalStatusMarried  MaritalStatus = "married"
	MaritalStatusDivorced MaritalStatus = "divorced"
	MaritalStatusWidowed  MaritalStatus = "widowed"
)

type Classification string

const (
	ClassificationLocal      Classification = "local"
	ClassificationExpatriate Classification = "expatriate"
	ClassificationSeconded   Classification = "seconded"
	ClassificationTrainee    Classification = "trainee"
)

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

// EffectiveRateType returns the rate type used for calculation.
// CDDTI contracts are always paid by the hour.
func (e Employee) EffectiveRateType() RateType {
	if e.ContractType == ContractTypeCDDTI {
		return RateTypeHourly
	}
	if e.RateType == "" {
		return RateTypeMonthly
	}
	return e.RateType
}

// EffectivePaymentFrequency defaults an unset frequency to MONTHLY.
func (e Employee) EffectivePaymentFrequency() PaymentFrequency {
	if e.PaymentFrequency == nil || *e.PaymentFrequency == "" {
		return PaymentFrequencyMonthly
	}
	return *e.PaymentFrequency
}

// DefaultWeeklyHours applies when the regime is empty or unparsable.
var DefaultWeeklyHours = decimal.NewFromInt(40)

// WeeklyHoursValue parses the regime ("40h", "48", "37.5h").
func (e Employee) WeeklyHoursValue() decimal.Decimal {
	raw := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(e.WeeklyHours)), "h")
	if raw == "" {
		return DefaultWeeklyHours
	}
	hours, err := decimal.NewFromString(raw)
	if err != nil || !hours.IsPositive() {
		return DefaultWeeklyHours
	}
	return hours
}

// YearsOfService counts completed years between hire date and at.
func (e Employee) YearsOfService(at time.Time) int {
	if e.HireDate.IsZero() || at.Before(e.HireDate) {
		return 0
	}
	years := at.Year() - e.HireDate.Year()
	if at.Month() < e.HireDate.Month() || (at.Month() == e.HireDate.Month() && at.Day() < e.HireDate.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
