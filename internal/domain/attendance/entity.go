package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeEntry is one approved block of worked time.
type TimeEntry struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	Date         time.Time
	Hours        decimal.Decimal
	OvertimeType *OvertimeType
	Status       string
	ApprovedBy   *string
	ApprovedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OvertimeType classifies an overtime band.
type OvertimeType string

const (
	OvertimeHours41To46        OvertimeType = "41_46"
	OvertimeHoursOver46        OvertimeType = "over_46"
	OvertimeNight              OvertimeType = "night"
	OvertimeSundayHoliday      OvertimeType = "sunday_holiday"
	OvertimeNightSundayHoliday OvertimeType = "night_sunday_holiday"
)

func (t OvertimeType) IsValid() bool {
	switch t {
	case OvertimeHours41To46, OvertimeHoursOver46, OvertimeNight, OvertimeSundayHoliday, OvertimeNightSundayHoliday:
		return true
	}
	return false
}

// OvertimeBand is a pre-classified count of overtime hours.
type OvertimeBand struct {
	Type  OvertimeType    `json:"type"`
	Count decimal.Decimal `json:"count"`
}

// Aggregate sums an employee's approved time entries over a date range.
type Aggregate struct {
	EmployeeID    string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	RegularHours  decimal.Decimal
	DaysWorked    int
	OvertimeBands []OvertimeBand
}
