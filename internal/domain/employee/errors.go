package employee

import "errors"

var (
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrInvalidRateType       = errors.New("rate type must be MONTHLY, DAILY or HOURLY")
	ErrInvalidContractType   = errors.New("invalid contract type")
	ErrInvalidFrequency      = errors.New("payment frequency must be MONTHLY, WEEKLY, BIWEEKLY or DAILY")
	ErrNegativeDependents    = errors.New("dependent count cannot be negative")
	ErrEmployeeNotCalculable = errors.New("employee is not active for the requested period")
)
