package attendance

import "errors"

var (
	ErrInvalidOvertimeType = errors.New("invalid overtime band type")
	ErrNegativeHours       = errors.New("hours cannot be negative")
)
