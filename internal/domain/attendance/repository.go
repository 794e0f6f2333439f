package attendance

import (
	"context"
	"time"
)

type AttendanceRepository interface {
	// GetApprovedAggregates returns approved time-entry totals keyed by
	// employee id. Employees without entries are absent from the map.
	GetApprovedAggregates(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time) (map[string]Aggregate, error)
}
