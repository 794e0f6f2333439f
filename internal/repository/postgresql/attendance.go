package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const timeEntryStatusApproved = "approved"

// GetApprovedAggregates sums approved entries per employee, splitting
// regular hours from classified overtime bands.
func (a *attendanceRepository) GetApprovedAggregates(ctx context.Context, companyID string, employeeIDs []string, start, end time.Time) (map[string]attendance.Aggregate, error) {
	result := make(map[string]attendance.Aggregate)
	if len(employeeIDs) == 0 {
		return result, nil
	}

	q := GetQuerier(ctx, a.db)

	query := `
		SELECT employee_id, overtime_type, COALESCE(SUM(hours), 0), COUNT(DISTINCT entry_date)
		FROM time_entries
		WHERE company_id = $1
		  AND employee_id::text = ANY($2)
		  AND entry_date BETWEEN $3 AND $4
		  AND status = $5
		GROUP BY employee_id, overtime_type
		ORDER BY employee_id, overtime_type NULLS FIRST
	`

	rows, err := q.Query(ctx, query, companyID, employeeIDs, start, end, timeEntryStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate time entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			employeeID   string
			overtimeType *attendance.OvertimeType
			hours        decimal.Decimal
			days         int
		)
		if err := rows.Scan(&employeeID, &overtimeType, &hours, &days); err != nil {
			return nil, fmt.Errorf("failed to scan time entry aggregate: %w", err)
		}

		agg, ok := result[employeeID]
		if !ok {
			agg = attendance.Aggregate{
				EmployeeID:   employeeID,
				PeriodStart:  start,
				PeriodEnd:    end,
				RegularHours: decimal.Zero,
			}
		}
		if overtimeType == nil {
			agg.RegularHours = agg.RegularHours.Add(hours)
			agg.DaysWorked = days
		} else {
			agg.OvertimeBands = append(agg.OvertimeBands, attendance.OvertimeBand{Type: *overtimeType, Count: hours})
		}
		result[employeeID] = agg
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time entry aggregates: %w", err)
	}

	return result, nil
}
