package payroll

import (
	"context"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
)

// PayrollRepository defines data access methods for payroll runs.
// All methods include companyID parameter to prevent cross-company data access.
type PayrollRepository interface {
	// Runs
	CreateRun(ctx context.Context, run PayrollRun) (PayrollRun, error)
	GetRunByID(ctx context.Context, id string, companyID string) (PayrollRun, error)
	// GetRunForUpdate locks the run row; call it inside a transaction.
	GetRunForUpdate(ctx context.Context, id string, companyID string) (PayrollRun, error)
	ListRuns(ctx context.Context, companyID string, filter RunFilter) ([]PayrollRun, int64, error)
	// LockRunScope serializes run creation per company and frequency until
	// the surrounding transaction ends.
	LockRunScope(ctx context.Context, companyID string, frequency employee.PaymentFrequency) error
	HasOverlappingRun(ctx context.Context, companyID string, frequency employee.PaymentFrequency, start, end time.Time) (bool, error)
	UpdateRunStatus(ctx context.Context, id string, companyID string, status RunStatus) error
	StartCalculation(ctx context.Context, id string, companyID string, employeeCount int) error
	CompleteRun(ctx context.Context, id string, companyID string, employeeCount int) (PayrollRun, error)
	ApproveRun(ctx context.Context, id string, companyID string, approvedBy string, approvedAt time.Time) error
	MarkRunPaid(ctx context.Context, id string, companyID string, paidAt time.Time) error
	DeleteRun(ctx context.Context, id string, companyID string) error

	// Line Items
	UpsertLineItem(ctx context.Context, item PayrollLineItem) (PayrollLineItem, error)
	GetLineItem(ctx context.Context, runID string, employeeID string, companyID string) (PayrollLineItem, error)
	ListLineItems(ctx context.Context, runID string, companyID string, filter LineItemFilter) ([]PayrollLineItem, int64, error)
	DeleteLineItemsByRun(ctx context.Context, runID string, companyID string) error
	// DeleteStaleLineItems removes rows not recalculated since before.
	DeleteStaleLineItems(ctx context.Context, runID string, companyID string, before time.Time) (int64, error)

	// Progress
	ResetProgress(ctx context.Context, progress PayrollRunProgress) error
	GetProgress(ctx context.Context, runID string, companyID string) (PayrollRunProgress, error)
	SaveProgress(ctx context.Context, progress PayrollRunProgress) error
	DeleteProgress(ctx context.Context, runID string, companyID string) error
	// ListStaleProgress is used by the sweeper and spans tenants.
	ListStaleProgress(ctx context.Context, updatedBefore time.Time) ([]PayrollRunProgress, error)
	// PauseProgressIfStale pauses in-flight progress not updated since
	// updatedBefore and reports whether it did. Counters are left alone.
	PauseProgressIfStale(ctx context.Context, runID string, updatedBefore time.Time) (bool, error)

	// Aggregations
	// ListMonthlyLineTotals returns one row per line item of approved/paid
	// runs whose period ends in the month.
	ListMonthlyLineTotals(ctx context.Context, companyID string, monthStart, monthEnd time.Time, contractType employee.ContractType) ([]MonthlyAggregate, error)
}

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
