package payroll

import (
	"context"
	"time"
)

// BatchJob is the dispatch payload for one trigger of a run.
type BatchJob struct {
	RunID         string    `json:"run_id"`
	CompanyID     string    `json:"company_id"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	EmployeeCount int       `json:"employee_count"`
	TriggeredAt   time.Time `json:"triggered_at"`
}

// BatchRunner executes the batch step for a job, either in-process or
// through a queue. Delivery may be at-least-once.
type BatchRunner interface {
	Submit(ctx context.Context, job BatchJob) error
}

// BatchProcessor is the batch step a runner eventually invokes.
type BatchProcessor interface {
	ProcessRun(ctx context.Context, job BatchJob) error
}

// ProgressNotifier receives progress snapshots as chunks complete.
type ProgressNotifier interface {
	NotifyProgress(progress PayrollRunProgress)
}
