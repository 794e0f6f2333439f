package payroll

import "context"

// PayrollService exposes run lifecycle, calculation and read operations.
// companyID and userID come from JWT claims.
type PayrollService interface {
	// Runs
	CreateRun(ctx context.Context, req CreateRunRequest) (RunResponse, error)
	GetRun(ctx context.Context, id string) (RunResponse, error)
	ListRuns(ctx context.Context, filter RunFilter) (ListRunResponse, error)
	TriggerCalculation(ctx context.Context, id string) (ProgressResponse, error)
	ApproveRun(ctx context.Context, id string) (RunResponse, error)
	MarkRunPaid(ctx context.Context, id string) (RunResponse, error)
	RevertToDraft(ctx context.Context, id string) (RunResponse, error)
	DeleteRun(ctx context.Context, id string) error

	// Progress
	GetProgress(ctx context.Context, runID string) (ProgressResponse, error)

	// Line Items
	ListLineItems(ctx context.Context, runID string, filter LineItemFilter) (ListLineItemResponse, error)
	GetLineItem(ctx context.Context, runID string, employeeID string) (LineItemResponse, error)

	// Calculation
	Preview(ctx context.Context, req PreviewRequest) (PreviewResponse, error)

	// Regulatory
	GetMonthlyAggregation(ctx context.Context, req MonthlyAggregationRequest) (MonthlyAggregationResponse, error)
}
