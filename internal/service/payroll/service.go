package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/metrics"
	"github.com/go-chi/jwtauth/v5"
)

// DefaultChunkSize is the number of employees enumerated per batch chunk.
const DefaultChunkSize = 1000

type PayrollServiceImpl struct {
	transactor     payroll.Transactor
	payrollRepo    payroll.PayrollRepository
	employeeRepo   employee.EmployeeRepository
	attendanceRepo attendance.AttendanceRepository
	rules          countryrule.CountryRuleRepository
	calculator     *LineCalculator
	runner         payroll.BatchRunner
	metrics        *metrics.PayrollMetrics
	chunkSize      int
	now            func() time.Time
}

func NewPayrollService(
	transactor payroll.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	attendanceRepo attendance.AttendanceRepository,
	rules countryrule.CountryRuleRepository,
	calculator *LineCalculator,
	runner payroll.BatchRunner,
	payrollMetrics *metrics.PayrollMetrics,
	chunkSize int,
) payroll.PayrollService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &PayrollServiceImpl{
		transactor:     transactor,
		payrollRepo:    payrollRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		rules:          rules,
		calculator:     calculator,
		runner:         runner,
		metrics:        payrollMetrics,
		chunkSize:      chunkSize,
		now:            time.Now,
	}
}

// Helper to get company_id and user_id from JWT context
func getClaimsFromContext(ctx context.Context) (companyID, userID string, err error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract claims from context: %w", user.ErrInvalidToken)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", "", user.ErrCompanyIDRequired
	}

	userID, _ = claims["user_id"].(string)

	return companyID, userID, nil
}

func chunkCount(total, chunkSize int) int {
	if total <= 0 {
		return 0
	}
	return (total + chunkSize - 1) / chunkSize
}

// runnerName labels dispatch metrics.
func runnerName(r payroll.BatchRunner) string {
	if named, ok := r.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}

func (s *PayrollServiceImpl) recordTransition(from, to payroll.RunStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(from), string(to))
	}
}

// ========== RUNS ==========

func (s *PayrollServiceImpl) CreateRun(ctx context.Context, req payroll.CreateRunRequest) (payroll.RunResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResponse{}, err
	}

	companyID, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	// Parse dates (already validated)
	periodStart, _ := time.Parse("2006-01-02", req.PeriodStart)
	periodEnd, _ := time.Parse("2006-01-02", req.PeriodEnd)
	paymentDate, _ := time.Parse("2006-01-02", req.PaymentDate)
	frequency := employee.PaymentFrequency(strings.ToUpper(req.PaymentFrequency))

	// The run must be calculable: a config has to cover the period.
	if _, err := s.rules.GetCountryConfig(ctx, req.CountryCode, periodStart); err != nil {
		return payroll.RunResponse{}, err
	}

	var created payroll.PayrollRun
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.payrollRepo.LockRunScope(ctx, companyID, frequency); err != nil {
			return err
		}
		overlap, err := s.payrollRepo.HasOverlappingRun(ctx, companyID, frequency, periodStart, periodEnd)
		if err != nil {
			return fmt.Errorf("failed to check overlapping runs: %w", err)
		}
		if overlap {
			return payroll.ErrRunOverlap
		}

		run := payroll.PayrollRun{
			CompanyID:        companyID,
			CountryCode:      req.CountryCode,
			PeriodStart:      periodStart,
			PeriodEnd:        periodEnd,
			PaymentDate:      paymentDate,
			PaymentFrequency: frequency,
			Status:           payroll.RunStatusDraft,
		}
		if userID != "" {
			run.CreatedBy = &userID
		}

		created, err = s.payrollRepo.CreateRun(ctx, run)
		if err != nil {
			return fmt.Errorf("failed to create payroll run: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	slog.Info("payroll run created", "run_id", created.ID, "company_id", companyID, "frequency", frequency)
	return payroll.NewRunResponse(created), nil
}

func (s *PayrollServiceImpl) GetRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, id, companyID)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	return payroll.NewRunResponse(run), nil
}

func (s *PayrollServiceImpl) ListRuns(ctx context.Context, filter payroll.RunFilter) (payroll.ListRunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ListRunResponse{}, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	runs, total, err := s.payrollRepo.ListRuns(ctx, companyID, filter)
	if err != nil {
		return payroll.ListRunResponse{}, err
	}

	data := make([]payroll.RunResponse, 0, len(runs))
	for _, r := range runs {
		data = append(data, payroll.NewRunResponse(r))
	}

	return payroll.ListRunResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// TriggerCalculation moves the run to calculating, resets its progress and
// hands the batch step to the runner. A run whose progress is still pending
// or processing is rejected.
func (s *PayrollServiceImpl) TriggerCalculation(ctx context.Context, id string) (payroll.ProgressResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ProgressResponse{}, err
	}

	var (
		run      payroll.PayrollRun
		from     payroll.RunStatus
		progress payroll.PayrollRunProgress
	)
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err = s.payrollRepo.GetRunForUpdate(ctx, id, companyID)
		if err != nil {
			return err
		}
		from = run.Status
		if err := payroll.CheckTransition(payroll.ActionTrigger, run.Status); err != nil {
			return err
		}

		current, err := s.payrollRepo.GetProgress(ctx, id, companyID)
		switch {
		case err == nil && current.InFlight():
			return payroll.ErrRunAlreadyProcessing
		case err != nil && !errors.Is(err, payroll.ErrProgressNotFound):
			return fmt.Errorf("failed to read payroll progress: %w", err)
		}

		total, err := s.employeeRepo.CountEligible(ctx, companyID, run.PaymentFrequency)
		if err != nil {
			return fmt.Errorf("failed to count eligible employees: %w", err)
		}

		if err := s.payrollRepo.StartCalculation(ctx, id, companyID, total); err != nil {
			return err
		}

		now := s.now()
		progress = payroll.PayrollRunProgress{
			RunID:          id,
			CompanyID:      companyID,
			Status:         payroll.ProgressStatusPending,
			TotalEmployees: total,
			TotalChunks:    chunkCount(total, s.chunkSize),
			Errors:         []payroll.EmployeeError{},
			StartedAt:      &now,
			UpdatedAt:      now,
		}
		run.EmployeeCount = total
		return s.payrollRepo.ResetProgress(ctx, progress)
	})
	if err != nil {
		return payroll.ProgressResponse{}, err
	}
	s.recordTransition(from, payroll.RunStatusCalculating)

	job := payroll.BatchJob{
		RunID:         run.ID,
		CompanyID:     companyID,
		PeriodStart:   run.PeriodStart,
		PeriodEnd:     run.PeriodEnd,
		EmployeeCount: run.EmployeeCount,
		TriggeredAt:   s.now(),
	}

	name := runnerName(s.runner)
	if err := s.runner.Submit(ctx, job); err != nil {
		if s.metrics != nil {
			s.metrics.IncDispatchError(name)
		}
		slog.Error("failed to dispatch payroll batch", "run_id", run.ID, "company_id", companyID, "runner", name, "error", err)
		s.failDispatch(ctx, run, progress, err)
		return payroll.ProgressResponse{}, fmt.Errorf("failed to dispatch payroll calculation: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncRunTriggered(name)
	}

	slog.Info("payroll calculation triggered", "run_id", run.ID, "company_id", companyID, "employees", run.EmployeeCount, "runner", name)

	// A direct runner may already have moved progress along.
	latest, err := s.payrollRepo.GetProgress(ctx, id, companyID)
	if err != nil {
		return payroll.NewProgressResponse(progress), nil
	}
	return payroll.NewProgressResponse(latest), nil
}

func (s *PayrollServiceImpl) failDispatch(ctx context.Context, run payroll.PayrollRun, progress payroll.PayrollRunProgress, cause error) {
	now := s.now()
	progress.Status = payroll.ProgressStatusFailed
	progress.CompletedAt = &now
	progress.UpdatedAt = now
	progress.Errors = append(progress.Errors, payroll.EmployeeError{Message: "dispatch failed: " + cause.Error(), OccurredAt: now})

	if err := s.payrollRepo.SaveProgress(ctx, progress); err != nil {
		slog.Error("failed to mark progress failed", "run_id", run.ID, "error", err)
	}
	if err := s.payrollRepo.UpdateRunStatus(ctx, run.ID, run.CompanyID, payroll.RunStatusFailed); err != nil {
		slog.Error("failed to mark run failed", "run_id", run.ID, "error", err)
		return
	}
	s.recordTransition(payroll.RunStatusCalculating, payroll.RunStatusFailed)
}

func (s *PayrollServiceImpl) ApproveRun(ctx context.Context, id string) (payroll.RunResponse, error) {
	companyID, userID, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}
	if userID == "" {
		return payroll.RunResponse{}, user.ErrUserIDRequired
	}

	return s.transition(ctx, id, companyID, payroll.ActionApprove, func(ctx context.Context, run payroll.PayrollRun) error {
		return s.payrollRepo.ApproveRun(ctx, run.ID, companyID, userID, s.now())
	})
}

func (s *PayrollServiceImpl) MarkRunPaid(ctx context.Context, id string) (payroll.RunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	return s.transition(ctx, id, companyID, payroll.ActionPay, func(ctx context.Context, run payroll.PayrollRun) error {
		return s.payrollRepo.MarkRunPaid(ctx, run.ID, companyID, s.now())
	})
}

// RevertToDraft discards calculated line items and progress.
func (s *PayrollServiceImpl) RevertToDraft(ctx context.Context, id string) (payroll.RunResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.RunResponse{}, err
	}

	return s.transition(ctx, id, companyID, payroll.ActionRevert, func(ctx context.Context, run payroll.PayrollRun) error {
		if err := s.payrollRepo.DeleteLineItemsByRun(ctx, run.ID, companyID); err != nil {
			return err
		}
		if err := s.payrollRepo.DeleteProgress(ctx, run.ID, companyID); err != nil && !errors.Is(err, payroll.ErrProgressNotFound) {
			return err
		}
		return s.payrollRepo.UpdateRunStatus(ctx, run.ID, companyID, payroll.RunStatusDraft)
	})
}

// transition locks the run, checks the action against its status, then
// applies mutate. Nothing is written when the check fails.
func (s *PayrollServiceImpl) transition(
	ctx context.Context,
	id, companyID string,
	action payroll.RunAction,
	mutate func(ctx context.Context, run payroll.PayrollRun) error,
) (payroll.RunResponse, error) {
	var (
		from    payroll.RunStatus
		updated payroll.PayrollRun
	)
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.payrollRepo.GetRunForUpdate(ctx, id, companyID)
		if err != nil {
			return err
		}
		from = run.Status
		if err := payroll.CheckTransition(action, run.Status); err != nil {
			return err
		}
		if err := mutate(ctx, run); err != nil {
			return err
		}
		updated, err = s.payrollRepo.GetRunByID(ctx, id, companyID)
		return err
	})
	if err != nil {
		return payroll.RunResponse{}, err
	}

	s.recordTransition(from, updated.Status)
	slog.Info("payroll run transitioned", "run_id", id, "company_id", companyID, "action", action, "from", from, "to", updated.Status)
	return payroll.NewRunResponse(updated), nil
}

func (s *PayrollServiceImpl) DeleteRun(ctx context.Context, id string) error {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return err
	}

	return s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		run, err := s.payrollRepo.GetRunForUpdate(ctx, id, companyID)
		if err != nil {
			return err
		}
		if err := payroll.CheckTransition(payroll.ActionDelete, run.Status); err != nil {
			return err
		}
		// Line items and progress cascade.
		return s.payrollRepo.DeleteRun(ctx, id, companyID)
	})
}

// ========== PROGRESS ==========

func (s *PayrollServiceImpl) GetProgress(ctx context.Context, runID string) (payroll.ProgressResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ProgressResponse{}, err
	}

	progress, err := s.payrollRepo.GetProgress(ctx, runID, companyID)
	if err != nil {
		return payroll.ProgressResponse{}, err
	}
	return payroll.NewProgressResponse(progress), nil
}

// ========== LINE ITEMS ==========

func (s *PayrollServiceImpl) ListLineItems(ctx context.Context, runID string, filter payroll.LineItemFilter) (payroll.ListLineItemResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.ListLineItemResponse{}, err
	}

	if _, err := s.payrollRepo.GetRunByID(ctx, runID, companyID); err != nil {
		return payroll.ListLineItemResponse{}, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}

	items, total, err := s.payrollRepo.ListLineItems(ctx, runID, companyID, filter)
	if err != nil {
		return payroll.ListLineItemResponse{}, err
	}

	data := make([]payroll.LineItemResponse, 0, len(items))
	for _, li := range items {
		data = append(data, payroll.NewLineItemResponse(li))
	}

	return payroll.ListLineItemResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) GetLineItem(ctx context.Context, runID string, employeeID string) (payroll.LineItemResponse, error) {
	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.LineItemResponse{}, err
	}

	item, err := s.payrollRepo.GetLineItem(ctx, runID, employeeID, companyID)
	if err != nil {
		return payroll.LineItemResponse{}, err
	}
	return payroll.NewLineItemResponse(item), nil
}

// ========== PREVIEW ==========

// Preview calculates one employee without writing anything. Request
// components override the stored ones with the same code.
func (s *PayrollServiceImpl) Preview(ctx context.Context, req payroll.PreviewRequest) (payroll.PreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PreviewResponse{}, err
	}

	companyID, _, err := getClaimsFromContext(ctx)
	if err != nil {
		return payroll.PreviewResponse{}, err
	}

	periodStart, _ := time.Parse("2006-01-02", req.PeriodStart)
	periodEnd, _ := time.Parse("2006-01-02", req.PeriodEnd)

	in := payroll.CalculationInput{
		CountryCode:      req.CountryCode,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		PaymentFrequency: employee.PaymentFrequency(strings.ToUpper(req.PaymentFrequency)),
		Components:       req.Components,
		OvertimeBands:    req.OvertimeBands,
		HiringPreview:    req.HiringPreview,
	}

	if req.EmployeeID != nil && *req.EmployeeID != "" {
		emp, err := s.employeeRepo.GetByID(ctx, *req.EmployeeID, companyID)
		if err != nil {
			return payroll.PreviewResponse{}, err
		}
		in.Employee = emp

		stored, err := s.employeeRepo.GetSalaryComponents(ctx, companyID, []string{emp.ID})
		if err != nil {
			return payroll.PreviewResponse{}, fmt.Errorf("failed to load salary components: %w", err)
		}
		for _, sc := range stored[emp.ID] {
			in.Components = append(in.Components, payroll.ComponentInput{Code: sc.Code, Amount: sc.Amount})
		}

		entries, err := s.attendanceRepo.GetApprovedAggregates(ctx, companyID, []string{emp.ID}, periodStart, periodEnd)
		if err != nil {
			return payroll.PreviewResponse{}, fmt.Errorf("failed to load time entries: %w", err)
		}
		if agg, ok := entries[emp.ID]; ok {
			in.TimeEntries = &agg
		}
	} else {
		in.Employee = req.Employee.ToEmployee(companyID)
	}

	result, err := s.calculator.Preview(ctx, in)
	if err != nil {
		return payroll.PreviewResponse{}, err
	}

	item := result.LineItem("", companyID, s.now())
	if in.Employee.ID != "" {
		item.EmployeeCode = &in.Employee.EmployeeCode
		item.EmployeeName = &in.Employee.FullName
	}

	return payroll.PreviewResponse{
		LineItemResponse: payroll.NewLineItemResponse(item),
		Warnings:         result.Warnings,
	}, nil
}
