package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// BatchOptions tunes the batch step.
type BatchOptions struct {
	ChunkSize int
	Workers   int
	LockTTL   time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 30 * time.Minute
	}
	return o
}

// BatchService calculates every eligible employee of a run in chunks.
type BatchService struct {
	transactor     payroll.Transactor
	payrollRepo    payroll.PayrollRepository
	employeeRepo   employee.EmployeeRepository
	attendanceRepo attendance.AttendanceRepository
	componentRepo  salarycomponent.SalaryComponentRepository
	rules          countryrule.CountryRuleRepository
	calculator     *LineCalculator
	locker         lock.Locker
	notifier       payroll.ProgressNotifier
	metrics        *metrics.PayrollMetrics
	opts           BatchOptions
	now            func() time.Time
}

func NewBatchService(
	transactor payroll.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	attendanceRepo attendance.AttendanceRepository,
	componentRepo salarycomponent.SalaryComponentRepository,
	rules countryrule.CountryRuleRepository,
	calculator *LineCalculator,
	locker lock.Locker,
	notifier payroll.ProgressNotifier,
	payrollMetrics *metrics.PayrollMetrics,
	opts BatchOptions,
) *BatchService {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &BatchService{
		transactor:     transactor,
		payrollRepo:    payrollRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		componentRepo:  componentRepo,
		rules:          rules,
		calculator:     calculator,
		locker:         locker,
		notifier:       notifier,
		metrics:        payrollMetrics,
		opts:           opts.withDefaults(),
		now:            time.Now,
	}
}

func runLockKey(runID string) string {
	return "payroll:run:" + runID + ":batch"
}

// runContext is what every employee of a run shares.
type runContext struct {
	run         payroll.PayrollRun
	cfg         countryrule.CountryConfig
	cfgErr      error
	definitions []salarycomponent.Definition
	activations []salarycomponent.Activation
}

// ProcessRun is safe to call more than once for the same job: a second
// delivery either loses the lock or finds the run no longer calculating.
func (s *BatchService) ProcessRun(ctx context.Context, job payroll.BatchJob) error {
	token, ok, err := s.locker.TryLock(ctx, runLockKey(job.RunID), s.opts.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		slog.Info("payroll batch already running elsewhere, skipping", "run_id", job.RunID, "company_id", job.CompanyID)
		s.finished(metrics.RunOutcomeSkipped)
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), runLockKey(job.RunID), token); err != nil {
			slog.Warn("failed to release run lock", "run_id", job.RunID, "error", err)
		}
	}()

	run, err := s.payrollRepo.GetRunByID(ctx, job.RunID, job.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to load payroll run: %w", err)
	}
	if run.Status != payroll.RunStatusCalculating {
		slog.Info("payroll run not calculating, skipping batch", "run_id", run.ID, "status", run.Status)
		s.finished(metrics.RunOutcomeSkipped)
		return nil
	}

	started := s.now()
	progress, err := s.payrollRepo.GetProgress(ctx, run.ID, run.CompanyID)
	if err != nil && !errors.Is(err, payroll.ErrProgressNotFound) {
		return fmt.Errorf("failed to load payroll progress: %w", err)
	}
	progress = payroll.PayrollRunProgress{
		RunID:          run.ID,
		CompanyID:      run.CompanyID,
		Status:         payroll.ProgressStatusProcessing,
		TotalEmployees: progress.TotalEmployees,
		TotalChunks:    progress.TotalChunks,
		Errors:         []payroll.EmployeeError{},
		StartedAt:      &started,
		UpdatedAt:      started,
	}
	if progress.TotalEmployees == 0 {
		progress.TotalEmployees = job.EmployeeCount
		progress.TotalChunks = chunkCount(job.EmployeeCount, s.opts.ChunkSize)
	}
	if err := s.saveProgress(ctx, &progress); err != nil {
		return err
	}

	rc := runContext{run: run}
	rc.cfg, rc.cfgErr = s.rules.GetCountryConfig(ctx, run.CountryCode, run.PeriodStart)
	if rc.cfgErr != nil && !errors.Is(rc.cfgErr, countryrule.ErrConfigNotFound) {
		return s.failRun(ctx, run, &progress, fmt.Errorf("failed to load country config: %w", rc.cfgErr))
	}
	rc.definitions, err = s.componentRepo.ListDefinitions(ctx, run.CountryCode)
	if err != nil {
		return s.failRun(ctx, run, &progress, fmt.Errorf("failed to load component definitions: %w", err))
	}
	rc.activations, err = s.componentRepo.ListActiveActivations(ctx, run.CompanyID, run.CountryCode)
	if err != nil {
		return s.failRun(ctx, run, &progress, fmt.Errorf("failed to load component activations: %w", err))
	}

	afterID := ""
	for {
		batch, err := s.employeeRepo.ListEligible(ctx, run.CompanyID, run.PaymentFrequency, afterID, s.opts.ChunkSize)
		if err != nil {
			return s.failRun(ctx, run, &progress, fmt.Errorf("failed to enumerate employees: %w", err))
		}
		if len(batch) == 0 {
			break
		}

		if err := s.processChunk(ctx, rc, batch, &progress); err != nil {
			if ctx.Err() != nil {
				return s.pause(run, &progress, ctx.Err())
			}
			return s.failRun(ctx, run, &progress, err)
		}

		afterID = batch[len(batch)-1].ID
		if len(batch) < s.opts.ChunkSize {
			break
		}
	}

	if err := s.complete(ctx, run, &progress, started); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ObserveRunDuration(s.now().Sub(started))
	}
	s.finished(metrics.RunOutcomeCalculated)
	slog.Info("payroll batch completed",
		"run_id", run.ID,
		"company_id", run.CompanyID,
		"processed", progress.ProcessedCount,
		"succeeded", progress.SuccessCount,
		"failed", progress.ErrorCount,
	)
	return nil
}

// processChunk calculates one chunk on a bounded pool. Per-employee
// failures are recorded on progress and never returned.
func (s *BatchService) processChunk(ctx context.Context, rc runContext, batch []employee.Employee, progress *payroll.PayrollRunProgress) error {
	chunkStart := s.now()

	ids := make([]string, len(batch))
	for i, e := range batch {
		ids[i] = e.ID
	}
	components, err := s.employeeRepo.GetSalaryComponents(ctx, rc.run.CompanyID, ids)
	if err != nil {
		return fmt.Errorf("failed to load salary components: %w", err)
	}
	entries, err := s.attendanceRepo.GetApprovedAggregates(ctx, rc.run.CompanyID, ids, rc.run.PeriodStart, rc.run.PeriodEnd)
	if err != nil {
		return fmt.Errorf("failed to load time entries: %w", err)
	}

	var (
		mu        sync.Mutex
		succeeded int
		failures  []payroll.EmployeeError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, emp := range batch {
		emp := emp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var agg *attendance.Aggregate
			if a, ok := entries[emp.ID]; ok {
				agg = &a
			}

			calcErr := s.calculateOne(gctx, rc, emp, components[emp.ID], agg)

			mu.Lock()
			defer mu.Unlock()
			if calcErr != nil {
				failures = append(failures, payroll.EmployeeError{
					EmployeeID:   emp.ID,
					EmployeeCode: emp.EmployeeCode,
					Message:      calcErr.Error(),
					OccurredAt:   s.now(),
				})
				slog.Warn("payroll calculation failed for employee",
					"run_id", rc.run.ID, "employee_id", emp.ID, "error", calcErr)
				return nil
			}
			succeeded++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	progress.CurrentChunk++
	if progress.CurrentChunk > progress.TotalChunks {
		progress.TotalChunks = progress.CurrentChunk
	}
	progress.ProcessedCount += len(batch)
	progress.SuccessCount += succeeded
	progress.ErrorCount += len(failures)
	progress.Errors = append(progress.Errors, failures...)
	if progress.ProcessedCount > progress.TotalEmployees {
		progress.TotalEmployees = progress.ProcessedCount
	}

	if s.metrics != nil {
		s.metrics.ObserveChunkDuration(s.now().Sub(chunkStart))
		s.metrics.AddEmployeesProcessed(metrics.EmployeeOutcomeSuccess, succeeded)
		s.metrics.AddEmployeesProcessed(metrics.EmployeeOutcomeError, len(failures))
	}

	slog.Info("payroll chunk processed",
		"run_id", rc.run.ID,
		"chunk", progress.CurrentChunk,
		"total_chunks", progress.TotalChunks,
		"size", len(batch),
		"errors", len(failures),
	)
	return s.saveProgress(ctx, progress)
}

func (s *BatchService) calculateOne(
	ctx context.Context,
	rc runContext,
	emp employee.Employee,
	stored []employee.SalaryComponent,
	entries *attendance.Aggregate,
) error {
	if rc.cfgErr != nil {
		return rc.cfgErr
	}

	inputs := make([]payroll.ComponentInput, 0, len(stored))
	for _, sc := range stored {
		inputs = append(inputs, payroll.ComponentInput{Code: sc.Code, Amount: sc.Amount})
	}

	result, err := s.calculator.Calculate(rc.cfg, payroll.CalculationInput{
		CountryCode:      rc.run.CountryCode,
		PeriodStart:      rc.run.PeriodStart,
		PeriodEnd:        rc.run.PeriodEnd,
		PaymentFrequency: rc.run.PaymentFrequency,
		Employee:         emp,
		Components:       inputs,
		Activations:      rc.activations,
		Definitions:      rc.definitions,
		TimeEntries:      entries,
	})
	if err != nil {
		return err
	}

	_, err = s.calculator.Commit(ctx, rc.run, result, s.now())
	return err
}

// complete deletes line items this pass did not touch, then moves the run
// to calculated with fresh totals.
func (s *BatchService) complete(ctx context.Context, run payroll.PayrollRun, progress *payroll.PayrollRunProgress, passStart time.Time) error {
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.payrollRepo.GetRunForUpdate(ctx, run.ID, run.CompanyID)
		if err != nil {
			return err
		}
		if err := payroll.CheckTransition(payroll.ActionComplete, current.Status); err != nil {
			return err
		}

		removed, err := s.payrollRepo.DeleteStaleLineItems(ctx, run.ID, run.CompanyID, passStart)
		if err != nil {
			return fmt.Errorf("failed to delete stale line items: %w", err)
		}
		if removed > 0 {
			slog.Info("removed stale payroll line items", "run_id", run.ID, "count", removed)
		}

		if _, err := s.payrollRepo.CompleteRun(ctx, run.ID, run.CompanyID, progress.SuccessCount); err != nil {
			return err
		}

		now := s.now()
		progress.Status = payroll.ProgressStatusCompleted
		progress.CompletedAt = &now
		progress.UpdatedAt = now
		return s.payrollRepo.SaveProgress(ctx, *progress)
	})
	if err != nil {
		return fmt.Errorf("failed to complete payroll run: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncTransition(string(payroll.RunStatusCalculating), string(payroll.RunStatusCalculated))
	}
	s.notify(*progress)
	return nil
}

// failRun marks progress and run failed and returns cause.
func (s *BatchService) failRun(ctx context.Context, run payroll.PayrollRun, progress *payroll.PayrollRunProgress, cause error) error {
	slog.Error("payroll batch failed", "run_id", run.ID, "company_id", run.CompanyID, "error", cause)

	ctx = context.WithoutCancel(ctx)
	now := s.now()
	progress.Status = payroll.ProgressStatusFailed
	progress.CompletedAt = &now
	progress.UpdatedAt = now
	progress.Errors = append(progress.Errors, payroll.EmployeeError{Message: cause.Error(), OccurredAt: now})
	if err := s.payrollRepo.SaveProgress(ctx, *progress); err != nil {
		slog.Error("failed to save failed progress", "run_id", run.ID, "error", err)
	}
	s.notify(*progress)

	if err := payroll.CheckTransition(payroll.ActionFail, payroll.RunStatusCalculating); err == nil {
		if err := s.payrollRepo.UpdateRunStatus(ctx, run.ID, run.CompanyID, payroll.RunStatusFailed); err != nil {
			slog.Error("failed to mark payroll run failed", "run_id", run.ID, "error", err)
		} else if s.metrics != nil {
			s.metrics.IncTransition(string(payroll.RunStatusCalculating), string(payroll.RunStatusFailed))
		}
	}

	s.finished(metrics.RunOutcomeFailed)
	return cause
}

// pause leaves the run calculating so it can be retriggered after an
// interrupted worker.
func (s *BatchService) pause(run payroll.PayrollRun, progress *payroll.PayrollRunProgress, cause error) error {
	progress.Status = payroll.ProgressStatusPaused
	progress.UpdatedAt = s.now()
	if err := s.payrollRepo.SaveProgress(context.Background(), *progress); err != nil {
		slog.Error("failed to save paused progress", "run_id", run.ID, "error", err)
	}
	s.notify(*progress)
	slog.Warn("payroll batch interrupted", "run_id", run.ID, "processed", progress.ProcessedCount, "error", cause)
	return cause
}

func (s *BatchService) saveProgress(ctx context.Context, progress *payroll.PayrollRunProgress) error {
	progress.UpdatedAt = s.now()
	if err := s.payrollRepo.SaveProgress(ctx, *progress); err != nil {
		return fmt.Errorf("failed to save payroll progress: %w", err)
	}
	s.notify(*progress)
	return nil
}

func (s *BatchService) notify(progress payroll.PayrollRunProgress) {
	if s.notifier != nil {
		s.notifier.NotifyProgress(progress)
	}
}

func (s *BatchService) finished(outcome string) {
	if s.metrics != nil {
		s.metrics.IncRunFinished(outcome)
	}
}
