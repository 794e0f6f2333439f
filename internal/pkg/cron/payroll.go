package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

type PayrollJobs struct {
	payrollRepo payroll.PayrollRepository
	staleAfter  time.Duration
	now         func() time.Time
}

func NewPayrollJobs(payrollRepo payroll.PayrollRepository, staleAfter time.Duration) *PayrollJobs {
	return &PayrollJobs{
		payrollRepo: payrollRepo,
		staleAfter:  staleAfter,
		now:         time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, schedule string) error {
	return scheduler.AddJob("pause_stale_payroll_runs", schedule, j.PauseStaleRuns)
}

// PauseStaleRuns marks progress that stopped moving as paused, which lets an
// operator retrigger a run whose worker died mid-batch.
func (j *PayrollJobs) PauseStaleRuns(ctx context.Context) error {
	cutoff := j.now().Add(-j.staleAfter)

	stale, err := j.payrollRepo.ListStaleProgress(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale payroll progress: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	slog.Info("Cron: pausing stale payroll runs", "count", len(stale), "cutoff", cutoff)

	var failed int
	for _, progress := range stale {
		paused, err := j.payrollRepo.PauseProgressIfStale(ctx, progress.RunID, cutoff)
		if err != nil {
			failed++
			slog.Error("Cron: failed to pause payroll run", "run_id", progress.RunID, "company_id", progress.CompanyID, "error", err)
			continue
		}
		if !paused {
			slog.Info("Cron: payroll run progressed since listing, skipped", "run_id", progress.RunID, "company_id", progress.CompanyID)
			continue
		}
		slog.Warn("Cron: payroll run paused after inactivity",
			"run_id", progress.RunID,
			"company_id", progress.CompanyID,
			"processed", progress.ProcessedCount,
			"total", progress.TotalEmployees,
		)
	}

	if failed > 0 {
		return fmt.Errorf("failed to pause %d of %d stale payroll runs", failed, len(stale))
	}
	return nil
}
