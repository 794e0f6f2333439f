package postgresql_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func createTestCompany(t *testing.T, ctx context.Context, setup *TestDatabaseSetup, name string) string {
	var companyID string
	err := setup.DB.QueryRow(ctx, `
		INSERT INTO companies (name, country_code) VALUES ($1, 'CI') RETURNING id
	`, name).Scan(&companyID)
	require.NoError(t, err)
	return companyID
}

func createTestEmployee(t *testing.T, ctx context.Context, setup *TestDatabaseSetup, companyID, code, status string) string {
	var employeeID string
	err := setup.DB.QueryRow(ctx, `
		INSERT INTO employees (company_id, employee_code, full_name, hire_date, employment_status)
		VALUES ($1, $2, $3, '2020-01-01', $4)
		RETURNING id
	`, companyID, code, "Employee "+code, status).Scan(&employeeID)
	require.NoError(t, err)
	return employeeID
}

func createTestRun(t *testing.T, ctx context.Context, repo payroll.PayrollRepository, companyID string) payroll.PayrollRun {
	run, err := repo.CreateRun(ctx, payroll.PayrollRun{
		CompanyID:        companyID,
		CountryCode:      "CI",
		PeriodStart:      date(2024, time.March, 1),
		PeriodEnd:        date(2024, time.March, 31),
		PaymentDate:      date(2024, time.April, 5),
		PaymentFrequency: employee.PaymentFrequencyMonthly,
		Status:           payroll.RunStatusDraft,
	})
	require.NoError(t, err)
	return run
}

func lineItem(run payroll.PayrollRun, employeeID string, gross, net int64, at time.Time) payroll.PayrollLineItem {
	return payroll.PayrollLineItem{
		RunID:        run.ID,
		CompanyID:    run.CompanyID,
		EmployeeID:   employeeID,
		RateType:     employee.RateTypeMonthly,
		BaseSalary:   decimal.NewFromInt(gross),
		GrossSalary:  decimal.NewFromInt(gross),
		TaxableGross: decimal.NewFromInt(gross),
		FiscalParts:  decimal.NewFromInt(1),
		NetSalary:    decimal.NewFromInt(net),
		NetPayable:   decimal.NewFromInt(net),
		EmployerCost: decimal.NewFromInt(gross + 38086),
		DaysWorked:   decimal.NewFromInt(22),
		Earnings: []payroll.EarningLine{
			{Code: "11", Name: "Salaire catégoriel", Amount: decimal.NewFromInt(gross)},
		},
		CalculatedAt: at,
	}
}

func TestPayrollRepository_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB)

	companyID := createTestCompany(t, ctx, setup, "Acme CI")
	e1 := createTestEmployee(t, ctx, setup, companyID, "EMP-1", "active")
	e2 := createTestEmployee(t, ctx, setup, companyID, "EMP-2", "active")

	// Arrange
	run := createTestRun(t, ctx, repo, companyID)
	assert.Equal(t, payroll.RunStatusDraft, run.Status)

	overlap, err := repo.HasOverlappingRun(ctx, companyID, employee.PaymentFrequencyMonthly, date(2024, time.March, 15), date(2024, time.April, 14))
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = repo.HasOverlappingRun(ctx, companyID, employee.PaymentFrequencyWeekly, date(2024, time.March, 15), date(2024, time.March, 21))
	require.NoError(t, err)
	assert.False(t, overlap)

	// Act
	require.NoError(t, repo.StartCalculation(ctx, run.ID, companyID, 2))
	started := time.Now().UTC().Truncate(time.Millisecond)

	first, err := repo.UpsertLineItem(ctx, lineItem(run, e1, 300000, 245069, started))
	require.NoError(t, err)
	_, err = repo.UpsertLineItem(ctx, lineItem(run, e2, 300000, 245069, started.Add(-time.Hour)))
	require.NoError(t, err)

	again, err := repo.UpsertLineItem(ctx, lineItem(run, e1, 300000, 245069, started.Add(time.Second)))
	require.NoError(t, err)

	removed, err := repo.DeleteStaleLineItems(ctx, run.ID, companyID, started)
	require.NoError(t, err)

	completed, err := repo.CompleteRun(ctx, run.ID, companyID, 1)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, payroll.RunStatusCalculated, completed.Status)
	assert.Equal(t, 1, completed.EmployeeCount)
	assert.True(t, completed.TotalGross.Equal(decimal.NewFromInt(300000)))
	assert.True(t, completed.TotalNet.Equal(decimal.NewFromInt(245069)))
	assert.True(t, completed.TotalEmployerCost.Equal(decimal.NewFromInt(338086)))

	item, err := repo.GetLineItem(ctx, run.ID, e1, companyID)
	require.NoError(t, err)
	require.NotNil(t, item.EmployeeCode)
	assert.Equal(t, "EMP-1", *item.EmployeeCode)
	require.Len(t, item.Earnings, 1)
	assert.Equal(t, "11", item.Earnings[0].Code)

	_, err = repo.GetLineItem(ctx, run.ID, e2, companyID)
	assert.ErrorIs(t, err, payroll.ErrLineItemNotFound)
}

func TestPayrollRepository_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB)

	// Arrange
	owner := createTestCompany(t, ctx, setup, "Owner")
	other := createTestCompany(t, ctx, setup, "Other")
	run := createTestRun(t, ctx, repo, owner)

	// Act
	_, getErr := repo.GetRunByID(ctx, run.ID, other)
	statusErr := repo.UpdateRunStatus(ctx, run.ID, other, payroll.RunStatusFailed)
	runs, total, listErr := repo.ListRuns(ctx, other, payroll.RunFilter{Page: 1, Limit: 20})

	// Assert
	assert.ErrorIs(t, getErr, payroll.ErrRunNotFound)
	assert.ErrorIs(t, statusErr, payroll.ErrRunNotFound)
	require.NoError(t, listErr)
	assert.Empty(t, runs)
	assert.Equal(t, int64(0), total)

	stored, err := repo.GetRunByID(ctx, run.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusDraft, stored.Status)
}

func TestPayrollRepository_CreateRun_OverlapConstraint(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB)

	// Arrange
	companyID := createTestCompany(t, ctx, setup, "Acme CI")
	createTestRun(t, ctx, repo, companyID)

	// Act
	_, err := repo.CreateRun(ctx, payroll.PayrollRun{
		CompanyID:        companyID,
		CountryCode:      "CI",
		PeriodStart:      date(2024, time.March, 31),
		PeriodEnd:        date(2024, time.April, 29),
		PaymentDate:      date(2024, time.April, 30),
		PaymentFrequency: employee.PaymentFrequencyMonthly,
		Status:           payroll.RunStatusDraft,
	})

	// Assert
	assert.ErrorIs(t, err, payroll.ErrRunOverlap)
}

func TestPayrollRepository_LockRunScope_SerializesCreation(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB)
	transactor := postgresql.NewTransactor(setup.DB)
	companyID := createTestCompany(t, ctx, setup, "Acme CI")

	const attempts = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)

	// Act
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := transactor.WithinTransaction(ctx, func(ctx context.Context) error {
				if err := repo.LockRunScope(ctx, companyID, employee.PaymentFrequencyMonthly); err != nil {
					return err
				}
				overlap, err := repo.HasOverlappingRun(ctx, companyID, employee.PaymentFrequencyMonthly, date(2024, time.March, 1), date(2024, time.March, 31))
				if err != nil {
					return err
				}
				if overlap {
					return payroll.ErrRunOverlap
				}
				_, err = repo.CreateRun(ctx, payroll.PayrollRun{
					CompanyID:        companyID,
					CountryCode:      "CI",
					PeriodStart:      date(2024, time.March, 1),
					PeriodEnd:        date(2024, time.March, 31),
					PaymentDate:      date(2024, time.April, 5),
					PaymentFrequency: employee.PaymentFrequencyMonthly,
					Status:           payroll.RunStatusDraft,
				})
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			assert.ErrorIs(t, err, payroll.ErrRunOverlap)
		}()
	}
	wg.Wait()

	// Assert
	assert.Equal(t, 1, created)
	_, total, err := repo.ListRuns(ctx, companyID, payroll.RunFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPayrollRepository_ProgressAndStaleSweep(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB)

	companyID := createTestCompany(t, ctx, setup, "Acme CI")
	run := createTestRun(t, ctx, repo, companyID)
	stalled := time.Now().Add(-time.Hour).UTC()

	// Arrange
	require.NoError(t, repo.ResetProgress(ctx, payroll.PayrollRunProgress{
		RunID:          run.ID,
		CompanyID:      companyID,
		Status:         payroll.ProgressStatusProcessing,
		TotalEmployees: 5,
		ProcessedCount: 2,
		SuccessCount:   1,
		ErrorCount:     1,
		CurrentChunk:   1,
		TotalChunks:    3,
		Errors: []payroll.EmployeeError{
			{EmployeeID: "e03", Message: "salary amount cannot be negative", OccurredAt: stalled},
		},
		StartedAt: &stalled,
	}))
	_, err := setup.DB.Exec(ctx, `UPDATE payroll_run_progress SET updated_at = $2 WHERE run_id = $1`, run.ID, stalled)
	require.NoError(t, err)

	// Act
	stale, err := repo.ListStaleProgress(ctx, time.Now().Add(-15*time.Minute))
	require.NoError(t, err)

	progress, getErr := repo.GetProgress(ctx, run.ID, companyID)

	// Assert
	require.Len(t, stale, 1)
	assert.Equal(t, run.ID, stale[0].RunID)

	require.NoError(t, getErr)
	assert.Equal(t, 2, progress.ProcessedCount)
	assert.InDelta(t, 40.0, progress.PercentComplete(), 0.001)
	require.Len(t, progress.Errors, 1)
	assert.Equal(t, "e03", progress.Errors[0].EmployeeID)

	paused, err := repo.PauseProgressIfStale(ctx, run.ID, time.Now().Add(-15*time.Minute))
	require.NoError(t, err)
	assert.True(t, paused)
	afterPause, err := repo.GetProgress(ctx, run.ID, companyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.ProgressStatusPaused, afterPause.Status)
	assert.Equal(t, 2, afterPause.ProcessedCount)

	require.NoError(t, repo.DeleteProgress(ctx, run.ID, companyID))
	_, err = repo.GetProgress(ctx, run.ID, companyID)
	assert.ErrorIs(t, err, payroll.ErrProgressNotFound)
}

func TestPayrollRepository_PauseProgressIfStale_SkipsFreshProgress(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB)

	// Arrange
	companyID := createTestCompany(t, ctx, setup, "Acme CI")
	run := createTestRun(t, ctx, repo, companyID)
	cutoff := time.Now().Add(-15 * time.Minute)
	require.NoError(t, repo.SaveProgress(ctx, payroll.PayrollRunProgress{
		RunID:          run.ID,
		CompanyID:      companyID,
		Status:         payroll.ProgressStatusProcessing,
		TotalEmployees: 5,
		ProcessedCount: 4,
	}))

	// Act
	paused, err := repo.PauseProgressIfStale(ctx, run.ID, cutoff)

	// Assert
	require.NoError(t, err)
	assert.False(t, paused)
	progress, err := repo.GetProgress(ctx, run.ID, companyID)
	require.NoError(t, err)
	assert.Equal(t, payroll.ProgressStatusProcessing, progress.Status)
	assert.Equal(t, 4, progress.ProcessedCount)
}

func TestPayrollRepository_MonthlyTotals_UseContractTypeAtCalculation(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB)

	// Arrange
	companyID := createTestCompany(t, ctx, setup, "Acme CI")
	worker := createTestEmployee(t, ctx, setup, companyID, "EMP-1", "active")
	run := createTestRun(t, ctx, repo, companyID)

	item := lineItem(run, worker, 180000, 150000, time.Now().UTC())
	item.ContractType = employee.ContractTypeCDDTI
	_, err := repo.UpsertLineItem(ctx, item)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateRunStatus(ctx, run.ID, companyID, payroll.RunStatusApproved))

	_, err = setup.DB.Exec(ctx, `UPDATE employees SET contract_type = 'CDI' WHERE id = $1`, worker)
	require.NoError(t, err)

	// Act
	cddti, err := repo.ListMonthlyLineTotals(ctx, companyID, date(2024, time.March, 1), date(2024, time.March, 31), employee.ContractTypeCDDTI)
	require.NoError(t, err)
	cdi, err := repo.ListMonthlyLineTotals(ctx, companyID, date(2024, time.March, 1), date(2024, time.March, 31), employee.ContractTypeCDI)
	require.NoError(t, err)

	// Assert
	require.Len(t, cddti, 1)
	assert.Equal(t, worker, cddti[0].EmployeeID)
	assert.Equal(t, employee.ContractTypeCDDTI, cddti[0].ContractType)
	assert.Empty(t, cdi)
}

func TestEmployeeRepository_ListEligible_KeysetPagination(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewEmployeeRepository(setup.DB)

	// Arrange
	companyID := createTestCompany(t, ctx, setup, "Acme CI")
	for _, code := range []string{"EMP-1", "EMP-2", "EMP-3"} {
		createTestEmployee(t, ctx, setup, companyID, code, "active")
	}
	createTestEmployee(t, ctx, setup, companyID, "EMP-4", "resigned")

	// Act
	count, err := repo.CountEligible(ctx, companyID, employee.PaymentFrequencyMonthly)
	require.NoError(t, err)

	var seen []string
	afterID := ""
	for {
		page, err := repo.ListEligible(ctx, companyID, employee.PaymentFrequencyMonthly, afterID, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, emp := range page {
			seen = append(seen, emp.ID)
		}
		afterID = page[len(page)-1].ID
	}

	// Assert
	assert.Equal(t, 3, count)
	assert.Len(t, seen, 3)
	assert.IsIncreasing(t, seen)
}

func TestCountryRuleRepository_EffectiveDatedLookup(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewCountryRuleRepository(setup.DB)

	// Arrange
	_, err := repo.UpsertCountryConfig(ctx, fixtures.CIConfig())
	require.NoError(t, err)
	for _, min := range fixtures.CITransportMinimums() {
		require.NoError(t, repo.UpsertCityTransportMinimum(ctx, min))
	}

	// Act
	cfg, err := repo.GetCountryConfig(ctx, "CI", date(2024, time.March, 31))
	require.NoError(t, err)
	_, beforeErr := repo.GetCountryConfig(ctx, "CI", date(2023, time.December, 31))
	abidjan, err := repo.GetCityTransportMinimum(ctx, "CI", "Abidjan", date(2024, time.March, 31))
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "XOF", cfg.Currency)
	require.NotNil(t, cfg.TaxSystem)
	assert.ErrorIs(t, beforeErr, countryrule.ErrConfigNotFound)
	assert.True(t, abidjan.MonthlyMinimum.Equal(decimal.NewFromInt(30000)))
}
