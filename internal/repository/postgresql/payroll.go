package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// exclusionViolation is raised by the run overlap constraint.
const exclusionViolation = "23P01"

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const runColumns = `
	id, company_id, country_code, period_start, period_end, payment_date, payment_frequency,
	status, employee_count, total_gross, total_net, total_employer_cost,
	created_by, approved_by, approved_at, paid_at, created_at, updated_at`

func scanRun(row pgx.Row) (payroll.PayrollRun, error) {
	var run payroll.PayrollRun
	err := row.Scan(
		&run.ID, &run.CompanyID, &run.CountryCode, &run.PeriodStart, &run.PeriodEnd, &run.PaymentDate, &run.PaymentFrequency,
		&run.Status, &run.EmployeeCount, &run.TotalGross, &run.TotalNet, &run.TotalEmployerCost,
		&run.CreatedBy, &run.ApprovedBy, &run.ApprovedAt, &run.PaidAt, &run.CreatedAt, &run.UpdatedAt,
	)
	return run, err
}

// ========== RUNS ==========

func (r *payrollRepository) CreateRun(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_runs (
			company_id, country_code, period_start, period_end, payment_date, payment_frequency, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + runColumns

	created, err := scanRun(q.QueryRow(ctx, query,
		run.CompanyID, run.CountryCode, run.PeriodStart, run.PeriodEnd, run.PaymentDate, run.PaymentFrequency, run.Status, run.CreatedBy,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return payroll.PayrollRun{}, payroll.ErrRunOverlap
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to create payroll run: %w", err)
	}

	return created, nil
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2`

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}

	return run, nil
}

func (r *payrollRepository) GetRunForUpdate(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2 FOR UPDATE`

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to lock payroll run: %w", err)
	}

	return run, nil
}

func (r *payrollRepository) ListRuns(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := ` FROM payroll_runs WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.PaymentFrequency != nil {
		baseQuery += fmt.Sprintf(" AND payment_frequency = $%d", argIdx)
		args = append(args, strings.ToUpper(*filter.PaymentFrequency))
		argIdx++
	}

	// Count query
	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	// Pagination
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY period_start DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		runColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll runs: %w", err)
	}

	return runs, totalCount, nil
}

func (r *payrollRepository) LockRunScope(ctx context.Context, companyID string, frequency employee.PaymentFrequency) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || $2::text))`, companyID, frequency); err != nil {
		return fmt.Errorf("failed to lock payroll run scope: %w", err)
	}
	return nil
}

func (r *payrollRepository) HasOverlappingRun(ctx context.Context, companyID string, frequency employee.PaymentFrequency, start, end time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM payroll_runs
			WHERE company_id = $1 AND payment_frequency = $2
			  AND period_start <= $4 AND period_end >= $3
		)
	`

	var exists bool
	if err := q.QueryRow(ctx, query, companyID, frequency, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check overlapping payroll run: %w", err)
	}

	return exists, nil
}

func (r *payrollRepository) UpdateRunStatus(ctx context.Context, id string, companyID string, status payroll.RunStatus) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE payroll_runs SET status = $3, updated_at = NOW() WHERE id = $1 AND company_id = $2`, id, companyID, status)
	if err != nil {
		return fmt.Errorf("failed to update payroll run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}

	return nil
}

func (r *payrollRepository) StartCalculation(ctx context.Context, id string, companyID string, employeeCount int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs
		SET status = $3, employee_count = $4, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
	`

	tag, err := q.Exec(ctx, query, id, companyID, payroll.RunStatusCalculating, employeeCount)
	if err != nil {
		return fmt.Errorf("failed to start payroll calculation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}

	return nil
}

// CompleteRun moves the run to calculated and recomputes totals from its line items.
func (r *payrollRepository) CompleteRun(ctx context.Context, id string, companyID string, employeeCount int) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs pr
		SET status = $3,
			employee_count = $4,
			total_gross = t.gross,
			total_net = t.net,
			total_employer_cost = t.employer_cost,
			updated_at = NOW()
		FROM (
			SELECT COALESCE(SUM(gross_salary), 0) AS gross,
				   COALESCE(SUM(net_salary), 0) AS net,
				   COALESCE(SUM(employer_cost), 0) AS employer_cost
			FROM payroll_line_items
			WHERE run_id = $1 AND company_id = $2
		) t
		WHERE pr.id = $1 AND pr.company_id = $2
		RETURNING ` + prefixColumns("pr", runColumns)

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID, payroll.RunStatusCalculated, employeeCount))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to complete payroll run: %w", err)
	}

	return run, nil
}

func (r *payrollRepository) ApproveRun(ctx context.Context, id string, companyID string, approvedBy string, approvedAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs
		SET status = $3, approved_by = $4, approved_at = $5, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
	`

	tag, err := q.Exec(ctx, query, id, companyID, payroll.RunStatusApproved, approvedBy, approvedAt)
	if err != nil {
		return fmt.Errorf("failed to approve payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}

	return nil
}

func (r *payrollRepository) MarkRunPaid(ctx context.Context, id string, companyID string, paidAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`UPDATE payroll_runs SET status = $3, paid_at = $4, updated_at = NOW() WHERE id = $1 AND company_id = $2`,
		id, companyID, payroll.RunStatusPaid, paidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark payroll run paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}

	return nil
}

// DeleteRun removes the run; line items and progress cascade.
func (r *payrollRepository) DeleteRun(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_runs WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}

	return nil
}

// ========== LINE ITEMS ==========

const lineItemColumns = `
	li.id, li.run_id, li.company_id, li.employee_id, li.rate_type, li.contract_type,
	li.base_salary, li.total_allowances, li.total_bonuses, li.overtime_pay, li.gross_salary,
	li.taxable_gross, li.fiscal_parts, li.income_tax,
	li.total_employee_contributions, li.total_employer_contributions, li.total_other_taxes,
	li.total_deductions, li.other_deductions, li.net_salary, li.net_payable, li.employer_cost,
	li.days_worked, li.hours_worked, li.earnings, li.deductions, li.contributions, li.other_taxes,
	li.calculated_at, li.created_at, li.updated_at`

type lineItemScanner struct {
	item                                            payroll.PayrollLineItem
	earnings, deductions, contributions, otherTaxes []byte
}

func (s *lineItemScanner) dest(extra ...interface{}) []interface{} {
	li := &s.item
	d := []interface{}{
		&li.ID, &li.RunID, &li.CompanyID, &li.EmployeeID, &li.RateType, &li.ContractType,
		&li.BaseSalary, &li.TotalAllowances, &li.TotalBonuses, &li.OvertimePay, &li.GrossSalary,
		&li.TaxableGross, &li.FiscalParts, &li.IncomeTax,
		&li.TotalEmployeeContributions, &li.TotalEmployerContributions, &li.TotalOtherTaxes,
		&li.TotalDeductions, &li.OtherDeductions, &li.NetSalary, &li.NetPayable, &li.EmployerCost,
		&li.DaysWorked, &li.HoursWorked, &s.earnings, &s.deductions, &s.contributions, &s.otherTaxes,
		&li.CalculatedAt, &li.CreatedAt, &li.UpdatedAt,
	}
	return append(d, extra...)
}

func (s *lineItemScanner) decode() (payroll.PayrollLineItem, error) {
	li := s.item
	if err := unmarshalJSONB(s.earnings, &li.Earnings); err != nil {
		return li, fmt.Errorf("failed to decode earnings: %w", err)
	}
	if err := unmarshalJSONB(s.deductions, &li.Deductions); err != nil {
		return li, fmt.Errorf("failed to decode deductions: %w", err)
	}
	if err := unmarshalJSONB(s.contributions, &li.Contributions); err != nil {
		return li, fmt.Errorf("failed to decode contributions: %w", err)
	}
	if err := unmarshalJSONB(s.otherTaxes, &li.OtherTaxes); err != nil {
		return li, fmt.Errorf("failed to decode other taxes: %w", err)
	}
	return li, nil
}

// UpsertLineItem writes one row per (run, employee); a recalculation replaces it.
func (r *payrollRepository) UpsertLineItem(ctx context.Context, item payroll.PayrollLineItem) (payroll.PayrollLineItem, error) {
	q := GetQuerier(ctx, r.db)

	earningsJSON, err := json.Marshal(item.Earnings)
	if err != nil {
		return payroll.PayrollLineItem{}, fmt.Errorf("failed to encode earnings: %w", err)
	}
	deductionsJSON, err := json.Marshal(item.Deductions)
	if err != nil {
		return payroll.PayrollLineItem{}, fmt.Errorf("failed to encode deductions: %w", err)
	}
	contributionsJSON, err := json.Marshal(item.Contributions)
	if err != nil {
		return payroll.PayrollLineItem{}, fmt.Errorf("failed to encode contributions: %w", err)
	}
	otherTaxesJSON, err := json.Marshal(item.OtherTaxes)
	if err != nil {
		return payroll.PayrollLineItem{}, fmt.Errorf("failed to encode other taxes: %w", err)
	}

	query := `
		INSERT INTO payroll_line_items AS li (
			run_id, company_id, employee_id, rate_type,
			base_salary, total_allowances, total_bonuses, overtime_pay, gross_salary,
			taxable_gross, fiscal_parts, income_tax,
			total_employee_contributions, total_employer_contributions, total_other_taxes,
			total_deductions, other_deductions, net_salary, net_payable, employer_cost,
			days_worked, hours_worked, earnings, deductions, contributions, other_taxes, calculated_at,
			contract_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, COALESCE(NULLIF($28, ''), 'CDI'))
		ON CONFLICT (run_id, employee_id) DO UPDATE SET
			rate_type = EXCLUDED.rate_type,
			contract_type = EXCLUDED.contract_type,
			base_salary = EXCLUDED.base_salary,
			total_allowances = EXCLUDED.total_allowances,
			total_bonuses = EXCLUDED.total_bonuses,
			overtime_pay = EXCLUDED.overtime_pay,
			gross_salary = EXCLUDED.gross_salary,
			taxable_gross = EXCLUDED.taxable_gross,
			fiscal_parts = EXCLUDED.fiscal_parts,
			income_tax = EXCLUDED.income_tax,
			total_employee_contributions = EXCLUDED.total_employee_contributions,
			total_employer_contributions = EXCLUDED.total_employer_contributions,
			total_other_taxes = EXCLUDED.total_other_taxes,
			total_deductions = EXCLUDED.total_deductions,
			other_deductions = EXCLUDED.other_deductions,
			net_salary = EXCLUDED.net_salary,
			net_payable = EXCLUDED.net_payable,
			employer_cost = EXCLUDED.employer_cost,
			days_worked = EXCLUDED.days_worked,
			hours_worked = EXCLUDED.hours_worked,
			earnings = EXCLUDED.earnings,
			deductions = EXCLUDED.deductions,
			contributions = EXCLUDED.contributions,
			other_taxes = EXCLUDED.other_taxes,
			calculated_at = EXCLUDED.calculated_at,
			updated_at = NOW()
		WHERE li.company_id = EXCLUDED.company_id
		RETURNING ` + lineItemColumns

	var s lineItemScanner
	err = q.QueryRow(ctx, query,
		item.RunID, item.CompanyID, item.EmployeeID, item.RateType,
		item.BaseSalary, item.TotalAllowances, item.TotalBonuses, item.OvertimePay, item.GrossSalary,
		item.TaxableGross, item.FiscalParts, item.IncomeTax,
		item.TotalEmployeeContributions, item.TotalEmployerContributions, item.TotalOtherTaxes,
		item.TotalDeductions, item.OtherDeductions, item.NetSalary, item.NetPayable, item.EmployerCost,
		item.DaysWorked, item.HoursWorked, earningsJSON, deductionsJSON, contributionsJSON, otherTaxesJSON, item.CalculatedAt,
		string(item.ContractType),
	).Scan(s.dest()...)
	if err != nil {
		return payroll.PayrollLineItem{}, fmt.Errorf("failed to upsert payroll line item: %w", err)
	}

	return s.decode()
}

func (r *payrollRepository) GetLineItem(ctx context.Context, runID string, employeeID string, companyID string) (payroll.PayrollLineItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + lineItemColumns + `, e.full_name, e.employee_code
		FROM payroll_line_items li
		JOIN employees e ON li.employee_id = e.id
		WHERE li.run_id = $1 AND li.employee_id = $2 AND li.company_id = $3
	`

	var s lineItemScanner
	err := q.QueryRow(ctx, query, runID, employeeID, companyID).Scan(s.dest(&s.item.EmployeeName, &s.item.EmployeeCode)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollLineItem{}, payroll.ErrLineItemNotFound
		}
		return payroll.PayrollLineItem{}, fmt.Errorf("failed to get payroll line item: %w", err)
	}

	return s.decode()
}

func (r *payrollRepository) ListLineItems(ctx context.Context, runID string, companyID string, filter payroll.LineItemFilter) ([]payroll.PayrollLineItem, int64, error) {
	q := GetQuerier(ctx, r.db)

	var totalCount int64
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM payroll_line_items WHERE run_id = $1 AND company_id = $2`,
		runID, companyID,
	).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll line items: %w", err)
	}

	// Pagination
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	query := `
		SELECT ` + lineItemColumns + `, e.full_name, e.employee_code
		FROM payroll_line_items li
		JOIN employees e ON li.employee_id = e.id
		WHERE li.run_id = $1 AND li.company_id = $2
		ORDER BY e.employee_code ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := q.Query(ctx, query, runID, companyID, filter.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll line items: %w", err)
	}
	defer rows.Close()

	var items []payroll.PayrollLineItem
	for rows.Next() {
		var s lineItemScanner
		if err := rows.Scan(s.dest(&s.item.EmployeeName, &s.item.EmployeeCode)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll line item: %w", err)
		}
		item, err := s.decode()
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll line items: %w", err)
	}

	return items, totalCount, nil
}

func (r *payrollRepository) DeleteLineItemsByRun(ctx context.Context, runID string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_line_items WHERE run_id = $1 AND company_id = $2`, runID, companyID); err != nil {
		return fmt.Errorf("failed to delete payroll line items: %w", err)
	}

	return nil
}

func (r *payrollRepository) DeleteStaleLineItems(ctx context.Context, runID string, companyID string, before time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx,
		`DELETE FROM payroll_line_items WHERE run_id = $1 AND company_id = $2 AND calculated_at < $3`,
		runID, companyID, before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale payroll line items: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ========== PROGRESS ==========

const progressColumns = `
	run_id, company_id, status, total_employees, processed_count, success_count, error_count,
	current_chunk, total_chunks, errors, started_at, completed_at, updated_at`

func scanProgress(row pgx.Row) (payroll.PayrollRunProgress, error) {
	var p payroll.PayrollRunProgress
	var errorsBytes []byte
	err := row.Scan(
		&p.RunID, &p.CompanyID, &p.Status, &p.TotalEmployees, &p.ProcessedCount, &p.SuccessCount, &p.ErrorCount,
		&p.CurrentChunk, &p.TotalChunks, &errorsBytes, &p.StartedAt, &p.CompletedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if err := unmarshalJSONB(errorsBytes, &p.Errors); err != nil {
		return p, fmt.Errorf("failed to decode progress errors: %w", err)
	}
	return p, nil
}

// ResetProgress replaces any previous progress record of the run.
func (r *payrollRepository) ResetProgress(ctx context.Context, progress payroll.PayrollRunProgress) error {
	return r.writeProgress(ctx, progress, "failed to reset payroll progress")
}

func (r *payrollRepository) SaveProgress(ctx context.Context, progress payroll.PayrollRunProgress) error {
	return r.writeProgress(ctx, progress, "failed to save payroll progress")
}

func (r *payrollRepository) writeProgress(ctx context.Context, p payroll.PayrollRunProgress, errMsg string) error {
	q := GetQuerier(ctx, r.db)

	errs := p.Errors
	if errs == nil {
		errs = []payroll.EmployeeError{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("%s: %w", errMsg, err)
	}

	query := `
		INSERT INTO payroll_run_progress (
			run_id, company_id, status, total_employees, processed_count, success_count, error_count,
			current_chunk, total_chunks, errors, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			total_employees = EXCLUDED.total_employees,
			processed_count = EXCLUDED.processed_count,
			success_count = EXCLUDED.success_count,
			error_count = EXCLUDED.error_count,
			current_chunk = EXCLUDED.current_chunk,
			total_chunks = EXCLUDED.total_chunks,
			errors = EXCLUDED.errors,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = NOW()
		WHERE payroll_run_progress.company_id = EXCLUDED.company_id
	`

	_, err = q.Exec(ctx, query,
		p.RunID, p.CompanyID, p.Status, p.TotalEmployees, p.ProcessedCount, p.SuccessCount, p.ErrorCount,
		p.CurrentChunk, p.TotalChunks, errorsJSON, p.StartedAt, p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errMsg, err)
	}

	return nil
}

func (r *payrollRepository) GetProgress(ctx context.Context, runID string, companyID string) (payroll.PayrollRunProgress, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + progressColumns + ` FROM payroll_run_progress WHERE run_id = $1 AND company_id = $2`

	p, err := scanProgress(q.QueryRow(ctx, query, runID, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollRunProgress{}, payroll.ErrProgressNotFound
		}
		return payroll.PayrollRunProgress{}, fmt.Errorf("failed to get payroll progress: %w", err)
	}

	return p, nil
}

func (r *payrollRepository) DeleteProgress(ctx context.Context, runID string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_run_progress WHERE run_id = $1 AND company_id = $2`, runID, companyID); err != nil {
		return fmt.Errorf("failed to delete payroll progress: %w", err)
	}

	return nil
}

func (r *payrollRepository) ListStaleProgress(ctx context.Context, updatedBefore time.Time) ([]payroll.PayrollRunProgress, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + progressColumns + `
		FROM payroll_run_progress
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC
	`

	rows, err := q.Query(ctx, query, payroll.ProgressStatusPending, payroll.ProgressStatusProcessing, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payroll progress: %w", err)
	}
	defer rows.Close()

	var stale []payroll.PayrollRunProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll progress: %w", err)
		}
		stale = append(stale, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll progress: %w", err)
	}

	return stale, nil
}

func (r *payrollRepository) PauseProgressIfStale(ctx context.Context, runID string, updatedBefore time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_run_progress
		SET status = $2, updated_at = NOW()
		WHERE run_id = $1 AND status IN ($3, $4) AND updated_at < $5
	`

	tag, err := q.Exec(ctx, query,
		runID, payroll.ProgressStatusPaused, payroll.ProgressStatusPending, payroll.ProgressStatusProcessing, updatedBefore,
	)
	if err != nil {
		return false, fmt.Errorf("failed to pause payroll progress: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ========== AGGREGATIONS ==========

func (r *payrollRepository) ListMonthlyLineTotals(ctx context.Context, companyID string, monthStart, monthEnd time.Time, contractType employee.ContractType) ([]payroll.MonthlyAggregate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT e.id, e.employee_code, e.full_name, li.contract_type,
			   li.days_worked, li.hours_worked, li.gross_salary,
			   li.total_employee_contributions, li.total_employer_contributions
		FROM payroll_line_items li
		JOIN payroll_runs pr ON li.run_id = pr.id
		JOIN employees e ON li.employee_id = e.id
		WHERE li.company_id = $1
		  AND pr.company_id = $1
		  AND pr.status IN ($2, $3)
		  AND pr.period_end BETWEEN $4 AND $5
		  AND li.contract_type = $6
		ORDER BY e.employee_code ASC, pr.period_end ASC
	`

	rows, err := q.Query(ctx, query,
		companyID, payroll.RunStatusApproved, payroll.RunStatusPaid, monthStart, monthEnd, contractType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly line totals: %w", err)
	}
	defer rows.Close()

	var lines []payroll.MonthlyAggregate
	for rows.Next() {
		a := payroll.MonthlyAggregate{RunCount: 1}
		if err := rows.Scan(
			&a.EmployeeID, &a.EmployeeCode, &a.EmployeeName, &a.ContractType,
			&a.DaysWorked, &a.HoursWorked, &a.GrossSalary,
			&a.TotalEmployeeContributions, &a.TotalEmployerContributions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monthly line totals: %w", err)
		}
		lines = append(lines, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate monthly line totals: %w", err)
	}

	return lines, nil
}

// ========== HELPERS ==========

func unmarshalJSONB(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// prefixColumns qualifies a comma-separated column list with alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
