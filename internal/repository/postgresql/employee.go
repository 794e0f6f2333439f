package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	id, company_id, employee_code, full_name, rate_type, contract_type, payment_frequency,
	weekly_hours, marital_status, verified_dependents, hire_date, termination_date,
	sector_code, classification, city, employment_status, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var emp employee.Employee
	err := row.Scan(
		&emp.ID, &emp.CompanyID, &emp.EmployeeCode, &emp.FullName, &emp.RateType, &emp.ContractType, &emp.PaymentFrequency,
		&emp.WeeklyHours, &emp.MaritalStatus, &emp.VerifiedDependents, &emp.HireDate, &emp.TerminationDate,
		&emp.SectorCode, &emp.Classification, &emp.City, &emp.EmploymentStatus, &emp.CreatedAt, &emp.UpdatedAt,
	)
	return emp, err
}

// GetByID implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`

	emp, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}

	return emp, nil
}

// CountEligible implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) CountEligible(ctx context.Context, companyID string, frequency employee.PaymentFrequency) (int, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT COUNT(*)
		FROM employees
		WHERE company_id = $1
		  AND employment_status = $2
		  AND deleted_at IS NULL
		  AND COALESCE(NULLIF(payment_frequency, ''), $3) = $4
	`

	var count int
	err := q.QueryRow(ctx, query, companyID, employee.EmploymentStatusActive, employee.PaymentFrequencyMonthly, frequency).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count eligible employees: %w", err)
	}

	return count, nil
}

// ListEligible implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) ListEligible(ctx context.Context, companyID string, frequency employee.PaymentFrequency, afterID string, limit int) ([]employee.Employee, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE company_id = $1
		  AND employment_status = $2
		  AND deleted_at IS NULL
		  AND COALESCE(NULLIF(payment_frequency, ''), $3) = $4
		  AND ($5 = '' OR id::text > $5)
		ORDER BY id::text ASC
		LIMIT $6
	`

	rows, err := q.Query(ctx, query,
		companyID, employee.EmploymentStatusActive, employee.PaymentFrequencyMonthly, frequency, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}

// GetSalaryComponents implements employee.EmployeeRepository.
func (e *employeeRepositoryImpl) GetSalaryComponents(ctx context.Context, companyID string, employeeIDs []string) (map[string][]employee.SalaryComponent, error) {
	result := make(map[string][]employee.SalaryComponent, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return result, nil
	}

	q := GetQuerier(ctx, e.db)

	query := `
		SELECT esc.employee_id, esc.code, esc.amount
		FROM employee_salary_components esc
		JOIN employees e ON esc.employee_id = e.id
		WHERE e.company_id = $1 AND esc.employee_id::text = ANY($2)
		ORDER BY esc.employee_id, esc.code
	`

	rows, err := q.Query(ctx, query, companyID, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get salary components: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c employee.SalaryComponent
		if err := rows.Scan(&c.EmployeeID, &c.Code, &c.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan salary component: %w", err)
		}
		result[c.EmployeeID] = append(result[c.EmployeeID], c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salary components: %w", err)
	}

	return result, nil
}
