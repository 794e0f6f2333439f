package employee

import "context"

// EmployeeRepository defines the read access payroll needs.
// All methods take companyID so one tenant can never read another's employees.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)

	// CountEligible counts active employees paid at the given frequency.
	// Employees without a frequency count as MONTHLY.
	CountEligible(ctx context.Context, companyID string, frequency PaymentFrequency) (int, error)

	// ListEligible returns the next page of eligible employees ordered by id,
	// starting after afterID (keyset pagination).
	ListEligible(ctx context.Context, companyID string, frequency PaymentFrequency, afterID string, limit int) ([]Employee, error)

	// GetSalaryComponents returns explicit components keyed by employee id.
	GetSalaryComponents(ctx context.Context, companyID string, employeeIDs []string) (map[string][]SalaryComponent, error)
}
