package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var transitionErr *payroll.StateTransitionError
	if errors.As(err, &transitionErr) {
		Conflict(w, "INVALID_STATE_TRANSITION", transitionErr.Error())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, user.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, user.ErrCompanyIDRequired):
		Unauthorized(w, "Company context required")
	case errors.Is(err, user.ErrUserIDRequired):
		Unauthorized(w, "User context required")

	// Country rule errors
	case errors.Is(err, countryrule.ErrConfigNotFound):
		UnprocessableEntity(w, "CONFIG_NOT_FOUND", err.Error())
	case errors.Is(err, countryrule.ErrUnsupportedCountry):
		UnprocessableEntity(w, "UNSUPPORTED_COUNTRY", err.Error())
	case errors.Is(err, countryrule.ErrSectorNotFound):
		UnprocessableEntity(w, "SECTOR_NOT_FOUND", err.Error())
	case errors.Is(err, countryrule.ErrUnknownBracketMethod):
		UnprocessableEntity(w, "UNKNOWN_BRACKET_METHOD", err.Error())
	case errors.Is(err, countryrule.ErrTransportMinimumNotFound):
		NotFound(w, "Transport minimum not found")

	// Payroll errors
	case errors.Is(err, payroll.ErrRunNotFound):
		NotFound(w, "Payroll run not found")
	case errors.Is(err, payroll.ErrLineItemNotFound):
		NotFound(w, "Payroll line item not found")
	case errors.Is(err, payroll.ErrProgressNotFound):
		NotFound(w, "Payroll progress not found")
	case errors.Is(err, payroll.ErrRunOverlap):
		Conflict(w, "RUN_OVERLAP", "Payroll run period overlaps an existing run")
	case errors.Is(err, payroll.ErrRunAlreadyProcessing):
		Conflict(w, "ALREADY_PROCESSING", "Payroll run calculation is already in progress")
	case errors.Is(err, payroll.ErrInvalidStateTransition):
		Conflict(w, "INVALID_STATE_TRANSITION", err.Error())
	case errors.Is(err, payroll.ErrLineItemsLocked):
		Conflict(w, "LINE_ITEMS_LOCKED", "Payroll run is approved, line items are locked")
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, payroll.ErrNegativeAmount):
		UnprocessableEntity(w, "NEGATIVE_AMOUNT", err.Error())

	// Employee errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrNegativeDependents),
		errors.Is(err, employee.ErrEmployeeNotCalculable),
		errors.Is(err, employee.ErrInvalidRateType),
		errors.Is(err, employee.ErrInvalidContractType),
		errors.Is(err, employee.ErrInvalidFrequency):
		UnprocessableEntity(w, "EMPLOYEE_NOT_CALCULABLE", err.Error())

	// Salary component errors
	case errors.Is(err, salarycomponent.ErrTemplateNotFound):
		NotFound(w, "Salary component template not found")
	case errors.Is(err, salarycomponent.ErrActivationNotFound):
		NotFound(w, "Salary component activation not found")
	case errors.Is(err, salarycomponent.ErrTemplateAlreadyActive):
		Conflict(w, "TEMPLATE_ALREADY_ACTIVE", "Template already activated for this company")
	case errors.Is(err, salarycomponent.ErrAmountOutOfRange):
		UnprocessableEntity(w, "AMOUNT_OUT_OF_RANGE", err.Error())
	case errors.Is(err, salarycomponent.ErrBelowTransportMinimum):
		UnprocessableEntity(w, "BELOW_TRANSPORT_MINIMUM", err.Error())
	case errors.Is(err, salarycomponent.ErrInvalidFormula):
		UnprocessableEntity(w, "INVALID_FORMULA", err.Error())

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
