package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotFound            = errors.New("payroll run not found")
	ErrRunOverlap             = errors.New("payroll run period overlaps an existing run for the same frequency")
	ErrRunAlreadyProcessing   = errors.New("payroll run calculation is already in progress")
	ErrInvalidStateTransition = errors.New("invalid payroll run state transition")
	ErrLineItemNotFound       = errors.New("payroll line item not found")
	ErrLineItemsLocked        = errors.New("payroll run is approved, line items are locked")
	ErrProgressNotFound       = errors.New("payroll run progress not found")
	ErrNegativeAmount         = errors.New("salary amount cannot be negative")
	ErrInvalidPeriod          = errors.New("invalid payroll period")
	ErrEmployeeNotEligible    = errors.New("employee is not eligible for this run")
)

// StateTransitionError is returned when a run action is not allowed from
// the run's current status. It matches ErrInvalidStateTransition.
type StateTransitionError struct {
	Action RunAction
	From   RunStatus
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s payroll run in status %q", e.Action, e.From)
}

func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}
