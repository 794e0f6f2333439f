package salarycomponent

import "errors"

var (
	ErrTemplateNotFound      = errors.New("salary component template not found")
	ErrActivationNotFound    = errors.New("salary component activation not found")
	ErrTemplateAlreadyActive = errors.New("template already activated for this company")
	ErrAmountOutOfRange      = errors.New("amount is outside the template compliance range")
	ErrBelowTransportMinimum = errors.New("transport allowance is below the city legal minimum")
	ErrInvalidFormula        = errors.New("invalid component formula")
)
