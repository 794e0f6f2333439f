package salarycomponent

import "context"

type SalaryComponentService interface {
	ListTemplates(ctx context.Context, countryCode string) ([]TemplateResponse, error)
	ActivateTemplate(ctx context.Context, req ActivateTemplateRequest) (ActivationResponse, error)
	ListActivations(ctx context.Context, countryCode string) ([]ActivationResponse, error)
	DeactivateActivation(ctx context.Context, id string) error
}
