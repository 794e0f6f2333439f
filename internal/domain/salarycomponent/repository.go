package salarycomponent

import "context"

type SalaryComponentRepository interface {
	// Definitions
	ListDefinitions(ctx context.Context, countryCode string) ([]Definition, error)
	UpsertDefinition(ctx context.Context, def Definition) error

	// Templates
	ListTemplates(ctx context.Context, countryCode string) ([]Template, error)
	GetTemplateByID(ctx context.Context, id string) (Template, error)
	UpsertTemplate(ctx context.Context, tpl Template) (Template, error)

	// Activations are tenant-scoped.
	ListActiveActivations(ctx context.Context, companyID string, countryCode string) ([]Activation, error)
	CreateActivation(ctx context.Context, activation Activation) (Activation, error)
	DeactivateActivation(ctx context.Context, id string, companyID string) error
}
