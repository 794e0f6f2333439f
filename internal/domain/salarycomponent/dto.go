package salarycomponent

import (
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type TemplateResponse struct {
	ID            string            `json:"id"`
	CountryCode   string            `json:"country_code"`
	Code          string            `json:"code"`
	Name          string            `json:"name"`
	Category      string            `json:"category"`
	Method        string            `json:"method"`
	DefaultAmount decimal.Decimal   `json:"default_amount"`
	MinAmount     *decimal.Decimal  `json:"min_amount,omitempty"`
	MaxAmount     *decimal.Decimal  `json:"max_amount,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type ActivateTemplateRequest struct {
	TemplateID   string            `json:"template_id"`
	CustomName   *string           `json:"custom_name,omitempty"`
	CustomAmount *decimal.Decimal  `json:"custom_amount,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	// City enables the transport minimum check for transport templates.
	City *string `json:"city,omitempty"`
}

func (r *ActivateTemplateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.TemplateID) {
		errs = append(errs, validator.ValidationError{Field: "template_id", Message: "is required"})
	}
	if r.CustomName != nil && len(*r.CustomName) > 100 {
		errs = append(errs, validator.ValidationError{Field: "custom_name", Message: "must be at most 100 characters"})
	}
	if r.CustomAmount != nil && r.CustomAmount.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "custom_amount", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ActivationResponse struct {
	ID         string            `json:"id"`
	CompanyID  string            `json:"company_id"`
	TemplateID string            `json:"template_id"`
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	Amount     decimal.Decimal   `json:"amount"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	IsActive   bool              `json:"is_active"`
}
