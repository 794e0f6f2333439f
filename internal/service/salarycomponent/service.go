package salarycomponent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
)

// TemplateKindTransport marks templates subject to the city transport minimum.
const TemplateKindTransport = "transport"

type SalaryComponentServiceImpl struct {
	repo  salarycomponent.SalaryComponentRepository
	rules countryrule.CountryRuleRepository
	now   func() time.Time
}

func NewSalaryComponentService(repo salarycomponent.SalaryComponentRepository, rules countryrule.CountryRuleRepository) salarycomponent.SalaryComponentService {
	return &SalaryComponentServiceImpl{repo: repo, rules: rules, now: time.Now}
}

func getCompanyIDFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", user.ErrInvalidToken)
	}
	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", user.ErrCompanyIDRequired
	}
	return companyID, nil
}

func toTemplateResponse(t salarycomponent.Template) salarycomponent.TemplateResponse {
	return salarycomponent.TemplateResponse{
		ID:            t.ID,
		CountryCode:   t.CountryCode,
		Code:          t.Code,
		Name:          t.Name,
		Category:      string(t.Category),
		Method:        string(t.Method),
		DefaultAmount: t.DefaultAmount,
		MinAmount:     t.MinAmount,
		MaxAmount:     t.MaxAmount,
		Metadata:      t.Metadata,
	}
}

func toActivationResponse(a salarycomponent.Activation) salarycomponent.ActivationResponse {
	return salarycomponent.ActivationResponse{
		ID:         a.ID,
		CompanyID:  a.CompanyID,
		TemplateID: a.TemplateID,
		Code:       a.Code,
		Name:       a.Name(),
		Amount:     a.Amount(),
		Metadata:   a.Metadata,
		IsActive:   a.IsActive,
	}
}

func (s *SalaryComponentServiceImpl) ListTemplates(ctx context.Context, countryCode string) ([]salarycomponent.TemplateResponse, error) {
	countryCode = strings.ToUpper(countryCode)
	if !validator.IsValidCountryCode(countryCode) {
		return nil, validator.ValidationErrors{{Field: "country_code", Message: "must be a 2-letter ISO country code"}}
	}

	templates, err := s.repo.ListTemplates(ctx, countryCode)
	if err != nil {
		return nil, err
	}

	out := make([]salarycomponent.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResponse(t))
	}
	return out, nil
}

// ActivateTemplate copies a template into the tenant's component set. The
// amount must sit inside the template's compliance range and, for transport
// templates with a city, at or above the city's legal minimum.
func (s *SalaryComponentServiceImpl) ActivateTemplate(ctx context.Context, req salarycomponent.ActivateTemplateRequest) (salarycomponent.ActivationResponse, error) {
	if err := req.Validate(); err != nil {
		return salarycomponent.ActivationResponse{}, err
	}

	companyID, err := getCompanyIDFromContext(ctx)
	if err != nil {
		return salarycomponent.ActivationResponse{}, err
	}

	tpl, err := s.repo.GetTemplateByID(ctx, req.TemplateID)
	if err != nil {
		return salarycomponent.ActivationResponse{}, err
	}

	amount := tpl.DefaultAmount
	if req.CustomAmount != nil {
		amount = *req.CustomAmount
	}
	if !validator.IsWithinRange(amount, tpl.MinAmount, tpl.MaxAmount) {
		return salarycomponent.ActivationResponse{}, fmt.Errorf("%w: %s for template %s", salarycomponent.ErrAmountOutOfRange, amount, tpl.Code)
	}

	metadata := make(map[string]string, len(tpl.Metadata)+len(req.Metadata)+1)
	for k, v := range tpl.Metadata {
		metadata[k] = v
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	if req.City != nil && *req.City != "" {
		metadata["city"] = *req.City
		if tpl.Metadata["kind"] == TemplateKindTransport {
			if err := s.checkTransportMinimum(ctx, tpl, *req.City, amount); err != nil {
				return salarycomponent.ActivationResponse{}, err
			}
		}
	}

	activation, err := s.repo.CreateActivation(ctx, salarycomponent.Activation{
		CompanyID:    companyID,
		TemplateID:   tpl.ID,
		Code:         tpl.Code,
		CustomName:   req.CustomName,
		CustomAmount: req.CustomAmount,
		Metadata:     metadata,
		IsActive:     true,
		Template:     &tpl,
	})
	if err != nil {
		return salarycomponent.ActivationResponse{}, err
	}

	slog.Info("salary component template activated", "company_id", companyID, "template_id", tpl.ID, "code", tpl.Code)
	return toActivationResponse(activation), nil
}

func (s *SalaryComponentServiceImpl) checkTransportMinimum(ctx context.Context, tpl salarycomponent.Template, city string, amount decimal.Decimal) error {
	minimum, err := s.rules.GetCityTransportMinimum(ctx, tpl.CountryCode, city, s.now())
	if err != nil {
		if errors.Is(err, countryrule.ErrTransportMinimumNotFound) {
			slog.Warn("no transport minimum configured, skipping check", "country_code", tpl.CountryCode, "city", city)
			return nil
		}
		return fmt.Errorf("failed to load transport minimum: %w", err)
	}
	if amount.LessThan(minimum.MonthlyMinimum) {
		return fmt.Errorf("%w: %s is below the %s minimum %s", salarycomponent.ErrBelowTransportMinimum, amount, city, minimum.MonthlyMinimum)
	}
	return nil
}

func (s *SalaryComponentServiceImpl) ListActivations(ctx context.Context, countryCode string) ([]salarycomponent.ActivationResponse, error) {
	companyID, err := getCompanyIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	countryCode = strings.ToUpper(countryCode)
	if !validator.IsValidCountryCode(countryCode) {
		return nil, validator.ValidationErrors{{Field: "country_code", Message: "must be a 2-letter ISO country code"}}
	}

	activations, err := s.repo.ListActiveActivations(ctx, companyID, countryCode)
	if err != nil {
		return nil, err
	}

	out := make([]salarycomponent.ActivationResponse, 0, len(activations))
	for _, a := range activations {
		out = append(out, toActivationResponse(a))
	}
	return out, nil
}

func (s *SalaryComponentServiceImpl) DeactivateActivation(ctx context.Context, id string) error {
	companyID, err := getCompanyIDFromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeactivateActivation(ctx, id, companyID); err != nil {
		return err
	}
	slog.Info("salary component activation deactivated", "company_id", companyID, "activation_id", id)
	return nil
}
