package http

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/countryrule"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type CountryRuleHandler interface {
	GetCountryConfig(w http.ResponseWriter, r *http.Request)
	GetTransportMinimum(w http.ResponseWriter, r *http.Request)
}

type countryRuleHandlerImpl struct {
	service countryrule.CountryRuleService
}

func NewCountryRuleHandler(service countryrule.CountryRuleService) CountryRuleHandler {
	return &countryRuleHandlerImpl{service: service}
}

func (h *countryRuleHandlerImpl) GetCountryConfig(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")

	result, err := h.service.GetCountryConfig(r.Context(), country, r.URL.Query().Get("date"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *countryRuleHandlerImpl) GetTransportMinimum(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	query := r.URL.Query()

	result, err := h.service.GetTransportMinimum(r.Context(), country, query.Get("city"), query.Get("date"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
