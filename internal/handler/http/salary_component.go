package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/salarycomponent"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type SalaryComponentHandler interface {
	ListTemplates(w http.ResponseWriter, r *http.Request)
	ActivateTemplate(w http.ResponseWriter, r *http.Request)
	ListActivations(w http.ResponseWriter, r *http.Request)
	DeactivateActivation(w http.ResponseWriter, r *http.Request)
}

type salaryComponentHandlerImpl struct {
	service salarycomponent.SalaryComponentService
}

func NewSalaryComponentHandler(service salarycomponent.SalaryComponentService) SalaryComponentHandler {
	return &salaryComponentHandlerImpl{service: service}
}

func (h *salaryComponentHandlerImpl) ListTemplates(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListTemplates(r.Context(), r.URL.Query().Get("country_code"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *salaryComponentHandlerImpl) ActivateTemplate(w http.ResponseWriter, r *http.Request) {
	var req salarycomponent.ActivateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.ActivateTemplate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Salary component activated", result)
}

func (h *salaryComponentHandlerImpl) ListActivations(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListActivations(r.Context(), r.URL.Query().Get("country_code"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *salaryComponentHandlerImpl) DeactivateActivation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Activation ID is required", nil)
		return
	}

	if err := h.service.DeactivateActivation(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary component deactivated", nil)
}
