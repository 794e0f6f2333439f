package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

const (
	streamKeepalive = 30 * time.Second
	// streamPoll catches progress written by a worker in another process,
	// which never reaches this process's hub.
	streamPoll = 2 * time.Second
)

type PayrollHandler interface {
	// Runs
	CreateRun(w http.ResponseWriter, r *http.Request)
	ListRuns(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	DeleteRun(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	TriggerCalculation(w http.ResponseWriter, r *http.Request)
	ApproveRun(w http.ResponseWriter, r *http.Request)
	MarkRunPaid(w http.ResponseWriter, r *http.Request)
	RevertToDraft(w http.ResponseWriter, r *http.Request)

	// Progress
	GetProgress(w http.ResponseWriter, r *http.Request)
	GetStreamToken(w http.ResponseWriter, r *http.Request)
	StreamProgress(w http.ResponseWriter, r *http.Request)

	// Line Items
	ListLineItems(w http.ResponseWriter, r *http.Request)
	GetLineItem(w http.ResponseWriter, r *http.Request)

	// Calculation
	Preview(w http.ResponseWriter, r *http.Request)
	GetMonthlyAggregation(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
	jwtService     jwt.Service
	hub            *sse.Hub
}

func NewPayrollHandler(payrollService payroll.PayrollService, jwtService jwt.Service, hub *sse.Hub) PayrollHandler {
	return &payrollHandlerImpl{
		payrollService: payrollService,
		jwtService:     jwtService,
		hub:            hub,
	}
}

// getIntQueryParam gets an int query parameter with a default value
func getIntQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func optionalQuery(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll run created", result)
}

func (h *payrollHandlerImpl) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := payroll.RunFilter{
		Status:           optionalQuery(r, "status"),
		PaymentFrequency: optionalQuery(r, "payment_frequency"),
		Page:             getIntQueryParam(r, "page", 1),
		Limit:            getIntQueryParam(r, "limit", 20),
	}

	result, err := h.payrollService.ListRuns(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.PageMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payrollHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll run ID is required", nil)
		return
	}

	result, err := h.payrollService.GetRun(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll run ID is required", nil)
		return
	}

	if err := h.payrollService.DeleteRun(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll run deleted successfully", nil)
}

// ========== LIFECYCLE ==========

func (h *payrollHandlerImpl) TriggerCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll run ID is required", nil)
		return
	}

	result, err := h.payrollService.TriggerCalculation(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll calculation started", result)
}

func (h *payrollHandlerImpl) ApproveRun(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Payroll run approved", h.payrollService.ApproveRun)
}

func (h *payrollHandlerImpl) MarkRunPaid(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Payroll run marked as paid", h.payrollService.MarkRunPaid)
}

func (h *payrollHandlerImpl) RevertToDraft(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Payroll run reverted to draft", h.payrollService.RevertToDraft)
}

func (h *payrollHandlerImpl) lifecycle(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	action func(ctx context.Context, id string) (payroll.RunResponse, error),
) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll run ID is required", nil)
		return
	}

	result, err := action(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, result)
}

// ========== PROGRESS ==========

func (h *payrollHandlerImpl) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll run ID is required", nil)
		return
	}

	result, err := h.payrollService.GetProgress(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// GetStreamToken issues a short-lived token for one run's progress stream
func (h *payrollHandlerImpl) GetStreamToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll run ID is required", nil)
		return
	}

	// The run must exist for this tenant before a token is handed out.
	if _, err := h.payrollService.GetRun(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	_, claims, _ := jwtauth.FromContext(r.Context())
	userID, _ := claims["user_id"].(string)
	companyID, _ := claims["company_id"].(string)

	token, expiresIn, err := h.jwtService.GenerateStreamToken(userID, companyID, id)
	if err != nil {
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, payroll.StreamTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// StreamProgress pushes progress snapshots over SSE until the run finishes
// or the client goes away
func (h *payrollHandlerImpl) StreamProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	_, tokenRunID, err := h.jwtService.ValidateStreamToken(tokenStr)
	if err != nil || tokenRunID != runID {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	token, err := h.jwtService.JWTAuth().Decode(tokenStr)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	ctx := jwtauth.NewContext(r.Context(), token, nil)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the snapshot so no update falls in between.
	events, cleanup := h.hub.Subscribe(runID)
	defer cleanup()

	current, err := h.payrollService.GetProgress(ctx, runID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if !writeEvent(w, sse.EventProgress, current) {
		return
	}
	flusher.Flush()
	if finished(current.Status) {
		return
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	poll := time.NewTicker(streamPoll)
	defer poll.Stop()

	last := current
	push := func(p payroll.ProgressResponse) bool {
		if p.Status == last.Status && p.ProcessedCount == last.ProcessedCount {
			return true
		}
		last = p
		if !writeEvent(w, sse.EventProgress, p) {
			return false
		}
		flusher.Flush()
		return !finished(p.Status)
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			p, isProgress := event.Data.(payroll.ProgressResponse)
			if !isProgress {
				continue
			}
			if !push(p) {
				return
			}

		case <-poll.C:
			p, err := h.payrollService.GetProgress(ctx, runID)
			if err != nil {
				slog.Warn("failed to poll payroll progress", "run_id", runID, "error", err)
				return
			}
			if !push(p) {
				return
			}

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode stream event", "event", event, "error", err)
		return false
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err == nil
}

func finished(status string) bool {
	switch payroll.ProgressStatus(status) {
	case payroll.ProgressStatusCompleted, payroll.ProgressStatusFailed:
		return true
	}
	return false
}

// ========== LINE ITEMS ==========

func (h *payrollHandlerImpl) ListLineItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Payroll run ID is required", nil)
		return
	}

	filter := payroll.LineItemFilter{
		Page:  getIntQueryParam(r, "page", 1),
		Limit: getIntQueryParam(r, "limit", 50),
	}

	result, err := h.payrollService.ListLineItems(r.Context(), id, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, response.PageMeta(result.Page, result.Limit, result.TotalCount))
}

func (h *payrollHandlerImpl) GetLineItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	employeeID := chi.URLParam(r, "employeeId")
	if id == "" || employeeID == "" {
		response.BadRequest(w, "Payroll run ID and employee ID are required", nil)
		return
	}

	result, err := h.payrollService.GetLineItem(r.Context(), id, employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== CALCULATION ==========

func (h *payrollHandlerImpl) Preview(w http.ResponseWriter, r *http.Request) {
	var req payroll.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.Preview(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetMonthlyAggregation(w http.ResponseWriter, r *http.Request) {
	req := payroll.MonthlyAggregationRequest{
		Year:         getIntQueryParam(r, "year", 0),
		Month:        getIntQueryParam(r, "month", 0),
		ContractType: r.URL.Query().Get("contract_type"),
		CountryCode:  r.URL.Query().Get("country_code"),
	}

	result, err := h.payrollService.GetMonthlyAggregation(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
