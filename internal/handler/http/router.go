package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	app config.AppConfig,
	JWTService jwt.Service,
	payrollHandler PayrollHandler,
	countryRuleHandler CountryRuleHandler,
	salaryComponentHandler SalaryComponentHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("version", app.Version),
		slog.String("env", app.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// EventSource cannot send headers; the stream authenticates with a
		// run-scoped token in the query string.
		r.Get("/payroll-runs/{id}/progress/stream", payrollHandler.StreamProgress)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)
			r.Use(middleware.RequireCompany)

			r.Route("/payroll-runs", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionPayrollView)).Get("/", payrollHandler.ListRuns)
				r.With(middleware.RequirePermission(user.PermissionPayrollManage)).Post("/", payrollHandler.CreateRun)

				r.Route("/{id}", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionPayrollView))
						r.Get("/", payrollHandler.GetRun)
						r.Get("/progress", payrollHandler.GetProgress)
						r.Get("/progress/stream-token", payrollHandler.GetStreamToken)
						r.Get("/line-items", payrollHandler.ListLineItems)
						r.Get("/line-items/{employeeId}", payrollHandler.GetLineItem)
					})

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequirePermission(user.PermissionPayrollManage))
						r.Delete("/", payrollHandler.DeleteRun)
						r.Post("/calculate", payrollHandler.TriggerCalculation)
						r.Post("/revert", payrollHandler.RevertToDraft)
					})

					r.With(middleware.RequirePermission(user.PermissionPayrollApprove)).Post("/approve", payrollHandler.ApproveRun)
					r.With(middleware.RequirePermission(user.PermissionPayrollPay)).Post("/pay", payrollHandler.MarkRunPaid)
				})
			})

			r.Route("/payroll", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionPayrollPreview)).Post("/preview", payrollHandler.Preview)
				r.With(middleware.RequirePermission(user.PermissionReportsView)).Get("/monthly-aggregation", payrollHandler.GetMonthlyAggregation)
			})

			r.Route("/country-configs/{country}", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionRulesView))
				r.Get("/", countryRuleHandler.GetCountryConfig)
				r.Get("/transport-minimum", countryRuleHandler.GetTransportMinimum)
			})

			r.Route("/salary-components", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionRulesView)).Get("/templates", salaryComponentHandler.ListTemplates)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionComponentsManage))
					r.Get("/activations", salaryComponentHandler.ListActivations)
					r.Post("/activations", salaryComponentHandler.ActivateTemplate)
					r.Delete("/activations/{id}", salaryComponentHandler.DeactivateActivation)
				})
			})
		})
	})
	return r
}
