package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/payroll-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rabbitmq"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	countryRuleService "github.com/cmlabs-hris/payroll-engine-go/internal/service/countryrule"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	salaryComponentService "github.com/cmlabs-hris/payroll-engine-go/internal/service/salarycomponent"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	transactor := postgresql.NewTransactor(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	componentRepo := postgresql.NewSalaryComponentRepository(db)
	rules := countryRuleService.NewCachedRepository(postgresql.NewCountryRuleRepository(db), cfg.Cache.CountryConfigTTL)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub()
	payrollMetrics := metrics.Payroll()

	var locker lock.Locker = lock.NewLocalLocker()
	if addr := cfg.RedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to redis:", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client)
	}

	calculator := payrollService.NewLineCalculator(
		rules,
		componentRepo,
		payrollRepo,
		payrollService.NewComponentResolver(formula.NewEvaluator()),
		payrollService.NewProrationEngine(),
		payrollService.NewTaxCalculator(nil),
	)
	batchService := payrollService.NewBatchService(
		transactor,
		payrollRepo,
		employeeRepo,
		attendanceRepo,
		componentRepo,
		rules,
		calculator,
		locker,
		hub,
		payrollMetrics,
		payrollService.BatchOptions{
			ChunkSize: cfg.Batch.ChunkSize,
			Workers:   cfg.Batch.Workers,
			LockTTL:   cfg.Batch.LockTTL,
		},
	)

	var runner payroll.BatchRunner
	switch cfg.Batch.Runner {
	case config.RunnerQueued:
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal("Failed to connect to rabbitmq:", err)
		}
		defer producer.Close()
		runner = payrollService.NewQueuedRunner(producer, cfg.RabbitMQ.Exchange)
	default:
		runner = payrollService.NewDirectRunner(batchService, cfg.Batch.Async, cfg.Batch.LockTTL)
	}

	payrollSvc := payrollService.NewPayrollService(
		transactor,
		payrollRepo,
		employeeRepo,
		attendanceRepo,
		rules,
		calculator,
		runner,
		payrollMetrics,
		cfg.Batch.ChunkSize,
	)
	countryRuleSvc := countryRuleService.NewCountryRuleService(rules)
	salaryComponentSvc := salaryComponentService.NewSalaryComponentService(componentRepo, rules)

	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc, JWTService, hub)
	countryRuleHandler := appHTTP.NewCountryRuleHandler(countryRuleSvc)
	salaryComponentHandler := appHTTP.NewSalaryComponentHandler(salaryComponentSvc)

	router := appHTTP.NewRouter(
		cfg.App,
		JWTService,
		payrollHandler,
		countryRuleHandler,
		salaryComponentHandler,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Server running at http://localhost%s (runner=%s)\n", server.Addr, cfg.Batch.Runner)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		fmt.Println("Server shutdown error:", err)
	}
}
