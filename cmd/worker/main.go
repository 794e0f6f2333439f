package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/formula"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rabbitmq"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	countryRuleService "github.com/cmlabs-hris/payroll-engine-go/internal/service/countryrule"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	"github.com/redis/go-redis/v9"
)

// The worker consumes batch jobs published by the queued runner and sweeps
// runs whose progress stopped moving.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("app", "payroll-worker"),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal("Error connecting to database:", err)
	}
	defer db.Close()

	payrollRepo := postgresql.NewPayrollRepository(db)
	componentRepo := postgresql.NewSalaryComponentRepository(db)
	rules := countryRuleService.NewCachedRepository(postgresql.NewCountryRuleRepository(db), cfg.Cache.CountryConfigTTL)

	var locker lock.Locker = lock.NewLocalLocker()
	if addr := cfg.RedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to redis:", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client)
	} else {
		logger.Warn("REDIS_HOST not set, batch lock is process-local")
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
		postgresql.NewTransactor(db),
		payrollRepo,
		postgresql.NewEmployeeRepository(db),
		postgresql.NewAttendanceRepository(db),
		componentRepo,
		rules,
		calculator,
		locker,
		nil,
		metrics.Payroll(),
		payrollService.BatchOptions{
			ChunkSize: cfg.Batch.ChunkSize,
			Workers:   cfg.Batch.Workers,
			LockTTL:   cfg.Batch.LockTTL,
		},
	)

	scheduler := cron.NewScheduler(logger)
	if err := cron.NewPayrollJobs(payrollRepo, cfg.Batch.StaleAfter).RegisterJobs(scheduler, cfg.Batch.SweepSchedule); err != nil {
		log.Fatal("Failed to register cron jobs:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.RabbitMQ.URL == "" {
		logger.Warn("RABBITMQ_URL not set, running the stale-run sweeper only")
		<-quit
		return
	}

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Prefetch)
	if err != nil {
		log.Fatal("Failed to connect to rabbitmq:", err)
	}
	defer consumer.Close()

	err = consumer.ConsumeWithBindings(cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, map[string]func([]byte) bool{
		payrollService.RoutingKeyCalculate: payrollService.NewBatchJobHandler(batchService, cfg.Batch.LockTTL),
	})
	if err != nil {
		log.Fatal("Failed to start consumer:", err)
	}
	logger.Info("worker consuming payroll batch jobs", "exchange", cfg.RabbitMQ.Exchange, "queue", cfg.RabbitMQ.Queue)

	select {
	case <-quit:
	case <-consumer.Done():
		logger.Error("rabbitmq delivery channel closed")
	}
}
