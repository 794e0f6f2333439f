package payroll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/rabbitmq"
)

const (
	RunnerDirect = "direct"
	RunnerQueued = "queued"

	// RoutingKeyCalculate is the routing key of batch job messages.
	RoutingKeyCalculate = "payroll.run.calculate"
)

// DirectRunner executes the batch step in-process. In async mode Submit
// returns immediately and the batch outlives the request.
type DirectRunner struct {
	processor payroll.BatchProcessor
	async     bool
	timeout   time.Duration
}

func NewDirectRunner(processor payroll.BatchProcessor, async bool, timeout time.Duration) *DirectRunner {
	return &DirectRunner{processor: processor, async: async, timeout: timeout}
}

func (r *DirectRunner) Name() string { return RunnerDirect }

func (r *DirectRunner) Submit(ctx context.Context, job payroll.BatchJob) error {
	if !r.async {
		return r.processor.ProcessRun(ctx, job)
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		runCtx := bg
		if r.timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(bg, r.timeout)
			defer cancel()
		}
		if err := r.processor.ProcessRun(runCtx, job); err != nil {
			slog.Error("background payroll batch failed", "run_id", job.RunID, "company_id", job.CompanyID, "error", err)
		}
	}()
	return nil
}

// QueuedRunner publishes the job for cmd/worker to consume.
type QueuedRunner struct {
	publisher rabbitmq.Publisher
	exchange  string
}

func NewQueuedRunner(publisher rabbitmq.Publisher, exchange string) *QueuedRunner {
	return &QueuedRunner{publisher: publisher, exchange: exchange}
}

func (r *QueuedRunner) Name() string { return RunnerQueued }

func (r *QueuedRunner) Submit(ctx context.Context, job payroll.BatchJob) error {
	if err := r.publisher.Publish(ctx, r.exchange, RoutingKeyCalculate, job); err != nil {
		return fmt.Errorf("failed to publish payroll batch job: %w", err)
	}
	return nil
}

// NewBatchJobHandler adapts a processor to a queue delivery handler.
// Malformed messages are acked and dropped; processing errors requeue.
func NewBatchJobHandler(processor payroll.BatchProcessor, timeout time.Duration) func([]byte) bool {
	return func(body []byte) bool {
		var job payroll.BatchJob
		if err := json.Unmarshal(body, &job); err != nil || job.RunID == "" || job.CompanyID == "" {
			slog.Error("dropping malformed payroll batch job", "error", err)
			return true
		}

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := processor.ProcessRun(ctx, job); err != nil {
			slog.Error("payroll batch job failed", "run_id", job.RunID, "company_id", job.CompanyID, "error", err)
			return false
		}
		return true
	}
}
