package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EmployeeOutcomeSuccess = "success"
	EmployeeOutcomeError   = "error"
)

const (
	RunOutcomeCalculated = "calculated"
	RunOutcomeFailed     = "failed"
	RunOutcomeSkipped    = "skipped"
)

// PayrollMetrics captures batch calculation throughput and run lifecycle.
type PayrollMetrics struct {
	runsTriggered      *prometheus.CounterVec
	runsFinished       *prometheus.CounterVec
	runDuration        prometheus.Observer
	chunkDuration      prometheus.Observer
	employeesProcessed *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	dispatchErrors     *prometheus.CounterVec
}

var (
	payrollMetricsOnce sync.Once
	payrollMetrics     *PayrollMetrics
)

// Payroll returns the singleton registered on the default registerer.
func Payroll() *PayrollMetrics {
	payrollMetricsOnce.Do(func() {
		payrollMetrics = NewPayrollMetrics(prometheus.DefaultRegisterer)
	})
	return payrollMetrics
}

// NewPayrollMetrics registers the collectors on registerer.
func NewPayrollMetrics(registerer prometheus.Registerer) *PayrollMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runsTriggered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_runs_triggered_total",
		Help: "Payroll run calculations dispatched, by runner.",
	}, []string{"runner"})
	runsFinished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_runs_finished_total",
		Help: "Payroll batch executions finished, by outcome.",
	}, []string{"outcome"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payroll_run_duration_seconds",
		Help:    "Wall time of one batch execution over all chunks.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	})
	chunkDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payroll_chunk_duration_seconds",
		Help:    "Wall time of one employee chunk.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	employeesProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_employees_processed_total",
		Help: "Employee line calculations, by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_run_transition_total",
		Help: "Payroll run status transitions.",
	}, []string{"from", "to"})
	dispatchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_dispatch_errors_total",
		Help: "Batch dispatch failures, by runner.",
	}, []string{"runner"})

	registerer.MustRegister(
		runsTriggered,
		runsFinished,
		runDuration,
		chunkDuration,
		employeesProcessed,
		transitions,
		dispatchErrors,
	)

	return &PayrollMetrics{
		runsTriggered:      runsTriggered,
		runsFinished:       runsFinished,
		runDuration:        runDuration,
		chunkDuration:      chunkDuration,
		employeesProcessed: employeesProcessed,
		transitions:        transitions,
		dispatchErrors:     dispatchErrors,
	}
}

func (m *PayrollMetrics) IncRunTriggered(runner string) {
	if m == nil {
		return
	}
	m.runsTriggered.WithLabelValues(runner).Inc()
}

func (m *PayrollMetrics) IncRunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(outcome).Inc()
}

func (m *PayrollMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *PayrollMetrics) ObserveChunkDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.chunkDuration.Observe(d.Seconds())
}

func (m *PayrollMetrics) AddEmployeesProcessed(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.employeesProcessed.WithLabelValues(outcome).Add(float64(n))
}

func (m *PayrollMetrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *PayrollMetrics) IncDispatchError(runner string) {
	if m == nil {
		return
	}
	m.dispatchErrors.WithLabelValues(runner).Inc()
}
