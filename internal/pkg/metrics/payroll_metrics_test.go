package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPayrollMetrics_Counters(t *testing.T) {
	m := NewPayrollMetrics(prometheus.NewRegistry())

	m.IncRunTriggered("direct")
	m.AddEmployeesProcessed(EmployeeOutcomeSuccess, 9)
	m.AddEmployeesProcessed(EmployeeOutcomeError, 1)
	m.AddEmployeesProcessed(EmployeeOutcomeError, 0)
	m.IncTransition("calculating", "calculated")
	m.IncRunFinished(RunOutcomeCalculated)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTriggered.WithLabelValues("direct")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.employeesProcessed.WithLabelValues(EmployeeOutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.employeesProcessed.WithLabelValues(EmployeeOutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("calculating", "calculated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues(RunOutcomeCalculated)))
}

func TestPayrollMetrics_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPayrollMetrics(reg)

	m.ObserveChunkDuration(300 * time.Millisecond)
	m.ObserveRunDuration(2 * time.Second)

	count, err := testutil.GatherAndCount(reg, "payroll_chunk_duration_seconds", "payroll_run_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPayrollMetrics_NilSafe(t *testing.T) {
	var m *PayrollMetrics

	assert.NotPanics(t, func() {
		m.IncRunTriggered("queued")
		m.IncRunFinished(RunOutcomeFailed)
		m.ObserveRunDuration(time.Second)
		m.ObserveChunkDuration(time.Second)
		m.AddEmployeesProcessed(EmployeeOutcomeSuccess, 1)
		m.IncTransition("draft", "calculating")
		m.IncDispatchError("queued")
	})
}
