package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	turnTotal    *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec

	transitionTotal  *prometheus.CounterVec
	handoffsPerTurn  prometheus.Histogram
	activeThreads    prometheus.Gauge
	suspendedThreads prometheus.Gauge

	checkpointSaveDuration prometheus.Histogram
	checkpointLoadDuration prometheus.Histogram
	checkpointPrunedTotal  prometheus.Counter

	directoryOpDuration *prometheus.HistogramVec
	directoryOpTotal    *prometheus.CounterVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	policyDecideTotal    *prometheus.CounterVec
	policyDecideDuration *prometheus.HistogramVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "turn_total",
					Help: "Total conversation turns by entry node and status.",
				},
				[]string{"entry_node", "status"},
			),
			turnDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "turn_duration_seconds",
					Help:    "Turn execution duration in seconds by entry node.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"entry_node"},
			),
			transitionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "transition_total",
					Help: "Total node transitions by source and target node.",
				},
				[]string{"from", "to"},
			),
			handoffsPerTurn: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "handoffs_per_turn",
					Help:    "In-turn handoff count distribution.",
					Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
				},
			),
			activeThreads: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_threads",
					Help: "Threads currently executing a turn.",
				},
			),
			suspendedThreads: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "suspended_threads",
					Help: "Threads parked at the human gate.",
				},
			),
			checkpointSaveDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "checkpoint_save_duration_seconds",
					Help:    "Checkpoint save duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			checkpointLoadDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "checkpoint_load_duration_seconds",
					Help:    "Checkpoint load duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			checkpointPrunedTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "checkpoint_pruned_total",
					Help: "Total superseded checkpoint snapshots pruned.",
				},
			),
			directoryOpDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "directory_op_duration_seconds",
					Help:    "Session directory operation duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			directoryOpTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "directory_op_total",
					Help: "Total session directory operations by operation and status.",
				},
				[]string{"op", "status"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			policyDecideTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "policy_decide_total",
					Help: "Total policy decisions by role and outcome.",
				},
				[]string{"role", "outcome"},
			),
			policyDecideDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "policy_decide_duration_seconds",
					Help:    "Policy decision duration in seconds by role.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"role"},
			),
		}

		prometheus.MustRegister(
			m.turnTotal,
			m.turnDuration,
			m.transitionTotal,
			m.handoffsPerTurn,
			m.activeThreads,
			m.suspendedThreads,
			m.checkpointSaveDuration,
			m.checkpointLoadDuration,
			m.checkpointPrunedTotal,
			m.directoryOpDuration,
			m.directoryOpTotal,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.policyDecideTotal,
			m.policyDecideDuration,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordTurn(entryNode string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.turnTotal.WithLabelValues(entryNode, status).Inc()
	m.turnDuration.WithLabelValues(entryNode).Observe(duration.Seconds())
}

func RecordTransition(from, to string) {
	m := getMetrics()
	m.transitionTotal.WithLabelValues(from, to).Inc()
}

func RecordHandoffs(count int) {
	m := getMetrics()
	m.handoffsPerTurn.Observe(float64(count))
}

func IncActiveThreads() {
	getMetrics().activeThreads.Inc()
}

func DecActiveThreads() {
	getMetrics().activeThreads.Dec()
}

func SetSuspendedThreads(count int) {
	getMetrics().suspendedThreads.Set(float64(count))
}

func RecordCheckpointSave(duration time.Duration) {
	getMetrics().checkpointSaveDuration.Observe(duration.Seconds())
}

func RecordCheckpointLoad(duration time.Duration) {
	getMetrics().checkpointLoadDuration.Observe(duration.Seconds())
}

func RecordCheckpointsPruned(count int) {
	getMetrics().checkpointPrunedTotal.Add(float64(count))
}

func RecordDirectoryOp(op string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.directoryOpTotal.WithLabelValues(op, status).Inc()
	m.directoryOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func RecordPolicyDecision(role, outcome string, duration time.Duration) {
	m := getMetrics()
	m.policyDecideTotal.WithLabelValues(role, outcome).Inc()
	m.policyDecideDuration.WithLabelValues(role).Observe(duration.Seconds())
}
