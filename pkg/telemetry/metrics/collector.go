package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/Netrion-29/Netrion-cerebralos/pkg/policy/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// Default namespace and subsystem for evaluation metrics.
const (
	DefaultNamespace = "cerebral"
	DefaultSubsystem = "gates"
)

// EvaluationMetrics tracks ruleset evaluation outcomes.
//
// Metrics:
//   - cerebral_gates_evaluations_total: evaluations by family, ruleset and outcome
//   - cerebral_gates_gate_results_total: gate results by ruleset, gate and pass/fail
//   - cerebral_gates_evaluation_duration_seconds: evaluation duration by family
//   - cerebral_gates_evaluation_errors_total: evaluations that ended in ERROR
//   - cerebral_gates_hard_stops_total: exclusion and pass-outcome hard stops
type EvaluationMetrics struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	gateResultsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	hardStopsTotal     *prometheus.CounterVec

	cardinality *CardinalityLimiter
}

// NewEvaluationMetrics creates and registers evaluation metrics. If registry
// is nil a new registry is created. Empty namespace and subsystem fall back
// to DefaultNamespace and DefaultSubsystem.
func NewEvaluationMetrics(namespace, subsystem string, registry *prometheus.Registry) *EvaluationMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if subsystem == "" {
		subsystem = DefaultSubsystem
	}

	m := &EvaluationMetrics{
		registry: registry,
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of ruleset evaluations by outcome",
			},
			[]string{"family", "ruleset_id", "outcome"},
		),
		gateResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gate_results_total",
				Help:      "Total number of evaluated gates by result",
			},
			[]string{"ruleset_id", "gate_id", "passed"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of a single ruleset evaluation in seconds",
				// Evaluations scan patient text and usually finish in well under 100ms
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~800ms
			},
			[]string{"family"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "evaluation_errors_total",
				Help:      "Total number of evaluations that ended in ERROR",
			},
			[]string{"ruleset_id"},
		),
		hardStopsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "hard_stops_total",
				Help:      "Total number of evaluations halted by a hard stop",
			},
			[]string{"ruleset_id", "kind"},
		),
		cardinality: NewCardinalityLimiter(10000),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.gateResultsTotal,
		m.evaluationDuration,
		m.errorsTotal,
		m.hardStopsTotal,
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *EvaluationMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Observe records one evaluation result. A nil receiver or result is a no-op.
func (m *EvaluationMetrics) Observe(result *engine.Result, duration time.Duration) {
	if m == nil || result == nil {
		return
	}

	family := string(result.Family)
	outcome := string(result.Outcome)

	m.evaluationsTotal.WithLabelValues(family, result.RulesetID, outcome).Inc()
	m.evaluationDuration.WithLabelValues(family).Observe(duration.Seconds())

	if result.Error != "" {
		m.errorsTotal.WithLabelValues(result.RulesetID).Inc()
	}
	if result.HardStop != nil {
		m.hardStopsTotal.WithLabelValues(result.RulesetID, string(result.HardStop.Kind)).Inc()
	}

	for _, gate := range result.GateTrace {
		// Gate IDs come from ruleset files; cap the label space.
		if !m.cardinality.Allow(result.RulesetID + ":" + gate.GateID) {
			continue
		}
		m.gateResultsTotal.WithLabelValues(result.RulesetID, gate.GateID, strconv.FormatBool(gate.Passed)).Inc()
	}
}

// CardinalityLimiter caps the number of unique label sets recorded.
type CardinalityLimiter struct {
	mu        sync.RWMutex
	maxLabels int
	labelSets map[string]struct{}
}

// NewCardinalityLimiter creates a limiter allowing up to maxLabels label sets.
func NewCardinalityLimiter(maxLabels int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxLabels: maxLabels,
		labelSets: make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be recorded. Known label sets are always
// allowed; new ones are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	_, exists := cl.labelSets[labelSet]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, exists := cl.labelSets[labelSet]; exists {
		return true
	}
	if len(cl.labelSets) >= cl.maxLabels {
		return false
	}
	cl.labelSets[labelSet] = struct{}{}
	return true
}

// Count returns the number of tracked label sets.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.labelSets)
}
