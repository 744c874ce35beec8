package algebra

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/orneryd/markovnet/pkg/potential"
)

const (
	opMultiply    = "multiply"
	opMarginalize = "multiply_and_marginalize"
	opDivide      = "divide"
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// operationsTotal counts algebra calls by operation and result
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "markovnet_algebra_operations_total",
		Help: "Total potential operations by operation and result",
	}, []string{"operation", "result"})

	// operationDuration tracks operation latency
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "markovnet_algebra_operation_duration_seconds",
		Help:    "Potential operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"operation"})

	// resultCells tracks the size of produced tables
	resultCells = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "markovnet_algebra_result_cells",
		Help:    "Number of cells in result tables",
		Buckets: prometheus.ExponentialBuckets(1, 8, 8),
	})

	// workersUsed tracks how many goroutines filled each result
	workersUsed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "markovnet_algebra_workers",
		Help:    "Number of workers used per operation",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
	})
)

func observe(op string, start time.Time, result *potential.TablePotential, workers int, err error) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		operationsTotal.WithLabelValues(op, "error").Inc()
		return
	}
	operationsTotal.WithLabelValues(op, "success").Inc()
	if result != nil {
		resultCells.Observe(float64(result.Size()))
	}
	if workers > 0 {
		workersUsed.Observe(float64(workers))
	}
}
