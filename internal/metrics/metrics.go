// Package metrics counts and times workspace operations. The CLI runs one
// command per process, so the registry is exported as a node_exporter
// textfile rather than served.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeConflict  = "conflict"
	OutcomeIntegrity = "integrity_violation"
	OutcomeInvalid   = "invalid_argument"
	OutcomeStorage   = "storage_error"
	OutcomeError     = "error"
)

// Recorder holds the operation metrics of one process.
type Recorder struct {
	reg      *prometheus.Registry
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	now      func() time.Time
}

// New returns a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prov_operations_total",
			Help: "Workspace operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prov_operation_duration_seconds",
			Help:    "Workspace operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
		now: time.Now,
	}
	r.reg.MustRegister(r.ops, r.duration)
	return r
}

// Start begins timing op. The returned function records the outcome of err
// and is meant to be deferred with a pointer to the named error result.
func (r *Recorder) Start(op string) func(err *error) {
	start := r.now()
	return func(err *error) {
		var e error
		if err != nil {
			e = *err
		}
		r.Observe(op, r.now().Sub(start), e)
	}
}

// Observe records one completed operation.
func (r *Recorder) Observe(op string, took time.Duration, err error) {
	r.ops.WithLabelValues(op, Outcome(err)).Inc()
	r.duration.WithLabelValues(op).Observe(took.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

// Outcome maps err to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, types.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, types.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, types.ErrIntegrityViolation):
		return OutcomeIntegrity
	case errors.Is(err, types.ErrInvalidArgument):
		return OutcomeInvalid
	case errors.Is(err, types.ErrStorage):
		return OutcomeStorage
	}
	return OutcomeError
}
