// Package metrics has prometheus collectors of geoflow.
//
// They are registered to the default registry, and exposed by geoflowd at /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoflow",
		Subsystem: "graph",
		Name:      "mutations_total",
		Help:      "Mutations of the entity graph, by kind, operation and result",
	}, []string{"kind", "operation", "result"})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "geoflow",
		Subsystem: "graph",
		Name:      "mutation_duration_seconds",
		Help:      "Time to execute a mutation transaction",
		Buckets:   []float64{0.001, 0.01, 0.1, 1, 10},
	}, []string{"operation"})

	deletedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoflow",
		Subsystem: "integrity",
		Name:      "deleted_rows_total",
		Help:      "Rows deleted by delete plans, including cascades",
	}, []string{"kind"})

	nullifiedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoflow",
		Subsystem: "integrity",
		Name:      "nullified_references_total",
		Help:      "References cleared by delete plans",
	})

	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoflow",
		Subsystem: "resolver",
		Name:      "resolutions_total",
		Help:      "Process resolutions, by kind and result",
	}, []string{"kind", "result"})
)

// ResultOf classifies an error into a label value.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrMissing):
		return "not_found"
	case errors.Is(err, domain.ErrInvalid), errors.Is(err, domain.ErrForeignKey):
		return "invalid"
	case errors.Is(err, domain.ErrRestrictedDelete):
		return "restricted"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrMisconfiguredSchedule),
		errors.Is(err, domain.ErrServiceTypeMismatch),
		errors.Is(err, domain.ErrNoServiceAssigned):
		return "unresolvable"
	}
	return "error"
}

// ObserveMutation records a mutation which started at since.
func ObserveMutation(kind domain.Kind, operation string, since time.Time, err error) {
	mutations.WithLabelValues(string(kind), operation, ResultOf(err)).Inc()
	mutationDuration.WithLabelValues(operation).Observe(time.Since(since).Seconds())
}

// ObserveDeletion records rows deleted and references cleared.
func ObserveDeletion(deleted map[domain.Kind]int, nullified int) {
	for k, n := range deleted {
		deletedRows.WithLabelValues(string(k)).Add(float64(n))
	}
	nullifiedRows.Add(float64(nullified))
}

// ObserveResolution records a resolution of a process.
func ObserveResolution(kind domain.Kind, err error) {
	resolutions.WithLabelValues(string(kind), ResultOf(err)).Inc()
}
