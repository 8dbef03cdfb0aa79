package domain

import (
	"fmt"
	"slices"
)

// Kind names an entity type. It is also the table name.
type Kind string

const (
	KindProject                  Kind = "project"
	KindServiceInstance          Kind = "service_instance"
	KindDataProvider             Kind = "data_provider"
	KindDataSeries               Kind = "data_series"
	KindDataSet                  Kind = "data_set"
	KindSchedule                 Kind = "schedule"
	KindAutomaticSchedule        Kind = "automatic_schedule"
	KindCollector                Kind = "collector"
	KindFilter                   Kind = "filter"
	KindValueComparisonOperation Kind = "value_comparison_operation"
	KindCollectorInputOutput     Kind = "collector_input_output"
	KindIntersection             Kind = "intersection"
	KindAnalysis                 Kind = "analysis"
	KindAnalysisDataSeries       Kind = "analysis_data_series"
	KindAnalysisOutputGrid       Kind = "analysis_output_grid"
	KindInterpolator             Kind = "interpolator"
	KindLegend                   Kind = "legend"
	KindView                     Kind = "view"
	KindAlert                    Kind = "alert"
	KindAlertAttachment          Kind = "alert_attachment"
	KindAlertAttachedView        Kind = "alert_attached_view"
	KindStorage                  Kind = "storage"
)

var kinds = map[Kind]func() Entity{
	KindProject:                  func() Entity { return new(Project) },
	KindServiceInstance:          func() Entity { return new(ServiceInstance) },
	KindDataProvider:             func() Entity { return new(DataProvider) },
	KindDataSeries:               func() Entity { return new(DataSeries) },
	KindDataSet:                  func() Entity { return new(DataSet) },
	KindSchedule:                 func() Entity { return new(Schedule) },
	KindAutomaticSchedule:        func() Entity { return new(AutomaticSchedule) },
	KindCollector:                func() Entity { return new(Collector) },
	KindFilter:                   func() Entity { return new(Filter) },
	KindValueComparisonOperation: func() Entity { return new(ValueComparisonOperation) },
	KindCollectorInputOutput:     func() Entity { return new(CollectorInputOutput) },
	KindIntersection:             func() Entity { return new(Intersection) },
	KindAnalysis:                 func() Entity { return new(Analysis) },
	KindAnalysisDataSeries:       func() Entity { return new(AnalysisDataSeries) },
	KindAnalysisOutputGrid:       func() Entity { return new(AnalysisOutputGrid) },
	KindInterpolator:             func() Entity { return new(Interpolator) },
	KindLegend:                   func() Entity { return new(Legend) },
	KindView:                     func() Entity { return new(View) },
	KindAlert:                    func() Entity { return new(Alert) },
	KindAlertAttachment:          func() Entity { return new(AlertAttachment) },
	KindAlertAttachedView:        func() Entity { return new(AlertAttachedView) },
	KindStorage:                  func() Entity { return new(Storage) },
}

// processKinds are kinds which are executed by a service instance.
var processKinds = map[Kind]ServiceType{
	KindCollector:    ServiceCollector,
	KindAnalysis:     ServiceAnalysis,
	KindInterpolator: ServiceInterpolation,
	KindView:         ServiceView,
	KindAlert:        ServiceAlert,
	KindStorage:      ServiceStorage,
}

var ErrUnknownKind = fmt.Errorf("%w: unknown kind", ErrInvalid)

// AsKind converts a string into a Kind.
//
// # Returns
//
// - Kind
//
// - error: ErrUnknownKind when s is not a kind.
func AsKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return k, fmt.Errorf("%w: %s", ErrUnknownKind, s)
	}
	return k, nil
}

// New creates an empty entity of the kind.
//
// It panics for an unknown kind.
func (k Kind) New() Entity {
	f, ok := kinds[k]
	if !ok {
		panic(fmt.Sprintf("unknown kind: %s", k))
	}
	return f()
}

// IsProcess reports whether the kind is a process executed by a service instance.
func (k Kind) IsProcess() bool {
	_, ok := processKinds[k]
	return ok
}

// ServiceType returns the service type which executes the process kind.
//
// ok is false unless the kind is a process.
func (k Kind) ServiceType() (st ServiceType, ok bool) {
	st, ok = processKinds[k]
	return
}

func (k Kind) String() string {
	return string(k)
}

// Kinds returns all kinds, sorted by name.
func Kinds() []Kind {
	ks := make([]Kind, 0, len(kinds))
	for k := range kinds {
		ks = append(ks, k)
	}
	slices.Sort(ks)
	return ks
}

// ProcessKinds returns all process kinds, sorted by name.
func ProcessKinds() []Kind {
	ks := make([]Kind, 0, len(processKinds))
	for k := range processKinds {
		ks = append(ks, k)
	}
	slices.Sort(ks)
	return ks
}

// Ref points a row.
type Ref struct {
	Kind Kind  `json:"kind"`
	Id   int64 `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.Id)
}
