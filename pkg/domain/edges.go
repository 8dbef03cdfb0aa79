package domain

import (
	"fmt"
	"slices"
)

// OnDelete is what happens to a referrer when the referenced row is deleted.
type OnDelete int

const (
	// delete the referrer together.
	Cascade OnDelete = iota + 1
	// refuse deleting while the referrer exists.
	Restrict
	// clear the reference (drop the element for array columns).
	SetNull
)

func (o OnDelete) String() string {
	switch o {
	case Cascade:
		return "CASCADE"
	case Restrict:
		return "RESTRICT"
	case SetNull:
		return "SET NULL"
	}
	return fmt.Sprintf("OnDelete(%d)", int(o))
}

// Edge is a foreign key column: From.Column -> To.Id .
type Edge struct {
	From     Kind
	Column   string
	To       Kind
	OnDelete OnDelete

	// Owned edges delete the referenced row when the referrer is deleted.
	// (e.g. a process owns its schedule)
	Owned bool

	// Many is true for array columns.
	Many bool
}

func (e Edge) String() string {
	return fmt.Sprintf("%s.%s -> %s (%s)", e.From, e.Column, e.To, e.OnDelete)
}

func processEdges(k Kind) []Edge {
	return []Edge{
		{From: k, Column: "schedule_id", To: KindSchedule, OnDelete: Restrict, Owned: true},
		{From: k, Column: "automatic_schedule_id", To: KindAutomaticSchedule, OnDelete: Restrict, Owned: true},
		{From: k, Column: "service_instance_id", To: KindServiceInstance, OnDelete: SetNull},
	}
}

var edges = slices.Concat(
	[]Edge{
		{From: KindDataProvider, Column: "project_id", To: KindProject, OnDelete: Cascade},
		{From: KindDataSeries, Column: "data_provider_id", To: KindDataProvider, OnDelete: Cascade},
		{From: KindDataSet, Column: "data_series_id", To: KindDataSeries, OnDelete: Cascade},
		{From: KindAutomaticSchedule, Column: "data_ids", To: KindDataSeries, OnDelete: SetNull, Many: true},

		{From: KindCollector, Column: "data_series_input", To: KindDataSeries, OnDelete: Cascade},
		{From: KindCollector, Column: "data_series_output", To: KindDataSeries, OnDelete: Cascade},
	},
	processEdges(KindCollector),
	[]Edge{
		{From: KindFilter, Column: "collector_id", To: KindCollector, OnDelete: Cascade},
		{From: KindFilter, Column: "data_series_id", To: KindDataSeries, OnDelete: SetNull},
		{From: KindValueComparisonOperation, Column: "filter_id", To: KindFilter, OnDelete: Cascade},
		{From: KindCollectorInputOutput, Column: "collector_id", To: KindCollector, OnDelete: Cascade},
		{From: KindCollectorInputOutput, Column: "input_dataset", To: KindDataSet, OnDelete: Cascade},
		{From: KindCollectorInputOutput, Column: "output_dataset", To: KindDataSet, OnDelete: Cascade},
		{From: KindIntersection, Column: "collector_id", To: KindCollector, OnDelete: Cascade},
		{From: KindIntersection, Column: "data_series_id", To: KindDataSeries, OnDelete: Cascade},

		{From: KindAnalysis, Column: "project_id", To: KindProject, OnDelete: Cascade},
		{From: KindAnalysis, Column: "dataset_output", To: KindDataSet, OnDelete: Cascade},
	},
	processEdges(KindAnalysis),
	[]Edge{
		{From: KindAnalysisDataSeries, Column: "analysis_id", To: KindAnalysis, OnDelete: Cascade},
		{From: KindAnalysisDataSeries, Column: "data_series_id", To: KindDataSeries, OnDelete: Cascade},
		{From: KindAnalysisOutputGrid, Column: "analysis_id", To: KindAnalysis, OnDelete: Cascade},
		{From: KindAnalysisOutputGrid, Column: "resolution_data_series_id", To: KindDataSeries, OnDelete: SetNull},
		{From: KindAnalysisOutputGrid, Column: "area_of_interest_data_series_id", To: KindDataSeries, OnDelete: SetNull},

		{From: KindInterpolator, Column: "project_id", To: KindProject, OnDelete: Cascade},
		{From: KindInterpolator, Column: "data_series_input", To: KindDataSeries, OnDelete: Cascade},
		{From: KindInterpolator, Column: "data_series_output", To: KindDataSeries, OnDelete: Cascade},
	},
	processEdges(KindInterpolator),
	[]Edge{
		{From: KindLegend, Column: "project_id", To: KindProject, OnDelete: Cascade},

		{From: KindView, Column: "project_id", To: KindProject, OnDelete: Cascade},
		{From: KindView, Column: "data_series_id", To: KindDataSeries, OnDelete: Cascade},
	},
	processEdges(KindView),
	[]Edge{
		{From: KindAlert, Column: "project_id", To: KindProject, OnDelete: Cascade},
		{From: KindAlert, Column: "data_series_id", To: KindDataSeries, OnDelete: Cascade},
		{From: KindAlert, Column: "legend_id", To: KindLegend, OnDelete: Restrict},
		{From: KindAlert, Column: "view_id", To: KindView, OnDelete: SetNull},
	},
	processEdges(KindAlert),
	[]Edge{
		{From: KindAlertAttachment, Column: "alert_id", To: KindAlert, OnDelete: Cascade},
		{From: KindAlertAttachedView, Column: "alert_attachment_id", To: KindAlertAttachment, OnDelete: Cascade},
		{From: KindAlertAttachedView, Column: "view_id", To: KindView, OnDelete: Cascade},

		{From: KindStorage, Column: "project_id", To: KindProject, OnDelete: Cascade},
		{From: KindStorage, Column: "data_series_id", To: KindDataSeries, OnDelete: Cascade},
		{From: KindStorage, Column: "data_provider_id", To: KindDataProvider, OnDelete: SetNull},
	},
	processEdges(KindStorage),
)

// Edges returns the static edge table.
func Edges() []Edge {
	return slices.Clone(edges)
}

// EdgesTo returns edges pointing the kind.
func EdgesTo(k Kind) []Edge {
	return slices.DeleteFunc(Edges(), func(e Edge) bool { return e.To != k })
}

// EdgesFrom returns edges going out of the kind.
func EdgesFrom(k Kind) []Edge {
	return slices.DeleteFunc(Edges(), func(e Edge) bool { return e.From != k })
}

// OwnersOf returns owning edges into the kind.
//
// A row of the kind can be owned by at most one row across all of them.
func OwnersOf(k Kind) []Edge {
	return slices.DeleteFunc(EdgesTo(k), func(e Edge) bool { return !e.Owned })
}

// EdgeOf looks up the edge of the column.
func EdgeOf(from Kind, column string) (Edge, bool) {
	for _, e := range edges {
		if e.From == from && e.Column == column {
			return e, true
		}
	}
	return Edge{}, false
}

// DeletionOrder returns all kinds ordered so that referrers come before the kinds they refer.
//
// Deleting rows in this order never leaves a dangling reference in the middle.
func DeletionOrder() []Kind {
	ks := Kinds()
	indeg := map[Kind]int{}
	out := map[Kind][]Kind{}
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		// referrer (From) must be deleted before referred (To).
		out[e.From] = append(out[e.From], e.To)
		indeg[e.To] += 1
	}

	order := make([]Kind, 0, len(ks))
	queue := slices.DeleteFunc(slices.Clone(ks), func(k Kind) bool { return indeg[k] != 0 })
	for len(queue) != 0 {
		k := queue[0]
		queue = queue[1:]
		order = append(order, k)
		next := []Kind{}
		for _, to := range out[k] {
			indeg[to] -= 1
			if indeg[to] == 0 {
				next = append(next, to)
			}
		}
		slices.Sort(next)
		queue = append(queue, slices.Compact(next)...)
	}
	if len(order) != len(ks) {
		panic("edge table has a cycle")
	}
	return order
}

// Unique is a uniqueness rule of names.
type Unique struct {
	Kind Kind
	// Scope is the column which partitions the name space. Empty means global.
	Scope string
}

var uniques = map[Kind]Unique{
	KindProject:         {Kind: KindProject},
	KindDataSeries:      {Kind: KindDataSeries},
	KindServiceInstance: {Kind: KindServiceInstance},
	KindDataProvider:    {Kind: KindDataProvider, Scope: "project_id"},
	KindLegend:          {Kind: KindLegend, Scope: "project_id"},
}

// UniqueName returns the name uniqueness rule of the kind.
func UniqueName(k Kind) (Unique, bool) {
	u, ok := uniques[k]
	return u, ok
}

// singular children: at most one row per parent.
var singulars = map[Kind]string{
	KindFilter:             "collector_id",
	KindAnalysisOutputGrid: "analysis_id",
}

// SingularBy returns the column where the kind is 1:1 with.
func SingularBy(k Kind) (string, bool) {
	c, ok := singulars[k]
	return c, ok
}

var immutables = map[Kind][]string{
	KindDataSeries:               {"data_provider_id"},
	KindDataSet:                  {"data_series_id"},
	KindFilter:                   {"collector_id"},
	KindValueComparisonOperation: {"filter_id"},
	KindCollectorInputOutput:     {"collector_id"},
	KindIntersection:             {"collector_id"},
	KindAnalysis:                 {"project_id", "dataset_output"},
	KindAnalysisDataSeries:       {"analysis_id"},
	KindAnalysisOutputGrid:       {"analysis_id"},
	KindDataProvider:             {"project_id"},
	KindLegend:                   {"project_id"},
	KindInterpolator:             {"project_id"},
	KindView:                     {"project_id"},
	KindAlert:                    {"project_id"},
	KindAlertAttachment:          {"alert_id"},
	KindServiceInstance:          {"service_type"},
	KindAlertAttachedView:        {"alert_attachment_id"},
	KindStorage:                  {"project_id"},
	KindCollector:                {"collector_type"},
}

// ImmutableColumns returns columns which can not be changed by update.
//
// "id" is always immutable.
func ImmutableColumns(k Kind) []string {
	return append([]string{"id"}, immutables[k]...)
}
