package domain

import "time"

// Collector ingests raw data from a source series into a target series.
type Collector struct {
	Identified
	CollectorType    DataSeriesType `json:"collector_type" validate:"data_series_type"`
	DataSeriesInput  int64          `json:"data_series_input" ref:"data_series" validate:"required"`
	DataSeriesOutput int64          `json:"data_series_output" ref:"data_series" validate:"required"`
	ProcessLink
}

func (*Collector) Kind() Kind { return KindCollector }

// CollectorView is the read model of a collector.
//
// ProjectId is derived from the output series' data provider.
type CollectorView struct {
	Collector
	ProjectId int64 `json:"project_id"`
}

// Filter belongs 1:1 to a collector.
type Filter struct {
	Identified
	CollectorId   int64      `json:"collector_id" ref:"collector" validate:"required"`
	DiscardBefore *time.Time `json:"discard_before"`
	DiscardAfter  *time.Time `json:"discard_after"`
	// WKT polygon
	Region *string `json:"region" validate:"omitempty,wkt_polygon"`
	// static series whose geometries are the region
	DataSeriesId *int64   `json:"data_series_id" ref:"data_series"`
	ByValue      *float64 `json:"by_value"`
	CropRaster   bool     `json:"crop_raster"`
}

func (*Filter) Kind() Kind { return KindFilter }

// ValueComparisonOperation is a per-attribute threshold of a filter.
type ValueComparisonOperation struct {
	Identified
	FilterId  int64   `json:"filter_id" ref:"filter" validate:"required"`
	Attribute string  `json:"attribute" validate:"required"`
	Operator  string  `json:"operator" validate:"comparison_operator"`
	Value     float64 `json:"value"`
	RetryPolicy
}

func (*ValueComparisonOperation) Kind() Kind { return KindValueComparisonOperation }

// CollectorInputOutput pairs an input data set with an output data set.
type CollectorInputOutput struct {
	Identified
	CollectorId   int64 `json:"collector_id" ref:"collector" validate:"required"`
	InputDataset  int64 `json:"input_dataset" ref:"data_set" validate:"required"`
	OutputDataset int64 `json:"output_dataset" ref:"data_set" validate:"required"`
}

func (*CollectorInputOutput) Kind() Kind { return KindCollectorInputOutput }

// Intersection augments collected data with attributes of another series.
type Intersection struct {
	Identified
	CollectorId  int64  `json:"collector_id" ref:"collector" validate:"required"`
	DataSeriesId int64  `json:"data_series_id" ref:"data_series" validate:"required"`
	Attribute    string `json:"attribute" validate:"required"`
	Alias        string `json:"alias"`
}

func (*Intersection) Kind() Kind { return KindIntersection }
