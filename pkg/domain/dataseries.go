package domain

// DataSeries is a named, typed collection of data sets.
type DataSeries struct {
	Identified
	Name           string `json:"name" validate:"required,max=255"`
	Description    string `json:"description"`
	DataProviderId int64  `json:"data_provider_id" ref:"data_provider" validate:"required"`
	// code of DataSeriesSemantics, like "DCP-postgis".
	Semantics  string               `json:"data_series_semantics" validate:"data_series_semantics"`
	Active     bool                 `json:"active"`
	Properties []DataSeriesProperty `json:"properties" validate:"dive"`
}

func (*DataSeries) Kind() Kind { return KindDataSeries }

func (d *DataSeries) EntityName() string { return d.Name }

// DataSeriesProperty is an attribute of series, with display alias and order.
type DataSeriesProperty struct {
	Attribute string `json:"attribute" validate:"required"`
	Alias     string `json:"alias"`
	Position  int    `json:"position" validate:"gte=0"`
}

// DataSet is a concrete instance within a DataSeries.
//
// Exactly one of specialization fields (Dcp, Monitored, Occurrence, Grid) is set,
// matching the type of the owning series.
type DataSet struct {
	Identified
	DataSeriesId int64             `json:"data_series_id" ref:"data_series" validate:"required"`
	Active       bool              `json:"active"`
	Format       map[string]string `json:"format"`

	Dcp        *DcpDataSet        `json:"dcp"`
	Monitored  *MonitoredDataSet  `json:"monitored"`
	Occurrence *OccurrenceDataSet `json:"occurrence"`
	Grid       *GridDataSet       `json:"grid"`
}

func (*DataSet) Kind() Kind { return KindDataSet }

// Specialization returns the series type which the data set is specialized for.
//
// ok is false unless exactly one specialization is set.
func (d *DataSet) Specialization() (t DataSeriesType, ok bool) {
	n := 0
	if d.Dcp != nil {
		t, n = SeriesDCP, n+1
	}
	if d.Monitored != nil {
		t, n = SeriesAnalysisMonitoredObject, n+1
	}
	if d.Occurrence != nil {
		t, n = SeriesOccurrence, n+1
	}
	if d.Grid != nil {
		t, n = SeriesGrid, n+1
	}
	return t, n == 1
}

// Accepts reports whether the data set can be a member of the series type.
//
// Geometric objects (static vector data) are described with the monitored layout.
func (d *DataSet) Accepts(t DataSeriesType) bool {
	s, ok := d.Specialization()
	if !ok {
		return false
	}
	if t == SeriesGeometricObject {
		return s == SeriesAnalysisMonitoredObject
	}
	return s == t
}

type DcpDataSet struct {
	// WKT point
	Position string `json:"position" validate:"required,wkt_point"`
	Srid     int    `json:"srid" validate:"gt=0"`
}

type MonitoredDataSet struct {
	TimeColumn     string `json:"time_column"`
	GeometryColumn string `json:"geometry_column" validate:"required"`
	IdColumn       string `json:"id_column" validate:"required"`
	Srid           int    `json:"srid" validate:"gt=0"`
}

type OccurrenceDataSet struct {
	TimeColumn     string `json:"time_column" validate:"required"`
	GeometryColumn string `json:"geometry_column" validate:"required"`
	Srid           int    `json:"srid" validate:"gt=0"`
}

type GridDataSet struct {
	Mask string `json:"mask"`
}
