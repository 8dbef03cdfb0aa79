package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ServiceType is the kind of a worker which executes processes.
type ServiceType int

const (
	ServiceCollector     ServiceType = 1
	ServiceAnalysis      ServiceType = 2
	ServiceView          ServiceType = 3
	ServiceAlert         ServiceType = 4
	ServiceInterpolation ServiceType = 5
	ServiceStorage       ServiceType = 6
)

var serviceTypeNames = map[ServiceType]string{
	ServiceCollector:     "COLLECTOR",
	ServiceAnalysis:      "ANALYSIS",
	ServiceView:          "VIEW",
	ServiceAlert:         "ALERT",
	ServiceInterpolation: "INTERPOLATION",
	ServiceStorage:       "STORAGE",
}

func (s ServiceType) String() string {
	if n, ok := serviceTypeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("ServiceType(%d)", int(s))
}

func (s ServiceType) Valid() bool {
	_, ok := serviceTypeNames[s]
	return ok
}

// ScheduleType tells which schedule mechanism a process uses.
type ScheduleType int

const (
	ScheduleTypeSchedule               ScheduleType = 1
	ScheduleTypeReprocessingHistorical ScheduleType = 2
	ScheduleTypeManual                 ScheduleType = 3
	ScheduleTypeAutomatic              ScheduleType = 4
)

var scheduleTypeNames = map[ScheduleType]string{
	ScheduleTypeSchedule:               "SCHEDULE",
	ScheduleTypeReprocessingHistorical: "REPROCESSING_HISTORICAL",
	ScheduleTypeManual:                 "MANUAL",
	ScheduleTypeAutomatic:              "AUTOMATIC",
}

func (s ScheduleType) String() string {
	if n, ok := scheduleTypeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("ScheduleType(%d)", int(s))
}

func (s ScheduleType) Valid() bool {
	_, ok := scheduleTypeNames[s]
	return ok
}

// UsesSchedule reports whether the schedule type needs a Schedule row.
func (s ScheduleType) UsesSchedule() bool {
	return s == ScheduleTypeSchedule || s == ScheduleTypeReprocessingHistorical
}

// AllowedScheduleTypes returns schedule types which the process kind accepts.
//
// Reprocessing historical data is available only for analyses.
func AllowedScheduleTypes(k Kind) []ScheduleType {
	if !k.IsProcess() {
		return nil
	}
	if k == KindAnalysis {
		return []ScheduleType{
			ScheduleTypeSchedule, ScheduleTypeReprocessingHistorical,
			ScheduleTypeManual, ScheduleTypeAutomatic,
		}
	}
	return []ScheduleType{ScheduleTypeSchedule, ScheduleTypeManual, ScheduleTypeAutomatic}
}

// DataSeriesType is the kind of data a series holds.
type DataSeriesType string

const (
	SeriesDCP                     DataSeriesType = "DCP"
	SeriesOccurrence              DataSeriesType = "OCCURRENCE"
	SeriesGrid                    DataSeriesType = "GRID"
	SeriesAnalysisMonitoredObject DataSeriesType = "ANALYSIS_MONITORED_OBJECT"
	SeriesGeometricObject         DataSeriesType = "GEOMETRIC_OBJECT"
)

var seriesTypes = []DataSeriesType{
	SeriesDCP, SeriesOccurrence, SeriesGrid, SeriesAnalysisMonitoredObject, SeriesGeometricObject,
}

func (t DataSeriesType) Valid() bool {
	return slices.Contains(seriesTypes, t)
}

// DataFormat is how a series is encoded.
type DataFormat string

const (
	FormatCSV     DataFormat = "CSV"
	FormatPostGIS DataFormat = "POSTGIS"
	FormatGeoTIFF DataFormat = "GEOTIFF"
	FormatASCII   DataFormat = "ASCII"
	FormatGrADS   DataFormat = "GRADS"
	FormatOGR     DataFormat = "OGR"
)

type Temporality string

const (
	Dynamic Temporality = "DYNAMIC"
	Static  Temporality = "STATIC"
)

// DataProviderType is the protocol of a data provider.
type DataProviderType string

const (
	ProviderFile       DataProviderType = "FILE"
	ProviderFTP        DataProviderType = "FTP"
	ProviderSFTP       DataProviderType = "SFTP"
	ProviderHTTP       DataProviderType = "HTTP"
	ProviderHTTPS      DataProviderType = "HTTPS"
	ProviderStaticHTTP DataProviderType = "STATIC_HTTP"
	ProviderPostGIS    DataProviderType = "POSTGIS"
	ProviderWCS        DataProviderType = "WCS"
)

var providerTypes = []DataProviderType{
	ProviderFile, ProviderFTP, ProviderSFTP, ProviderHTTP,
	ProviderHTTPS, ProviderStaticHTTP, ProviderPostGIS, ProviderWCS,
}

func (t DataProviderType) Valid() bool {
	return slices.Contains(providerTypes, t)
}

type DataProviderIntent string

const (
	IntentCollect DataProviderIntent = "COLLECT"
	IntentProcess DataProviderIntent = "PROCESS"
)

func (i DataProviderIntent) Valid() bool {
	return i == IntentCollect || i == IntentProcess
}

// DataSeriesSemantics is a pair of series type and format.
type DataSeriesSemantics struct {
	Code        string             `json:"code"`
	Type        DataSeriesType     `json:"data_series_type"`
	Format      DataFormat         `json:"data_format"`
	Temporality Temporality        `json:"temporality"`
	Providers   []DataProviderType `json:"providers"`
}

var fileProviders = []DataProviderType{
	ProviderFile, ProviderFTP, ProviderSFTP, ProviderHTTP, ProviderHTTPS, ProviderStaticHTTP,
}

var semantics = []DataSeriesSemantics{
	{Code: "DCP-inpe", Type: SeriesDCP, Format: FormatCSV, Temporality: Dynamic, Providers: fileProviders},
	{Code: "DCP-toa5", Type: SeriesDCP, Format: FormatCSV, Temporality: Dynamic, Providers: fileProviders},
	{Code: "DCP-generic", Type: SeriesDCP, Format: FormatCSV, Temporality: Dynamic, Providers: fileProviders},
	{Code: "DCP-postgis", Type: SeriesDCP, Format: FormatPostGIS, Temporality: Dynamic, Providers: []DataProviderType{ProviderPostGIS}},
	{Code: "OCCURRENCE-wfp", Type: SeriesOccurrence, Format: FormatCSV, Temporality: Dynamic, Providers: fileProviders},
	{Code: "OCCURRENCE-generic", Type: SeriesOccurrence, Format: FormatCSV, Temporality: Dynamic, Providers: fileProviders},
	{Code: "OCCURRENCE-postgis", Type: SeriesOccurrence, Format: FormatPostGIS, Temporality: Dynamic, Providers: []DataProviderType{ProviderPostGIS}},
	{Code: "GRID-geotiff", Type: SeriesGrid, Format: FormatGeoTIFF, Temporality: Dynamic, Providers: append(slices.Clone(fileProviders), ProviderWCS)},
	{Code: "GRID-ascii", Type: SeriesGrid, Format: FormatASCII, Temporality: Dynamic, Providers: fileProviders},
	{Code: "GRID-grads", Type: SeriesGrid, Format: FormatGrADS, Temporality: Dynamic, Providers: fileProviders},
	{Code: "GRID-static_geotiff", Type: SeriesGrid, Format: FormatGeoTIFF, Temporality: Static, Providers: fileProviders},
	{Code: "ANALYSIS_MONITORED_OBJECT-postgis", Type: SeriesAnalysisMonitoredObject, Format: FormatPostGIS, Temporality: Dynamic, Providers: []DataProviderType{ProviderPostGIS}},
	{Code: "STATIC_DATA-ogr", Type: SeriesGeometricObject, Format: FormatOGR, Temporality: Static, Providers: fileProviders},
	{Code: "STATIC_DATA-postgis", Type: SeriesGeometricObject, Format: FormatPostGIS, Temporality: Static, Providers: []DataProviderType{ProviderPostGIS}},
}

// LookupSemantics finds semantics by its code.
func LookupSemantics(code string) (DataSeriesSemantics, bool) {
	for _, s := range semantics {
		if s.Code == code {
			return s, true
		}
	}
	return DataSeriesSemantics{}, false
}

// Semantics returns the whole semantics catalog.
func Semantics() []DataSeriesSemantics {
	return slices.Clone(semantics)
}

func (s DataSeriesSemantics) AcceptsProvider(t DataProviderType) bool {
	return slices.Contains(s.Providers, t)
}

// AnalysisType is the kind of an analysis; it decides the output series type.
type AnalysisType string

const (
	AnalysisDCP       AnalysisType = "DCP"
	AnalysisMonitored AnalysisType = "MONITORED"
	AnalysisGrid      AnalysisType = "GRID"
)

// OutputSeriesType returns the series type an analysis of this type writes.
func (a AnalysisType) OutputSeriesType() (DataSeriesType, bool) {
	switch a {
	case AnalysisDCP:
		return SeriesDCP, true
	case AnalysisMonitored:
		return SeriesAnalysisMonitoredObject, true
	case AnalysisGrid:
		return SeriesGrid, true
	}
	return "", false
}

// AnalysisDataSeriesType is the role of an analysis input.
type AnalysisDataSeriesType string

const (
	AnalysisInputAdditionalData  AnalysisDataSeriesType = "ADDITIONAL_DATA"
	AnalysisInputDCP             AnalysisDataSeriesType = "DCP"
	AnalysisInputGrid            AnalysisDataSeriesType = "GRID"
	AnalysisInputMonitoredObject AnalysisDataSeriesType = "MONITORED_OBJECT"
)

type InterpolatorStrategy string

const (
	NearestNeighbor         InterpolatorStrategy = "NEAREST_NEIGHBOR"
	AverageNeighbor         InterpolatorStrategy = "AVERAGE_NEIGHBOR"
	WeightedAverageNeighbor InterpolatorStrategy = "W_AVERAGE_NEIGHBOR"
)

type ScriptLanguage string

const ScriptPython ScriptLanguage = "PYTHON"

// Catalog is the set of closed enumerations.
type Catalog struct {
	ServiceTypes           map[int]string         `json:"service_types"`
	ScheduleTypes          map[int]string         `json:"schedule_types"`
	DataSeriesTypes        []DataSeriesType       `json:"data_series_types"`
	DataProviderTypes      []DataProviderType     `json:"data_provider_types"`
	DataProviderIntents    []DataProviderIntent   `json:"data_provider_intents"`
	DataSeriesSemantics    []DataSeriesSemantics  `json:"data_series_semantics"`
	AnalysisTypes          []AnalysisType         `json:"analysis_types"`
	InterpolatorStrategies []InterpolatorStrategy `json:"interpolator_strategies"`
}

// Catalogs returns reference data of geoflow.
func Catalogs() Catalog {
	c := Catalog{
		ServiceTypes:           map[int]string{},
		ScheduleTypes:          map[int]string{},
		DataSeriesTypes:        slices.Clone(seriesTypes),
		DataProviderTypes:      slices.Clone(providerTypes),
		DataProviderIntents:    []DataProviderIntent{IntentCollect, IntentProcess},
		DataSeriesSemantics:    Semantics(),
		AnalysisTypes:          []AnalysisType{AnalysisDCP, AnalysisMonitored, AnalysisGrid},
		InterpolatorStrategies: []InterpolatorStrategy{NearestNeighbor, AverageNeighbor, WeightedAverageNeighbor},
	}
	for k, v := range serviceTypeNames {
		c.ServiceTypes[int(k)] = v
	}
	for k, v := range scheduleTypeNames {
		c.ScheduleTypes[int(k)] = v
	}
	return c
}

// Enum validation is registered by name; see package validation.
var enums = map[string]func(string) bool{
	"service_type":           func(s string) bool { return parseIntEnum(s, func(i int) bool { return ServiceType(i).Valid() }) },
	"schedule_type":          func(s string) bool { return parseIntEnum(s, func(i int) bool { return ScheduleType(i).Valid() }) },
	"data_series_type":       func(s string) bool { return DataSeriesType(s).Valid() },
	"data_provider_type":     func(s string) bool { return DataProviderType(s).Valid() },
	"data_provider_intent":   func(s string) bool { return DataProviderIntent(s).Valid() },
	"data_series_semantics":  func(s string) bool { _, ok := LookupSemantics(s); return ok },
	"analysis_type":          func(s string) bool { _, ok := AnalysisType(s).OutputSeriesType(); return ok },
	"analysis_input_type":    oneOf(AnalysisInputAdditionalData, AnalysisInputDCP, AnalysisInputGrid, AnalysisInputMonitoredObject),
	"interpolator_strategy":  oneOf(NearestNeighbor, AverageNeighbor, WeightedAverageNeighbor),
	"script_language":        oneOf(ScriptPython),
	"comparison_operator":    oneOf("<", "<=", ">", ">=", "=", "!="),
	"interpolation_method":   oneOf("NEAREST_NEIGHBOR", "BILINEAR", "BICUBIC"),
	"resolution_type":        oneOf("SAME_FROM_DATA_SERIES", "BIGGEST_GRID", "SMALLEST_GRID", "CUSTOM"),
	"area_of_interest_type":  oneOf("UNION", "SAME_FROM_DATA_SERIES", "CUSTOM"),
	"style_legend_type":      oneOf("RAMP", "INTERVAL", "VALUE"),
	"retention_unit":         oneOf("days", "weeks", "months", "years"),
	"wkt_polygon":            isWKTPolygon,
	"wkt_point":              func(s string) bool { return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(s)), "POINT") },
}

// Enums returns named predicates of closed enumerations.
//
// A key is used as a validation tag name.
func Enums() map[string]func(string) bool {
	m := make(map[string]func(string) bool, len(enums))
	for k, v := range enums {
		m[k] = v
	}
	return m
}

func oneOf[S ~string](values ...S) func(string) bool {
	return func(s string) bool { return slices.Contains(values, S(s)) }
}

func parseIntEnum(s string, valid func(int) bool) bool {
	var i int
	if err := json.Unmarshal([]byte(s), &i); err != nil {
		return false
	}
	return valid(i)
}

func isWKTPolygon(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(s))
	return (strings.HasPrefix(u, "POLYGON") || strings.HasPrefix(u, "MULTIPOLYGON")) &&
		strings.Contains(u, "((") && strings.HasSuffix(u, ")")
}
