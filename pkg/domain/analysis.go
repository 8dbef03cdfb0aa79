package domain

// Analysis runs a script over input series and writes its output data set.
type Analysis struct {
	Identified
	ProjectId      int64             `json:"project_id" ref:"project" validate:"required"`
	Name           string            `json:"name" validate:"required,max=255"`
	Description    string            `json:"description"`
	Script         string            `json:"script" validate:"required"`
	ScriptLanguage ScriptLanguage    `json:"script_language" validate:"script_language"`
	AnalysisType   AnalysisType      `json:"analysis_type" validate:"analysis_type"`
	DatasetOutput  int64             `json:"dataset_output" ref:"data_set" validate:"required"`
	Metadata       map[string]string `json:"metadata"`
	ProcessLink
}

func (*Analysis) Kind() Kind { return KindAnalysis }

func (a *Analysis) EntityName() string { return a.Name }

// AnalysisDataSeries is an aliased input of an analysis.
type AnalysisDataSeries struct {
	Identified
	AnalysisId   int64                  `json:"analysis_id" ref:"analysis" validate:"required"`
	DataSeriesId int64                  `json:"data_series_id" ref:"data_series" validate:"required"`
	Type         AnalysisDataSeriesType `json:"type" validate:"analysis_input_type"`
	Alias        string                 `json:"alias"`
	Metadata     map[string]string      `json:"metadata"`
}

func (*AnalysisDataSeries) Kind() Kind { return KindAnalysisDataSeries }

// AnalysisOutputGrid describes the grid written by a GRID analysis.
type AnalysisOutputGrid struct {
	Identified
	AnalysisId int64 `json:"analysis_id" ref:"analysis" validate:"required"`

	InterpolationMethod string   `json:"interpolation_method" validate:"interpolation_method"`
	InterpolationDummy  *float64 `json:"interpolation_dummy"`

	ResolutionType         string   `json:"resolution_type" validate:"resolution_type"`
	ResolutionDataSeriesId *int64   `json:"resolution_data_series_id" ref:"data_series"`
	ResolutionX            *float64 `json:"resolution_x" validate:"omitempty,gt=0"`
	ResolutionY            *float64 `json:"resolution_y" validate:"omitempty,gt=0"`
	Srid                   *int     `json:"srid" validate:"omitempty,gt=0"`

	AreaOfInterestType         string  `json:"area_of_interest_type" validate:"area_of_interest_type"`
	AreaOfInterestDataSeriesId *int64  `json:"area_of_interest_data_series_id" ref:"data_series"`
	AreaOfInterestBox          *string `json:"area_of_interest_box" validate:"omitempty,wkt_polygon"`
}

func (*AnalysisOutputGrid) Kind() Kind { return KindAnalysisOutputGrid }

// Interpolator makes a grid series from a DCP series.
type Interpolator struct {
	Identified
	ProjectId              int64                `json:"project_id" ref:"project" validate:"required"`
	DataSeriesInput        int64                `json:"data_series_input" ref:"data_series" validate:"required"`
	DataSeriesOutput       int64                `json:"data_series_output" ref:"data_series" validate:"required"`
	InterpolatorStrategy   InterpolatorStrategy `json:"interpolator_strategy" validate:"interpolator_strategy"`
	InterpolationAttribute string               `json:"interpolation_attribute" validate:"required"`
	ResolutionX            float64              `json:"resolution_x" validate:"gt=0"`
	ResolutionY            float64              `json:"resolution_y" validate:"gt=0"`
	Srid                   int                  `json:"srid" validate:"gt=0"`
	// WKT polygon
	BoundingRect      string            `json:"bounding_rect" validate:"required,wkt_polygon"`
	NumberOfNeighbors int               `json:"number_of_neighbors" validate:"gte=0"`
	PowerFactor       *float64          `json:"power_factor"`
	Metadata          map[string]string `json:"metadata"`
	ProcessLink
}

func (*Interpolator) Kind() Kind { return KindInterpolator }
