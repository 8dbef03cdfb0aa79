package validation

import (
	"context"
	"fmt"
	"slices"

	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/domain/schedule"
)

func load[T domain.Entity](ctx context.Context, r kdb.Reader, k domain.Kind, id int64) (T, error) {
	e, err := r.Get(ctx, k, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return e.(T), nil
}

// seriesType returns the type of the data series.
func seriesType(ctx context.Context, r kdb.Reader, id int64) (domain.DataSeriesType, error) {
	ds, err := load[*domain.DataSeries](ctx, r, domain.KindDataSeries, id)
	if err != nil {
		return "", err
	}
	sem, ok := domain.LookupSemantics(ds.Semantics)
	if !ok {
		return "", fmt.Errorf("%w: data_series#%d has unknown semantics %s", domain.ErrInvalid, id, ds.Semantics)
	}
	return sem.Type, nil
}

func fkError(e domain.Entity, column string, to domain.Kind, id int64, format string, args ...any) error {
	return &domain.ForeignKeyError{
		Kind:   e.Kind(),
		Column: column,
		Target: domain.Ref{Kind: to, Id: id},
		Reason: fmt.Sprintf(format, args...),
	}
}

// expectSeries checks the type of the series referred by the column.
func expectSeries(ctx context.Context, r kdb.Reader, e domain.Entity, column string, id int64, expected ...domain.DataSeriesType) error {
	t, err := seriesType(ctx, r, id)
	if err != nil {
		return err
	}
	if !slices.Contains(expected, t) {
		return fkError(e, column, domain.KindDataSeries, id, "data series type should be %v, but %s", expected, t)
	}
	return nil
}

func rules(ctx context.Context, r kdb.Reader, e domain.Entity) error {
	if p, ok := e.(domain.Process); ok {
		if err := processLink(ctx, r, p); err != nil {
			return err
		}
	}

	switch e := e.(type) {
	case *domain.DataSeries:
		return dataSeries(ctx, r, e)
	case *domain.DataSet:
		return dataSet(ctx, r, e)
	case *domain.Schedule:
		_, err := schedule.Parse(*e, false)
		return err
	case *domain.AutomaticSchedule:
		_, err := schedule.Automatic(*e)
		return err
	case *domain.Collector:
		if err := expectSeries(ctx, r, e, "data_series_input", e.DataSeriesInput, e.CollectorType); err != nil {
			return err
		}
		return expectSeries(ctx, r, e, "data_series_output", e.DataSeriesOutput, e.CollectorType)
	case *domain.Filter:
		return filter(ctx, r, e)
	case *domain.CollectorInputOutput:
		return collectorInputOutput(ctx, r, e)
	case *domain.Analysis:
		return analysis(ctx, r, e)
	case *domain.AnalysisOutputGrid:
		return analysisOutputGrid(ctx, r, e)
	case *domain.Interpolator:
		if err := expectSeries(ctx, r, e, "data_series_input", e.DataSeriesInput, domain.SeriesDCP); err != nil {
			return err
		}
		return expectSeries(ctx, r, e, "data_series_output", e.DataSeriesOutput, domain.SeriesGrid)
	case *domain.Legend:
		return legendLevels(e)
	case *domain.Alert:
		return alert(ctx, r, e)
	}
	return nil
}

// processLink checks that schedule_type agrees with the attached schedule,
// and the service instance can execute the process.
func processLink(ctx context.Context, r kdb.Reader, p domain.Process) error {
	k := p.Kind()
	link := p.Link()
	st := link.ScheduleType

	if !slices.Contains(domain.AllowedScheduleTypes(k), st) {
		return &domain.RangeError{
			Field: "schedule_type", Value: int(st),
			Expected: fmt.Sprint(domain.AllowedScheduleTypes(k)),
		}
	}

	if link.ScheduleId != nil && link.AutomaticScheduleId != nil {
		return &domain.ConflictingScheduleError{
			Reason: "both of schedule_id and automatic_schedule_id are set",
		}
	}

	switch {
	case st.UsesSchedule():
		if link.ScheduleId == nil {
			return domain.NewValidationError(k, "schedule_id", nil, fmt.Sprintf("is required for schedule_type %s", st))
		}
		if st == domain.ScheduleTypeReprocessingHistorical {
			s, err := load[*domain.Schedule](ctx, r, domain.KindSchedule, *link.ScheduleId)
			if err != nil {
				return err
			}
			if s.Reprocessing == nil {
				return fkError(p, "schedule_id", domain.KindSchedule, s.Id, "reprocessing window is required for %s", st)
			}
		}
	case st == domain.ScheduleTypeAutomatic:
		if link.AutomaticScheduleId == nil {
			return domain.NewValidationError(k, "automatic_schedule_id", nil, fmt.Sprintf("is required for schedule_type %s", st))
		}
	default:
		if link.ScheduleId != nil {
			return domain.NewValidationError(k, "schedule_id", *link.ScheduleId, fmt.Sprintf("should be null for schedule_type %s", st))
		}
		if link.AutomaticScheduleId != nil {
			return domain.NewValidationError(k, "automatic_schedule_id", *link.AutomaticScheduleId, fmt.Sprintf("should be null for schedule_type %s", st))
		}
	}

	if link.ServiceInstanceId != nil {
		si, err := load[*domain.ServiceInstance](ctx, r, domain.KindServiceInstance, *link.ServiceInstanceId)
		if err != nil {
			return err
		}
		expected, _ := k.ServiceType()
		if si.ServiceType != expected {
			return fkError(p, "service_instance_id", domain.KindServiceInstance, si.Id, "%s requires %s service, but %s", k, expected, si.ServiceType)
		}
	}
	return nil
}

func dataSeries(ctx context.Context, r kdb.Reader, ds *domain.DataSeries) error {
	sem, _ := domain.LookupSemantics(ds.Semantics)
	dp, err := load[*domain.DataProvider](ctx, r, domain.KindDataProvider, ds.DataProviderId)
	if err != nil {
		return err
	}
	if !sem.AcceptsProvider(dp.Type) {
		return fkError(ds, "data_provider_id", domain.KindDataProvider, dp.Id, "%s data provider does not serve %s", dp.Type, sem.Code)
	}
	return nil
}

func dataSet(ctx context.Context, r kdb.Reader, d *domain.DataSet) error {
	if _, ok := d.Specialization(); !ok {
		return domain.NewValidationError(d.Kind(), "", nil, "exactly one of dcp, monitored, occurrence or grid is required")
	}
	t, err := seriesType(ctx, r, d.DataSeriesId)
	if err != nil {
		return err
	}
	if !d.Accepts(t) {
		s, _ := d.Specialization()
		return fkError(d, "data_series_id", domain.KindDataSeries, d.DataSeriesId, "%s data set can not be a member of %s series", s, t)
	}
	return nil
}

func filter(ctx context.Context, r kdb.Reader, f *domain.Filter) error {
	if f.DiscardBefore != nil && f.DiscardAfter != nil && !f.DiscardBefore.Before(*f.DiscardAfter) {
		return domain.NewValidationError(f.Kind(), "discard_after", *f.DiscardAfter, "should be after discard_before")
	}
	if f.DataSeriesId != nil {
		return expectSeries(ctx, r, f, "data_series_id", *f.DataSeriesId, domain.SeriesGeometricObject)
	}
	return nil
}

func collectorInputOutput(ctx context.Context, r kdb.Reader, io *domain.CollectorInputOutput) error {
	c, err := load[*domain.Collector](ctx, r, domain.KindCollector, io.CollectorId)
	if err != nil {
		return err
	}
	for _, pair := range []struct {
		column  string
		dataset int64
		series  int64
	}{
		{column: "input_dataset", dataset: io.InputDataset, series: c.DataSeriesInput},
		{column: "output_dataset", dataset: io.OutputDataset, series: c.DataSeriesOutput},
	} {
		ds, err := load[*domain.DataSet](ctx, r, domain.KindDataSet, pair.dataset)
		if err != nil {
			return err
		}
		if ds.DataSeriesId != pair.series {
			return fkError(io, pair.column, domain.KindDataSet, ds.Id, "data set should belong to data_series#%d", pair.series)
		}
	}
	return nil
}

func analysis(ctx context.Context, r kdb.Reader, a *domain.Analysis) error {
	expected, _ := a.AnalysisType.OutputSeriesType()
	ds, err := load[*domain.DataSet](ctx, r, domain.KindDataSet, a.DatasetOutput)
	if err != nil {
		return err
	}
	t, err := seriesType(ctx, r, ds.DataSeriesId)
	if err != nil {
		return err
	}
	if t != expected {
		return fkError(a, "dataset_output", domain.KindDataSet, ds.Id, "%s analysis writes %s series, but %s", a.AnalysisType, expected, t)
	}
	return nil
}

func analysisOutputGrid(ctx context.Context, r kdb.Reader, g *domain.AnalysisOutputGrid) error {
	a, err := load[*domain.Analysis](ctx, r, domain.KindAnalysis, g.AnalysisId)
	if err != nil {
		return err
	}
	if a.AnalysisType != domain.AnalysisGrid {
		return fkError(g, "analysis_id", domain.KindAnalysis, a.Id, "output grid is only for %s analysis", domain.AnalysisGrid)
	}

	switch g.ResolutionType {
	case "SAME_FROM_DATA_SERIES":
		if g.ResolutionDataSeriesId == nil {
			return domain.NewValidationError(g.Kind(), "resolution_data_series_id", nil, "is required for "+g.ResolutionType)
		}
	case "CUSTOM":
		if g.ResolutionX == nil || g.ResolutionY == nil {
			return domain.NewValidationError(g.Kind(), "resolution_x", nil, "resolution_x and resolution_y are required for "+g.ResolutionType)
		}
	}

	switch g.AreaOfInterestType {
	case "SAME_FROM_DATA_SERIES":
		if g.AreaOfInterestDataSeriesId == nil {
			return domain.NewValidationError(g.Kind(), "area_of_interest_data_series_id", nil, "is required for "+g.AreaOfInterestType)
		}
	case "CUSTOM":
		if g.AreaOfInterestBox == nil {
			return domain.NewValidationError(g.Kind(), "area_of_interest_box", nil, "is required for "+g.AreaOfInterestType)
		}
	}
	return nil
}

// legendLevels checks that the first level is the default (without value),
// and values of the others are strictly increasing. Names should be unique.
func legendLevels(l *domain.Legend) error {
	names := map[string]bool{}
	for i, lv := range l.Levels {
		path := fmt.Sprintf("levels[%d]", i)
		if names[lv.Name] {
			return domain.NewValidationError(l.Kind(), path+".name", lv.Name, "is duplicated")
		}
		names[lv.Name] = true

		if i == 0 {
			if lv.Value != nil {
				return domain.NewValidationError(l.Kind(), path+".value", *lv.Value, "the default level should not have value")
			}
			continue
		}
		if lv.Value == nil {
			return domain.NewValidationError(l.Kind(), path+".value", nil, "is required")
		}
		if prev := l.Levels[i-1].Value; prev != nil && *lv.Value <= *prev {
			return domain.NewValidationError(l.Kind(), path+".value", *lv.Value, "should be greater than the previous level")
		}
	}
	return nil
}

func alert(ctx context.Context, r kdb.Reader, a *domain.Alert) error {
	l, err := load[*domain.Legend](ctx, r, domain.KindLegend, a.LegendId)
	if err != nil {
		return err
	}
	if l.ProjectId != a.ProjectId {
		return fkError(a, "legend_id", domain.KindLegend, l.Id, "legend belongs to another project")
	}
	if a.ViewId != nil {
		v, err := load[*domain.View](ctx, r, domain.KindView, *a.ViewId)
		if err != nil {
			return err
		}
		if v.ProjectId != a.ProjectId {
			return fkError(a, "view_id", domain.KindView, v.Id, "view belongs to another project")
		}
	}
	return nil
}
