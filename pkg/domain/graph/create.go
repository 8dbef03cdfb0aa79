package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
)

// schedules embedded in a process payload.
type processComposite struct {
	Schedule          *domain.Schedule          `json:"schedule"`
	AutomaticSchedule *domain.AutomaticSchedule `json:"automatic_schedule"`
}

type filterComposite struct {
	domain.Filter
	ValueComparisonOperations []*domain.ValueComparisonOperation `json:"value_comparison_operations"`
}

type collectorComposite struct {
	Filter        *filterComposite               `json:"filter"`
	Intersections []*domain.Intersection         `json:"intersections"`
	InputOutput   []*domain.CollectorInputOutput `json:"input_output"`
}

type analysisOutput struct {
	DataSeries *domain.DataSeries `json:"data_series"`
	DataSet    *domain.DataSet    `json:"data_set"`
}

type analysisComposite struct {
	Output     *analysisOutput              `json:"output"`
	Inputs     []*domain.AnalysisDataSeries `json:"inputs"`
	OutputGrid *domain.AnalysisOutputGrid   `json:"output_grid"`
}

type attachmentComposite struct {
	domain.AlertAttachment
	Views []*domain.AlertAttachedView `json:"views"`
}

type alertComposite struct {
	Attachment *attachmentComposite `json:"attachment"`
}

// decode unmarshals a payload of the kind.
//
// Malformed payloads are reported as *domain.ValidationError.
func decode(kind domain.Kind, payload []byte, v any) error {
	err := json.Unmarshal(payload, v)
	if err == nil {
		return nil
	}

	ute := new(json.UnmarshalTypeError)
	if errors.As(err, &ute) {
		return domain.NewValidationError(kind, ute.Field, nil, fmt.Sprintf("should be %s, but %s", ute.Type, ute.Value))
	}
	return domain.NewValidationError(kind, "", nil, "malformed payload: "+err.Error())
}

// within prefixes paths of validation errors with the path of the embedded payload.
func within(path string, err error) error {
	verr := new(domain.ValidationError)
	if !errors.As(err, &verr) {
		return err
	}
	items := make([]domain.ValidationItem, 0, len(verr.Items))
	for _, it := range verr.Items {
		if it.Path == "" {
			it.Path = path
		} else {
			it.Path = path + "." + it.Path
		}
		items = append(items, it)
	}
	return &domain.ValidationError{Kind: verr.Kind, Items: items}
}

func (g *graph) create(ctx context.Context, tx kdb.Tx, kind domain.Kind, payload []byte) (domain.Entity, error) {
	e := kind.New()
	if err := decode(kind, payload, e); err != nil {
		return nil, err
	}

	if p, ok := e.(domain.Process); ok {
		var c processComposite
		if err := decode(kind, payload, &c); err != nil {
			return nil, err
		}
		if err := g.attachSchedules(ctx, tx, p, c); err != nil {
			return nil, err
		}
	}

	switch e := e.(type) {
	case *domain.Collector:
		var c collectorComposite
		if err := decode(kind, payload, &c); err != nil {
			return nil, err
		}
		if err := g.insert(ctx, tx, e); err != nil {
			return nil, err
		}
		return e, g.collectorChildren(ctx, tx, e, c)

	case *domain.Analysis:
		var c analysisComposite
		if err := decode(kind, payload, &c); err != nil {
			return nil, err
		}
		if err := g.analysisOutput(ctx, tx, e, c.Output); err != nil {
			return nil, err
		}
		if err := g.insert(ctx, tx, e); err != nil {
			return nil, err
		}
		return e, g.analysisChildren(ctx, tx, e, c)

	case *domain.Alert:
		var c alertComposite
		if err := decode(kind, payload, &c); err != nil {
			return nil, err
		}
		if err := g.insert(ctx, tx, e); err != nil {
			return nil, err
		}
		return e, g.alertChildren(ctx, tx, e, c)
	}

	if err := g.insert(ctx, tx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// attachSchedules inserts schedules embedded in the payload, and links them to the process.
func (g *graph) attachSchedules(ctx context.Context, tx kdb.Tx, p domain.Process, c processComposite) error {
	link := p.Link()
	if c.Schedule != nil && c.AutomaticSchedule != nil {
		return &domain.ConflictingScheduleError{
			Reason: "both of schedule and automatic_schedule are given",
		}
	}

	if c.Schedule != nil {
		if link.ScheduleId != nil {
			return domain.NewValidationError(p.Kind(), "schedule", nil, "can not be given with schedule_id")
		}
		if err := g.insert(ctx, tx, c.Schedule); err != nil {
			return within("schedule", err)
		}
		link.ScheduleId = &c.Schedule.Id
	}
	if c.AutomaticSchedule != nil {
		if link.AutomaticScheduleId != nil {
			return domain.NewValidationError(p.Kind(), "automatic_schedule", nil, "can not be given with automatic_schedule_id")
		}
		if err := g.insert(ctx, tx, c.AutomaticSchedule); err != nil {
			return within("automatic_schedule", err)
		}
		link.AutomaticScheduleId = &c.AutomaticSchedule.Id
	}
	return nil
}

func (g *graph) collectorChildren(ctx context.Context, tx kdb.Tx, c *domain.Collector, comp collectorComposite) error {
	if f := comp.Filter; f != nil {
		f.CollectorId = c.Id
		if err := g.insert(ctx, tx, &f.Filter); err != nil {
			return within("filter", err)
		}
		for i, op := range f.ValueComparisonOperations {
			op.FilterId = f.Id
			if err := g.insert(ctx, tx, op); err != nil {
				return within(fmt.Sprintf("filter.value_comparison_operations[%d]", i), err)
			}
		}
	}
	for i, is := range comp.Intersections {
		is.CollectorId = c.Id
		if err := g.insert(ctx, tx, is); err != nil {
			return within(fmt.Sprintf("intersections[%d]", i), err)
		}
	}
	for i, io := range comp.InputOutput {
		io.CollectorId = c.Id
		if err := g.insert(ctx, tx, io); err != nil {
			return within(fmt.Sprintf("input_output[%d]", i), err)
		}
	}
	return nil
}

// analysisOutput creates the output data series and data set of the analysis.
func (g *graph) analysisOutput(ctx context.Context, tx kdb.Tx, a *domain.Analysis, out *analysisOutput) error {
	if out == nil {
		return nil
	}
	if a.DatasetOutput != 0 {
		return domain.NewValidationError(a.Kind(), "output", nil, "can not be given with dataset_output")
	}
	if out.DataSeries == nil || out.DataSet == nil {
		return domain.NewValidationError(a.Kind(), "output", nil, "both of data_series and data_set are required")
	}

	if err := g.insert(ctx, tx, out.DataSeries); err != nil {
		return within("output.data_series", err)
	}
	out.DataSet.DataSeriesId = out.DataSeries.Id
	if err := g.insert(ctx, tx, out.DataSet); err != nil {
		return within("output.data_set", err)
	}
	a.DatasetOutput = out.DataSet.Id
	return nil
}

func (g *graph) analysisChildren(ctx context.Context, tx kdb.Tx, a *domain.Analysis, comp analysisComposite) error {
	for i, in := range comp.Inputs {
		in.AnalysisId = a.Id
		if err := g.insert(ctx, tx, in); err != nil {
			return within(fmt.Sprintf("inputs[%d]", i), err)
		}
	}
	if og := comp.OutputGrid; og != nil {
		og.AnalysisId = a.Id
		if err := g.insert(ctx, tx, og); err != nil {
			return within("output_grid", err)
		}
	}
	return nil
}

func (g *graph) alertChildren(ctx context.Context, tx kdb.Tx, a *domain.Alert, comp alertComposite) error {
	at := comp.Attachment
	if at == nil {
		return nil
	}
	at.AlertId = a.Id
	if err := g.insert(ctx, tx, &at.AlertAttachment); err != nil {
		return within("attachment", err)
	}
	for i, v := range at.Views {
		v.AlertAttachmentId = at.Id
		if err := g.insert(ctx, tx, v); err != nil {
			return within(fmt.Sprintf("attachment.views[%d]", i), err)
		}
	}
	return nil
}
