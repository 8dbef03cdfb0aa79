// Package graph is the service mutating the entity graph.
//
// Every mutation runs in one transaction of the store:
// payloads are validated against the transaction, rows are written,
// and deletions are expanded by the integrity engine before commit.
package graph

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/domain/integrity"
	"github.com/geoflow/geoflow/pkg/domain/validation"
	"github.com/geoflow/geoflow/pkg/metrics"
	"github.com/geoflow/geoflow/pkg/utils"
	"github.com/labstack/gommon/log"
)

type Interface interface {
	// Get a row.
	//
	// # Returns
	//
	// - domain.Entity: its concrete type is `kind.New()`.
	//
	// - error: *domain.NotFoundError when the row does not exist.
	Get(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error)

	// List rows matching the query, sorted by id.
	List(ctx context.Context, kind domain.Kind, q kdb.Query) ([]domain.Entity, error)

	// Create a row from a json payload.
	//
	// Process kinds accept composite payloads. Embedded rows are created together:
	//
	// - any process: "schedule" or "automatic_schedule"
	//
	// - collector: "filter" (with "value_comparison_operations"), "intersections" and "input_output"
	//
	// - analysis: "output" ({"data_series", "data_set"}), "inputs" and "output_grid"
	//
	// - alert: "attachment" (with "views")
	//
	// # Returns
	//
	// - domain.Entity: the created row, with its id.
	//
	// - error: *domain.ValidationError, *domain.RangeError, *domain.ConflictingScheduleError,
	// *domain.ForeignKeyError or *domain.ConflictError.
	Create(ctx context.Context, kind domain.Kind, payload []byte) (domain.Entity, error)

	// Update a row with a json merge patch (RFC 7386).
	//
	// Immutable columns can not be changed.
	// For processes, "schedule" or "automatic_schedule" in the patch replaces the owned row,
	// and null detaches and deletes it.
	//
	// # Returns
	//
	// - domain.Entity: the updated row.
	//
	// - error: *domain.NotFoundError, or the same as Create.
	Update(ctx context.Context, kind domain.Kind, id int64, patch []byte) (domain.Entity, error)

	// Delete rows together with rows depending on them.
	//
	// Deleting an analysis deletes its output data series.
	//
	// # Returns
	//
	// - integrity.Plan: what is deleted and nullified.
	//
	// - error: *domain.NotFoundError, *domain.RestrictedDeleteError or *domain.ConflictError.
	Delete(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error)

	// PlanDelete reports what Delete would do, without deleting.
	PlanDelete(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error)

	// Collector returns the read model of the collector.
	Collector(ctx context.Context, id int64) (domain.CollectorView, error)

	// Collectors lists read models of collectors in the project.
	Collectors(ctx context.Context, projectId int64) ([]domain.CollectorView, error)

	// Dependencies lists rows which the row depends on, directly or transitively,
	// sorted by kind and id. The row itself is not included.
	Dependencies(ctx context.Context, kind domain.Kind, id int64) ([]domain.Ref, error)
}

type Option func(*graph) *graph

// WithLogger sets the logger. By default, logs are discarded.
func WithLogger(l *log.Logger) Option {
	return func(g *graph) *graph {
		g.logger = l
		return g
	}
}

// WithValidator replaces the validator.
func WithValidator(v *validation.Validator) Option {
	return func(g *graph) *graph {
		g.validator = v
		return g
	}
}

type graph struct {
	db        kdb.Database
	logger    *log.Logger
	validator *validation.Validator
}

func New(db kdb.Database, options ...Option) Interface {
	logger := log.New("graph")
	logger.SetOutput(io.Discard)

	g := &graph{db: db, logger: logger}
	for _, o := range options {
		g = o(g)
	}
	if g.validator == nil {
		g.validator = validation.New()
	}
	return g
}

// mutate runs f in a transaction, and records it as a mutation.
func mutate[T any](ctx context.Context, g *graph, kind domain.Kind, operation string, f func(kdb.Tx) (T, error)) (T, error) {
	since := time.Now()
	t, err := kdb.InTx(ctx, g.db, f)
	metrics.ObserveMutation(kind, operation, since, err)
	if err != nil {
		g.logger.Debugf("%s %s: %s", operation, kind, err)
	}
	return t, err
}

func (g *graph) Get(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error) {
	return kdb.Read(ctx, g.db, func(r kdb.Reader) (domain.Entity, error) {
		return r.Get(ctx, kind, id)
	})
}

func (g *graph) List(ctx context.Context, kind domain.Kind, q kdb.Query) ([]domain.Entity, error) {
	return kdb.Read(ctx, g.db, func(r kdb.Reader) ([]domain.Entity, error) {
		return r.Find(ctx, kind, q)
	})
}

func (g *graph) Create(ctx context.Context, kind domain.Kind, payload []byte) (domain.Entity, error) {
	return mutate(ctx, g, kind, "create", func(tx kdb.Tx) (domain.Entity, error) {
		e, err := g.create(ctx, tx, kind, payload)
		if err != nil {
			return nil, err
		}
		g.logger.Infof("created %s#%d", kind, e.Identity())
		return e, nil
	})
}

// insert validates e in tx and inserts it.
func (g *graph) insert(ctx context.Context, tx kdb.Tx, e domain.Entity) error {
	e.SetIdentity(0)
	if err := g.validator.Validate(ctx, tx, e); err != nil {
		return err
	}
	return tx.Insert(ctx, e)
}

func (g *graph) Delete(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error) {
	return mutate(ctx, g, kind, "delete", func(tx kdb.Tx) (integrity.Plan, error) {
		roots, err := rootsOf(ctx, tx, kind, ids)
		if err != nil {
			return integrity.Plan{}, err
		}
		plan, err := integrity.PlanDelete(ctx, tx, roots...)
		if err != nil {
			return integrity.Plan{}, err
		}
		g.logPlan(plan)
		if err := integrity.Apply(ctx, tx, plan); err != nil {
			return integrity.Plan{}, err
		}

		deleted := map[domain.Kind]int{}
		for _, d := range plan.Delete {
			deleted[d.Kind] += len(d.Ids)
		}
		metrics.ObserveDeletion(deleted, len(plan.Nullify))
		return plan, nil
	})
}

func (g *graph) PlanDelete(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error) {
	return kdb.Read(ctx, g.db, func(r kdb.Reader) (integrity.Plan, error) {
		roots, err := rootsOf(ctx, r, kind, ids)
		if err != nil {
			return integrity.Plan{}, err
		}
		return integrity.PlanDelete(ctx, r, roots...)
	})
}

func (g *graph) logPlan(plan integrity.Plan) {
	g.logger.Debugf("delete %v: %d rows", plan.Roots, plan.Count())
	for _, n := range plan.Nullify {
		g.logger.Debugf("  nullify %s.%s (%v)", n.Row, n.Column, n.Ids)
	}
	for _, d := range plan.Delete {
		g.logger.Debugf("  delete %s %v", d.Kind, d.Ids)
	}
}

// rootsOf returns rows to be deleted when rows of the kind are requested to be deleted.
//
// An analysis brings its output data series.
func rootsOf(ctx context.Context, r kdb.Reader, kind domain.Kind, ids []int64) ([]domain.Ref, error) {
	roots := utils.Map(ids, func(id int64) domain.Ref { return domain.Ref{Kind: kind, Id: id} })
	if kind != domain.KindAnalysis {
		return roots, nil
	}

	for _, id := range ids {
		e, err := r.Get(ctx, domain.KindAnalysis, id)
		if err != nil {
			return nil, err
		}
		a := e.(*domain.Analysis)
		ds, err := r.Get(ctx, domain.KindDataSet, a.DatasetOutput)
		if err != nil {
			return nil, err
		}
		series := domain.Ref{Kind: domain.KindDataSeries, Id: ds.(*domain.DataSet).DataSeriesId}
		if !slices.Contains(roots, series) {
			roots = append(roots, series)
		}
	}
	return roots, nil
}

func (g *graph) Collector(ctx context.Context, id int64) (domain.CollectorView, error) {
	return kdb.Read(ctx, g.db, func(r kdb.Reader) (domain.CollectorView, error) {
		e, err := r.Get(ctx, domain.KindCollector, id)
		if err != nil {
			return domain.CollectorView{}, err
		}
		c := e.(*domain.Collector)
		pid, err := projectOfSeries(ctx, r, c.DataSeriesOutput)
		if err != nil {
			return domain.CollectorView{}, err
		}
		return domain.CollectorView{Collector: *c, ProjectId: pid}, nil
	})
}

func projectOfSeries(ctx context.Context, r kdb.Reader, seriesId int64) (int64, error) {
	s, err := r.Get(ctx, domain.KindDataSeries, seriesId)
	if err != nil {
		return 0, err
	}
	dp, err := r.Get(ctx, domain.KindDataProvider, s.(*domain.DataSeries).DataProviderId)
	if err != nil {
		return 0, err
	}
	return dp.(*domain.DataProvider).ProjectId, nil
}

func (g *graph) Collectors(ctx context.Context, projectId int64) ([]domain.CollectorView, error) {
	return kdb.Read(ctx, g.db, func(r kdb.Reader) ([]domain.CollectorView, error) {
		if _, err := r.Get(ctx, domain.KindProject, projectId); err != nil {
			return nil, err
		}
		views := []domain.CollectorView{}

		providers, err := r.Find(ctx, domain.KindDataProvider, kdb.ByRef("project_id", projectId))
		if err != nil || len(providers) == 0 {
			return views, err
		}
		series, err := r.Find(ctx, domain.KindDataSeries, kdb.ByRef("data_provider_id", identities(providers)...))
		if err != nil || len(series) == 0 {
			return views, err
		}
		collectors, err := r.Find(ctx, domain.KindCollector, kdb.ByRef("data_series_output", identities(series)...))
		if err != nil {
			return nil, err
		}
		return utils.Map(collectors, func(c domain.Entity) domain.CollectorView {
			return domain.CollectorView{Collector: *c.(*domain.Collector), ProjectId: projectId}
		}), nil
	})
}

func identities(es []domain.Entity) []int64 {
	return utils.Map(es, domain.Entity.Identity)
}

func (g *graph) Dependencies(ctx context.Context, kind domain.Kind, id int64) ([]domain.Ref, error) {
	return kdb.Read(ctx, g.db, func(r kdb.Reader) ([]domain.Ref, error) {
		return Dependencies(ctx, r, domain.Ref{Kind: kind, Id: id})
	})
}

// Dependencies lists rows reachable from root by following foreign keys, with rows visible from r.
func Dependencies(ctx context.Context, r kdb.Reader, root domain.Ref) ([]domain.Ref, error) {
	seen := map[domain.Ref]bool{root: true}
	queue := []domain.Ref{root}
	deps := []domain.Ref{}
	for len(queue) != 0 {
		ref := queue[0]
		queue = queue[1:]

		e, err := r.Get(ctx, ref.Kind, ref.Id)
		if err != nil {
			if ref != root {
				return nil, fmt.Errorf("%s refers missing row: %w", ref, err)
			}
			return nil, err
		}
		for _, fk := range domain.References(e) {
			for _, id := range fk.Ids {
				next := domain.Ref{Kind: fk.To, Id: id}
				if seen[next] {
					continue
				}
				seen[next] = true
				deps = append(deps, next)
				queue = append(queue, next)
			}
		}
	}

	slices.SortFunc(deps, func(a, b domain.Ref) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
	return deps, nil
}
