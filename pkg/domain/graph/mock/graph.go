package mock

import (
	"context"

	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/domain/graph"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/domain/integrity"
	mocks "github.com/geoflow/geoflow/pkg/domain/internal/db/mock"
)

type List struct {
	Kind  domain.Kind
	Query kdb.Query
}

type Create struct {
	Kind    domain.Kind
	Payload []byte
}

type Update struct {
	Kind  domain.Kind
	Id    int64
	Patch []byte
}

type Delete struct {
	Kind domain.Kind
	Ids  []int64
}

type Graph struct {
	Impl struct {
		Get          func(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error)
		List         func(ctx context.Context, kind domain.Kind, q kdb.Query) ([]domain.Entity, error)
		Create       func(ctx context.Context, kind domain.Kind, payload []byte) (domain.Entity, error)
		Update       func(ctx context.Context, kind domain.Kind, id int64, patch []byte) (domain.Entity, error)
		Delete       func(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error)
		PlanDelete   func(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error)
		Collector    func(ctx context.Context, id int64) (domain.CollectorView, error)
		Collectors   func(ctx context.Context, projectId int64) ([]domain.CollectorView, error)
		Dependencies func(ctx context.Context, kind domain.Kind, id int64) ([]domain.Ref, error)
	}
	Calls struct {
		Get          mocks.CallLog[domain.Ref]
		List         mocks.CallLog[List]
		Create       mocks.CallLog[Create]
		Update       mocks.CallLog[Update]
		Delete       mocks.CallLog[Delete]
		PlanDelete   mocks.CallLog[Delete]
		Collector    mocks.CallLog[int64]
		Collectors   mocks.CallLog[int64]
		Dependencies mocks.CallLog[domain.Ref]
	}
}

func New() *Graph {
	return &Graph{}
}

var _ graph.Interface = &Graph{}

func (g *Graph) Get(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error) {
	g.Calls.Get = append(g.Calls.Get, domain.Ref{Kind: kind, Id: id})
	if g.Impl.Get != nil {
		return g.Impl.Get(ctx, kind, id)
	}
	panic(mocks.Unexpected("Get"))
}

func (g *Graph) List(ctx context.Context, kind domain.Kind, q kdb.Query) ([]domain.Entity, error) {
	g.Calls.List = append(g.Calls.List, List{Kind: kind, Query: q})
	if g.Impl.List != nil {
		return g.Impl.List(ctx, kind, q)
	}
	panic(mocks.Unexpected("List"))
}

func (g *Graph) Create(ctx context.Context, kind domain.Kind, payload []byte) (domain.Entity, error) {
	g.Calls.Create = append(g.Calls.Create, Create{Kind: kind, Payload: payload})
	if g.Impl.Create != nil {
		return g.Impl.Create(ctx, kind, payload)
	}
	panic(mocks.Unexpected("Create"))
}

func (g *Graph) Update(ctx context.Context, kind domain.Kind, id int64, patch []byte) (domain.Entity, error) {
	g.Calls.Update = append(g.Calls.Update, Update{Kind: kind, Id: id, Patch: patch})
	if g.Impl.Update != nil {
		return g.Impl.Update(ctx, kind, id, patch)
	}
	panic(mocks.Unexpected("Update"))
}

func (g *Graph) Delete(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error) {
	g.Calls.Delete = append(g.Calls.Delete, Delete{Kind: kind, Ids: ids})
	if g.Impl.Delete != nil {
		return g.Impl.Delete(ctx, kind, ids...)
	}
	panic(mocks.Unexpected("Delete"))
}

func (g *Graph) PlanDelete(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error) {
	g.Calls.PlanDelete = append(g.Calls.PlanDelete, Delete{Kind: kind, Ids: ids})
	if g.Impl.PlanDelete != nil {
		return g.Impl.PlanDelete(ctx, kind, ids...)
	}
	panic(mocks.Unexpected("PlanDelete"))
}

func (g *Graph) Collector(ctx context.Context, id int64) (domain.CollectorView, error) {
	g.Calls.Collector = append(g.Calls.Collector, id)
	if g.Impl.Collector != nil {
		return g.Impl.Collector(ctx, id)
	}
	panic(mocks.Unexpected("Collector"))
}

func (g *Graph) Collectors(ctx context.Context, projectId int64) ([]domain.CollectorView, error) {
	g.Calls.Collectors = append(g.Calls.Collectors, projectId)
	if g.Impl.Collectors != nil {
		return g.Impl.Collectors(ctx, projectId)
	}
	panic(mocks.Unexpected("Collectors"))
}

func (g *Graph) Dependencies(ctx context.Context, kind domain.Kind, id int64) ([]domain.Ref, error) {
	g.Calls.Dependencies = append(g.Calls.Dependencies, domain.Ref{Kind: kind, Id: id})
	if g.Impl.Dependencies != nil {
		return g.Impl.Dependencies(ctx, kind, id)
	}
	panic(mocks.Unexpected("Dependencies"))
}
