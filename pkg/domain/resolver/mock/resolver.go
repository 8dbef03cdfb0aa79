package mock

import (
	"context"

	"github.com/geoflow/geoflow/pkg/domain"
	mocks "github.com/geoflow/geoflow/pkg/domain/internal/db/mock"
	"github.com/geoflow/geoflow/pkg/domain/resolver"
)

type Resolver struct {
	Impl struct {
		Resolve    func(ctx context.Context, kind domain.Kind, id int64) (resolver.Resolution, error)
		ForService func(ctx context.Context, serviceInstanceId int64) ([]resolver.WorkItem, error)
	}
	Calls struct {
		Resolve    mocks.CallLog[domain.Ref]
		ForService mocks.CallLog[int64]
	}
}

func New() *Resolver {
	return &Resolver{}
}

var _ resolver.Resolver = &Resolver{}

func (r *Resolver) Resolve(ctx context.Context, kind domain.Kind, id int64) (resolver.Resolution, error) {
	r.Calls.Resolve = append(r.Calls.Resolve, domain.Ref{Kind: kind, Id: id})
	if r.Impl.Resolve != nil {
		return r.Impl.Resolve(ctx, kind, id)
	}
	panic(mocks.Unexpected("Resolve"))
}

func (r *Resolver) ForService(ctx context.Context, serviceInstanceId int64) ([]resolver.WorkItem, error) {
	r.Calls.ForService = append(r.Calls.ForService, serviceInstanceId)
	if r.Impl.ForService != nil {
		return r.Impl.ForService(ctx, serviceInstanceId)
	}
	panic(mocks.Unexpected("ForService"))
}
