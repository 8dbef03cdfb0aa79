package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geoflow/geoflow/cmd/geoflowd/handlers"
	httptestutil "github.com/geoflow/geoflow/internal/testutils/http"
	"github.com/geoflow/geoflow/pkg/domain"
	graphmock "github.com/geoflow/geoflow/pkg/domain/graph/mock"
	"github.com/geoflow/geoflow/pkg/domain/resolver"
	resolvermock "github.com/geoflow/geoflow/pkg/domain/resolver/mock"
	"github.com/geoflow/geoflow/pkg/domain/schedule"
	"github.com/labstack/echo/v4"
)

func TestResolutionHandler(t *testing.T) {
	type when struct {
		kind string
		err  error
	}

	theory := func(when when, then int) func(*testing.T) {
		return func(t *testing.T) {
			r := resolvermock.New()
			r.Impl.Resolve = func(ctx context.Context, kind domain.Kind, id int64) (resolver.Resolution, error) {
				if when.err != nil {
					return resolver.Resolution{}, when.err
				}
				return resolver.Resolution{
					Process:         domain.Ref{Kind: kind, Id: id},
					ScheduleType:    domain.ScheduleTypeManual,
					Policy:          schedule.PolicyNone(),
					ServiceInstance: &domain.ServiceInstance{Identified: domain.Identified{Id: 9}, Name: "collector"},
					Active:          true,
				}, nil
			}

			e := echo.New()
			c, resp := httptestutil.Get(e, "/api/processes/"+when.kind+"/2/resolution/")
			c.SetParamNames("kind", "id")
			c.SetParamValues(when.kind, "2")

			err := handlers.ResolutionHandler(r, "kind", "id")(c)
			if then != http.StatusOK {
				if code := statusOf(t, err); code != then {
					t.Errorf("unmatch error code:%d, expeced:%d", code, then)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			actual := struct {
				Process         domain.Ref              `json:"process"`
				ServiceInstance *domain.ServiceInstance `json:"service_instance"`
				Active          bool                    `json:"active"`
			}{}
			if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
				t.Fatal(err)
			}
			expected := domain.Ref{Kind: domain.Kind(when.kind), Id: 2}
			if actual.Process != expected || !actual.Active || actual.ServiceInstance == nil || actual.ServiceInstance.Id != 9 {
				t.Errorf("unexpected body: %s", resp.Body.String())
			}
		}
	}

	t.Run("it responds the resolution", theory(when{kind: "collector"}, http.StatusOK))
	t.Run("it responds 404 for non-process kinds", theory(when{kind: "data_series"}, http.StatusNotFound))
	t.Run("it responds 404 for missing process", theory(
		when{kind: "view", err: domain.NewNotFoundError(domain.KindView, 2)},
		http.StatusNotFound,
	))
	t.Run("it responds 409 for misconfigured schedule", theory(
		when{kind: "analysis", err: &domain.MisconfiguredScheduleError{Reason: "no schedule"}},
		http.StatusConflict,
	))
	t.Run("it responds 409 for process without service", theory(
		when{kind: "alert", err: &domain.NoServiceAssignedError{}},
		http.StatusConflict,
	))
}

func TestWorkHandler(t *testing.T) {
	r := resolvermock.New()
	r.Impl.ForService = func(ctx context.Context, serviceInstanceId int64) ([]resolver.WorkItem, error) {
		return []resolver.WorkItem{
			{
				Process:    domain.Ref{Kind: domain.KindCollector, Id: 1},
				Resolution: &resolver.Resolution{Policy: schedule.PolicyNone()},
			},
			{
				Process: domain.Ref{Kind: domain.KindCollector, Id: 2},
				Error:   &domain.MisconfiguredScheduleError{Reason: "no schedule"},
			},
		}, nil
	}

	e := echo.New()
	c, resp := httptestutil.Get(e, "/api/service_instance/5/work/")
	c.SetParamNames("kind", "id")
	c.SetParamValues("service_instance", "5")

	if err := handlers.Only(domain.KindServiceInstance, "kind", handlers.WorkHandler(r, "id"))(c); err != nil {
		t.Fatal(err)
	}
	if id, ok := r.Calls.ForService.Last(); !ok || id != 5 {
		t.Errorf("unexpected call: %v", r.Calls.ForService)
	}

	actual := []handlers.WorkItem{}
	if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
		t.Fatal(err)
	}
	if len(actual) != 2 {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if actual[0].Resolution == nil || actual[0].Error != "" {
		t.Errorf("unexpected item: %+v", actual[0])
	}
	if actual[1].Resolution != nil || actual[1].Error == "" {
		t.Errorf("unexpected item: %+v", actual[1])
	}
}

func TestOnly(t *testing.T) {
	g := graphmock.New()

	e := echo.New()
	c, _ := httptestutil.Get(e, "/api/project/1/view/")
	c.SetParamNames("kind", "id")
	c.SetParamValues("project", "1")

	err := handlers.Only(domain.KindCollector, "kind", handlers.CollectorHandler(g, "id"))(c)
	if code := statusOf(t, err); code != http.StatusNotFound {
		t.Errorf("unmatch error code:%d, expeced:%d", code, http.StatusNotFound)
	}
	if g.Calls.Collector.Times() != 0 {
		t.Errorf("Collector is called")
	}
}

func TestProjectCollectorsHandler(t *testing.T) {
	g := graphmock.New()
	g.Impl.Collectors = func(ctx context.Context, projectId int64) ([]domain.CollectorView, error) {
		return []domain.CollectorView{
			{Collector: domain.Collector{Identified: domain.Identified{Id: 4}}, ProjectId: projectId},
		}, nil
	}

	e := echo.New()
	c, resp := httptestutil.Get(e, "/api/project/1/collectors/")
	c.SetParamNames("kind", "id")
	c.SetParamValues("project", "1")

	if err := handlers.Only(domain.KindProject, "kind", handlers.ProjectCollectorsHandler(g, "id"))(c); err != nil {
		t.Fatal(err)
	}
	actual := []domain.CollectorView{}
	if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
		t.Fatal(err)
	}
	if len(actual) != 1 || actual[0].Id != 4 || actual[0].ProjectId != 1 {
		t.Errorf("unexpected body: %s", resp.Body.String())
	}
}

func TestCatalogsHandler(t *testing.T) {
	e := echo.New()
	c, resp := httptestutil.Get(e, "/api/catalogs/")
	if err := handlers.CatalogsHandler()(c); err != nil {
		t.Fatal(err)
	}

	actual := domain.Catalog{}
	if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
		t.Fatal(err)
	}
	if len(actual.ServiceTypes) == 0 || len(actual.DataSeriesSemantics) == 0 || len(actual.ScheduleTypes) == 0 {
		t.Errorf("unexpected catalogs: %s", resp.Body.String())
	}
}
