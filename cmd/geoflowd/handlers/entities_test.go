package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geoflow/geoflow/cmd/geoflowd/handlers"
	httptestutil "github.com/geoflow/geoflow/internal/testutils/http"
	"github.com/geoflow/geoflow/pkg/cmp"
	"github.com/geoflow/geoflow/pkg/domain"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	graphmock "github.com/geoflow/geoflow/pkg/domain/graph/mock"
	"github.com/geoflow/geoflow/pkg/domain/integrity"
	"github.com/labstack/echo/v4"
)

// statusOf returns status code of the error returned by a handler.
func statusOf(t *testing.T, err error) int {
	t.Helper()
	var echoErr *echo.HTTPError
	if !errors.As(err, &echoErr) {
		t.Fatalf("error is not echo.HTTPError. acutal = %#v", err)
	}
	return echoErr.Code
}

func TestListHandler(t *testing.T) {
	type when struct {
		target string
		rows   []domain.Entity
		err    error
	}
	type then struct {
		query kdb.Query
		code  int
		body  []string
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			g := graphmock.New()
			g.Impl.List = func(ctx context.Context, kind domain.Kind, q kdb.Query) ([]domain.Entity, error) {
				return when.rows, when.err
			}

			e := echo.New()
			c, resp := httptestutil.Get(e, when.target)
			c.SetParamNames("kind")
			c.SetParamValues("project")

			err := handlers.ListHandler(g, "kind")(c)
			if then.code != http.StatusOK {
				if code := statusOf(t, err); code != then.code {
					t.Errorf("unmatch error code:%d, expeced:%d", code, then.code)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if g.Calls.List.Times() != 1 {
				t.Fatalf("List is called %d times", g.Calls.List.Times())
			}
			call := g.Calls.List[0]
			if call.Kind != domain.KindProject {
				t.Errorf("kind: actual = %s, expected = %s", call.Kind, domain.KindProject)
			}
			if call.Query.Column != then.query.Column || !cmp.SliceEq(call.Query.Ids, then.query.Ids) ||
				!cmp.PEqEq(call.Query.Name, then.query.Name) {
				t.Errorf("query: actual = %+v, expected = %+v", call.Query, then.query)
			}

			actual := []domain.Project{}
			if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
				t.Fatal(err)
			}
			names := []string{}
			for _, p := range actual {
				names = append(names, p.Name)
			}
			if !cmp.SliceEq(names, then.body) {
				t.Errorf("body: actual = %v, expected = %v", names, then.body)
			}
		}
	}

	name := "P1"
	t.Run("it lists all rows", theory(
		when{
			target: "/api/project/",
			rows: []domain.Entity{
				&domain.Project{Identified: domain.Identified{Id: 1}, Name: "P1"},
				&domain.Project{Identified: domain.Identified{Id: 2}, Name: "P2"},
			},
		},
		then{query: kdb.Query{}, code: http.StatusOK, body: []string{"P1", "P2"}},
	))

	t.Run("it lists rows by name", theory(
		when{
			target: "/api/project/?name=P1",
			rows:   []domain.Entity{&domain.Project{Identified: domain.Identified{Id: 1}, Name: "P1"}},
		},
		then{query: kdb.Query{Name: &name}, code: http.StatusOK, body: []string{"P1"}},
	))

	t.Run("it lists rows by reference", theory(
		when{target: "/api/project/?by=user_id&id=3&id=4", rows: []domain.Entity{}},
		then{query: kdb.ByRef("user_id", 3, 4), code: http.StatusOK, body: []string{}},
	))

	t.Run("it rejects a malformed id", theory(
		when{target: "/api/project/?by=user_id&id=x"},
		then{code: http.StatusBadRequest},
	))

	t.Run("it rejects by without id", theory(
		when{target: "/api/project/?by=user_id"},
		then{code: http.StatusBadRequest},
	))

	t.Run("it responds 400 for an invalid query", theory(
		when{target: "/api/project/?by=nothing&id=1", err: domain.NewValidationError(domain.KindProject, "by", "nothing", "is not a foreign key")},
		then{code: http.StatusBadRequest},
	))
}

func TestGetHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		kind, id string
		err      error
		code     int
	}{
		"unknown kind":         {kind: "spaceship", id: "1", code: http.StatusNotFound},
		"non numeric id":       {kind: "project", id: "one", code: http.StatusBadRequest},
		"negative id":          {kind: "project", id: "-1", code: http.StatusBadRequest},
		"missing row":          {kind: "project", id: "1", err: domain.NewNotFoundError(domain.KindProject, 1), code: http.StatusNotFound},
		"infrastructure error": {kind: "project", id: "1", err: errors.New("fake error"), code: http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			g := graphmock.New()
			g.Impl.Get = func(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error) {
				return nil, testcase.err
			}

			e := echo.New()
			c, _ := httptestutil.Get(e, "/api/"+testcase.kind+"/"+testcase.id+"/")
			c.SetParamNames("kind", "id")
			c.SetParamValues(testcase.kind, testcase.id)

			err := handlers.GetHandler(g, "kind", "id")(c)
			if code := statusOf(t, err); code != testcase.code {
				t.Errorf("unmatch error code:%d, expeced:%d", code, testcase.code)
			}
		})
	}

	t.Run("it responds the row", func(t *testing.T) {
		g := graphmock.New()
		g.Impl.Get = func(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error) {
			return &domain.Project{Identified: domain.Identified{Id: id}, Name: "P1", Active: true}, nil
		}

		e := echo.New()
		c, resp := httptestutil.Get(e, "/api/project/7/")
		c.SetParamNames("kind", "id")
		c.SetParamValues("project", "7")

		if err := handlers.GetHandler(g, "kind", "id")(c); err != nil {
			t.Fatal(err)
		}
		if resp.Code != http.StatusOK {
			t.Errorf("status code: %d", resp.Code)
		}
		actual := domain.Project{}
		if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.Id != 7 || actual.Name != "P1" || !actual.Active {
			t.Errorf("unexpected body: %+v", actual)
		}
		if expected := (domain.Ref{Kind: domain.KindProject, Id: 7}); g.Calls.Get[0] != expected {
			t.Errorf("call: actual = %v, expected = %v", g.Calls.Get[0], expected)
		}
	})
}

func TestCreateHandler(t *testing.T) {
	type when struct {
		options []httptestutil.RequestOption
		body    string
		err     error
	}
	type then struct {
		code   int
		called bool
	}

	theory := func(when when, then then) func(*testing.T) {
		return func(t *testing.T) {
			g := graphmock.New()
			g.Impl.Create = func(ctx context.Context, kind domain.Kind, payload []byte) (domain.Entity, error) {
				if when.err != nil {
					return nil, when.err
				}
				p := &domain.Project{}
				if err := json.Unmarshal(payload, p); err != nil {
					t.Fatal(err)
				}
				p.Id = 1
				return p, nil
			}

			e := echo.New()
			c, resp := httptestutil.Post(e, "/api/project/", strings.NewReader(when.body), when.options...)
			c.SetParamNames("kind")
			c.SetParamValues("project")

			err := handlers.CreateHandler(g, "kind")(c)
			if then.called != (g.Calls.Create.Times() == 1) {
				t.Errorf("Create is called %d times", g.Calls.Create.Times())
			}
			if then.code != http.StatusCreated {
				if code := statusOf(t, err); code != then.code {
					t.Errorf("unmatch error code:%d, expeced:%d", code, then.code)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if resp.Code != http.StatusCreated {
				t.Errorf("status code: %d", resp.Code)
			}
			if string(g.Calls.Create[0].Payload) != when.body {
				t.Errorf("payload: actual = %s, expected = %s", g.Calls.Create[0].Payload, when.body)
			}
		}
	}

	t.Run("it creates a row", theory(
		when{options: []httptestutil.RequestOption{httptestutil.JSON()}, body: `{"name": "P1"}`},
		then{code: http.StatusCreated, called: true},
	))

	t.Run("it accepts content type with charset", theory(
		when{
			options: []httptestutil.RequestOption{httptestutil.ContentType("application/json; charset=utf-8")},
			body:    `{"name": "P1"}`,
		},
		then{code: http.StatusCreated, called: true},
	))

	t.Run("it rejects a request without content type", theory(
		when{body: `{"name": "P1"}`},
		then{code: http.StatusBadRequest, called: false},
	))

	t.Run("it rejects merge patch content type", theory(
		when{
			options: []httptestutil.RequestOption{httptestutil.ContentType("application/merge-patch+json")},
			body:    `{"name": "P1"}`,
		},
		then{code: http.StatusBadRequest, called: false},
	))

	t.Run("it responds 400 for a validation error", theory(
		when{
			options: []httptestutil.RequestOption{httptestutil.JSON()},
			body:    `{"name": ""}`,
			err:     domain.NewValidationError(domain.KindProject, "name", "", "is required"),
		},
		then{code: http.StatusBadRequest, called: true},
	))

	t.Run("it responds 400 for a conflicting schedule", theory(
		when{
			options: []httptestutil.RequestOption{httptestutil.JSON()},
			body:    `{}`,
			err:     &domain.ConflictingScheduleError{Reason: "fake"},
		},
		then{code: http.StatusBadRequest, called: true},
	))

	t.Run("it responds 409 for a concurrent conflict", theory(
		when{
			options: []httptestutil.RequestOption{httptestutil.JSON()},
			body:    `{"name": "P1"}`,
			err:     &domain.ConflictError{Kind: domain.KindProject, Reason: "unique_violation"},
		},
		then{code: http.StatusConflict, called: true},
	))
}

func TestUpdateHandler(t *testing.T) {
	g := graphmock.New()
	g.Impl.Update = func(ctx context.Context, kind domain.Kind, id int64, patch []byte) (domain.Entity, error) {
		return &domain.Project{Identified: domain.Identified{Id: id}, Name: "renamed"}, nil
	}

	e := echo.New()
	c, resp := httptestutil.Patch(
		e, "/api/project/3/", strings.NewReader(`{"name": "renamed"}`),
		httptestutil.ContentType("application/merge-patch+json"),
	)
	c.SetParamNames("kind", "id")
	c.SetParamValues("project", "3")

	if err := handlers.UpdateHandler(g, "kind", "id")(c); err != nil {
		t.Fatal(err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("status code: %d", resp.Code)
	}
	call := g.Calls.Update[0]
	if call.Kind != domain.KindProject || call.Id != 3 || string(call.Patch) != `{"name": "renamed"}` {
		t.Errorf("unexpected call: %+v", call)
	}
}

func TestDeleteHandler(t *testing.T) {
	t.Run("it responds the plan", func(t *testing.T) {
		plan := integrity.Plan{
			Roots:  []domain.Ref{{Kind: domain.KindProject, Id: 1}},
			Delete: []integrity.Deletion{{Kind: domain.KindProject, Ids: []int64{1}}},
		}
		g := graphmock.New()
		g.Impl.Delete = func(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error) {
			return plan, nil
		}

		e := echo.New()
		c, resp := httptestutil.Delete(e, "/api/project/1/")
		c.SetParamNames("kind", "id")
		c.SetParamValues("project", "1")

		if err := handlers.DeleteHandler(g, "kind", "id")(c); err != nil {
			t.Fatal(err)
		}
		actual := integrity.Plan{}
		if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.Count() != 1 || !actual.Has(domain.Ref{Kind: domain.KindProject, Id: 1}) {
			t.Errorf("unexpected plan: %+v", actual)
		}
		if call := g.Calls.Delete[0]; call.Kind != domain.KindProject || !cmp.SliceEq(call.Ids, []int64{1}) {
			t.Errorf("unexpected call: %+v", call)
		}
	})

	t.Run("it responds 409 when the deletion is restricted", func(t *testing.T) {
		g := graphmock.New()
		g.Impl.Delete = func(ctx context.Context, kind domain.Kind, ids ...int64) (integrity.Plan, error) {
			return integrity.Plan{}, &domain.RestrictedDeleteError{
				Blocker: domain.Ref{Kind: domain.KindAlert, Id: 1},
				Column:  "legend_id",
				Target:  domain.Ref{Kind: domain.KindLegend, Id: 1},
			}
		}

		e := echo.New()
		c, _ := httptestutil.Delete(e, "/api/legend/1/")
		c.SetParamNames("kind", "id")
		c.SetParamValues("legend", "1")

		err := handlers.DeleteHandler(g, "kind", "id")(c)
		if code := statusOf(t, err); code != http.StatusConflict {
			t.Errorf("unmatch error code:%d, expeced:%d", code, http.StatusConflict)
		}
	})
}
