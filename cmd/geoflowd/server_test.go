package main

import (
	"net/http"
	"strings"
	"testing"

	httptestutil "github.com/geoflow/geoflow/internal/testutils/http"
	kcs "github.com/geoflow/geoflow/pkg/configs/server"
	"github.com/geoflow/geoflow/pkg/domain/graph/db/memory"
	"github.com/geoflow/geoflow/pkg/utils/try"
)

func TestRoot(t *testing.T) {
	type when struct {
		root  string
		parts []string
	}

	theory := func(when when, then string) func(*testing.T) {
		return func(t *testing.T) {
			api := try.To(root(when.root)).OrFatal(t)
			if actual := api(when.parts...); actual != then {
				t.Errorf("unmatch: %s, expected: %s", actual, then)
			}
		}
	}

	t.Run("path root", theory(when{root: "/api", parts: []string{"project"}}, "/api/project/"))
	t.Run("path root with trailing slash", theory(when{root: "/api/", parts: []string{":kind", ":id"}}, "/api/:kind/:id/"))
	t.Run("nothing under root", theory(when{root: "/api"}, "/api/"))
	t.Run("slashes in parts are normalized", theory(when{root: "/api", parts: []string{"/project/", "1/"}}, "/api/project/1/"))
	t.Run("url root", theory(
		when{root: "https://example.com:8080/geoflow/api?q=1", parts: []string{"catalogs"}},
		"https://example.com:8080/geoflow/api/catalogs/",
	))
}

func TestBuildServer(t *testing.T) {
	conf := try.To(kcs.Unmarshal([]byte(`
port: "8080"
database:
  type: memory
metrics:
  path: /metrics
`))).OrFatal(t)

	server := try.To(BuildServer(memory.New(), conf.Metrics(), "error")).OrFatal(t)

	t.Run("api is mounted", func(t *testing.T) {
		resp := httptestutil.Serve(server, http.MethodGet, "/api/catalogs", nil)
		if resp.Code != http.StatusOK {
			t.Errorf("status code = %d: %s", resp.Code, resp.Body.String())
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Error("request id is not set")
		}
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		// count a mutation at least once.
		httptestutil.Serve(server, http.MethodPost, "/api/project", strings.NewReader(`{"name": "P"}`), httptestutil.JSON())

		resp := httptestutil.Serve(server, http.MethodGet, "/metrics", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("status code = %d", resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "geoflow_graph_mutations_total") {
			t.Errorf("metrics of geoflow are not found")
		}
	})

	t.Run("errors are rendered as json", func(t *testing.T) {
		resp := httptestutil.Serve(server, http.MethodGet, "/api/spaceship/1", nil)
		if resp.Code != http.StatusNotFound {
			t.Errorf("status code = %d", resp.Code)
		}
		if !strings.Contains(resp.Body.String(), `"reason"`) {
			t.Errorf("unexpected body: %s", resp.Body.String())
		}
	})
}

func TestBuildServer_WithoutMetrics(t *testing.T) {
	server := try.To(BuildServer(memory.New(), nil, "off")).OrFatal(t)
	resp := httptestutil.Serve(server, http.MethodGet, "/metrics", nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("status code = %d", resp.Code)
	}
}
