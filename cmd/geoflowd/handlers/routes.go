package handlers

import (
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/domain/graph"
	"github.com/geoflow/geoflow/pkg/domain/resolver"
	"github.com/labstack/echo/v4"
)

// Register routes of geoflow API.
//
// api builds a path under the api root from path segments.
func Register(e *echo.Echo, api func(...string) string, g graph.Interface, r resolver.Resolver) {
	const kind = "kind"
	const id = "id"

	e.GET(api("catalogs"), CatalogsHandler())

	e.GET(api("processes", ":kind", ":id", "resolution"), ResolutionHandler(r, kind, id))
	e.GET(api(":kind", ":id", "work"), Only(domain.KindServiceInstance, kind, WorkHandler(r, id)))
	e.GET(api(":kind", ":id", "collectors"), Only(domain.KindProject, kind, ProjectCollectorsHandler(g, id)))
	e.GET(api(":kind", ":id", "view"), Only(domain.KindCollector, kind, CollectorHandler(g, id)))

	e.GET(api(":kind"), ListHandler(g, kind))
	e.POST(api(":kind"), CreateHandler(g, kind))
	e.GET(api(":kind", ":id"), GetHandler(g, kind, id))
	e.PATCH(api(":kind", ":id"), UpdateHandler(g, kind, id))
	e.DELETE(api(":kind", ":id"), DeleteHandler(g, kind, id))
	e.GET(api(":kind", ":id", "delete-plan"), DeletePlanHandler(g, kind, id))
	e.GET(api(":kind", ":id", "dependencies"), DependenciesHandler(g, kind, id))
}
