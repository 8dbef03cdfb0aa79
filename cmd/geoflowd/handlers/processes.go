package handlers

import (
	"net/http"

	binderr "github.com/geoflow/geoflow/pkg/api-types-binding/errors"
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/domain/graph"
	"github.com/geoflow/geoflow/pkg/domain/resolver"
	"github.com/geoflow/geoflow/pkg/utils"
	"github.com/labstack/echo/v4"
)

// ResolutionHandler responds how the process would be triggered, and by whom.
func ResolutionHandler(r resolver.Resolver, kindParam, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}
		if !kind.IsProcess() {
			return binderr.NotFound(binderr.WithAdvice(kind.String() + " is not a process"))
		}
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}

		res, err := r.Resolve(c.Request().Context(), kind, id)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

type WorkItem struct {
	Process    domain.Ref           `json:"process"`
	Resolution *resolver.Resolution `json:"resolution,omitempty"`

	// Error tells why the process can not be resolved.
	Error string `json:"error,omitempty"`
}

// WorkHandler lists processes assigned to the service instance.
//
// Processes which can not be resolved are listed with their errors, not failing whole the request.
func WorkHandler(r resolver.Resolver, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}

		items, err := r.ForService(c.Request().Context(), id)
		if err != nil {
			return binderr.Domain(err)
		}

		return c.JSON(http.StatusOK, utils.Map(items, func(it resolver.WorkItem) WorkItem {
			w := WorkItem{Process: it.Process, Resolution: it.Resolution}
			if it.Error != nil {
				w.Error = it.Error.Error()
			}
			return w
		}))
	}
}

// CollectorHandler responds the collector with its project.
func CollectorHandler(g graph.Interface, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}
		view, err := g.Collector(c.Request().Context(), id)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

// ProjectCollectorsHandler lists collectors in the project.
func ProjectCollectorsHandler(g graph.Interface, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}
		views, err := g.Collectors(c.Request().Context(), id)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, views)
	}
}

func CatalogsHandler() echo.HandlerFunc {
	catalogs := domain.Catalogs()
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, catalogs)
	}
}

// Only restricts h to rows of the kind. For other kinds, it responds 404.
func Only(kind domain.Kind, kindParam string, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Param(kindParam) != kind.String() {
			return binderr.NotFound(binderr.WithAdvice("only for " + kind.String()))
		}
		return h(c)
	}
}
