package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	binderr "github.com/geoflow/geoflow/pkg/api-types-binding/errors"
	"github.com/geoflow/geoflow/pkg/domain"
	"github.com/geoflow/geoflow/pkg/domain/graph"
	kdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/labstack/echo/v4"
)

// limit of request payloads.
const maxPayload = 1 << 20

func kindOf(c echo.Context, param string) (domain.Kind, error) {
	k, err := domain.AsKind(c.Param(param))
	if err != nil {
		return "", binderr.NotFound(
			binderr.WithAdvice("unknown kind: "+c.Param(param)),
			binderr.WithError(err),
		)
	}
	return k, nil
}

func idOf(c echo.Context, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, binderr.BadRequest("id should be a positive integer: "+c.Param(param), err)
	}
	return id, nil
}

// payloadOf reads a json request body.
//
// mimeTypes are acceptable content types other than application/json.
func payloadOf(c echo.Context, mimeTypes ...string) ([]byte, error) {
	req := c.Request()
	ctyp, _, err := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	ok := err == nil && ctyp == echo.MIMEApplicationJSON
	for _, m := range mimeTypes {
		ok = ok || ctyp == m
	}
	if !ok {
		return nil, binderr.BadRequest(
			"unexpected content type. it shoule be application/json", err,
		)
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, maxPayload))
	if err != nil {
		if mbe := new(http.MaxBytesError); errors.As(err, &mbe) {
			return nil, binderr.NewErrorMessage(http.StatusRequestEntityTooLarge, "payload too large")
		}
		return nil, binderr.BadRequest("can not read the request body", err)
	}
	return body, nil
}

// ListHandler lists rows of the kind.
//
// Query parameters:
//
//   - name: rows having the name.
//
//   - by & id: rows whose column `by` refers any of `id`s. `id` can be repeated.
func ListHandler(g graph.Interface, kindParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}

		q := kdb.Query{}
		if name := c.QueryParam("name"); name != "" {
			q.Name = &name
		}
		if by := c.QueryParam("by"); by != "" {
			q.Column = by
			for _, s := range c.QueryParams()["id"] {
				id, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return binderr.BadRequest("query parameter is incorrect: id="+s, err)
				}
				q.Ids = append(q.Ids, id)
			}
			if len(q.Ids) == 0 {
				return binderr.BadRequest("query parameter is incorrect: by is given without id", nil)
			}
		}

		rows, err := g.List(c.Request().Context(), kind, q)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, rows)
	}
}

func GetHandler(g graph.Interface, kindParam, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}

		row, err := g.Get(c.Request().Context(), kind, id)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, row)
	}
}

func CreateHandler(g graph.Interface, kindParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}
		payload, err := payloadOf(c)
		if err != nil {
			return err
		}

		row, err := g.Create(c.Request().Context(), kind, payload)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusCreated, row)
	}
}

// UpdateHandler applies json merge patch to the row.
func UpdateHandler(g graph.Interface, kindParam, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}
		patch, err := payloadOf(c, "application/merge-patch+json")
		if err != nil {
			return err
		}

		row, err := g.Update(c.Request().Context(), kind, id, patch)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, row)
	}
}

// DeleteHandler deletes the row with rows depending on it, and responds what are deleted.
func DeleteHandler(g graph.Interface, kindParam, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}

		plan, err := g.Delete(c.Request().Context(), kind, id)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, plan)
	}
}

// DeletePlanHandler responds what would be deleted, without deleting.
func DeletePlanHandler(g graph.Interface, kindParam, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}

		plan, err := g.PlanDelete(c.Request().Context(), kind, id)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, plan)
	}
}

func DependenciesHandler(g graph.Interface, kindParam, idParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := kindOf(c, kindParam)
		if err != nil {
			return err
		}
		id, err := idOf(c, idParam)
		if err != nil {
			return err
		}

		deps, err := g.Dependencies(c.Request().Context(), kind, id)
		if err != nil {
			return binderr.Domain(err)
		}
		return c.JSON(http.StatusOK, deps)
	}
}
