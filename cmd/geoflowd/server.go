package main

import (
	"net/url"
	"path"
	"strings"

	"github.com/geoflow/geoflow/cmd/geoflowd/handlers"
	kcs "github.com/geoflow/geoflow/pkg/configs/server"
	"github.com/geoflow/geoflow/pkg/domain/graph"
	graphdb "github.com/geoflow/geoflow/pkg/domain/graph/db"
	"github.com/geoflow/geoflow/pkg/domain/resolver"
	"github.com/geoflow/geoflow/pkg/echoutil"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildServer mounts geoflow API on a new echo server.
func BuildServer(db graphdb.Database, metrics *kcs.MetricsConfig, loglevel string) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.AddTrailingSlash())

	echoutil.SetLevel(e, loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.RequestID())
	e.Use(echoutil.LogHandlerFunc)

	api, err := root("/api")
	if err != nil {
		return nil, err
	}

	logger := log.New("graph")
	if lvl, ok := echoutil.ParseLevel(loglevel); ok {
		logger.SetLevel(lvl)
	}
	handlers.Register(e, api, graph.New(db, graph.WithLogger(logger)), resolver.New(db))

	if metrics != nil {
		e.GET(
			strings.TrimSuffix(metrics.Path(), "/")+"/",
			echo.WrapHandler(promhttp.Handler()),
		)
	}

	return e, nil
}

// create api URL factory
//
// args:
//   - r: api root. url or path.
//
// return:
//   - func: it receives relative path from root, and returns full-path of URL, terminated with "/".
func root(r string) (func(...string) string, error) {
	//    when r is https://example.org:8080/api/root/path
	origin := "" // https://example.org:8080 . if r is path only, this is empty.
	base := ""   // /api/root/path
	{
		b, err := url.Parse(r)
		if err != nil {
			return nil, err
		}
		base = b.Path
		if b.Host != "" || b.Scheme != "" {
			o := *b
			o.RawPath = ""
			o.Path = ""
			o.RawQuery = ""
			o.Fragment = ""
			origin = strings.TrimSuffix(o.String(), "/")
		}
	}

	return func(s ...string) string {
		p := path.Join(append([]string{"/", base}, s...)...)
		return strings.TrimSuffix(origin+p, "/") + "/"
	}, nil
}
