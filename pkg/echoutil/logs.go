package echoutil

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

// RequestID sets X-Request-Id of responses, generating uuid when the request has none.
func RequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// LogHandlerFunc logs requests and their responses.
//
// Responses with errors are logged at WARN level, others at INFO.
func LogHandlerFunc(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		since := time.Now()
		c.Logger().Infof("< request [%s] %s %s", rid, req.Method, req.URL)

		err := next(c)

		status := c.Response().Status
		logf := c.Logger().Infof
		if err != nil {
			logf = c.Logger().Warnf
			if herr := new(echo.HTTPError); errors.As(err, &herr) {
				status = herr.Code
			} else {
				status = http.StatusInternalServerError
			}
		}
		logf(
			"> response [%s] %s %s: status = %d in %v / error = %v",
			rid, req.Method, req.URL, status, time.Since(since), err,
		)
		return err
	}
}

// ParseLevel converts a loglevel name (debug|info|warn|error|off) into log.Lvl.
//
// Empty or unknown names are WARN. ok is false for unknown names.
func ParseLevel(loglevel string) (lvl log.Lvl, ok bool) {
	switch strings.ToLower(loglevel) {
	case "debug":
		return log.DEBUG, true
	case "info":
		return log.INFO, true
	case "warn", "":
		return log.WARN, true
	case "error":
		return log.ERROR, true
	case "off":
		return log.OFF, true
	default:
		return log.WARN, false
	}
}

func SetLevel(e *echo.Echo, loglevel string) {
	lvl, ok := ParseLevel(loglevel)
	e.Logger.SetLevel(lvl)
	if !ok {
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}
}
