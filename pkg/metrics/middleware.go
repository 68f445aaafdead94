package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// EchoMiddleware records request counts and latency labelled by the matched route template.
func EchoMiddleware(r *Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			r.RecordHTTPRequest(route, c.Request().Method, status, time.Since(start).Seconds())
			return err
		}
	}
}
