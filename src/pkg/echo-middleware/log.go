package echomw

import (
	"time"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"receipt-impact/src/pkg/metrics"
)

/*
RouteAccessLogger logs every request before and after it is handled and
records its status and duration in m (which may be nil).
*/
func RouteAccessLogger(m *metrics.PipelineMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			LogRouteAccess(c, tl.Info, "Accessing route", palette.Blue)

			err := next(c)
			if err != nil {
				// Let echo write the error response so the status below is final.
				c.Error(err)
			}

			status := c.Response().Status
			duration := time.Since(started)
			m.ObserveHTTP(c.Request().Method, c.Path(), status, duration)

			level, colorizer := tl.Info1, palette.Green
			if status >= 500 {
				level, colorizer = tl.Warning, palette.Yellow
			}
			tl.Log(
				level, colorizer, "Route accessed: Method='%s', Path='%s', Status='%v', Duration='%s'",
				c.Request().Method, c.Path(), status, duration.Round(time.Millisecond),
			)
			return nil
		}
	}
}

// Log route access
func LogRouteAccess(c echo.Context, logLevel tl.LogLevel, actionName string, colorizer palette.Colorizer) {
	if c.Path() == "/healthz" || c.Path() == "/metrics" {
		logLevel = tl.Verbose
		colorizer = palette.CyanDim
	}
	tl.Log(logLevel, colorizer, "%s: Method='%s', Path='%s', ClientIP='%s'", actionName, c.Request().Method, c.Path(), c.RealIP())
}
