package echomw

import (
	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

// HealthPath is polled by load balancers and only logged at Verbose.
const HealthPath = "/healthz"

func RouteAccessLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		LogRouteAccess(c, tl.Verbose, "Accessing route", palette.BlueDim)
		// status is only known after next returns
		defer LogRouteAccess(c, tl.Info1, "Route accessed", palette.Green)
		return next(c)
	}
}

// Log route access
func LogRouteAccess(c echo.Context, logLevel tl.LogLevel, actionName string, colorizer palette.Colorizer) {
	if c.Path() == HealthPath {
		logLevel = tl.Verbose
		colorizer = palette.CyanDim
	}
	tl.Log(logLevel, colorizer, "%s: Method='%s', Path='%s', Status='%d', ClientIP='%s'", actionName, c.Request().Method, c.Path(), c.Response().Status, c.RealIP())
}
