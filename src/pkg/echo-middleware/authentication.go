// Package echomw provides the Echo middlewares of the webhook server.
package echomw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

/*
RequireSecretToken compares the value of headerName with secret.
On mismatch it responds 401 without calling the next handler.

It fails closed: with an empty secret every request is rejected.
*/
func RequireSecretToken(headerName string, secret string) echo.MiddlewareFunc {
	expected := []byte(strings.TrimSpace(secret))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(expected) == 0 {
				return unauthorized(c)
			}

			received := strings.TrimSpace(c.Request().Header.Get(headerName))
			if received == "" {
				return unauthorized(c)
			}

			// Constant-time compare.
			if subtle.ConstantTimeCompare([]byte(received), expected) != 1 {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	LogRouteAccess(c, tl.Info, "Unauthorized access attempt", palette.Yellow) // Log the visit

	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": "unauthorized",
	})
}
