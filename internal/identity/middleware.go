package identity

import (
	"strings"

	"github.com/labstack/echo/v4"
)

type UnauthorizedFunc func(c echo.Context, err error) error

// Middleware authenticates the Authorization header and stores the
// principal on the request context.
func Middleware(p Provider, onFail UnauthorizedFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			bearer, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				return onFail(c, ErrUnauthenticated)
			}

			principal, err := p.Authenticate(c.Request().Context(), bearer)
			if err != nil {
				return onFail(c, err)
			}

			ctx := WithPrincipal(c.Request().Context(), principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
