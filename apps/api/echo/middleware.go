package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/classboard/core/access"
)

// roleMiddleware lets through only the given role.
func roleMiddleware(role access.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role != role {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
