package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/apperror"
)

// RequireScope returns a middleware that lets the request through only if
// the session's scopes claim holds one of roles. It must run after Session.
func RequireScope(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, ok := ClaimsFrom(c)
			if !ok {
				return apperror.Unauthorized("access token is missing")
			}
			for _, s := range cl.Scopes {
				if allowed[s] {
					return next(c)
				}
			}
			return apperror.Forbidden("insufficient scope")
		}
	}
}
