package middleware

import "github.com/labstack/echo/v4"

// userID returns the authenticated subject, or "guest" when the request
// did not pass through Session.
func userID(c echo.Context) string {
	if cl, ok := ClaimsFrom(c); ok && cl.Subject != "" {
		return cl.Subject
	}
	return "guest"
}
