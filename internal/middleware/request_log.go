package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/logging"
)

// RequestLog logs one line per request. Bodies and cookies are never logged.
func RequestLog(log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}
			req := c.Request()
			status := c.Response().Status
			args := []any{
				"method", req.Method,
				"path", c.Path(),
				"uri", req.URL.Path,
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
				"origin", req.Header.Get(echo.HeaderOrigin),
				"user_id", userID(c),
			}
			switch {
			case status >= 500:
				log.Error(req.Context(), "request", args...)
			case status >= 400:
				log.Warn(req.Context(), "request", args...)
			default:
				log.Info(req.Context(), "request", args...)
			}
			return nil
		}
	}
}
