package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/logging"
)

// envelope wraps every successful response body.
type envelope struct {
	Data       any    `json:"data"`
	Timestamp  string `json:"timestamp"`
	StatusCode int    `json:"status_code"`
}

// errorBody is the shape of every error response.
type errorBody struct {
	Message    string   `json:"message"`
	StatusCode int      `json:"status_code"`
	Timestamp  string   `json:"timestamp"`
	Errors     []string `json:"errors,omitempty"`
}

func timestamp() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// respond writes data inside the success envelope.
func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Data: data, Timestamp: timestamp(), StatusCode: status})
}

// ErrorHandler turns handler errors into the error envelope. Application
// errors keep their status and message; echo errors keep their code;
// anything else is a 500 whose detail only reaches the log.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = logging.Nop{}
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body := errorBody{Timestamp: timestamp()}
		var (
			appErr  *apperror.Error
			httpErr *echo.HTTPError
		)
		switch {
		case errors.As(err, &appErr):
			body.StatusCode = appErr.Kind.Status()
			body.Message = appErr.Message
			body.Errors = appErr.Fields
			if appErr.Kind == apperror.KindInternal {
				log.Error(c.Request().Context(), "request failed", "error", err, "path", c.Path())
			}
		case errors.As(err, &httpErr):
			body.StatusCode = httpErr.Code
			body.Message = http.StatusText(httpErr.Code)
			if msg, ok := httpErr.Message.(string); ok && msg != "" {
				body.Message = msg
			}
		default:
			body.StatusCode = http.StatusInternalServerError
			body.Message = "internal server error"
			log.Error(c.Request().Context(), "request failed", "error", err, "path", c.Path())
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(body.StatusCode)
		} else {
			werr = c.JSON(body.StatusCode, body)
		}
		if werr != nil {
			log.Warn(c.Request().Context(), "write error response", "error", werr)
		}
	}
}
