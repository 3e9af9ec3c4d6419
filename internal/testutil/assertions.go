package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DecodeJSON decodes the recorder body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "failed to unmarshal response: %s", rec.Body.String())
}

// AssertErrorResponse checks the status and message of an error envelope.
func AssertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, "unexpected status code: %s", rec.Body.String())

	var body struct {
		Message    string `json:"message"`
		StatusCode int    `json:"status_code"`
	}
	DecodeJSON(t, rec, &body)
	assert.Equal(t, message, body.Message)
	assert.Equal(t, status, body.StatusCode)
}

// FindCookie returns the named cookie set on the response.
func FindCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
