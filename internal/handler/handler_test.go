package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/logging"
	"github.com/iliyamo/account-auth/internal/testutil"
	"github.com/iliyamo/account-auth/internal/utils"
)

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var logs bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, nil)))

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(log)
	e.GET("/boom", func(echo.Context) error { return err })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	return rec, logs.String()
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		logged  bool
	}{
		{"not found", apperror.NotFound("user not found"), http.StatusNotFound, "user not found", false},
		{"already exists", apperror.AlreadyExists("email is already in use"), http.StatusBadRequest, "email is already in use", false},
		{"forbidden", apperror.Forbidden("invalid deletion code"), http.StatusForbidden, "invalid deletion code", false},
		{"wrapped", errors.Join(apperror.Unauthorized("access token is invalid")), http.StatusUnauthorized, "access token is invalid", false},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed, "Method Not Allowed", false},
		{"echo error message", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge, "too big", false},
		{"internal", apperror.Internal(errors.New("dial tcp: refused")), http.StatusInternalServerError, "internal server error", true},
		{"plain error", errors.New("db password is hunter2"), http.StatusInternalServerError, "internal server error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, logs := serveError(t, tt.err)
			testutil.AssertErrorResponse(t, rec, tt.status, tt.message)
			assert.NotContains(t, rec.Body.String(), "hunter2")
			assert.NotContains(t, rec.Body.String(), "refused")
			if tt.logged {
				assert.Contains(t, logs, "request failed")
			} else {
				assert.Empty(t, logs)
			}
		})
	}
}

func TestErrorHandler_ValidationFields(t *testing.T) {
	rec, _ := serveError(t, apperror.Validation("validation error", []string{"email is required"}))
	var body struct {
		StatusCode int    `json:"status_code"`
		Timestamp  string `json:"timestamp"`
		Errors     []any  `json:"errors"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
	assert.Equal(t, []any{"email is required"}, body.Errors)
	assert.NotEmpty(t, body.Timestamp)
}

func TestValidationError_SortedByField(t *testing.T) {
	err := validationError(validation.Errors{
		"password": errors.New("must have at least 8 characters"),
		"email":    errors.New("must be a valid email"),
		"username": errors.New("username or email is required"),
	})
	var ae *apperror.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{
		"email must be a valid email",
		"password must have at least 8 characters",
		"username or email is required",
	}, ae.Fields)
}

func fieldErrors(t *testing.T, v validatable) []string {
	t.Helper()
	v.normalize()
	err := v.Validate()
	if err == nil {
		return nil
	}
	var ae *apperror.Error
	require.ErrorAs(t, validationError(err), &ae)
	require.Equal(t, apperror.KindValidation, ae.Kind)
	return ae.Fields
}

func TestRegisterRequest_Username(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{"john.doe", ""},
		{"john_doe.99", ""},
		{"12345", "cannot consist of only numbers"},
		{"john doe", "can only contain letters, numbers, dots, and underscores"},
		{"john-doe", "can only contain letters, numbers, dots, and underscores"},
		{"john..doe", "cannot contain consecutive dots"},
		{".", "cannot consist of only dots"},
		{"___", "cannot consist of only underscores"},
		{"   ", "is required"},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			req := &registerRequest{Name: "John Doe", Username: tt.username, Email: "john@example.com", Password: "abcdefgh1"}
			got := fieldErrors(t, req)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, []string{"username " + tt.want}, got)
		})
	}
}

func TestRegisterRequest_Name(t *testing.T) {
	long := make([]byte, 51)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, []string{"name is too long"},
		fieldErrors(t, &registerRequest{Name: string(long), Username: "john", Email: "john@example.com", Password: "abcdefgh1"}))
	assert.Equal(t, []string{"name is required"},
		fieldErrors(t, &registerRequest{Name: " ", Username: "john", Email: "john@example.com", Password: "abcdefgh1"}))
}

func TestRegisterRequest_TrimsInput(t *testing.T) {
	req := &registerRequest{Name: "  John Doe ", Username: " john ", Email: " john@example.com ", Password: " abcdefgh1 "}
	assert.Empty(t, fieldErrors(t, req))
	assert.Equal(t, "John Doe", req.Name)
	assert.Equal(t, "john", req.Username)
	assert.Equal(t, "abcdefgh1", req.Password)
}

func TestLoginRequest(t *testing.T) {
	assert.Empty(t, fieldErrors(t, &loginRequest{Username: "john", Password: "abcdefgh1"}))
	assert.Empty(t, fieldErrors(t, &loginRequest{Email: "john@example.com", Password: "abcdefgh1"}))
	assert.Equal(t, []string{"username or email is required"},
		fieldErrors(t, &loginRequest{Password: "abcdefgh1"}))
	assert.Equal(t, []string{"password must have at least 8 characters"},
		fieldErrors(t, &loginRequest{Username: "john", Password: "short"}))
}

func TestUpdateRequest(t *testing.T) {
	str := func(s string) *string { return &s }

	assert.Empty(t, fieldErrors(t, &updateRequest{}))
	assert.Empty(t, fieldErrors(t, &updateRequest{Bio: str(""), AvatarURL: str("https://cdn.example.com/a.png")}))
	assert.Equal(t, []string{
		"avatar_url must be an url",
		"email must be a valid email",
		"name cannot be empty",
		"username cannot contain consecutive dots",
	}, fieldErrors(t, &updateRequest{
		Name:      str("  "),
		Username:  str("a..b"),
		Email:     str("not-an-email"),
		AvatarURL: str("not a url"),
	}))
}

func TestDeleteUserRequest(t *testing.T) {
	assert.Empty(t, fieldErrors(t, &deleteUserRequest{Code: "01234"}))
	assert.Equal(t, []string{"code must have 5 numbers"}, fieldErrors(t, &deleteUserRequest{Code: "1234"}))
	assert.Equal(t, []string{"code must be numeric"}, fieldErrors(t, &deleteUserRequest{Code: "12e45"}))
	assert.Equal(t, []string{"code is required"}, fieldErrors(t, &deleteUserRequest{}))
}

func TestCheckAndStorageRequests(t *testing.T) {
	assert.Empty(t, fieldErrors(t, &checkRequest{Field: "email", Value: "a@b.co"}))
	assert.Equal(t, []string{"field must be one of username, email", "value is required"},
		fieldErrors(t, &checkRequest{Field: "phone"}))

	assert.Empty(t, fieldErrors(t, &storageTokenRequest{Type: "avatars", Context: "upload"}))
	assert.Equal(t, []string{"context is not supported", "type is not supported"},
		fieldErrors(t, &storageTokenRequest{Type: "videos", Context: "rename"}))
}

func TestResetPasswordRequest(t *testing.T) {
	assert.Empty(t, fieldErrors(t, &resetPasswordRequest{Token: "6f1c2a8e-6b8e-4b51-9c36-0d4d0f5d8a11", Password: "abcdefgh1"}))
	assert.Equal(t, []string{"token must be a valid uuid"},
		fieldErrors(t, &resetPasswordRequest{Token: "abc", Password: "abcdefgh1"}))
}

func TestPasswordRequests_Length(t *testing.T) {
	long := strings.Repeat("a", utils.MaxPasswordBytes+1)

	assert.Empty(t, fieldErrors(t, &registerRequest{Name: "John", Username: "john", Email: "john@example.com", Password: strings.Repeat("a", utils.MaxPasswordBytes)}))
	assert.Equal(t, []string{"password must have at most 72 characters"},
		fieldErrors(t, &registerRequest{Name: "John", Username: "john", Email: "john@example.com", Password: long}))
	assert.Equal(t, []string{"new_password must have at most 72 characters", "old_password must have at most 72 characters"},
		fieldErrors(t, &changePasswordRequest{OldPassword: long, NewPassword: long}))
	assert.Equal(t, []string{"password must have at most 72 characters"},
		fieldErrors(t, &resetPasswordRequest{Token: "6f1c2a8e-6b8e-4b51-9c36-0d4d0f5d8a11", Password: long}))
}
