package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/middleware"
	"github.com/iliyamo/account-auth/internal/service"
)

// requestTimeout bounds the storage work done for a single request.
const requestTimeout = 5 * time.Second

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Cookies CookieConfig
}

func NewAuthHandler(auth *service.AuthService, cookies CookieConfig) *AuthHandler {
	if auth == nil {
		panic("nil service passed to NewAuthHandler")
	}
	return &AuthHandler{Auth: auth, Cookies: cookies}
}

type userResponse struct {
	User any `json:"user"`
}

type expirationResponse struct {
	ExpirationDateInMillis int64 `json:"expiration_date_in_millis"`
}

// subject returns the user id of the session that passed the guard.
func subject(c echo.Context) (string, error) {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok || cl.Subject == "" {
		return "", apperror.Unauthorized("access token is missing")
	}
	return cl.Subject, nil
}

// Register creates an account, sets the session cookie and returns the user.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, res.Token)
	return respond(c, http.StatusCreated, userResponse{User: res.User})
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.Login(ctx, service.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, res.Token)
	return respond(c, http.StatusOK, userResponse{User: res.User})
}

// Logout only clears the cookie. Tokens are stateless and stay valid
// until they expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Cookies.clearSession(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := subject(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Auth.Current(ctx, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, u)
}

// Update patches the profile and re-sets the session cookie with the
// refreshed claims.
func (h *AuthHandler) Update(c echo.Context) error {
	id, err := subject(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.UpdateProfile(ctx, id, req.input())
	if err != nil {
		return err
	}
	h.Cookies.setSession(c, res.Token)
	return respond(c, http.StatusOK, res.User)
}

// Delete removes the account when the deletion code matches.
func (h *AuthHandler) Delete(c echo.Context) error {
	id, err := subject(c)
	if err != nil {
		return err
	}
	var req deleteUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.DeleteAccount(ctx, id, req.Code); err != nil {
		return err
	}
	h.Cookies.clearSession(c)
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword checks old_password before storing new_password. Existing
// sessions stay valid.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := subject(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, id, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword issues a recovery token and reports when it expires.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	exp, err := h.Auth.RequestPasswordRecovery(ctx, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, expirationResponse{ExpirationDateInMillis: exp.UnixMilli()})
}

// ResetPassword redeems a recovery token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Check reports whether a username or email is still free.
func (h *AuthHandler) Check(c echo.Context) error {
	var req checkRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Auth.CheckAvailability(ctx, req.Field, req.Value)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res)
}

// DeletionRequest issues a deletion code for the signed-in user.
func (h *AuthHandler) DeletionRequest(c echo.Context) error {
	id, err := subject(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	exp, err := h.Auth.RequestAccountDeletion(ctx, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, expirationResponse{ExpirationDateInMillis: exp.UnixMilli()})
}
