package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/service"
)

// UsersHandler serves public profiles.
type UsersHandler struct {
	Directory *service.UserDirectory
}

func NewUsersHandler(d *service.UserDirectory) *UsersHandler {
	if d == nil {
		panic("nil directory passed to NewUsersHandler")
	}
	return &UsersHandler{Directory: d}
}

// GetByUsername handles GET /users/:username.
func (h *UsersHandler) GetByUsername(c echo.Context) error {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		return apperror.BadRequest("username is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Directory.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, u)
}
