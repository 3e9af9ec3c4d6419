package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/service"
)

// StorageHandler mints tokens for the object-storage service.
type StorageHandler struct {
	Storage *service.StorageService
	Cookies CookieConfig
}

func NewStorageHandler(storage *service.StorageService, cookies CookieConfig) *StorageHandler {
	if storage == nil {
		panic("nil service passed to NewStorageHandler")
	}
	return &StorageHandler{Storage: storage, Cookies: cookies}
}

type storageTokenResponse struct {
	Token string `json:"token"`
}

// CreateToken sets the storage cookie and also returns the token for
// clients that upload with a bearer header.
func (h *StorageHandler) CreateToken(c echo.Context) error {
	id, err := subject(c)
	if err != nil {
		return err
	}
	var req storageTokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	signed, err := h.Storage.CreateToken(c.Request().Context(), id, req.Type, req.Context)
	if err != nil {
		return err
	}
	h.Cookies.setStorage(c, signed)
	return respond(c, http.StatusOK, storageTokenResponse{Token: signed.Token})
}
