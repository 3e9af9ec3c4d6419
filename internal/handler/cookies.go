package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/token"
)

// CookieConfig names the cookies the handlers set.
type CookieConfig struct {
	Session string
	Storage string
	Secure  bool
}

// setSession stores a session token. The cookie never outlives the token.
func (cc CookieConfig) setSession(c echo.Context, signed token.Signed) {
	c.SetCookie(&http.Cookie{
		Name:     cc.Session,
		Value:    signed.Token,
		Path:     "/",
		MaxAge:   int(signed.ExpiresInMillis / 1000),
		Expires:  signed.ExpiresAt,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (cc CookieConfig) clearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cc.Session,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// setStorage stores a storage token for the cross-site upload target, so
// it is always Secure and SameSite=None.
func (cc CookieConfig) setStorage(c echo.Context, signed token.Signed) {
	c.SetCookie(&http.Cookie{
		Name:     cc.Storage,
		Value:    signed.Token,
		Path:     "/",
		MaxAge:   int(signed.ExpiresInMillis / 1000),
		Expires:  signed.ExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
