package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/account-auth/internal/handler"
	"github.com/iliyamo/account-auth/internal/logging"
	"github.com/iliyamo/account-auth/internal/middleware"
	"github.com/iliyamo/account-auth/internal/model"
)

// Deps carries everything the routes need. Cache and DB are optional.
type Deps struct {
	Prefix    string
	ClientURL string

	Auth    *handler.AuthHandler
	Storage *handler.StorageHandler
	Users   *handler.UsersHandler

	Verifier middleware.TokenDecoder
	Session  middleware.SessionConfig
	Cache    echo.MiddlewareFunc
	DB       handler.Pinger
	Log      logging.Logger
}

// New builds the echo instance with the error handler, the global
// middleware and every route registered.
func New(d Deps) *echo.Echo {
	log := d.Log
	if log == nil {
		log = logging.Nop{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog(log))
	if d.ClientURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{d.ClientURL},
			AllowMethods:     []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE, echo.OPTIONS},
			AllowCredentials: true,
		}))
	}

	RegisterRoutes(e, d.DB)
	guard := []echo.MiddlewareFunc{
		middleware.Session(d.Verifier, d.Session),
		middleware.RequireScope(model.RoleUser, model.RoleAdmin),
	}
	RegisterAuth(e.Group(d.Prefix+"/auth"), d.Auth, guard)
	RegisterStorage(e.Group(d.Prefix+"/storage"), d.Storage, guard)
	RegisterUsers(e.Group(d.Prefix+"/users"), d.Users, d.Cache)
	return e
}

// RegisterRoutes registers routes that do not belong to an API version.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the /auth endpoints. guard runs in front of the
// endpoints that act on the signed-in user.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler, guard []echo.MiddlewareFunc) {
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.GET("/check", a.Check)

	g.GET("/user", a.Me, guard...)
	g.PATCH("/user", a.Update, guard...)
	g.DELETE("/user", a.Delete, guard...)
	g.POST("/change-password", a.ChangePassword, guard...)
	g.POST("/account-deletion-request", a.DeletionRequest, guard...)
}

// RegisterStorage registers storage token issuance, signed-in users only.
func RegisterStorage(g *echo.Group, s *handler.StorageHandler, guard []echo.MiddlewareFunc) {
	g.POST("", s.CreateToken, guard...)
}

// RegisterUsers registers the public profile lookup behind the response
// cache when one is configured.
func RegisterUsers(g *echo.Group, u *handler.UsersHandler, cache echo.MiddlewareFunc) {
	var mws []echo.MiddlewareFunc
	if cache != nil {
		mws = append(mws, cache)
	}
	g.GET("/:username", u.GetByUsername, mws...)
}
