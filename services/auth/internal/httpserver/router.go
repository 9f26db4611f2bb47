package httpserver

import (
	"github.com/Skotchmaster/autojournal/services/auth/internal/middleware"
	"github.com/Skotchmaster/autojournal/services/auth/internal/transport"
	"github.com/labstack/echo/v4"
)

const superuserRole = "superuser"

type Deps struct {
	Auth   *AuthHTTP
	Admin  *AdminHTTP
	System *SystemHTTP
	Bearer *middleware.BearerAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler
	e.Validator = transport.NewValidator()

	e.GET("/health/live", d.System.Live)
	e.GET("/health/ready", d.System.Ready)
	e.GET("/version", d.System.VersionInfo)

	auth := e.Group("/auth")
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)
	auth.POST("/refresh/access", d.Auth.RefreshAccess)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/access_token", d.Auth.AccessToken, d.Bearer.RequireAuth)

	e.GET("/roles", d.Admin.Roles, d.Bearer.RequireAuth)
	e.GET("/permissions", d.Admin.Permissions, d.Bearer.RequireAuth)

	users := e.Group("/users", d.Bearer.RequireAuth, middleware.RequireRole(superuserRole))
	users.POST("", d.Admin.CreateUser)
	users.POST("/block", d.Admin.Block)
	users.POST("/unblock", d.Admin.Unblock)
	users.DELETE("/delete", d.Admin.Delete)
}
