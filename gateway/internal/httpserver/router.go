package httpserver

import (
	"context"
	"net/http"
	"sort"

	"github.com/Skotchmaster/autojournal/gateway/internal/middleware"
	authmw "github.com/Skotchmaster/autojournal/pkg/middleware/auth"
	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/labstack/echo/v4"
)

const apiPrefix = "/api/v1"

type Deps struct {
	AuthURL   string
	Upstreams map[string]string

	Auth  *authmw.RemoteAuth
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := d.Ready(ctx); err != nil {
			logging.FromContext(ctx).Warn("not_ready", "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "auth service unavailable")
		}
		return c.NoContent(http.StatusOK)
	})

	e.Use(middleware.StripIdentity)

	authProxy, err := newProxy(d.AuthURL, apiPrefix)
	if err != nil {
		return err
	}
	// The auth service checks bearer tokens on its own routes.
	e.Any(apiPrefix+"/auth/*", authProxy)
	e.Any(apiPrefix+"/users", authProxy)
	e.Any(apiPrefix+"/users/*", authProxy)
	e.GET(apiPrefix+"/roles", authProxy)
	e.GET(apiPrefix+"/permissions", authProxy)

	names := make([]string, 0, len(d.Upstreams))
	for name := range d.Upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		proxy, err := newProxy(d.Upstreams[name], apiPrefix)
		if err != nil {
			return err
		}
		g := e.Group(apiPrefix+"/"+name, d.Auth.RequireAuth, middleware.ForwardIdentity)
		g.Any("", proxy)
		g.Any("/*", proxy)
	}

	return nil
}
