package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/service"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*service.Identity, error)
}

type BearerAuth struct {
	Resolver Resolver
}

func NewBearerAuth(r Resolver) *BearerAuth {
	return &BearerAuth{Resolver: r}
}

// RequireAuth resolves the Authorization header and stores the identity on
// the echo context. Failures go to the HTTP error handler unchanged.
func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return domain.New(domain.KindUnauthorized, "missing bearer token", nil)
		}

		ctx := c.Request().Context()
		ident, err := m.Resolver.Resolve(ctx, token)
		if err != nil {
			return err
		}

		l := logging.FromContext(ctx).With("user_id", ident.UserID)
		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))
		c.Set(identityKey, ident)

		return next(c)
	}
}

func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func IdentityFrom(c echo.Context) (*service.Identity, bool) {
	ident, ok := c.Get(identityKey).(*service.Identity)
	return ident, ok && ident != nil
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) echo.MiddlewareFunc {
	return guard(func(i *service.Identity) bool { return i.HasRole(role) })
}

func RequirePermission(code string) echo.MiddlewareFunc {
	return guard(func(i *service.Identity) bool { return i.HasPermission(code) })
}

func guard(allowed func(*service.Identity) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrUnauthorized
			}
			if !allowed(ident) {
				logging.FromContext(c.Request().Context()).Warn("access_denied", "path", c.Path())
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
