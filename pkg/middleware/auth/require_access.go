package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/Skotchmaster/autojournal/pkg/authclient"
	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/labstack/echo/v4"
)

// AccessChecker is the part of authclient.Client the middleware needs.
type AccessChecker interface {
	CheckAccess(ctx context.Context, accessToken string) (*authclient.Identity, error)
}

// RemoteAuth guards routes of services that do not hold the signing key.
// Every request is checked against the auth service, so a blocked account
// loses access as soon as its status changes.
type RemoteAuth struct {
	Checker AccessChecker
}

func NewRemoteAuth(checker AccessChecker) *RemoteAuth {
	return &RemoteAuth{Checker: checker}
}

type ValidatorFunc func(ident *authclient.Identity) error

func (m *RemoteAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAccessWithValidator(next, nil)
}

func (m *RemoteAuth) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return m.requireAccessWithValidator(next, func(ident *authclient.Identity) error {
			if !slices.Contains(ident.Roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, role+" role required")
			}
			return nil
		})
	}
}

func (m *RemoteAuth) RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return m.requireAccessWithValidator(next, func(ident *authclient.Identity) error {
			if !slices.Contains(ident.Permissions, perm) {
				return echo.NewHTTPError(http.StatusForbidden, perm+" permission required")
			}
			return nil
		})
	}
}

func (m *RemoteAuth) requireAccessWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		ctx := c.Request().Context()
		ident, err := m.Checker.CheckAccess(ctx, token)
		if err != nil {
			var apiErr *authclient.APIError
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
				return echo.NewHTTPError(apiErr.Status, apiErr.Detail)
			}
			logging.FromContext(ctx).Error("auth_check_failed", "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "auth service unavailable")
		}

		if validator != nil {
			if err := validator(ident); err != nil {
				return err
			}
		}

		setUserContext(c, ident)
		return next(c)
	}
}

func setUserContext(c echo.Context, ident *authclient.Identity) {
	c.Set("user_id", ident.UserID)
	c.Set("roles", ident.Roles)
	c.Set("permissions", ident.Permissions)
}
