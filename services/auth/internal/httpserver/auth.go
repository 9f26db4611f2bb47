package httpserver

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/services/auth/internal/audit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/middleware"
	"github.com/Skotchmaster/autojournal/services/auth/internal/ratelimit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/service"
	"github.com/Skotchmaster/autojournal/services/auth/internal/transport"
	"github.com/labstack/echo/v4"
)

const tokenType = "Bearer"

type LoginLimiter interface {
	Allow(ctx context.Context, ip string) (time.Duration, error)
	Fail(ctx context.Context, ip string) error
	Reset(ctx context.Context, ip string) error
}

type AuthHTTP struct {
	Svc     *service.AuthService
	Limiter LoginLimiter
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ip := c.RealIP()
	ctx := audit.WithRemoteIP(c.Request().Context(), ip)
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	if h.Limiter != nil {
		wait, err := h.Limiter.Allow(ctx, ip)
		switch {
		case errors.Is(err, ratelimit.ErrLimited):
			l.Warn("login_throttled", "status", 429, "retry_after_s", wait.Seconds())
			c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
		case err != nil:
			l.Warn("login_limiter_unavailable", "error", err)
		}
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		kind := domain.KindOf(err)
		if h.Limiter != nil && (kind == domain.KindUnauthorized || kind == domain.KindSubjectInactive) {
			if ferr := h.Limiter.Fail(ctx, ip); ferr != nil {
				l.Warn("login_limiter_unavailable", "error", ferr)
			}
		}
		return err
	}

	if h.Limiter != nil {
		if err := h.Limiter.Reset(ctx, ip); err != nil {
			l.Warn("login_limiter_unavailable", "error", err)
		}
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		TokenType:        tokenType,
		ExpiresIn:        seconds(res.AccessTTL),
		RefreshExpiresIn: seconds(res.RefreshTTL),
		User: &transport.UserView{
			ID:          res.User.UserID,
			Roles:       res.User.Roles,
			Permissions: res.User.Permissions,
		},
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := audit.WithRemoteIP(c.Request().Context(), c.RealIP())
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return err
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        tokenType,
		ExpiresIn:        seconds(pair.AccessTTL),
		RefreshExpiresIn: seconds(pair.RefreshTTL),
	})
}

func (h *AuthHTTP) RefreshAccess(c echo.Context) error {
	ctx := audit.WithRemoteIP(c.Request().Context(), c.RealIP())
	l := logging.FromContext(ctx).With("handler", "auth_refresh_access")

	var req transport.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("refresh_access_error", "status", 400, "error", err)
		return err
	}

	grant, err := h.Svc.RefreshAccess(ctx, req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.AccessResponse{
		AccessToken: grant.AccessToken,
		TokenType:   tokenType,
		ExpiresIn:   seconds(grant.AccessTTL),
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := audit.WithRemoteIP(c.Request().Context(), c.RealIP())
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var req transport.RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("logout_error", "status", 400, "error", err)
		return err
	}

	if err := h.Svc.Logout(ctx, req.RefreshToken); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.DetailResponse{Detail: "logged out"})
}

// AccessToken answers for the identity resolved by BearerAuth.
func (h *AuthHTTP) AccessToken(c echo.Context) error {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, ident)
}

func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, transport.Describe(err))
	}
	return nil
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
