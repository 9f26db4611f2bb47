package middleware

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID      = "X-User-ID"
	HeaderRoles       = "X-User-Roles"
	HeaderPermissions = "X-User-Permissions"
)

// StripIdentity drops identity headers sent by the client. Only the gateway
// may set them.
func StripIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header
		h.Del(HeaderUserID)
		h.Del(HeaderRoles)
		h.Del(HeaderPermissions)
		return next(c)
	}
}

// ForwardIdentity copies the identity resolved by the auth middleware onto
// the upstream request.
func ForwardIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header
		if id, ok := c.Get("user_id").(uint); ok {
			h.Set(HeaderUserID, strconv.FormatUint(uint64(id), 10))
		}
		if roles, ok := c.Get("roles").([]string); ok {
			h.Set(HeaderRoles, strings.Join(roles, ","))
		}
		if perms, ok := c.Get("permissions").([]string); ok {
			h.Set(HeaderPermissions, strings.Join(perms, ","))
		}
		return next(c)
	}
}
