package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/services/auth/internal/service"
	"github.com/Skotchmaster/autojournal/services/auth/internal/transport"
	"github.com/labstack/echo/v4"
)

type AdminHTTP struct {
	Svc *service.AuthService
}

func (h *AdminHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_create_user")

	var req transport.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_user_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.CreateUser(ctx, service.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Nickname: req.Nickname,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transport.CreatedUserResponse{ID: user.ID, Email: user.Email, Role: req.Role})
}

func (h *AdminHTTP) Block(c echo.Context) error   { return h.changeStatus(c, service.ActionBlock) }
func (h *AdminHTTP) Unblock(c echo.Context) error { return h.changeStatus(c, service.ActionUnblock) }
func (h *AdminHTTP) Delete(c echo.Context) error  { return h.changeStatus(c, service.ActionDelete) }

func (h *AdminHTTP) changeStatus(c echo.Context, action service.StatusAction) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_"+string(action))

	var req transport.ChangeStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("change_status_error", "status", 400, "error", err)
		return err
	}

	if err := h.Svc.ChangeStatus(ctx, req.LoginToChange, action); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.DetailResponse{Detail: "user " + string(action) + " applied"})
}

func (h *AdminHTTP) Roles(c echo.Context) error {
	roles, err := h.Svc.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles})
}

func (h *AdminHTTP) Permissions(c echo.Context) error {
	perms, err := h.Svc.ListPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": perms})
}
