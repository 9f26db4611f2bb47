package httpserver

import (
	"context"
	"net/http"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/transport"
	"github.com/labstack/echo/v4"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHTTP struct {
	Service string
	Version string
	Store   Pinger
}

func (h *SystemHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Ready fails with 503 whenever the store does not answer a ping.
func (h *SystemHTTP) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.Store.Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("not_ready", "error", err)
		return domain.New(domain.KindStoreUnavailable, domain.ErrStoreUnavailable.Msg, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *SystemHTTP) VersionInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, transport.VersionResponse{Service: h.Service, Version: h.Version})
}
