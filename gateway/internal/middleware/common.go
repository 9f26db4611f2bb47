package middleware

import (
	"log/slog"

	loggingmw "github.com/Skotchmaster/autojournal/pkg/middleware/logging"
	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
)

func Common(log *slog.Logger) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.RequestID(),
		loggingmw.RequestLogger(log),
		ecM.Secure(),
	}
}
