package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/autojournal/gateway/internal/config"
	"github.com/Skotchmaster/autojournal/gateway/internal/httpserver"
	"github.com/Skotchmaster/autojournal/gateway/internal/middleware"
	"github.com/Skotchmaster/autojournal/pkg/authclient"
	"github.com/Skotchmaster/autojournal/pkg/logging"
	authmw "github.com/Skotchmaster/autojournal/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", "gateway")

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	for _, m := range middleware.Common(logger) {
		e.Use(m)
	}

	auth := authclient.NewClient(cfg.AuthURL)
	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:   cfg.AuthURL,
		Upstreams: cfg.Upstreams,
		Auth:      authmw.NewRemoteAuth(auth),
		Ready:     auth.Ping,
	}); err != nil {
		log.Fatal(err)
	}

	go func() {
		logger.Info("http_listen", "addr", cfg.ListenAddr, "upstreams", len(cfg.Upstreams))
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
