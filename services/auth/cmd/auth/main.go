package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/autojournal/pkg/config"
	"github.com/Skotchmaster/autojournal/pkg/db"
	"github.com/Skotchmaster/autojournal/pkg/es"
	"github.com/Skotchmaster/autojournal/pkg/hash"
	"github.com/Skotchmaster/autojournal/pkg/logging"
	loggingmw "github.com/Skotchmaster/autojournal/pkg/middleware/logging"
	"github.com/Skotchmaster/autojournal/pkg/mykafka"
	"github.com/Skotchmaster/autojournal/pkg/tokens"
	"github.com/Skotchmaster/autojournal/services/auth/internal/audit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/httpserver"
	"github.com/Skotchmaster/autojournal/services/auth/internal/jobs"
	"github.com/Skotchmaster/autojournal/services/auth/internal/middleware"
	"github.com/Skotchmaster/autojournal/services/auth/internal/ratelimit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
	"github.com/Skotchmaster/autojournal/services/auth/internal/service"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "version", cfg.ServiceVersion)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := repo.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	store := repo.NewGormRepo(gdb, cfg.StoreTimeout)

	codec, err := tokens.NewCodec(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	producer, sink := auditSinks(cfg, logger)
	var emitter audit.Emitter = audit.Nop{}
	var dispatcher *audit.Dispatcher
	if sink != nil {
		dispatcher = audit.NewDispatcher(sink, cfg.AuditBuffer, logger.With("component", "audit"))
		emitter = dispatcher
	}

	issuer := &service.Issuer{
		Repo:       store,
		Codec:      codec,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	resolver := &service.Resolver{Repo: store, Codec: codec}
	svc := &service.AuthService{
		Repo:     store,
		Hasher:   hash.Bcrypt{},
		Issuer:   issuer,
		Rotator:  &service.Rotator{Issuer: issuer, RevokeFamilyOnReuse: cfg.RevokeFamilyOnReuse, Audit: emitter},
		Resolver: resolver,
		Audit:    emitter,
	}

	authHTTP := &httpserver.AuthHTTP{Svc: svc}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		authHTTP.Limiter = ratelimit.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginLockout)
		logger.Info("login_limiter_enabled", "max_attempts", cfg.LoginMaxAttempts, "window", cfg.LoginLockout.String())
	}

	scheduler := jobs.NewScheduler(logger.With("component", "jobs"))
	report := &jobs.SessionReport{Source: store, Now: time.Now, Log: logger.With("job", "session_report")}
	if err := scheduler.Add("session_report", cfg.SessionReportSchedule, report); err != nil {
		log.Fatalf("schedule session report: %v", err)
	}
	scheduler.Start()

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Auth:   authHTTP,
		Admin:  &httpserver.AdminHTTP{Svc: svc},
		System: &httpserver.SystemHTTP{Service: cfg.ServiceName, Version: cfg.ServiceVersion, Store: store},
		Bearer: middleware.NewBearerAuth(resolver),
	})

	go func() {
		logger.Info("http_listen", "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown", "error", err)
	}
	scheduler.Stop(shutdownCtx)
	dispatcher.Close()
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close", "error", err)
	}
	logger.Info("stopped")
}

// auditSinks connects whichever audit backends are configured. A backend that
// fails to start is logged and skipped.
func auditSinks(cfg config.Config, logger *slog.Logger) (*mykafka.Producer, audit.Sink) {
	var sinks audit.MultiSink
	var producer *mykafka.Producer

	if len(cfg.KafkaBrokers) > 0 {
		p, err := mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAuthTopic)
		if err != nil {
			logger.Error("kafka_init_failed", "error", err)
		} else {
			producer = p
			sinks = append(sinks, audit.KafkaSink{Producer: p})
		}
	}

	if cfg.ESURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		cancel()
		if err != nil {
			logger.Error("es_init_failed", "error", err)
		} else {
			sinks = append(sinks, audit.ElasticSink{Client: client, Index: cfg.ESAuditIndex})
		}
	}

	if len(sinks) == 0 {
		return producer, nil
	}
	return producer, sinks
}
