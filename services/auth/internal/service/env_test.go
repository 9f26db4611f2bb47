package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/autojournal/pkg/tokens"
	"github.com/Skotchmaster/autojournal/services/auth/internal/audit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
	"github.com/Skotchmaster/autojournal/services/auth/internal/service"
	"github.com/Skotchmaster/autojournal/services/auth/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 30 * 24 * time.Hour
	password   = "Secret123"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recorder) Emit(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type env struct {
	gdb   *gorm.DB
	repo  *repo.GormRepo
	codec *tokens.Codec
	clock *clock
	audit *recorder
	svc   *service.AuthService
}

type envOption func(*service.Rotator)

func withFamilyRevoke() envOption {
	return func(r *service.Rotator) { r.RevokeFamilyOnReuse = true }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	gdb := testutil.NewDB(t)
	rp := repo.NewGormRepo(gdb, 5*time.Second)

	clk := &clock{t: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	codec, err := tokens.NewCodec([]byte("test-jwt-secret"), "HS256")
	require.NoError(t, err)
	codec = codec.WithClock(clk.Now)

	rec := &recorder{}
	issuer := &service.Issuer{Repo: rp, Codec: codec, AccessTTL: accessTTL, RefreshTTL: refreshTTL}
	rotator := &service.Rotator{Issuer: issuer, Audit: rec}
	for _, opt := range opts {
		opt(rotator)
	}

	return &env{
		gdb:   gdb,
		repo:  rp,
		codec: codec,
		clock: clk,
		audit: rec,
		svc: &service.AuthService{
			Repo:     rp,
			Hasher:   testutil.Hasher,
			Issuer:   issuer,
			Rotator:  rotator,
			Resolver: &service.Resolver{Repo: rp, Codec: codec},
			Audit:    rec,
		},
	}
}

func (e *env) seedUser(t *testing.T, email string, opts ...testutil.UserOption) *models.User {
	t.Helper()
	role := testutil.SeedRole(t, e.gdb, "role-"+email, "car.read", "car.create")
	return testutil.SeedUser(t, e.gdb, email, password, role, opts...)
}

func (e *env) login(t *testing.T, email string) *service.LoginResult {
	t.Helper()
	res, err := e.svc.Login(context.Background(), email, password)
	require.NoError(t, err)
	return res
}

func (e *env) row(t *testing.T, refreshToken string) *models.RefreshToken {
	t.Helper()
	row, err := e.repo.FindRefreshByToken(context.Background(), refreshToken)
	require.NoError(t, err)
	return row
}

func (e *env) liveCount(t *testing.T, userID uint) int64 {
	t.Helper()
	n, err := e.repo.CountLiveForUser(context.Background(), userID, e.clock.Now())
	require.NoError(t, err)
	return n
}
