package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Skotchmaster/autojournal/gateway/internal/httpserver"
	"github.com/Skotchmaster/autojournal/pkg/authclient"
	authmw "github.com/Skotchmaster/autojournal/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	Path   string `json:"path"`
	UserID string `json:"user_id"`
	Roles  string `json:"roles"`
}

// echoBackend answers with the path and identity headers it received.
func echoBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(seen{
			Path:   r.URL.Path,
			UserID: r.Header.Get("X-User-ID"),
			Roles:  r.Header.Get("X-User-Roles"),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type checker map[string]*authclient.Identity

func (c checker) CheckAccess(_ context.Context, token string) (*authclient.Identity, error) {
	if ident, ok := c[token]; ok {
		return ident, nil
	}
	return nil, &authclient.APIError{Status: http.StatusUnauthorized, Code: "token_invalid", Detail: "token is invalid"}
}

func newGateway(t *testing.T, ready error) *echo.Echo {
	t.Helper()

	auth := echoBackend(t)
	cars := echoBackend(t)

	e := echo.New()
	err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:   auth.URL,
		Upstreams: map[string]string{"cars": cars.URL},
		Auth: authmw.NewRemoteAuth(checker{
			"good": {UserID: 9, Roles: []string{"mechanic", "owner"}},
		}),
		Ready: func(context.Context) error { return ready },
	})
	require.NoError(t, err)
	return e
}

func call(e *echo.Echo, method, path, token string, extra http.Header) (*httptest.ResponseRecorder, seen) {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range extra {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var s seen
	_ = json.Unmarshal(rec.Body.Bytes(), &s)
	return rec, s
}

func TestGateway_AuthRoutesAreOpen(t *testing.T) {
	t.Parallel()
	e := newGateway(t, nil)

	rec, s := call(e, http.MethodPost, "/api/v1/auth/login", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/auth/login", s.Path)

	rec, s = call(e, http.MethodGet, "/api/v1/roles", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/roles", s.Path)
}

func TestGateway_UpstreamNeedsAccess(t *testing.T) {
	t.Parallel()
	e := newGateway(t, nil)

	rec, _ := call(e, http.MethodGet, "/api/v1/cars/17", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = call(e, http.MethodGet, "/api/v1/cars/17", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, s := call(e, http.MethodGet, "/api/v1/cars/17", "good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/cars/17", s.Path)
	assert.Equal(t, "9", s.UserID)
	assert.Equal(t, "mechanic,owner", s.Roles)
}

func TestGateway_ClientIdentityHeadersDropped(t *testing.T) {
	t.Parallel()
	e := newGateway(t, nil)

	spoof := http.Header{"X-User-Id": {"1"}, "X-User-Roles": {"superuser"}}
	rec, s := call(e, http.MethodPost, "/api/v1/auth/refresh", "", spoof)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.UserID)
	assert.Empty(t, s.Roles)
}

func TestGateway_Health(t *testing.T) {
	t.Parallel()

	rec, _ := call(newGateway(t, nil), http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(newGateway(t, errors.New("down")), http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = call(newGateway(t, nil), http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateway_BadUpstream(t *testing.T) {
	t.Parallel()

	e := echo.New()
	err := httpserver.Register(e, &httpserver.Deps{
		AuthURL: "not a url",
		Auth:    authmw.NewRemoteAuth(checker{}),
		Ready:   func(context.Context) error { return nil },
	})
	assert.Error(t, err)
}
