package loggingmw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(buf *bytes.Buffer) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(logging.NewWithWriter(buf, "debug")))

	e.GET("/ok", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("inside")
		return c.String(http.StatusOK, "fine")
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	e.GET("/denied", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "token has expired")
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	})
	return e
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func TestRequestLogger_Success(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := newServer(&buf)

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got := lines(t, &buf)
	require.Len(t, got, 2)

	rid := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, rid)
	assert.Equal(t, "inside", got[0]["msg"])
	assert.Equal(t, rid, got[0]["request_id"])
	assert.Equal(t, "request_completed", got[1]["msg"])
	assert.Equal(t, "INFO", got[1]["level"])
	assert.EqualValues(t, http.StatusOK, got[1]["status"])
	assert.Equal(t, "/ok", got[1]["path"])
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path  string
		code  int
		level string
	}{
		{path: "/missing", code: http.StatusNotFound, level: "WARN"},
		{path: "/denied", code: http.StatusUnauthorized, level: "WARN"},
		{path: "/boom", code: http.StatusInternalServerError, level: "ERROR"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			e := newServer(&buf)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(echo.HeaderXRequestID, "rid-1")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			got := lines(t, &buf)
			require.Len(t, got, 1)
			assert.Equal(t, tt.level, got[0]["level"])
			assert.EqualValues(t, tt.code, got[0]["status"])
			assert.Equal(t, "rid-1", got[0]["request_id"])
		})
	}
}

func TestRequestLogger_WarnOnClientStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(logging.NewWithWriter(&buf, "info")))
	e.GET("/bad", func(c echo.Context) error {
		return c.NoContent(http.StatusBadRequest)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "WARN", got[0]["level"])
	_, hasRID := got[0]["request_id"]
	assert.False(t, hasRID)
}
