package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAuth(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"token_invalid","detail":"token is invalid"}`))
			return
		}
		_, _ = w.Write([]byte(`{"user_id":7,"roles":["admin"],"permissions":["car.read"]}`))
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req["refresh_token"] != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"token_revoked","detail":"token has been revoked"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"a2","refresh_token":"r2","token_type":"Bearer","expires_in":900,"refresh_expires_in":2592000}`))
	})
	mux.HandleFunc("POST /auth/refresh/access", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"a3","token_type":"Bearer","expires_in":900}`))
	})

	mux.HandleFunc("GET /health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CheckAccess(t *testing.T) {
	t.Parallel()

	c := NewClient(fakeAuth(t).URL + "/")

	ident, err := c.CheckAccess(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, uint(7), ident.UserID)
	assert.Equal(t, []string{"admin"}, ident.Roles)

	_, err = c.CheckAccess(context.Background(), "bad")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token_invalid", apiErr.Code)
}

func TestClient_Refresh(t *testing.T) {
	t.Parallel()

	c := NewClient(fakeAuth(t).URL)

	pair, err := c.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r2", pair.RefreshToken)
	assert.EqualValues(t, 900, pair.ExpiresIn)

	_, err = c.Refresh(context.Background(), "r1-old")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "token_revoked", apiErr.Code)

	grant, err := c.RefreshAccess(context.Background(), "r2")
	require.NoError(t, err)
	assert.Equal(t, "a3", grant.AccessToken)
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	c := NewClient(fakeAuth(t).URL)

	err := c.Ping(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	require.NoError(t, NewClient(srv.URL).Ping(context.Background()))
}
