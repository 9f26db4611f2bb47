package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/autojournal/pkg/tokens"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"github.com/Skotchmaster/autojournal/services/auth/internal/service"
	"github.com/Skotchmaster/autojournal/services/auth/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ReturnsRolesAndPermissions(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	u := e.seedUser(t, "resolve@example.com")
	login := e.login(t, u.Email)

	ident, err := e.svc.CheckAccess(context.Background(), login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, ident.UserID)
	assert.True(t, ident.HasRole("role-resolve@example.com"))
	assert.True(t, ident.HasPermission("car.create"))
	assert.False(t, ident.HasPermission("car.delete"))
}

func TestResolve_IgnoresRefreshState(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	u := e.seedUser(t, "stateless@example.com")
	login := e.login(t, u.Email)

	require.NoError(t, e.svc.Logout(context.Background(), login.RefreshToken))

	_, err := e.svc.CheckAccess(context.Background(), login.AccessToken)
	assert.NoError(t, err, "access tokens stay valid until they expire")
}

func TestResolve_UserWithoutRole(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	u := testutil.SeedUser(t, e.gdb, "norole@example.com", password, nil)
	enc, err := e.codec.Encode(u.ID, tokens.KindAccess, time.Minute)
	require.NoError(t, err)

	ident, err := e.svc.CheckAccess(context.Background(), enc.Token)
	require.NoError(t, err)
	assert.Empty(t, ident.Roles)
	assert.Empty(t, ident.Permissions)
}

func TestResolve_Failures(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	u := e.seedUser(t, "fail@example.com")
	login := e.login(t, u.Email)

	blocked := e.seedUser(t, "blocked@example.com")
	blockedAccess, err := e.codec.Encode(blocked.ID, tokens.KindAccess, time.Minute)
	require.NoError(t, err)
	require.NoError(t, e.gdb.Model(&models.User{}).Where("id = ?", blocked.ID).Update("is_active", false).Error)

	ghost, err := e.codec.Encode(4242, tokens.KindAccess, time.Minute)
	require.NoError(t, err)

	short, err := e.codec.Encode(u.ID, tokens.KindAccess, time.Second)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "refresh token", token: login.RefreshToken, want: domain.ErrTokenInvalid},
		{name: "garbage", token: "abc.def.ghi", want: domain.ErrTokenInvalid},
		{name: "inactive subject", token: blockedAccess.Token, want: domain.ErrSubjectInactive},
		{name: "unknown subject", token: ghost.Token, want: domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.CheckAccess(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	e.clock.Advance(2 * time.Second)
	_, err = e.svc.CheckAccess(context.Background(), short.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestIdentity_Helpers(t *testing.T) {
	t.Parallel()

	ident := service.Identity{Roles: []string{"admin"}, Permissions: []string{"car.read"}}
	assert.True(t, ident.HasRole("admin"))
	assert.False(t, ident.HasRole("superuser"))
	assert.True(t, ident.HasPermission("car.read"))
}
