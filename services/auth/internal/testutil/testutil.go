// Package testutil builds in-memory auth databases for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Skotchmaster/autojournal/pkg/db"
	"github.com/Skotchmaster/autojournal/pkg/hash"
	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var Hasher = hash.Bcrypt{Cost: bcrypt.MinCost}

func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func SeedRole(t testing.TB, gdb *gorm.DB, name string, codes ...string) *models.Role {
	t.Helper()

	role := models.Role{Name: name}
	for _, code := range codes {
		var p models.Permission
		require.NoError(t, gdb.Where(models.Permission{Code: code}).FirstOrCreate(&p).Error)
		role.Permissions = append(role.Permissions, p)
	}
	require.NoError(t, gdb.Create(&role).Error)
	return &role
}

type UserOption func(u *models.User)

func Blocked() UserOption  { return func(u *models.User) { u.IsBlocked = true; u.IsActive = false } }
func Deleted() UserOption  { return func(u *models.User) { u.IsDeleted = true } }
func Inactive() UserOption { return func(u *models.User) { u.IsActive = false } }

func SeedUser(t testing.TB, gdb *gorm.DB, email, password string, role *models.Role, opts ...UserOption) *models.User {
	t.Helper()

	pw, err := Hasher.Hash(password)
	require.NoError(t, err)

	u := models.User{
		Name:         email,
		Email:        email,
		PasswordHash: pw,
		IsActive:     true,
	}
	if role != nil {
		u.RoleID = &role.ID
	}
	for _, opt := range opts {
		opt(&u)
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}
