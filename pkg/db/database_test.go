package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := Open(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&widget{}))
	t.Cleanup(func() { _ = Close(gdb) })
	return gdb
}

func countWidgets(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()

	var n int64
	require.NoError(t, gdb.Model(&widget{}).Count(&n).Error)
	return n
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestWithTx_Commit(t *testing.T) {
	gdb := openTestDB(t)

	err := WithTx(context.Background(), gdb, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "a"}).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countWidgets(t, gdb))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	gdb := openTestDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), gdb, func(tx *gorm.DB) error {
		if err := tx.Create(&widget{Name: "a"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, countWidgets(t, gdb))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	gdb := openTestDB(t)

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), gdb, func(tx *gorm.DB) error {
			tx.Create(&widget{Name: "a"})
			panic("crash between writes")
		})
	})
	assert.Zero(t, countWidgets(t, gdb))
}

func TestPing(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, Ping(context.Background(), gdb))
}

func TestIsUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: true},
		{name: "bad conn", err: driver.ErrBadConn, want: true},
		{name: "not found", err: gorm.ErrRecordNotFound, want: false},
		{name: "plain", err: errors.New("syntax error"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsUnavailable(tt.err))
		})
	}
}
