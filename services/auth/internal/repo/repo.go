package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/autojournal/pkg/db"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// GormRepo is the relational store of the auth service. A repo returned to a
// Transaction callback is bound to that transaction and carries no timeout of its own.
type GormRepo struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func NewGormRepo(gdb *gorm.DB, timeout time.Duration) *GormRepo {
	return &GormRepo{DB: gdb, Timeout: timeout}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Role{},
		&models.Permission{},
		&models.User{},
		&models.RefreshToken{},
	)
}

func (r *GormRepo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.Timeout)
}

func (r *GormRepo) Transaction(ctx context.Context, fn func(ctx context.Context, tx *GormRepo) error) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	err := db.WithTx(ctx, r.DB, func(tx *gorm.DB) error {
		return fn(ctx, &GormRepo{DB: tx})
	})
	return storeErr("transaction", err)
}

func (r *GormRepo) Ping(ctx context.Context) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return storeErr("ping", db.Ping(ctx, r.DB))
}

// storeErr leaves ErrNotFound, ErrConflict and domain errors alone and sorts
// everything else into StoreUnavailable or Internal.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if db.IsUnavailable(err) {
		return domain.New(domain.KindStoreUnavailable, domain.ErrStoreUnavailable.Msg, fmt.Errorf("%s: %w", op, err))
	}
	return domain.New(domain.KindInternal, domain.ErrInternal.Msg, fmt.Errorf("%s: %w", op, err))
}
