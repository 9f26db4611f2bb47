package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
)

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type SessionStats struct {
	Live             int64
	ExpiredUnrevoked int64
	Revoked          int64
}

func (r *GormRepo) InsertRefresh(ctx context.Context, token *models.RefreshToken) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return storeErr("insert refresh", r.DB.WithContext(ctx).Create(token).Error)
}

func (r *GormRepo) FindRefreshByJTI(ctx context.Context, jti string, userID uint) (*models.RefreshToken, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var token models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("jti = ? AND user_id = ?", jti, userID).
		First(&token).Error
	if err != nil {
		return nil, storeErr("find refresh by jti", err)
	}
	return &token, nil
}

func (r *GormRepo) FindRefreshByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var row models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("token = ?", HashToken(token)).
		First(&row).Error
	if err != nil {
		return nil, storeErr("find refresh by token", err)
	}
	return &row, nil
}

// RevokeIfLive flips revoked only when the row is still unrevoked. The
// returned bool is the affected-row signal: false means another caller won.
func (r *GormRepo) RevokeIfLive(ctx context.Context, jti string, now time.Time) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Updates(map[string]any{"revoked": true, "revoked_at": now})
	if res.Error != nil {
		return false, storeErr("revoke refresh", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) RevokeByJTI(ctx context.Context, jti string, now time.Time) error {
	_, err := r.RevokeIfLive(ctx, jti, now)
	return err
}

func (r *GormRepo) RevokeAllLiveForUser(ctx context.Context, userID uint, now time.Time) (int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now.Unix()).
		Updates(map[string]any{"revoked": true, "revoked_at": now})
	if res.Error != nil {
		return 0, storeErr("revoke user sessions", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormRepo) RevokeLiveFamily(ctx context.Context, familyID string, now time.Time) (int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("family_id = ? AND revoked = ? AND expires_at > ?", familyID, false, now.Unix()).
		Updates(map[string]any{"revoked": true, "revoked_at": now})
	if res.Error != nil {
		return 0, storeErr("revoke family", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormRepo) CountLiveForUser(ctx context.Context, userID uint, now time.Time) (int64, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now.Unix()).
		Count(&n).Error
	return n, storeErr("count user sessions", err)
}

func (r *GormRepo) SessionStats(ctx context.Context, now time.Time) (SessionStats, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	count := func(dst *int64, query string, args ...any) error {
		return r.DB.WithContext(ctx).
			Model(&models.RefreshToken{}).
			Where(query, args...).
			Count(dst).Error
	}

	var stats SessionStats
	if err := count(&stats.Live, "revoked = ? AND expires_at > ?", false, now.Unix()); err != nil {
		return SessionStats{}, storeErr("count live", err)
	}
	if err := count(&stats.ExpiredUnrevoked, "revoked = ? AND expires_at <= ?", false, now.Unix()); err != nil {
		return SessionStats{}, storeErr("count expired", err)
	}
	if err := count(&stats.Revoked, "revoked = ?", true); err != nil {
		return SessionStats{}, storeErr("count revoked", err)
	}
	return stats, nil
}
