package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/pkg/tokens"
	"github.com/Skotchmaster/autojournal/services/auth/internal/audit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
)

var (
	errUnknownJTI = errors.New("no refresh row for jti and subject")
	errReused     = errors.New("refresh token was already revoked")
	errLostRace   = errors.New("refresh token was revoked concurrently")
	errRowExpired = errors.New("refresh row expired")
	errNoSubject  = errors.New("refresh row references a missing user")
)

type AccessGrant struct {
	AccessToken string
	AccessTTL   time.Duration
}

// Rotator exchanges a refresh token for a new pair. The presented token is
// consumed: a second presentation fails with TokenRevoked.
type Rotator struct {
	Issuer              *Issuer
	RevokeFamilyOnReuse bool
	Audit               audit.Emitter
}

func (r *Rotator) Rotate(ctx context.Context, refreshToken string) (*Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.rotate")

	claims, err := r.Issuer.Codec.DecodeRefresh(refreshToken)
	if err != nil {
		err = tokenErr(err)
		l.Warn("rotate_rejected", "kind", domain.KindOf(err), "reason", "decode", "error", err)
		return nil, err
	}
	userID, jti := claims.UserID(), claims.ID
	l = l.With("user_id", userID, "jti", jti)
	now := r.Issuer.Codec.Now()

	var (
		pair *Pair
		row  *models.RefreshToken
	)
	err = r.Issuer.Repo.Transaction(ctx, func(ctx context.Context, tx *repo.GormRepo) error {
		var err error
		row, err = liveRow(ctx, tx, jti, userID, now)
		if err != nil {
			return err
		}

		won, err := tx.RevokeIfLive(ctx, jti, now)
		if err != nil {
			return err
		}
		if !won {
			return domain.New(domain.KindTokenRevoked, domain.ErrTokenRevoked.Msg, errLostRace)
		}

		pair, err = r.Issuer.mint(ctx, tx, userID, row.FamilyID, row.JTI)
		return err
	})
	if err != nil {
		r.reject(ctx, l, userID, jti, row, err, now)
		return nil, err
	}

	l.Info("refresh_rotated", "new_jti", pair.JTI)
	r.emit(ctx, audit.Event{Type: audit.EventRefreshRotated, UserID: userID, JTI: pair.JTI})
	return pair, nil
}

// RotateAccess validates the refresh token the same way Rotate does and
// returns a fresh access token. The refresh row is left untouched.
func (r *Rotator) RotateAccess(ctx context.Context, refreshToken string) (*AccessGrant, error) {
	l := logging.FromContext(ctx).With("svc", "auth.rotate_access")

	claims, err := r.Issuer.Codec.DecodeRefresh(refreshToken)
	if err != nil {
		err = tokenErr(err)
		l.Warn("rotate_access_rejected", "kind", domain.KindOf(err), "reason", "decode", "error", err)
		return nil, err
	}
	userID, jti := claims.UserID(), claims.ID
	l = l.With("user_id", userID, "jti", jti)
	now := r.Issuer.Codec.Now()

	row, err := liveRow(ctx, r.Issuer.Repo, jti, userID, now)
	if err != nil {
		r.reject(ctx, l, userID, jti, row, err, now)
		return nil, err
	}

	user, err := r.Issuer.Repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			err = domain.New(domain.KindInternal, domain.ErrInternal.Msg, errNoSubject)
		}
		l.Error("rotate_access_failed", "kind", domain.KindOf(err), "error", err)
		return nil, err
	}
	if !user.CanAuthenticate() {
		l.Warn("rotate_access_rejected", "kind", domain.KindSubjectInactive, "reason", "inactive")
		return nil, domain.ErrSubjectInactive
	}

	access, err := r.Issuer.Codec.Encode(userID, tokens.KindAccess, r.Issuer.AccessTTL)
	if err != nil {
		l.Error("rotate_access_failed", "kind", domain.KindInternal, "error", err)
		return nil, domain.New(domain.KindInternal, domain.ErrInternal.Msg, err)
	}

	l.Info("access_renewed")
	r.emit(ctx, audit.Event{Type: audit.EventAccessRenewed, UserID: userID, JTI: jti})
	return &AccessGrant{AccessToken: access.Token, AccessTTL: r.Issuer.AccessTTL}, nil
}

// liveRow loads the row for (jti, userID) and rejects it unless it is live.
// The row is returned alongside revoked and expired errors.
func liveRow(ctx context.Context, rp *repo.GormRepo, jti string, userID uint, now time.Time) (*models.RefreshToken, error) {
	row, err := rp.FindRefreshByJTI(ctx, jti, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, domain.New(domain.KindTokenInvalid, domain.ErrTokenInvalid.Msg, errUnknownJTI)
		}
		return nil, err
	}
	if row.Revoked {
		return row, domain.New(domain.KindTokenRevoked, domain.ErrTokenRevoked.Msg, errReused)
	}
	if row.Expired(now) {
		return row, domain.New(domain.KindTokenExpired, domain.ErrTokenExpired.Msg, errRowExpired)
	}
	return row, nil
}

func (r *Rotator) reject(ctx context.Context, l *slog.Logger, userID uint, jti string, row *models.RefreshToken, err error, now time.Time) {
	kind := domain.KindOf(err)
	switch {
	case errors.Is(err, errReused):
		l.Warn("refresh_reuse_detected", "kind", kind, "family_id", row.FamilyID)
		r.emit(ctx, audit.Event{Type: audit.EventReuseDetected, UserID: userID, JTI: jti})
		if r.RevokeFamilyOnReuse {
			r.revokeFamily(ctx, l, row.FamilyID, now)
		}
	case errors.Is(err, errLostRace):
		l.Warn("rotate_rejected", "kind", kind, "reason", "lost_race")
	case errors.Is(err, errRowExpired):
		l.Warn("rotate_rejected", "kind", kind, "reason", "expired_unrevoked")
	case kind == domain.KindStoreUnavailable || kind == domain.KindInternal || kind == domain.KindUnknown:
		l.Error("rotate_failed", "kind", kind, "error", err)
	default:
		l.Warn("rotate_rejected", "kind", kind, "error", err)
	}
}

func (r *Rotator) revokeFamily(ctx context.Context, l *slog.Logger, familyID string, now time.Time) {
	n, err := r.Issuer.Repo.RevokeLiveFamily(ctx, familyID, now)
	if err != nil {
		l.Error("family_revoke_failed", "family_id", familyID, "error", err)
		return
	}
	l.Warn("family_revoked", "family_id", familyID, "revoked_sessions", n)
}

func (r *Rotator) emit(ctx context.Context, e audit.Event) {
	if r.Audit != nil {
		r.Audit.Emit(ctx, e)
	}
}
