package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/autojournal/pkg/hash"
	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/services/auth/internal/audit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
)

var (
	errBadCredentials = domain.New(domain.KindUnauthorized, "invalid email or password", nil)
	errUnknownToken   = domain.New(domain.KindUnauthorized, "invalid refresh token", nil)
	errAlreadyRevoked = domain.New(domain.KindUnauthorized, "refresh token already invalidated", nil)
	errLogoutExpired  = domain.New(domain.KindUnauthorized, "refresh token expired", nil)
)

// AuthService is the login/logout entry point; rotation and resolution are
// delegated to Rotator and Resolver.
type AuthService struct {
	Repo     *repo.GormRepo
	Hasher   hash.Hasher
	Issuer   *Issuer
	Rotator  *Rotator
	Resolver *Resolver
	Audit    audit.Emitter
}

type LoginResult struct {
	Pair
	User Identity
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "kind", domain.KindUnauthorized, "reason", "unknown_email")
			s.emit(ctx, audit.Event{Type: audit.EventLoginFailed, Reason: "unknown_email"})
			return nil, errBadCredentials
		}
		l.Error("login_failed", "kind", domain.KindOf(err), "error", err)
		return nil, err
	}
	l = l.With("user_id", user.ID)

	if !s.Hasher.Check(user.PasswordHash, password) {
		l.Warn("login_failed", "kind", domain.KindUnauthorized, "reason", "bad_password")
		s.emit(ctx, audit.Event{Type: audit.EventLoginFailed, UserID: user.ID, Reason: "bad_password"})
		return nil, errBadCredentials
	}
	if !user.CanAuthenticate() {
		l.Warn("login_failed", "kind", domain.KindSubjectInactive, "reason", "inactive",
			"is_active", user.IsActive, "is_blocked", user.IsBlocked, "is_deleted", user.IsDeleted)
		s.emit(ctx, audit.Event{Type: audit.EventLoginFailed, UserID: user.ID, Reason: "inactive"})
		return nil, domain.ErrSubjectInactive
	}

	ident, err := s.Resolver.load(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	pair, err := s.Issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.Repo.TouchLastActivity(ctx, user.ID, s.Issuer.Codec.Now()); err != nil {
		l.Warn("last_activity_not_updated", "error", err)
	}

	l.Info("login_successful", "jti", pair.JTI)
	s.emit(ctx, audit.Event{Type: audit.EventLoginSucceeded, UserID: user.ID, JTI: pair.JTI})
	return &LoginResult{Pair: *pair, User: *ident}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	return s.Rotator.Rotate(ctx, refreshToken)
}

func (s *AuthService) RefreshAccess(ctx context.Context, refreshToken string) (*AccessGrant, error) {
	return s.Rotator.RotateAccess(ctx, refreshToken)
}

func (s *AuthService) CheckAccess(ctx context.Context, accessToken string) (*Identity, error) {
	return s.Resolver.Resolve(ctx, accessToken)
}

// Logout revokes the session behind refreshToken. The token is looked up by
// its stored digest, so only a token this service issued can match.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	now := s.Issuer.Codec.Now()

	row, err := s.Repo.FindRefreshByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("logout_failed", "kind", domain.KindUnauthorized, "reason", "unknown_token")
			return errUnknownToken
		}
		l.Error("logout_failed", "kind", domain.KindOf(err), "error", err)
		return err
	}
	l = l.With("user_id", row.UserID, "jti", row.JTI)

	switch {
	case row.Revoked:
		l.Warn("logout_failed", "kind", domain.KindUnauthorized, "reason", "already_revoked")
		return errAlreadyRevoked
	case row.Expired(now):
		l.Warn("logout_failed", "kind", domain.KindUnauthorized, "reason", "expired")
		return errLogoutExpired
	}

	won, err := s.Repo.RevokeIfLive(ctx, row.JTI, now)
	if err != nil {
		l.Error("logout_failed", "kind", domain.KindOf(err), "error", err)
		return err
	}
	if !won {
		l.Warn("logout_failed", "kind", domain.KindUnauthorized, "reason", "already_revoked")
		return errAlreadyRevoked
	}

	l.Info("successful_logout")
	s.emit(ctx, audit.Event{Type: audit.EventLogout, UserID: row.UserID, JTI: row.JTI})
	return nil
}

func (s *AuthService) emit(ctx context.Context, e audit.Event) {
	if s.Audit != nil {
		s.Audit.Emit(ctx, e)
	}
}
