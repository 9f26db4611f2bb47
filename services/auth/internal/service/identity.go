package service

import (
	"context"
	"errors"
	"slices"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/pkg/tokens"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
)

type Identity struct {
	UserID      uint     `json:"user_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func (i Identity) HasRole(name string) bool {
	return slices.Contains(i.Roles, name)
}

func (i Identity) HasPermission(code string) bool {
	return slices.Contains(i.Permissions, code)
}

// Resolver turns an access token into the caller's identity. It never reads
// refresh rows, so a logged-out user keeps access until the token expires.
type Resolver struct {
	Repo  *repo.GormRepo
	Codec *tokens.Codec
}

func (r *Resolver) Resolve(ctx context.Context, accessToken string) (*Identity, error) {
	l := logging.FromContext(ctx).With("svc", "auth.resolve")

	claims, err := r.Codec.DecodeAccess(accessToken)
	if err != nil {
		err = tokenErr(err)
		l.Debug("resolve_rejected", "kind", domain.KindOf(err), "error", err)
		return nil, err
	}

	return r.load(ctx, claims.UserID())
}

func (r *Resolver) load(ctx context.Context, userID uint) (*Identity, error) {
	l := logging.FromContext(ctx).With("svc", "auth.resolve", "user_id", userID)

	rec, err := r.Repo.LoadIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("resolve_rejected", "kind", domain.KindUnauthorized, "reason", "unknown_user")
			return nil, domain.ErrUnauthorized
		}
		l.Error("resolve_failed", "kind", domain.KindOf(err), "error", err)
		return nil, err
	}
	if !rec.CanAuthenticate() {
		l.Warn("resolve_rejected", "kind", domain.KindSubjectInactive, "reason", "inactive")
		return nil, domain.ErrSubjectInactive
	}

	return &Identity{UserID: rec.UserID, Roles: rec.Roles, Permissions: rec.Permissions}, nil
}
