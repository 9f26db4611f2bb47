package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/pkg/tokens"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
)

type Pair struct {
	AccessToken  string
	RefreshToken string
	JTI          string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Issuer mints access/refresh pairs and persists the refresh row.
type Issuer struct {
	Repo       *repo.GormRepo
	Codec      *tokens.Codec
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue starts a new session for userID. The user row is locked first, so
// concurrent logins and status changes for one user run one after another;
// every other live session of the user is revoked in the same transaction.
func (i *Issuer) Issue(ctx context.Context, userID uint) (*Pair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.issue", "user_id", userID)
	now := i.Codec.Now()

	var (
		pair    *Pair
		revoked int64
	)
	err := i.Repo.Transaction(ctx, func(ctx context.Context, tx *repo.GormRepo) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.ErrUnauthorized
			}
			return err
		}
		if !user.CanAuthenticate() {
			return domain.ErrSubjectInactive
		}

		n, err := tx.RevokeAllLiveForUser(ctx, userID, now)
		if err != nil {
			return err
		}
		revoked = n

		pair, err = i.mint(ctx, tx, userID, "", "")
		return err
	})
	if err != nil {
		switch kind := domain.KindOf(err); kind {
		case domain.KindSubjectInactive, domain.KindUnauthorized:
			l.Warn("issue_rejected", "kind", kind)
		default:
			l.Error("issue_failed", "kind", kind, "error", err)
		}
		return nil, err
	}

	l.Info("session_issued", "jti", pair.JTI, "revoked_sessions", revoked)
	return pair, nil
}

// mint encodes a pair and inserts the refresh row through tx. An empty
// familyID starts a new chain rooted at the new jti.
func (i *Issuer) mint(ctx context.Context, tx *repo.GormRepo, userID uint, familyID, parentJTI string) (*Pair, error) {
	access, err := i.Codec.Encode(userID, tokens.KindAccess, i.AccessTTL)
	if err != nil {
		return nil, domain.New(domain.KindInternal, domain.ErrInternal.Msg, fmt.Errorf("encode access: %w", err))
	}
	refresh, err := i.Codec.Encode(userID, tokens.KindRefresh, i.RefreshTTL)
	if err != nil {
		return nil, domain.New(domain.KindInternal, domain.ErrInternal.Msg, fmt.Errorf("encode refresh: %w", err))
	}

	if familyID == "" {
		familyID = refresh.JTI
	}
	row := &models.RefreshToken{
		UserID:    userID,
		TokenHash: repo.HashToken(refresh.Token),
		JTI:       refresh.JTI,
		FamilyID:  familyID,
		ParentJTI: parentJTI,
		ExpiresAt: refresh.ExpiresAt.Unix(),
	}
	if err := tx.InsertRefresh(ctx, row); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, domain.New(domain.KindInternal, domain.ErrInternal.Msg, fmt.Errorf("jti collision: %w", err))
		}
		return nil, err
	}

	return &Pair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		JTI:          refresh.JTI,
		AccessTTL:    i.AccessTTL,
		RefreshTTL:   i.RefreshTTL,
	}, nil
}

// tokenErr sorts codec failures into the two client-facing kinds.
func tokenErr(err error) error {
	if errors.Is(err, tokens.ErrExpired) {
		return domain.New(domain.KindTokenExpired, domain.ErrTokenExpired.Msg, err)
	}
	return domain.New(domain.KindTokenInvalid, domain.ErrTokenInvalid.Msg, err)
}
