package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/autojournal/pkg/hash"
	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/services/auth/internal/audit"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"github.com/Skotchmaster/autojournal/services/auth/internal/repo"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrUserDeleted     = errors.New("user is deleted")
	ErrRoleNotFound    = errors.New("role not found")
	ErrPasswordTooLong = errors.New("password is longer than 72 bytes")
)

type StatusAction string

const (
	ActionBlock   StatusAction = "block"
	ActionUnblock StatusAction = "unblock"
	ActionDelete  StatusAction = "delete"
)

type NewUser struct {
	Name     string
	Email    string
	Nickname *string
	Password string
	Role     string
}

func (s *AuthService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.create_user")

	role, err := s.Repo.FindRoleByName(ctx, in.Role)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("create_user_failed", "reason", "unknown_role", "role", in.Role)
			return nil, ErrRoleNotFound
		}
		l.Error("create_user_failed", "kind", domain.KindOf(err), "error", err)
		return nil, err
	}

	pw, err := s.Hasher.Hash(in.Password)
	if errors.Is(err, hash.ErrPasswordTooLong) {
		l.Warn("create_user_failed", "reason", "password_too_long")
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		l.Error("create_user_failed", "reason", "cannot hash the password", "error", err)
		return nil, domain.New(domain.KindInternal, domain.ErrInternal.Msg, fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Nickname:     in.Nickname,
		PasswordHash: pw,
		IsActive:     true,
		RoleID:       &role.ID,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			l.Warn("create_user_failed", "reason", "user already exist")
			return nil, ErrUserExists
		}
		l.Error("create_user_failed", "kind", domain.KindOf(err), "error", err)
		return nil, err
	}

	l.Info("user_created", "user_id", user.ID, "role", role.Name)
	return user, nil
}

// ChangeStatus applies action to the user with the given email and revokes
// every live session of that user in the same transaction.
func (s *AuthService) ChangeStatus(ctx context.Context, email string, action StatusAction) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_status", "action", action)

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("change_status_failed", "reason", "unknown_user")
			return ErrUserNotFound
		}
		l.Error("change_status_failed", "kind", domain.KindOf(err), "error", err)
		return err
	}
	l = l.With("user_id", user.ID)

	switch action {
	case ActionBlock, ActionUnblock, ActionDelete:
	default:
		return fmt.Errorf("unknown status action %q", action)
	}

	now := s.Issuer.Codec.Now()
	var revoked int64
	// The flags are read under the row lock so a concurrent delete cannot be
	// overwritten by a block or unblock computed from a stale row.
	err = s.Repo.Transaction(ctx, func(ctx context.Context, tx *repo.GormRepo) error {
		cur, err := tx.LockUser(ctx, user.ID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if cur.IsDeleted {
			return ErrUserDeleted
		}

		active, blocked, deleted := cur.IsActive, cur.IsBlocked, cur.IsDeleted
		switch action {
		case ActionBlock:
			active, blocked = false, true
		case ActionUnblock:
			active, blocked = true, false
		case ActionDelete:
			deleted = true
		}

		if err := tx.UpdateUserStatus(ctx, user.ID, active, blocked, deleted); err != nil {
			return err
		}
		n, err := tx.RevokeAllLiveForUser(ctx, user.ID, now)
		revoked = n
		return err
	})
	switch {
	case errors.Is(err, ErrUserDeleted):
		l.Warn("change_status_failed", "reason", "deleted")
		return ErrUserDeleted
	case errors.Is(err, ErrUserNotFound):
		l.Warn("change_status_failed", "reason", "unknown_user")
		return ErrUserNotFound
	case err != nil:
		l.Error("change_status_failed", "kind", domain.KindOf(err), "error", err)
		return err
	}

	l.Info("user_status_changed", "revoked_sessions", revoked)
	s.emit(ctx, audit.Event{Type: audit.EventStatusChanged, UserID: user.ID, Reason: string(action)})
	return nil
}

func (s *AuthService) ListRoles(ctx context.Context) ([]string, error) {
	return s.Repo.ListRoleNames(ctx)
}

func (s *AuthService) ListPermissions(ctx context.Context) ([]string, error) {
	return s.Repo.ListPermissionCodes(ctx)
}
