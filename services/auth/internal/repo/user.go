package repo

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Skotchmaster/autojournal/services/auth/internal/models"
	"gorm.io/gorm/clause"
)

// IdentityRecord is a user's status flags together with the role name and
// permission codes granted through role_permissions.
type IdentityRecord struct {
	UserID      uint
	IsActive    bool
	IsBlocked   bool
	IsDeleted   bool
	Roles       []string
	Permissions []string
}

func (i IdentityRecord) CanAuthenticate() bool {
	return i.IsActive && !i.IsBlocked && !i.IsDeleted
}

type identityRow struct {
	ID             uint
	IsActive       bool
	IsBlocked      bool
	IsDeleted      bool
	RoleName       *string
	PermissionCode *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, storeErr("find user by email", err)
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, storeErr("find user by id", err)
	}
	return &user, nil
}

// LockUser reads the user row and holds a row lock on it until the enclosing
// transaction ends. Outside a transaction it is a plain read.
func (r *GormRepo) LockUser(ctx context.Context, id uint) (*models.User, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var user models.User
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, storeErr("lock user", err)
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	u.Email = normalizeEmail(u.Email)
	return storeErr("create user", r.DB.WithContext(ctx).Create(u).Error)
}

func (r *GormRepo) TouchLastActivity(ctx context.Context, id uint, at time.Time) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_activity", at).Error
	return storeErr("touch last activity", err)
}

// UpdateUserStatus writes the given status columns. Zero values are written too.
func (r *GormRepo) UpdateUserStatus(ctx context.Context, id uint, active, blocked, deleted bool) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  active,
			"is_blocked": blocked,
			"is_deleted": deleted,
		})
	if res.Error != nil {
		return storeErr("update user status", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadIdentity reads the user, role and permission codes in one query.
func (r *GormRepo) LoadIdentity(ctx context.Context, userID uint) (*IdentityRecord, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var rows []identityRow
	err := r.DB.WithContext(ctx).
		Table("users").
		Select("users.id, users.is_active, users.is_blocked, users.is_deleted, roles.name AS role_name, permissions.code AS permission_code").
		Joins("LEFT JOIN roles ON roles.id = users.role_id").
		Joins("LEFT JOIN role_permissions ON role_permissions.role_id = roles.id").
		Joins("LEFT JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("users.id = ?", userID).
		Order("permissions.code").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr("load identity", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	rec := &IdentityRecord{
		UserID:      rows[0].ID,
		IsActive:    rows[0].IsActive,
		IsBlocked:   rows[0].IsBlocked,
		IsDeleted:   rows[0].IsDeleted,
		Roles:       []string{},
		Permissions: []string{},
	}
	for _, row := range rows {
		if row.RoleName != nil && !slices.Contains(rec.Roles, *row.RoleName) {
			rec.Roles = append(rec.Roles, *row.RoleName)
		}
		if row.PermissionCode != nil && !slices.Contains(rec.Permissions, *row.PermissionCode) {
			rec.Permissions = append(rec.Permissions, *row.PermissionCode)
		}
	}
	return rec, nil
}

func (r *GormRepo) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, storeErr("find role", err)
	}
	return &role, nil
}

func (r *GormRepo) ListRoleNames(ctx context.Context) ([]string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	names := []string{}
	err := r.DB.WithContext(ctx).Model(&models.Role{}).Order("name").Pluck("name", &names).Error
	if err != nil {
		return nil, storeErr("list roles", err)
	}
	return names, nil
}

func (r *GormRepo) ListPermissionCodes(ctx context.Context) ([]string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	codes := []string{}
	err := r.DB.WithContext(ctx).Model(&models.Permission{}).Order("code").Pluck("code", &codes).Error
	if err != nil {
		return nil, storeErr("list permissions", err)
	}
	return codes, nil
}
