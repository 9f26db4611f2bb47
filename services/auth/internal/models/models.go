package models

import "time"

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name         string     `gorm:"not null"                   json:"name"`
	Email        string     `gorm:"uniqueIndex;not null"       json:"email"`
	Nickname     *string    `json:"nickname,omitempty"`
	PasswordHash string     `gorm:"column:password;not null"   json:"-"`
	IsActive     bool       `gorm:"not null"                   json:"is_active"`
	IsBlocked    bool       `gorm:"not null"                   json:"is_blocked"`
	IsDeleted    bool       `gorm:"not null"                   json:"is_deleted"`
	RoleID       *uint      `gorm:"index"                      json:"role_id,omitempty"`
	Role         *Role      `json:"role,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	CreatedAt    time.Time  `gorm:"not null"                   json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null"                   json:"updated_at"`
}

// CanAuthenticate is false for blocked, deleted or not yet activated users.
func (u User) CanAuthenticate() bool {
	return u.IsActive && !u.IsBlocked && !u.IsDeleted
}

type Role struct {
	ID          uint         `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name        string       `gorm:"uniqueIndex;not null"            json:"name"`
	Description *string      `json:"description,omitempty"`
	Permissions []Permission `gorm:"many2many:role_permissions;"     json:"permissions,omitempty"`
	CreatedAt   time.Time    `gorm:"not null"                        json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null"                        json:"updated_at"`
}

type Permission struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null"     json:"code"`
	Description *string   `json:"description,omitempty"`
	CanCreate   bool      `gorm:"not null"                 json:"can_create"`
	CanUpdate   bool      `gorm:"not null"                 json:"can_update"`
	CanDelete   bool      `gorm:"not null"                 json:"can_delete"`
	CanActivate bool      `gorm:"not null"                 json:"can_activate"`
	CreatedAt   time.Time `gorm:"not null"                 json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null"                 json:"updated_at"`
}

// RefreshToken is one refresh session. TokenHash is the sha256 hex of the
// encoded token; rows are revoked, never deleted.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey"                       json:"id"`
	UserID    uint       `gorm:"index;not null"                   json:"user_id"`
	TokenHash string     `gorm:"column:token;uniqueIndex;not null" json:"-"`
	JTI       string     `gorm:"uniqueIndex;not null"             json:"jti"`
	FamilyID  string     `gorm:"index;not null"                   json:"family_id"`
	ParentJTI string     `gorm:"not null;default:''"              json:"parent_jti,omitempty"`
	ExpiresAt int64      `gorm:"index;not null"                   json:"expires_at"`
	Revoked   bool       `gorm:"not null;default:false"           json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null"                         json:"created_at"`
}

// Expired reports whether the row's absolute expiry is at or before now.
func (t RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt <= now.Unix()
}

func (t RefreshToken) Live(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}
