package models

import (
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// AuthSource represents the authentication source for a user account.
type AuthSource string

const (
	// AuthSourceLocal indicates the break-glass local admin account.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceLDAP indicates the user authenticates via LDAP or Active Directory.
	AuthSourceLDAP AuthSource = "ldap"
)

// User represents a persisted user account. Directory users are created on
// their first successful login and refreshed on every subsequent one: profile
// fields keep their last known value when the directory omits an attribute,
// while the permission flags are overwritten unconditionally so revocations
// take effect immediately.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Username is the unique username for login.
	Username string `gorm:"uniqueIndex;size:80;not null" json:"username"`
	// Email is the user's email address.
	Email string `gorm:"size:120" json:"email"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100" json:"first_name"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100" json:"last_name"`
	// LdapDN is the distinguished name of the matching directory entry.
	LdapDN string `gorm:"column:ldap_dn;size:255" json:"-"`
	// Domain is derived from the DC components of the DN.
	Domain string `gorm:"size:50" json:"-"`

	// Password is the Argon2id hashed password (break-glass local account only).
	Password string `gorm:"size:255" json:"-"`
	// AuthSource indicates how this user authenticates (local or ldap).
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'ldap'" json:"auth_source"`

	// Permission flags resolved from directory group memberships.
	IsAdmin   bool `gorm:"default:false" json:"is_admin"`
	IsActive  bool `gorm:"default:true" json:"is_active"`
	CanEdit   bool `gorm:"default:true" json:"can_edit"`
	CanCreate bool `gorm:"default:true" json:"can_create"`
	CanDelete bool `gorm:"default:false" json:"can_delete"`
	CanUpload bool `gorm:"default:true" json:"can_upload"`

	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
	// LastLoginAt is stamped on every successful authentication.
	LastLoginAt *time.Time `json:"last_login"`
}

// FullName returns the user's full name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// DisplayName returns the name shown in the UI.
func (u *User) DisplayName() string {
	if full := u.FullName(); full != u.Username {
		return full + " (" + u.Username + ")"
	}

	return u.Username
}

// HasPermission checks a named permission against the user's flags.
// Every authenticated user may read; admins may always delete.
func (u *User) HasPermission(permission string) bool {
	switch strings.ToLower(permission) {
	case "read":
		return true
	case "create":
		return u.CanCreate
	case "edit":
		return u.CanEdit
	case "delete":
		return u.CanDelete || u.IsAdmin
	case "upload":
		return u.CanUpload
	case "admin":
		return u.IsAdmin
	default:
		return false
	}
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// Only used for the break-glass local admin account.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
