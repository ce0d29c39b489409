package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/db/models"
)

// Reconciler merges a freshly authenticated directory identity into the
// persisted user record. It is only invoked after authentication succeeded;
// failed attempts never create or mutate local users.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a reconciler on the given database handle.
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Reconcile looks up the local user by username and creates or updates it.
//
// Profile fields are overwritten only when the directory supplied a value,
// so a directory hiccup never erases last-known-good data. The permission
// flags are overwritten unconditionally — revocation takes effect on the
// next login. LastLoginAt is stamped on every call.
func (r *Reconciler) Reconcile(username string, identity *DirectoryIdentity, perms PermissionSet) (*models.User, error) {
	var user models.User

	now := time.Now().UTC()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&user).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = newDirectoryUser(username, identity, perms, now)

			// The insert runs in a savepoint: postgres aborts the whole
			// transaction on a unique violation otherwise, which would break
			// the fallback below.
			createErr := tx.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&user).Error
			})
			if createErr == nil {
				return nil
			}

			// Two concurrent first logins race on the unique username index;
			// the loser falls back to the update path. The lookup uses the
			// username the insert used, which is the directory's attribute
			// value and may differ from the login name.
			if findErr := tx.Where("username = ?", user.Username).First(&user).Error; findErr != nil {
				return fmt.Errorf("failed to create user: %w", createErr)
			}

			return r.update(tx, &user, identity, perms, &now)
		}

		if err != nil {
			return fmt.Errorf("failed to query user: %w", err)
		}

		return r.update(tx, &user, identity, perms, &now)
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// SyncExisting refreshes identity and permissions for an already known user
// without touching LastLoginAt. Users that never logged in are not created.
func (r *Reconciler) SyncExisting(username string, identity *DirectoryIdentity, perms PermissionSet) (*models.User, error) {
	var user models.User

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&user).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotKnown
		}

		if err != nil {
			return fmt.Errorf("failed to query user: %w", err)
		}

		return r.update(tx, &user, identity, perms, nil)
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *Reconciler) update(tx *gorm.DB, user *models.User, identity *DirectoryIdentity, perms PermissionSet, loginAt *time.Time) error {
	applyIdentity(user, identity)
	applyPermissions(user, perms)

	if loginAt != nil {
		user.LastLoginAt = loginAt
	}

	if err := tx.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

func newDirectoryUser(username string, identity *DirectoryIdentity, perms PermissionSet, now time.Time) models.User {
	// The directory's own username attribute wins over the login name when present.
	if identity.Username != nil {
		username = *identity.Username
	}

	user := models.User{
		Username:    username,
		Email:       deref(identity.Email),
		FirstName:   deref(identity.FirstName),
		LastName:    deref(identity.LastName),
		LdapDN:      identity.DN,
		Domain:      deref(identity.Domain),
		AuthSource:  models.AuthSourceLDAP,
		IsActive:    true,
		LastLoginAt: &now,
	}

	applyPermissions(&user, perms)

	return user
}

// applyIdentity overwrites profile fields only where the directory supplied
// a value; nil fields keep the previously known local value.
func applyIdentity(user *models.User, identity *DirectoryIdentity) {
	if v := deref(identity.Email); v != "" {
		user.Email = v
	}

	if v := deref(identity.FirstName); v != "" {
		user.FirstName = v
	}

	if v := deref(identity.LastName); v != "" {
		user.LastName = v
	}

	if identity.DN != "" {
		user.LdapDN = identity.DN
	}

	if v := deref(identity.Domain); v != "" {
		user.Domain = v
	}
}

func applyPermissions(user *models.User, perms PermissionSet) {
	user.IsAdmin = perms.IsAdmin
	user.CanEdit = perms.CanEdit
	user.CanCreate = perms.CanCreate
	user.CanDelete = perms.CanDelete
	user.CanUpload = perms.CanUpload
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
