package auth

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate user model: %v", err)
	}

	return db
}

func strptr(s string) *string { return &s }

func aliceIdentity() *DirectoryIdentity {
	return &DirectoryIdentity{
		Username:  strptr("alice"),
		Email:     strptr("alice@homelab.local"),
		FirstName: strptr("Alice"),
		LastName:  strptr("Smith"),
		DN:        "CN=alice,CN=Users,DC=homelab,DC=local",
		Domain:    strptr("homelab.local"),
		Groups:    []string{"WikiUsers"},
	}
}

func userPerms() PermissionSet {
	return PermissionSet{CanEdit: true, CanCreate: true, CanUpload: true}
}

func TestReconcileCreatesUserOnFirstLogin(t *testing.T) {
	db := newTestDB(t)
	r := NewReconciler(db)

	user, err := r.Reconcile("alice", aliceIdentity(), userPerms())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if user.ID == 0 {
		t.Fatal("expected user to be persisted")
	}

	if user.Username != "alice" || user.Email != "alice@homelab.local" {
		t.Errorf("user = %+v", user)
	}

	if user.AuthSource != models.AuthSourceLDAP {
		t.Errorf("AuthSource = %v, want ldap", user.AuthSource)
	}

	if !user.IsActive {
		t.Error("new directory user must be active")
	}

	if !user.CanEdit || !user.CanCreate || !user.CanUpload || user.CanDelete || user.IsAdmin {
		t.Errorf("permissions = %+v", user)
	}

	if user.LastLoginAt == nil {
		t.Error("LastLoginAt must be stamped on login")
	}
}

func TestReconcileKeepsProfileWhenDirectoryOmitsAttributes(t *testing.T) {
	db := newTestDB(t)
	r := NewReconciler(db)

	if _, err := r.Reconcile("alice", aliceIdentity(), userPerms()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	// second login with a sparse identity must not erase known fields
	sparse := &DirectoryIdentity{
		Username: strptr("alice"),
		DN:       "CN=alice,CN=Users,DC=homelab,DC=local",
	}

	user, err := r.Reconcile("alice", sparse, userPerms())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if user.Email != "alice@homelab.local" {
		t.Errorf("Email = %q, want last known value preserved", user.Email)
	}

	if user.FirstName != "Alice" || user.LastName != "Smith" {
		t.Errorf("name = %q %q, want preserved", user.FirstName, user.LastName)
	}
}

func TestReconcileOverwritesPermissionsUnconditionally(t *testing.T) {
	db := newTestDB(t)
	r := NewReconciler(db)

	admin := PermissionSet{IsAdmin: true, CanEdit: true, CanCreate: true, CanDelete: true, CanUpload: true}

	if _, err := r.Reconcile("alice", aliceIdentity(), admin); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	// demotion takes effect on the next login
	user, err := r.Reconcile("alice", aliceIdentity(), PermissionSet{})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if user.IsAdmin || user.CanEdit || user.CanCreate || user.CanDelete || user.CanUpload {
		t.Errorf("permissions not revoked: %+v", user)
	}
}

func TestReconcileDoesNotDuplicateUsers(t *testing.T) {
	db := newTestDB(t)
	r := NewReconciler(db)

	for i := 0; i < 3; i++ {
		if _, err := r.Reconcile("alice", aliceIdentity(), userPerms()); err != nil {
			t.Fatalf("Reconcile() #%d error = %v", i, err)
		}
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestReconcileCreateConflictFallsBackToUpdate(t *testing.T) {
	db := newTestDB(t)

	// A row already exists under the directory's username attribute, but the
	// login name differs in case, so the initial lookup misses and the insert
	// collides on the unique index. AD resolves sAMAccountName
	// case-insensitively, so this is the same situation as two concurrent
	// first logins losing the create race.
	seeded := models.User{
		Username:   "alice",
		Email:      "stale@homelab.local",
		AuthSource: models.AuthSourceLDAP,
		IsActive:   true,
	}
	if err := db.Create(&seeded).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	r := NewReconciler(db)

	user, err := r.Reconcile("ALICE", aliceIdentity(), userPerms())
	if err != nil {
		t.Fatalf("Reconcile() error = %v, want fallback to update path", err)
	}

	if user.ID != seeded.ID {
		t.Errorf("user ID = %d, want existing row %d", user.ID, seeded.ID)
	}

	if user.Email != "alice@homelab.local" {
		t.Errorf("Email = %q, want refreshed from directory", user.Email)
	}

	if !user.CanEdit || !user.CanCreate || !user.CanUpload {
		t.Errorf("permissions not applied: %+v", user)
	}

	if user.LastLoginAt == nil {
		t.Error("LastLoginAt must be stamped on the fallback path")
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestReconcileUpdatesLastLogin(t *testing.T) {
	db := newTestDB(t)
	r := NewReconciler(db)

	first, err := r.Reconcile("alice", aliceIdentity(), userPerms())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	second, err := r.Reconcile("alice", aliceIdentity(), userPerms())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if second.LastLoginAt == nil || first.LastLoginAt == nil {
		t.Fatal("LastLoginAt missing")
	}

	if second.LastLoginAt.Before(*first.LastLoginAt) {
		t.Errorf("LastLoginAt went backwards: %v -> %v", first.LastLoginAt, second.LastLoginAt)
	}
}

func TestSyncExistingUnknownUser(t *testing.T) {
	db := newTestDB(t)
	r := NewReconciler(db)

	// sync must not create users that never logged in
	_, err := r.SyncExisting("ghost", aliceIdentity(), userPerms())
	if !errors.Is(err, ErrUserNotKnown) {
		t.Fatalf("SyncExisting() error = %v, want ErrUserNotKnown", err)
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if count != 0 {
		t.Errorf("user count = %d, want 0", count)
	}
}

func TestSyncExistingDoesNotTouchLastLogin(t *testing.T) {
	db := newTestDB(t)
	r := NewReconciler(db)

	created, err := r.Reconcile("alice", aliceIdentity(), userPerms())
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	synced, err := r.SyncExisting("alice", aliceIdentity(), PermissionSet{IsAdmin: true, CanDelete: true})
	if err != nil {
		t.Fatalf("SyncExisting() error = %v", err)
	}

	if !synced.IsAdmin || !synced.CanDelete {
		t.Errorf("permissions not applied: %+v", synced)
	}

	if synced.LastLoginAt == nil || !synced.LastLoginAt.Equal(*created.LastLoginAt) {
		t.Errorf("LastLoginAt changed by sync: %v -> %v", created.LastLoginAt, synced.LastLoginAt)
	}
}
