package auth

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
)

func newTestService(t *testing.T, db *gorm.DB, dir *fakeDirectory) *Service {
	t.Helper()

	cfg := &config.Config{
		Auth: config.Auth{
			Local: config.LocalAuth{Enabled: false},
			LDAP:  *testLDAPConfig(),
		},
	}
	cfg.Auth.LDAP.BindDN = "CN=wiki-service,CN=Users,DC=homelab,DC=local"

	svc := NewService(cfg, db)

	if dir != nil {
		dir.cfg = &fakeDirectoryConfig{
			bindDN:          cfg.Auth.LDAP.BindDN,
			userSearchBase:  cfg.Auth.LDAP.UserSearchBase,
			groupSearchBase: cfg.Auth.LDAP.GroupSearchBase,
		}
		svc.authenticator.client.dial = dir.dial
	}

	return svc
}

func TestLoginEmptyCredentials(t *testing.T) {
	svc := newTestService(t, newTestDB(t), &fakeDirectory{})

	if _, err := svc.Login("", "password"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("empty username: error = %v, want ErrLoginFailed", err)
	}

	if _, err := svc.Login("alice", ""); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("empty password: error = %v, want ErrLoginFailed", err)
	}
}

func TestLoginSuccessResolvesPermissions(t *testing.T) {
	dir := &fakeDirectory{
		userEntries: []*ldap.Entry{aliceEntry()},
		groupEntries: []*ldap.Entry{
			newTestEntry("CN=WikiAdmins,CN=Groups,DC=homelab,DC=local", map[string][]string{
				"cn": {"WikiAdmins"},
			}),
		},
	}

	svc := newTestService(t, newTestDB(t), dir)

	user, err := svc.Login("alice", "correct")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if !user.IsAdmin || !user.CanDelete {
		t.Errorf("admin membership not applied: %+v", user)
	}

	if user.AuthSource != models.AuthSourceLDAP {
		t.Errorf("AuthSource = %v", user.AuthSource)
	}
}

func TestLoginStripsDomainPrefix(t *testing.T) {
	dir := &fakeDirectory{
		userEntries:  []*ldap.Entry{aliceEntry()},
		groupEntries: wikiGroupEntries(),
	}

	svc := newTestService(t, newTestDB(t), dir)

	user, err := svc.Login(`HOMELAB\alice`, "correct")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if user.Username != "alice" {
		t.Errorf("Username = %q, want alice", user.Username)
	}
}

func TestLoginCollapsesFailureDetail(t *testing.T) {
	db := newTestDB(t)

	// unknown user
	svc := newTestService(t, db, &fakeDirectory{})

	_, errUnknown := svc.Login("ghost", "password")
	if !errors.Is(errUnknown, ErrLoginFailed) {
		t.Fatalf("unknown user: error = %v, want ErrLoginFailed", errUnknown)
	}

	// wrong password
	dir := &fakeDirectory{
		userEntries: []*ldap.Entry{aliceEntry()},
		userBindErr: ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials")),
	}
	svc = newTestService(t, db, dir)

	_, errWrongPass := svc.Login("alice", "wrong")
	if !errors.Is(errWrongPass, ErrLoginFailed) {
		t.Fatalf("wrong password: error = %v, want ErrLoginFailed", errWrongPass)
	}

	// the two failures must be indistinguishable to the caller
	if errUnknown.Error() != errWrongPass.Error() {
		t.Errorf("failure messages differ: %q vs %q", errUnknown.Error(), errWrongPass.Error())
	}
}

func TestLoginServerFaultOnTransportFailure(t *testing.T) {
	dir := &fakeDirectory{dialErr: errors.New("connection refused")}

	svc := newTestService(t, newTestDB(t), dir)

	_, err := svc.Login("alice", "password")
	if !errors.Is(err, ErrServerFault) {
		t.Fatalf("Login() error = %v, want ErrServerFault", err)
	}

	if errors.Is(err, ErrLoginFailed) {
		t.Error("a server fault must not look like rejected credentials")
	}
}

func TestLoginFailureDoesNotCreateUser(t *testing.T) {
	db := newTestDB(t)

	dir := &fakeDirectory{
		userEntries: []*ldap.Entry{aliceEntry()},
		userBindErr: ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials")),
	}

	svc := newTestService(t, db, dir)

	if _, err := svc.Login("alice", "wrong"); err == nil {
		t.Fatal("expected login to fail")
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if count != 0 {
		t.Errorf("user count = %d, failed logins must not create users", count)
	}
}

func TestLoginLocalBreakGlass(t *testing.T) {
	db := newTestDB(t)

	cfg := &config.Config{
		Auth: config.Auth{
			Local: config.LocalAuth{Enabled: true, AdminUsername: "admin", AdminPassword: "changeme"},
			LDAP:  config.LDAPAuth{Enabled: false},
		},
	}

	local := NewLocalProvider(db)
	if err := local.EnsureAdmin("admin", "changeme"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}

	svc := NewService(cfg, db)

	// the local account works with the directory completely disabled
	user, err := svc.Login("admin", "changeme")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if !user.IsAdmin || user.AuthSource != models.AuthSourceLocal {
		t.Errorf("user = %+v", user)
	}

	// wrong local password must not fall through to the directory
	if _, err := svc.Login("admin", "wrong"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("wrong local password: error = %v, want ErrLoginFailed", err)
	}
}

func TestLoginNoProvidersAvailable(t *testing.T) {
	db := newTestDB(t)

	cfg := &config.Config{
		Auth: config.Auth{
			Local: config.LocalAuth{Enabled: false},
			LDAP:  config.LDAPAuth{Enabled: false},
		},
	}

	svc := NewService(cfg, db)

	if _, err := svc.Login("alice", "password"); !errors.Is(err, ErrServerFault) {
		t.Errorf("Login() error = %v, want ErrServerFault", err)
	}
}

func TestSyncFromDirectory(t *testing.T) {
	db := newTestDB(t)

	dir := &fakeDirectory{
		userEntries:  []*ldap.Entry{aliceEntry()},
		groupEntries: wikiGroupEntries(),
	}

	svc := newTestService(t, db, dir)

	// unknown locally
	ok, msg := svc.SyncFromDirectory("alice")
	if ok || msg != "User not found in database" {
		t.Errorf("sync of unknown local user: ok=%v msg=%q", ok, msg)
	}

	if _, err := svc.Login("alice", "correct"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	ok, msg = svc.SyncFromDirectory("alice")
	if !ok || msg != "User synchronized successfully" {
		t.Errorf("sync: ok=%v msg=%q", ok, msg)
	}

	// gone from the directory
	dir.userEntries = nil

	ok, msg = svc.SyncFromDirectory("alice")
	if ok || msg != "User not found in LDAP" {
		t.Errorf("sync of missing directory user: ok=%v msg=%q", ok, msg)
	}
}
