package config

import (
	"time"

	"github.com/maxdaylight/HomelabWiki/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Upload    Upload
}

// DB implements database connection settings.
type DB struct {
	Driver   string // sqlite, postgres or mysql
	Host     string
	Port     int
	User     string
	Password string
	Name     string // database name, or the file path for sqlite
	Extras   string // extra DSN parameters
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain       string  // domain name for the webserver
	Port         int     // listening port for the webserver
	ShutDownTime int     // wait time for shutdown
	URL          string  // base url for the webserver
	Session      Session // session settings
}

// Auth groups the supported authentication providers.
type Auth struct {
	Local LocalAuth
	LDAP  LDAPAuth
}

// LocalAuth configures the break-glass local admin account. It exists so the
// wiki stays reachable when the directory server is down.
type LocalAuth struct {
	Enabled       bool
	AdminUsername string
	AdminPassword string
}

// LDAPAuth holds LDAP/Active Directory configuration for authentication.
// Every field can be overridden through the LDAP_* environment variables
// enumerated in env.go.
type LDAPAuth struct {
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (implicit TLS). Mutually exclusive with UseTLS.
	UseSSL bool
	// UseTLS enables StartTLS negotiation after connecting. Skipped when
	// UseSSL is set.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BaseDN is the base distinguished name of the directory.
	BaseDN string
	// BindDN is the service account used for searches. Empty means anonymous bind.
	BindDN string
	// BindPassword is the password for the bind DN.
	BindPassword string
	// UserSearchBase is the subtree searched for user entries.
	UserSearchBase string
	// GroupSearchBase is the subtree searched for group entries.
	GroupSearchBase string
	// UsernameAttr is the attribute containing the login name (e.g. sAMAccountName).
	UsernameAttr string
	// EmailAttr is the attribute containing the email address.
	EmailAttr string
	// FirstNameAttr is the attribute containing the given name.
	FirstNameAttr string
	// LastNameAttr is the attribute containing the surname.
	LastNameAttr string
	// GroupMemberAttr is the group attribute matched against the user DN.
	GroupMemberAttr string
	// AdminGroupMarker marks groups granting admin rights (substring match).
	AdminGroupMarker string
	// UserGroupMarker marks groups granting edit/create/upload rights.
	UserGroupMarker string
	// ReadOnlyGroupMarker marks groups forcing read-only access.
	ReadOnlyGroupMarker string
	// Timeout is the connection and per-request timeout in seconds.
	Timeout int
}

// Upload implements file upload settings.
type Upload struct {
	Dir          string // directory for uploaded files
	ThumbnailDir string // directory for cached image thumbnails
	MaxSize      int64  // maximum upload size in bytes
}
