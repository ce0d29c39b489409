package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides lets every LDAP, database and upload setting be set
// through the environment, taking precedence over the TOML file. The names
// match the ones documented in the deployment guide.
func applyEnvOverrides(c *Config) {
	envString("WIKI_TITLE", &c.Title)

	envString("DB_DRIVER", &c.DB.Driver)
	envString("DB_HOST", &c.DB.Host)
	envInt("DB_PORT", &c.DB.Port)
	envString("DB_USER", &c.DB.User)
	envString("DB_PASSWORD", &c.DB.Password)
	envString("DB_NAME", &c.DB.Name)

	envString("UPLOAD_FOLDER", &c.Upload.Dir)
	envInt64("MAX_CONTENT_LENGTH", &c.Upload.MaxSize)

	l := &c.Auth.LDAP

	envBool("LDAP_ENABLED", &l.Enabled)
	envString("LDAP_SERVER", &l.Host)
	envInt("LDAP_PORT", &l.Port)
	envBool("LDAP_USE_SSL", &l.UseSSL)
	envBool("LDAP_USE_TLS", &l.UseTLS)
	envString("LDAP_BASE_DN", &l.BaseDN)
	envString("LDAP_BIND_DN", &l.BindDN)
	envString("LDAP_BIND_PASSWORD", &l.BindPassword)
	envString("LDAP_USER_SEARCH_BASE", &l.UserSearchBase)
	envString("LDAP_GROUP_SEARCH_BASE", &l.GroupSearchBase)
	envString("LDAP_USERNAME_ATTRIBUTE", &l.UsernameAttr)
	envString("LDAP_EMAIL_ATTRIBUTE", &l.EmailAttr)
	envString("LDAP_FIRSTNAME_ATTRIBUTE", &l.FirstNameAttr)
	envString("LDAP_LASTNAME_ATTRIBUTE", &l.LastNameAttr)
	envString("LDAP_GROUP_MEMBER_ATTRIBUTE", &l.GroupMemberAttr)
	envString("LDAP_ADMIN_GROUP", &l.AdminGroupMarker)
	envString("LDAP_USER_GROUP", &l.UserGroupMarker)
	envString("LDAP_READONLY_GROUP", &l.ReadOnlyGroupMarker)
	envInt("LDAP_TIMEOUT", &l.Timeout)
}

func envString(name string, target *string) {
	if v := os.Getenv(name); v != "" {
		*target = v
	}
}

func envInt(name string, target *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func envInt64(name string, target *int64) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = n
		}
	}
}

func envBool(name string, target *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
