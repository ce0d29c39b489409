// Package config handles input from etc/*.toml files and environment overrides.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv("HOMELABWIKI_CONFIG_JSON")

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	applyEnvOverrides(&c)
	applyDefaults(&c)

	return c, validate(c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// applyDefaults fills in placeholder values matching the documented
// deployment defaults. Placeholders must be replaced for real deployments.
func applyDefaults(c *Config) { //nolint:funlen,gocyclo
	if c.Title == "" {
		c.Title = "HomelabWiki"
	}

	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}

	if c.DB.Name == "" {
		c.DB.Name = "homelab_wiki.db"
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = 8 * time.Hour
	}

	if c.Upload.Dir == "" {
		c.Upload.Dir = "./uploads"
	}

	if c.Upload.ThumbnailDir == "" {
		c.Upload.ThumbnailDir = "./uploads/thumbnails"
	}

	if c.Upload.MaxSize == 0 {
		c.Upload.MaxSize = 16 * 1024 * 1024
	}

	l := &c.Auth.LDAP

	if l.Host == "" {
		l.Host = "your-domain-controller"
	}

	if l.Port == 0 {
		l.Port = 389
	}

	if l.BaseDN == "" {
		l.BaseDN = "DC=yourdomain,DC=local"
	}

	if l.UserSearchBase == "" {
		l.UserSearchBase = "CN=Users," + l.BaseDN
	}

	if l.GroupSearchBase == "" {
		l.GroupSearchBase = "CN=Groups," + l.BaseDN
	}

	if l.UsernameAttr == "" {
		l.UsernameAttr = "sAMAccountName"
	}

	if l.EmailAttr == "" {
		l.EmailAttr = "mail"
	}

	if l.FirstNameAttr == "" {
		l.FirstNameAttr = "givenName"
	}

	if l.LastNameAttr == "" {
		l.LastNameAttr = "sn"
	}

	if l.GroupMemberAttr == "" {
		l.GroupMemberAttr = "member"
	}

	if l.AdminGroupMarker == "" {
		l.AdminGroupMarker = "WikiAdmins"
	}

	if l.UserGroupMarker == "" {
		l.UserGroupMarker = "WikiUsers"
	}

	if l.ReadOnlyGroupMarker == "" {
		l.ReadOnlyGroupMarker = "WikiReadOnly"
	}

	if l.Timeout == 0 {
		l.Timeout = 10
	}
}

// validate minimal config settings needed to start the service.
func validate(c Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Auth.LDAP.UseSSL && c.Auth.LDAP.UseTLS {
		return errors.Wrap(ErrTLSModesExclusive, invalidErrMessage)
	}

	return nil
}
