package config

import "github.com/pkg/errors"

var (
	// ErrWebServerPortCanNotBeZero is returned when no webserver port is configured.
	ErrWebServerPortCanNotBeZero = errors.New("webserver port can not be 0")

	// ErrEmptyURL is returned when no webserver base URL is configured.
	ErrEmptyURL = errors.New("webserver url can not be empty")

	// ErrTLSModesExclusive is returned when both LDAPS and StartTLS are enabled.
	ErrTLSModesExclusive = errors.New("ldap useSSL and useTLS are mutually exclusive")
)
