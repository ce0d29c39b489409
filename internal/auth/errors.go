package auth

import "errors"

var (
	// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")

	// ErrConnectionFailed covers transport, TLS and bind failures talking to
	// the directory server. Retryable by the caller, never retried here.
	ErrConnectionFailed = errors.New("directory connection failed")

	// ErrInvalidCredentials is returned when the candidate's password bind is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when the username has no directory entry.
	// Callers must collapse it into the same user-visible failure as
	// ErrInvalidCredentials to avoid username enumeration.
	ErrUserNotFound = errors.New("user not found in directory")

	// ErrDirectory is returned on a malformed or unexpected search response.
	ErrDirectory = errors.New("unexpected directory response")

	// ErrMultipleUsersFound indicates a misconfigured filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple directory entries match username")

	// ErrLoginFailed is the caller-visible failure for wrong passwords and
	// unknown usernames alike.
	ErrLoginFailed = errors.New("Invalid username or password")

	// ErrServerFault is the caller-visible failure for directory or storage
	// faults. Detail stays in the server log.
	ErrServerFault = errors.New("Login failed due to server error")

	// ErrUserNotKnown is returned by directory sync for users that never logged in.
	ErrUserNotKnown = errors.New("user not found in database")
)
