package auth

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/maxdaylight/HomelabWiki/internal/config"
)

// Authenticator orchestrates the directory client into a single authenticate
// operation: service bind, user search, credential verification on a second
// connection, and group harvest. It owns connection lifecycle and error
// translation; it never touches local storage.
type Authenticator struct {
	cfg    *config.LDAPAuth
	client *DirectoryClient
}

// NewAuthenticator creates an authenticator for the given LDAP configuration.
func NewAuthenticator(cfg *config.LDAPAuth) (*Authenticator, error) {
	if !cfg.Enabled {
		return nil, ErrLDAPDisabled
	}

	return &Authenticator{
		cfg:    cfg,
		client: NewDirectoryClient(cfg),
	}, nil
}

// Authenticate verifies the supplied credentials against the directory and
// returns the normalized identity including group memberships.
//
// Failure mapping: connect/TLS/service-bind failures and any transport fault
// after the service bind surface as ErrConnectionFailed — they must never be
// reported as ErrInvalidCredentials. A missing user surfaces as
// ErrUserNotFound; only a rejected user bind is ErrInvalidCredentials.
func (a *Authenticator) Authenticate(username, password string) (*DirectoryIdentity, error) {
	conn, err := a.client.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// the service connection is released on every exit path
	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if errBind := a.client.bindServiceAccount(conn); errBind != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, errBind)
	}

	entry, errSearch := a.client.searchUser(conn, username)
	if errSearch != nil {
		return nil, errSearch
	}

	// the password is checked on a dedicated connection, torn down inside
	// verifyCredentials before anything else happens
	if errVerify := a.client.verifyCredentials(entry.DN, password); errVerify != nil {
		return nil, errVerify
	}

	identity := extractIdentity(a.cfg, entry)

	groups, errGroups := a.client.searchGroups(conn, entry.DN)
	if errGroups != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, errGroups)
	}

	identity.Groups = groups

	return &identity, nil
}

// FetchIdentity looks up a user and their groups with the service account
// only, without a credential check. Used by directory sync.
func (a *Authenticator) FetchIdentity(username string) (*DirectoryIdentity, error) {
	conn, err := a.client.connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if errBind := a.client.bindServiceAccount(conn); errBind != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, errBind)
	}

	entry, errSearch := a.client.searchUser(conn, username)
	if errSearch != nil {
		return nil, errSearch
	}

	identity := extractIdentity(a.cfg, entry)

	groups, errGroups := a.client.searchGroups(conn, entry.DN)
	if errGroups != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, errGroups)
	}

	identity.Groups = groups

	return &identity, nil
}

// TestConnection verifies the server is reachable and the service account
// credentials are valid.
func (a *Authenticator) TestConnection() error {
	return a.client.TestConnection()
}
