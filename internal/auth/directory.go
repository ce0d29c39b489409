package auth

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/maxdaylight/HomelabWiki/internal/config"
)

// groupNameAttr is the attribute used as the group identifier.
const groupNameAttr = "cn"

// directoryConn is the subset of *ldap.Conn the client uses. Tests inject
// fakes through the dial seam.
type directoryConn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(timeout time.Duration)
	Close() error
}

var _ directoryConn = (*ldap.Conn)(nil)

// DirectoryClient talks LDAPv3 to the configured directory server. It is
// stateless; every operation works on a connection handed in by the caller,
// except credential verification which owns its own short-lived connection.
type DirectoryClient struct {
	cfg  *config.LDAPAuth
	dial func() (directoryConn, error)
}

// NewDirectoryClient creates a directory client for the given configuration.
func NewDirectoryClient(cfg *config.LDAPAuth) *DirectoryClient {
	c := &DirectoryClient{cfg: cfg}
	c.dial = c.dialDirectory

	return c
}

// dialDirectory establishes a connection honoring the configured encryption
// mode: ldaps (implicit TLS), StartTLS, or plain. The modes are mutually
// exclusive; StartTLS is skipped when implicit TLS is in use.
func (c *DirectoryClient) dialDirectory() (directoryConn, error) {
	hostPort := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	var ldapURL string
	if c.cfg.UseSSL {
		ldapURL = "ldaps://" + hostPort
	} else {
		ldapURL = "ldap://" + hostPort
	}

	var tlsConfig *tls.Config
	if c.cfg.UseSSL || c.cfg.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: c.cfg.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         c.cfg.Host,
		}
	}

	timeout := time.Duration(c.cfg.Timeout) * time.Second

	conn, err := ldap.DialURL(ldapURL,
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !c.cfg.UseSSL && c.cfg.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			_ = conn.Close()

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	// an unresponsive directory must not block a login forever
	if timeout > 0 {
		conn.SetTimeout(timeout)
	}

	return conn, nil
}

// connect opens a new connection to the directory server.
func (c *DirectoryClient) connect() (directoryConn, error) {
	return c.dial()
}

// bindServiceAccount binds the connection as the configured service account,
// or anonymously when no bind DN is configured. The connection stays bound
// as the service account for subsequent searches.
func (c *DirectoryClient) bindServiceAccount(conn directoryConn) error {
	if c.cfg.BindDN == "" {
		if err := conn.UnauthenticatedBind(""); err != nil {
			return fmt.Errorf("anonymous bind failed: %w", err)
		}

		return nil
	}

	if err := conn.Bind(c.cfg.BindDN, c.cfg.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// searchUser searches the user subtree for the given username. The value is
// filter-escaped so search metacharacters in the input cannot alter the
// predicate. Returns ErrUserNotFound for zero matches.
func (c *DirectoryClient) searchUser(conn directoryConn, username string) (*ldap.Entry, error) {
	filter := fmt.Sprintf("(%s=%s)", c.cfg.UsernameAttr, ldap.EscapeFilter(username))

	searchRequest := ldap.NewSearchRequest(
		c.cfg.UserSearchBase,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		c.cfg.Timeout,
		false,
		filter,
		[]string{
			c.cfg.UsernameAttr,
			c.cfg.EmailAttr,
			c.cfg.FirstNameAttr,
			c.cfg.LastNameAttr,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, fmt.Errorf("%w: %w", ErrDirectory, ErrMultipleUsersFound)
	}
}

// searchGroups returns the common names of all groups listing the user DN as
// a member. Entries without a cn attribute are skipped rather than failing.
func (c *DirectoryClient) searchGroups(conn directoryConn, userDN string) ([]string, error) {
	filter := fmt.Sprintf("(%s=%s)", c.cfg.GroupMemberAttr, ldap.EscapeFilter(userDN))

	searchRequest := ldap.NewSearchRequest(
		c.cfg.GroupSearchBase,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		c.cfg.Timeout,
		false,
		filter,
		[]string{groupNameAttr, "dn"},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for groups: %w", err)
	}

	groups := make([]string, 0, len(searchResult.Entries))

	for _, entry := range searchResult.Entries {
		if cn := entry.GetAttributeValue(groupNameAttr); cn != "" {
			groups = append(groups, cn)
		}
	}

	return groups, nil
}

// verifyCredentials checks the candidate's password by binding as the exact
// identity on a separate connection. The password cannot be validated through
// the service account's connection; this second connection exists only for
// the bind and is torn down before any further processing.
func (c *DirectoryClient) verifyCredentials(userDN, password string) error {
	conn, err := c.dial()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if err := conn.Bind(userDN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return ErrInvalidCredentials
		}

		return fmt.Errorf("%w: user bind: %w", ErrConnectionFailed, err)
	}

	return nil
}

// TestConnection establishes a connection and binds the service account.
// No user lookup is performed.
func (c *DirectoryClient) TestConnection() error {
	conn, err := c.connect()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if err := c.bindServiceAccount(conn); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return nil
}
