package auth

import (
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/maxdaylight/HomelabWiki/internal/config"
)

// domainComponentMarker is matched case-sensitively against DN components.
const domainComponentMarker = "DC="

// DirectoryIdentity is the normalized identity produced per authentication
// attempt. It lives only for the handoff from the directory to the
// reconciler. Optional fields are nil when the directory entry lacks the
// attribute; absence is never an error.
type DirectoryIdentity struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	// DN is the full directory path used as the bind identity for
	// credential verification.
	DN     string
	Domain *string
	Groups []string
}

// extractIdentity builds a DirectoryIdentity from a search entry. It is a
// total function: malformed or missing attributes degrade to nil fields.
func extractIdentity(cfg *config.LDAPAuth, entry *ldap.Entry) DirectoryIdentity {
	attr := func(name string) *string {
		if v := entry.GetAttributeValue(name); v != "" {
			return &v
		}

		return nil
	}

	return DirectoryIdentity{
		Username:  attr(cfg.UsernameAttr),
		Email:     attr(cfg.EmailAttr),
		FirstName: attr(cfg.FirstNameAttr),
		LastName:  attr(cfg.LastNameAttr),
		DN:        entry.DN,
		Domain:    domainFromDN(entry.DN),
	}
}

// domainFromDN derives the domain from the DC components of a distinguished
// name, e.g. "CN=alice,CN=Users,DC=homelab,DC=local" -> "homelab.local".
// Returns nil when the DN carries no DC components.
func domainFromDN(dn string) *string {
	var parts []string

	for _, component := range strings.Split(dn, ",") {
		component = strings.TrimSpace(component)
		if strings.HasPrefix(component, domainComponentMarker) {
			parts = append(parts, component[len(domainComponentMarker):])
		}
	}

	if len(parts) == 0 {
		return nil
	}

	domain := strings.Join(parts, ".")

	return &domain
}
