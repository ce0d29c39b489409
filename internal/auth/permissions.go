package auth

import (
	"strings"

	"github.com/maxdaylight/HomelabWiki/internal/config"
)

// PermissionSet holds the capability flags derived from directory group
// memberships. It is never stored on its own; the reconciler copies it onto
// the local user record on every successful login.
type PermissionSet struct {
	IsAdmin   bool
	CanEdit   bool
	CanCreate bool
	CanDelete bool
	CanUpload bool
}

// GroupMarkers are the substrings matched against group common names.
type GroupMarkers struct {
	Admin    string
	User     string
	ReadOnly string
}

// MarkersFromConfig builds GroupMarkers from the LDAP configuration.
func MarkersFromConfig(cfg *config.LDAPAuth) GroupMarkers {
	return GroupMarkers{
		Admin:    cfg.AdminGroupMarker,
		User:     cfg.UserGroupMarker,
		ReadOnly: cfg.ReadOnlyGroupMarker,
	}
}

// ResolvePermissions maps a set of group names to a permission set.
//
// Matching is substring containment, not equality: a group named
// "OldWikiAdminsArchive" matches the admin marker. This mirrors the historic
// behavior operators rely on and must not be tightened to exact matching.
//
// The read-only marker is a final override: it forces all four capability
// flags false regardless of other memberships, but does not clear IsAdmin.
func ResolvePermissions(groups []string, markers GroupMarkers) PermissionSet {
	anyContains := func(marker string) bool {
		if marker == "" {
			return false
		}

		for _, group := range groups {
			if strings.Contains(group, marker) {
				return true
			}
		}

		return false
	}

	var perms PermissionSet

	isAdmin := anyContains(markers.Admin)
	isUser := anyContains(markers.User)

	perms.IsAdmin = isAdmin

	if isUser || isAdmin {
		perms.CanEdit = true
		perms.CanCreate = true
		perms.CanUpload = true
	}

	// standard membership alone does not grant delete
	perms.CanDelete = isAdmin

	if anyContains(markers.ReadOnly) {
		perms.CanEdit = false
		perms.CanCreate = false
		perms.CanDelete = false
		perms.CanUpload = false
	}

	return perms
}
