package auth

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
)

// Service is the application-facing authentication facade. It translates
// internal failure detail into the two coarse caller-visible errors and
// drives the authenticate → resolve → reconcile pipeline.
type Service struct {
	cfg           *config.Config
	db            *gorm.DB
	authenticator *Authenticator
	reconciler    *Reconciler
	local         *LocalProvider
	markers       GroupMarkers
}

// NewService creates the auth service. The directory authenticator is only
// constructed when LDAP is enabled.
func NewService(cfg *config.Config, db *gorm.DB) *Service {
	s := &Service{
		cfg:        cfg,
		db:         db,
		reconciler: NewReconciler(db),
		local:      NewLocalProvider(db),
		markers:    MarkersFromConfig(&cfg.Auth.LDAP),
	}

	if cfg.Auth.LDAP.Enabled {
		authenticator, err := NewAuthenticator(&cfg.Auth.LDAP)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize LDAP authenticator")
		} else {
			s.authenticator = authenticator
		}
	}

	return s
}

// Login authenticates the credentials and returns the reconciled local user.
//
// The returned error is always ErrLoginFailed or ErrServerFault; a wrong
// password and an unknown username are indistinguishable to the caller, and
// no error reveals which authentication step failed.
func (s *Service) Login(username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrLoginFailed
	}

	// Strip a domain prefix if present (e.g. HOMELAB\alice -> alice).
	if i := strings.LastIndex(username, `\`); i >= 0 {
		username = username[i+1:]
	}

	// Break-glass local admin keeps the wiki reachable when the directory is down.
	if s.cfg.Auth.Local.Enabled {
		user, err := s.local.Authenticate(username, password)

		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, ErrInvalidCredentials):
			// the username names a local account; do not fall through to the directory
			return nil, ErrLoginFailed
		}
	}

	if s.authenticator == nil {
		log.Error().Str("username", username).Msg("login attempted but ldap authentication is not available")

		return nil, ErrServerFault
	}

	identity, err := s.authenticator.Authenticate(username, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidCredentials):
			log.Warn().Str("username", username).Msg("authentication rejected")

			return nil, ErrLoginFailed
		default:
			log.Error().Err(err).Str("username", username).Msg("directory authentication failed")

			return nil, ErrServerFault
		}
	}

	perms := ResolvePermissions(identity.Groups, s.markers)

	user, err := s.reconciler.Reconcile(username, identity, perms)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to reconcile user")

		return nil, ErrServerFault
	}

	log.Info().Str("username", user.Username).Msg("user authenticated successfully")

	return user, nil
}

// TestConnection performs a service-account bind only.
func (s *Service) TestConnection() bool {
	if s.authenticator == nil {
		return false
	}

	if err := s.authenticator.TestConnection(); err != nil {
		log.Error().Err(err).Msg("LDAP connection test failed")

		return false
	}

	return true
}

// SyncFromDirectory refreshes a known local user's identity and permissions
// from the directory without a password check.
func (s *Service) SyncFromDirectory(username string) (bool, string) {
	if s.authenticator == nil {
		return false, "LDAP authentication is disabled"
	}

	identity, err := s.authenticator.FetchIdentity(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, "User not found in LDAP"
		}

		log.Error().Err(err).Str("username", username).Msg("directory sync failed")

		return false, "Synchronization failed"
	}

	perms := ResolvePermissions(identity.Groups, s.markers)

	if _, err := s.reconciler.SyncExisting(username, identity, perms); err != nil {
		if errors.Is(err, ErrUserNotKnown) {
			return false, "User not found in database"
		}

		log.Error().Err(err).Str("username", username).Msg("failed to sync user")

		return false, "Synchronization failed"
	}

	return true, "User synchronized successfully"
}
