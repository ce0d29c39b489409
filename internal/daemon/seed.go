package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/auth"
	"github.com/maxdaylight/HomelabWiki/internal/config"
)

// seed creates the break-glass local admin account when local auth is enabled.
func seed(cfg *config.Config, db *gorm.DB) {
	if !cfg.Auth.Local.Enabled {
		return
	}

	if cfg.Auth.Local.AdminUsername == "" || cfg.Auth.Local.AdminPassword == "" {
		log.Warn().Msg("local auth enabled but admin credentials are not configured")

		return
	}

	local := auth.NewLocalProvider(db)
	if err := local.EnsureAdmin(cfg.Auth.Local.AdminUsername, cfg.Auth.Local.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to seed local admin account")
	}
}
