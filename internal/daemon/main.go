// Package daemon wires the database, session store and web service together.
package daemon

import (
	"fmt"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/dsn"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	"github.com/maxdaylight/HomelabWiki/internal/logger"
	"github.com/maxdaylight/HomelabWiki/internal/web"
	"github.com/maxdaylight/HomelabWiki/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until shutdown.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("failed to init logger")
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Page{},
		&models.Tag{},
		&models.File{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	seed(cfg, db)

	for _, dir := range []string{cfg.Upload.Dir, cfg.Upload.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Fatal().Err(err).Str("path", dir).Msg("failed to create upload directory")
		}
	}

	session.Init(sessionStorage(cfg))

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db),
	}
}

// openDialector picks the gorm driver for the configured database.
func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.Driver {
	case "postgres":
		return gormpostgres.Open(dsn.Create(cfg))
	case "mysql":
		return gormmysql.Open(dsn.Create(cfg))
	default:
		return sqlite.Open(dsn.Create(cfg))
	}
}

// sessionStorage selects the session backend matching the database driver.
// sqlite deployments use fiber's in-memory store, so sessions do not survive
// a restart there.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.Driver {
	case "postgres":
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.PostgresURI(cfg),
			Table:         "sessions",
		})
	case "mysql":
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	default:
		return nil
	}
}
