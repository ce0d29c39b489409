package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/config"
)

// RouterRootPath is the root path of a handler's route group.
const RouterRootPath = "/"

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error
}
