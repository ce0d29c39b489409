// Package tags implements the tag API endpoints.
package tags

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	authsvc "github.com/maxdaylight/HomelabWiki/internal/auth"
	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	"github.com/maxdaylight/HomelabWiki/internal/web/handler"
)

const (
	// Path is the base path of the tags API.
	Path = "/api/tags"
)

// Service is the tags handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the tags handler.
var Handler = Service{}

// Init initializes the tags handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.cfg = cfg
	s.db = db

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, authsvc.RequireAuth(), s.List)
		router.Get("/:name/pages", authsvc.RequireAuth(), s.Pages)
		router.Delete("/:name", authsvc.RequirePermission("admin"), s.Delete)
	})

	return nil
}

type tagCount struct {
	models.Tag
	PageCount int64 `json:"page_count"`
}

// List returns all tags with the number of published pages using each.
func (s *Service) List(c *fiber.Ctx) error {
	var tags []models.Tag
	if err := s.db.Order("name ASC").Find(&tags).Error; err != nil {
		log.Error().Err(err).Msg("failed to list tags")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get tags"})
	}

	counted := make([]tagCount, 0, len(tags))

	for _, tag := range tags {
		var count int64

		err := s.db.Model(&models.Page{}).
			Joins("JOIN page_tags ON page_tags.page_id = pages.id").
			Where("page_tags.tag_id = ? AND pages.is_published = ? AND pages.is_archived = ?",
				tag.ID, true, false).
			Count(&count).Error
		if err != nil {
			log.Error().Err(err).Str("tag", tag.Name).Msg("failed to count tag pages")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get tags"})
		}

		counted = append(counted, tagCount{Tag: tag, PageCount: count})
	}

	return c.JSON(fiber.Map{"tags": counted})
}

// Pages returns the published pages carrying a tag.
func (s *Service) Pages(c *fiber.Ctx) error {
	var tag models.Tag
	if err := s.db.Where("name = ?", c.Params("name")).First(&tag).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tag not found"})
	}

	var pages []models.Page

	err := s.db.Preload("Tags").
		Joins("JOIN page_tags ON page_tags.page_id = pages.id").
		Where("page_tags.tag_id = ? AND pages.is_published = ? AND pages.is_archived = ?",
			tag.ID, true, false).
		Order("pages.updated_at DESC").
		Find(&pages).Error
	if err != nil {
		log.Error().Err(err).Str("tag", tag.Name).Msg("failed to list tag pages")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get pages"})
	}

	for i := range pages {
		pages[i].Content = ""
	}

	return c.JSON(fiber.Map{"tag": tag, "pages": pages})
}

// Delete removes an unused tag. Tags still attached to pages are kept.
func (s *Service) Delete(c *fiber.Ctx) error {
	var tag models.Tag
	if err := s.db.Where("name = ?", c.Params("name")).First(&tag).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tag not found"})
	}

	count := s.db.Model(&tag).Association("Pages").Count()
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Tag is still in use"})
	}

	if err := s.db.Delete(&tag).Error; err != nil {
		log.Error().Err(err).Str("tag", tag.Name).Msg("failed to delete tag")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete tag"})
	}

	return c.JSON(fiber.Map{"message": "Tag deleted"})
}
