// Package search implements the cross-entity search API endpoints.
package search

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	authsvc "github.com/maxdaylight/HomelabWiki/internal/auth"
	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	"github.com/maxdaylight/HomelabWiki/internal/web/handler"
)

const (
	// Path is the base path of the search API.
	Path = "/api/search"

	maxResults     = 50
	maxSuggestions = 10
	summaryLength  = 200
)

// Service is the search handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the search handler.
var Handler = Service{}

// Init initializes the search handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.cfg = cfg
	s.db = db

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, authsvc.RequireAuth(), s.Search)
		router.Get("/suggestions", authsvc.RequireAuth(), s.Suggestions)
	})

	return nil
}

// Search performs a case-insensitive substring search over pages, files
// and tags. The scope query parameter limits the entity types searched.
func (s *Service) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Search query required"})
	}

	scope := c.Query("type", "all")
	term := "%" + query + "%"

	result := fiber.Map{"query": query}

	if scope == "all" || scope == "pages" {
		pages, err := s.searchPages(term)
		if err != nil {
			log.Error().Err(err).Msg("page search failed")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Search failed"})
		}

		result["pages"] = pages
	}

	if scope == "all" || scope == "files" {
		files, err := s.searchFiles(term)
		if err != nil {
			log.Error().Err(err).Msg("file search failed")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Search failed"})
		}

		result["files"] = files
	}

	if scope == "all" || scope == "tags" {
		tags, err := s.searchTags(term)
		if err != nil {
			log.Error().Err(err).Msg("tag search failed")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Search failed"})
		}

		result["tags"] = tags
	}

	return c.JSON(result)
}

// Suggestions returns page titles matching a prefix, for typeahead.
func (s *Service) Suggestions(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return c.JSON(fiber.Map{"suggestions": []string{}})
	}

	var titles []string

	err := s.db.Model(&models.Page{}).
		Where("is_published = ? AND is_archived = ?", true, false).
		Where("title LIKE ?", query+"%").
		Order("title ASC").
		Limit(maxSuggestions).
		Pluck("title", &titles).Error
	if err != nil {
		log.Error().Err(err).Msg("suggestions failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Search failed"})
	}

	return c.JSON(fiber.Map{"suggestions": titles})
}

func (s *Service) searchPages(term string) ([]models.Page, error) {
	var pages []models.Page

	err := s.db.Preload("Tags").
		Where("is_published = ? AND is_archived = ?", true, false).
		Where("title LIKE ? OR content LIKE ?", term, term).
		Order("updated_at DESC").
		Limit(maxResults).
		Find(&pages).Error
	if err != nil {
		return nil, err
	}

	// search results carry the summary, not the full body
	for i := range pages {
		if pages[i].Summary == "" {
			pages[i].Summary = pages[i].ExtractSummary(summaryLength)
		}

		pages[i].Content = ""
	}

	return pages, nil
}

func (s *Service) searchFiles(term string) ([]models.File, error) {
	var files []models.File

	err := s.db.Where("is_archived = ?", false).
		Where("original_filename LIKE ? OR description LIKE ?", term, term).
		Order("created_at DESC").
		Limit(maxResults).
		Find(&files).Error

	return files, err
}

func (s *Service) searchTags(term string) ([]models.Tag, error) {
	var tags []models.Tag

	err := s.db.Where("name LIKE ?", term).
		Order("name ASC").
		Limit(maxResults).
		Find(&tags).Error

	return tags, err
}
