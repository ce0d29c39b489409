// Package pages implements the wiki page API endpoints.
package pages

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	authsvc "github.com/maxdaylight/HomelabWiki/internal/auth"
	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	"github.com/maxdaylight/HomelabWiki/internal/web/handler"
)

const (
	// Path is the base path of the pages API.
	Path = "/api/pages"

	summaryLength  = 200
	defaultPerPage = 20
	maxPerPage     = 100
)

// Service is the pages handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	validate *validator.Validate
}

// Handler is the pages handler.
var Handler = Service{}

type pageRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
	IsPublished *bool    `json:"is_published"`
}

// Init initializes the pages handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.cfg = cfg
	s.db = db
	s.validate = validator.New()

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, authsvc.RequireAuth(), s.List)
		router.Post(handler.RouterRootPath, authsvc.RequirePermission("create"), s.Create)
		router.Get("/export/all", authsvc.RequireAuth(), s.ExportAll)
		router.Get("/slug/:slug", authsvc.RequireAuth(), s.GetBySlug)
		router.Get("/:id", authsvc.RequireAuth(), s.Get)
		router.Put("/:id", authsvc.RequirePermission("edit"), s.Update)
		router.Delete("/:id", authsvc.RequireAuth(), s.Delete)
		router.Get("/:id/export", authsvc.RequireAuth(), s.Export)
	})

	return nil
}

// List returns published pages with pagination and filtering.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	perPage := c.QueryInt("per_page", defaultPerPage)
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	query := s.db.Model(&models.Page{}).
		Where("is_published = ? AND is_archived = ?", true, false)

	if tag := c.Query("tag"); tag != "" {
		query = query.
			Joins("JOIN page_tags ON page_tags.page_id = pages.id").
			Joins("JOIN tags ON tags.id = page_tags.tag_id").
			Where("tags.name = ?", tag)
	}

	if author := c.Query("author"); author != "" {
		query = query.
			Joins("JOIN users ON users.id = pages.author_id").
			Where("users.username = ?", author)
	}

	if search := c.Query("search"); search != "" {
		term := "%" + search + "%"
		query = query.Where("pages.title LIKE ? OR pages.content LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Error().Err(err).Msg("failed to count pages")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get pages"})
	}

	var pages []models.Page

	err := query.Preload("Tags").
		Order("pages.updated_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&pages).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to list pages")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get pages"})
	}

	// listings omit the content body
	for i := range pages {
		pages[i].Content = ""
	}

	totalPages := (total + int64(perPage) - 1) / int64(perPage)

	return c.JSON(fiber.Map{
		"pages": pages,
		"pagination": fiber.Map{
			"page":     page,
			"per_page": perPage,
			"total":    total,
			"pages":    totalPages,
			"has_prev": page > 1,
			"has_next": int64(page) < totalPages,
		},
	})
}

// Get returns a single page by ID.
func (s *Service) Get(c *fiber.Ctx) error {
	page := s.findPage(c)
	if page == nil {
		return nil
	}

	user := authsvc.CurrentUser(c)
	if !page.IsPublished && !canEditPage(user, page) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
	}

	return c.JSON(fiber.Map{"page": page})
}

// GetBySlug returns a published page by its slug.
func (s *Service) GetBySlug(c *fiber.Ctx) error {
	var page models.Page

	err := s.db.Preload("Tags").
		Where("slug = ? AND is_published = ? AND is_archived = ?", c.Params("slug"), true, false).
		First(&page).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})
	}

	return c.JSON(fiber.Map{"page": page})
}

// Create creates a new page.
func (s *Service) Create(c *fiber.Ctx) error {
	var req pageRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No data provided"})
	}

	if err := s.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}

	user := authsvc.CurrentUser(c)

	slug, err := models.UniqueSlug(s.db, req.Title)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid title"})
	}

	page := models.Page{
		Title:       req.Title,
		Slug:        slug,
		Content:     req.Content,
		AuthorID:    user.ID,
		IsPublished: true,
	}

	if req.IsPublished != nil {
		page.IsPublished = *req.IsPublished
	}

	page.Summary = page.ExtractSummary(summaryLength)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&page).Error; err != nil {
			return err
		}

		return s.replaceTags(tx, &page, req.Tags)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create page")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create page"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"page": page})
}

// Update edits an existing page and bumps its version.
func (s *Service) Update(c *fiber.Ctx) error {
	page := s.findPage(c)
	if page == nil {
		return nil
	}

	user := authsvc.CurrentUser(c)
	if !canEditPage(user, page) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Permission denied"})
	}

	var req pageRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No data provided"})
	}

	if err := s.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}

	page.Title = req.Title
	page.Content = req.Content
	page.Summary = page.ExtractSummary(summaryLength)
	page.Version++

	if req.IsPublished != nil {
		page.IsPublished = *req.IsPublished
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(page).Error; err != nil {
			return err
		}

		return s.replaceTags(tx, page, req.Tags)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to update page")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update page"})
	}

	return c.JSON(fiber.Map{"page": page})
}

// Delete removes a page.
func (s *Service) Delete(c *fiber.Ctx) error {
	page := s.findPage(c)
	if page == nil {
		return nil
	}

	user := authsvc.CurrentUser(c)
	if !canDeletePage(user, page) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Permission denied"})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(page).Association("Tags").Clear(); err != nil {
			return err
		}

		return tx.Delete(page).Error
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to delete page")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete page"})
	}

	return c.JSON(fiber.Map{"message": "Page deleted"})
}

// findPage resolves the :id parameter. On failure it writes the error
// response and returns nil; the caller just returns.
func (s *Service) findPage(c *fiber.Ctx) *models.Page {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid page id"})

		return nil
	}

	var page models.Page
	if err := s.db.Preload("Tags").First(&page, id).Error; err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found"})

		return nil
	}

	return &page
}

// replaceTags reassigns the page's tag set, creating unknown tags on the fly.
func (s *Service) replaceTags(tx *gorm.DB, page *models.Page, names []string) error {
	tags := make([]models.Tag, 0, len(names))

	for _, name := range names {
		if name == "" {
			continue
		}

		var tag models.Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return err
		}

		tags = append(tags, tag)
	}

	if err := tx.Model(page).Association("Tags").Replace(tags); err != nil {
		return err
	}

	page.Tags = tags

	return nil
}

// Page-level authorization mirrors the permission model: admins may edit and
// delete anything, others only their own pages and only with the matching flag.
func canEditPage(user *models.User, page *models.Page) bool {
	if user.IsAdmin {
		return true
	}

	return user.CanEdit && page.AuthorID == user.ID
}

func canDeletePage(user *models.User, page *models.Page) bool {
	if user.IsAdmin {
		return true
	}

	return user.CanDelete && page.AuthorID == user.ID
}
