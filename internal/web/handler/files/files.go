// Package files implements the file upload and download API endpoints.
package files

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	authsvc "github.com/maxdaylight/HomelabWiki/internal/auth"
	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	"github.com/maxdaylight/HomelabWiki/internal/uniuri"
	"github.com/maxdaylight/HomelabWiki/internal/web/handler"
)

const (
	// Path is the base path of the files API.
	Path = "/api/files"

	diskNameLength = 16
)

// allowedExtensions is the upload allowlist. Everything else is rejected
// before touching the disk.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true, ".svg": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".txt": true, ".md": true, ".rst": true,
	".zip": true, ".tar": true, ".gz": true,
	".mp4": true, ".mov": true,
	".mp3": true, ".wav": true, ".ogg": true,
}

// Service is the files handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the files handler.
var Handler = Service{}

// Init initializes the files handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.cfg = cfg
	s.db = db

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, authsvc.RequireAuth(), s.List)
		router.Post("/upload", authsvc.RequirePermission("upload"), s.Upload)
		router.Get("/stats", authsvc.RequirePermission("admin"), s.Stats)
		router.Get("/:id", authsvc.RequireAuth(), s.Get)
		router.Get("/:id/download", authsvc.RequireAuth(), s.Download)
		router.Get("/:id/thumbnail", authsvc.RequireAuth(), s.Thumbnail)
		router.Put("/:id", authsvc.RequireAuth(), s.Update)
		router.Delete("/:id", authsvc.RequireAuth(), s.Delete)
	})

	return nil
}

// List returns uploaded files with optional type and page filters.
func (s *Service) List(c *fiber.Ctx) error {
	query := s.db.Model(&models.File{}).Where("is_archived = ?", false)

	if pageID := c.QueryInt("page_id"); pageID > 0 {
		query = query.Where("page_id = ?", pageID)
	}

	var files []models.File
	if err := query.Order("created_at DESC").Find(&files).Error; err != nil {
		log.Error().Err(err).Msg("failed to list files")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get files"})
	}

	if fileType := c.Query("type"); fileType != "" {
		filtered := files[:0]

		for _, f := range files {
			if f.Type() == fileType {
				filtered = append(filtered, f)
			}
		}

		files = filtered
	}

	return c.JSON(fiber.Map{"files": files})
}

// Upload stores a multipart file on disk under a randomized name.
func (s *Service) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "File type not allowed"})
	}

	if header.Size > s.cfg.Upload.MaxSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "File too large"})
	}

	hash, err := hashUpload(header)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash upload")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload file"})
	}

	// same content uploaded twice returns the existing record
	var existing models.File
	if err := s.db.Where("file_hash = ? AND is_archived = ?", hash, false).
		First(&existing).Error; err == nil {
		return c.JSON(fiber.Map{"file": existing, "duplicate": true})
	}

	diskName := uniuri.NewLen(diskNameLength) + ext
	diskPath := filepath.Join(s.cfg.Upload.Dir, diskName)

	if err := c.SaveFile(header, diskPath); err != nil {
		log.Error().Err(err).Str("path", diskPath).Msg("failed to save upload")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload file"})
	}

	user := authsvc.CurrentUser(c)

	file := models.File{
		Filename:         diskName,
		OriginalFilename: header.Filename,
		FilePath:         diskPath,
		FileSize:         header.Size,
		MimeType:         header.Header.Get(fiber.HeaderContentType),
		FileHash:         hash,
		Description:      c.FormValue("description"),
		AltText:          c.FormValue("alt_text"),
		UploaderID:       user.ID,
	}

	if pageID := c.FormValue("page_id"); pageID != "" {
		var page models.Page
		if err := s.db.First(&page, pageID).Error; err == nil {
			file.PageID = &page.ID
		}
	}

	if err := s.db.Create(&file).Error; err != nil {
		log.Error().Err(err).Msg("failed to record upload")

		if removeErr := os.Remove(diskPath); removeErr != nil {
			log.Warn().Err(removeErr).Str("path", diskPath).Msg("failed to remove orphaned upload")
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload file"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"file": file})
}

// Get returns a single file record.
func (s *Service) Get(c *fiber.Ctx) error {
	file := s.findFile(c)
	if file == nil {
		return nil
	}

	return c.JSON(fiber.Map{"file": file})
}

// Download streams the file content with its original filename.
func (s *Service) Download(c *fiber.Ctx) error {
	file := s.findFile(c)
	if file == nil {
		return nil
	}

	if _, err := os.Stat(file.FilePath); err != nil {
		log.Error().Err(err).Str("path", file.FilePath).Msg("file missing on disk")

		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "File not found"})
	}

	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", file.OriginalFilename))

	return c.SendFile(file.FilePath)
}

// Update changes a file's metadata. Only the uploader or an admin may do so.
func (s *Service) Update(c *fiber.Ctx) error {
	file := s.findFile(c)
	if file == nil {
		return nil
	}

	user := authsvc.CurrentUser(c)
	if !user.IsAdmin && file.UploaderID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Permission denied"})
	}

	var req struct {
		Description *string `json:"description"`
		AltText     *string `json:"alt_text"`
		PageID      *uint64 `json:"page_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No data provided"})
	}

	if req.Description != nil {
		file.Description = *req.Description
	}

	if req.AltText != nil {
		file.AltText = *req.AltText
	}

	if req.PageID != nil {
		if *req.PageID == 0 {
			file.PageID = nil
		} else {
			file.PageID = req.PageID
		}
	}

	if err := s.db.Save(file).Error; err != nil {
		log.Error().Err(err).Msg("failed to update file")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update file"})
	}

	return c.JSON(fiber.Map{"file": file})
}

// Delete removes the file record and its data on disk.
func (s *Service) Delete(c *fiber.Ctx) error {
	file := s.findFile(c)
	if file == nil {
		return nil
	}

	user := authsvc.CurrentUser(c)
	if !user.IsAdmin && !(user.CanDelete && file.UploaderID == user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Permission denied"})
	}

	if err := s.db.Delete(file).Error; err != nil {
		log.Error().Err(err).Msg("failed to delete file")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete file"})
	}

	if err := os.Remove(file.FilePath); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", file.FilePath).Msg("failed to remove file from disk")
	}

	s.removeThumbnail(file)

	return c.JSON(fiber.Map{"message": "File deleted"})
}

// Stats reports storage usage grouped by file type.
func (s *Service) Stats(c *fiber.Ctx) error {
	var files []models.File
	if err := s.db.Where("is_archived = ?", false).Find(&files).Error; err != nil {
		log.Error().Err(err).Msg("failed to load file stats")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to get stats"})
	}

	var totalSize int64

	byType := map[string]int{}

	for _, f := range files {
		totalSize += f.FileSize
		byType[f.Type()]++
	}

	return c.JSON(fiber.Map{
		"total_files": len(files),
		"total_size":  totalSize,
		"by_type":     byType,
	})
}

// findFile resolves the :id parameter. On failure it writes the error
// response and returns nil; the caller just returns.
func (s *Service) findFile(c *fiber.Ctx) *models.File {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file id"})

		return nil
	}

	var file models.File
	if err := s.db.First(&file, id).Error; err != nil {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "File not found"})

		return nil
	}

	return &file
}

func hashUpload(header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
