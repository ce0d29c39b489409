package files

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/maxdaylight/HomelabWiki/internal/db/models"
)

const (
	thumbnailWidth  = 300
	thumbnailHeight = 300
)

// Thumbnail serves a cached, downscaled preview of an image file. The
// thumbnail is rendered on first access and reused afterwards.
func (s *Service) Thumbnail(c *fiber.Ctx) error {
	file := s.findFile(c)
	if file == nil {
		return nil
	}

	if !file.IsImage() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Not an image"})
	}

	thumbPath := s.thumbnailPath(file)
	if _, err := os.Stat(thumbPath); err == nil {
		return c.SendFile(thumbPath)
	}

	src, err := imaging.Open(file.FilePath, imaging.AutoOrientation(true))
	if err != nil {
		log.Error().Err(err).Str("path", file.FilePath).Msg("failed to open image")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create thumbnail"})
	}

	thumb := imaging.Fit(src, thumbnailWidth, thumbnailHeight, imaging.Lanczos)

	if err := imaging.Save(thumb, thumbPath); err != nil {
		log.Error().Err(err).Str("path", thumbPath).Msg("failed to save thumbnail")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create thumbnail"})
	}

	return c.SendFile(thumbPath)
}

// thumbnailPath keys the cache by record ID so metadata renames never
// invalidate it. Thumbnails are always stored as JPEG.
func (s *Service) thumbnailPath(file *models.File) string {
	return filepath.Join(s.cfg.Upload.ThumbnailDir, fmt.Sprintf("%d.jpg", file.ID))
}

func (s *Service) removeThumbnail(file *models.File) {
	path := s.thumbnailPath(file)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove thumbnail")
	}
}
