package pages

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"

	"github.com/maxdaylight/HomelabWiki/internal/db/models"
)

// Export downloads a single page as markdown or PDF.
func (s *Service) Export(c *fiber.Ctx) error {
	page := s.findPage(c)
	if page == nil {
		return nil
	}

	format := c.Query("format", "markdown")

	switch format {
	case "markdown", "md":
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", page.Slug+".md"))

		return c.SendString(renderMarkdown(page))
	case "pdf":
		out, err := renderPDF(page)
		if err != nil {
			log.Error().Err(err).Str("slug", page.Slug).Msg("failed to render pdf")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export page"})
		}

		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", page.Slug+".pdf"))

		return c.Send(out)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported export format"})
	}
}

// ExportAll downloads every published page as a zip of markdown files.
func (s *Service) ExportAll(c *fiber.Ctx) error {
	var pages []models.Page

	err := s.db.Preload("Tags").
		Where("is_published = ? AND is_archived = ?", true, false).
		Order("slug ASC").
		Find(&pages).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to load pages for export")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export pages"})
	}

	var buf bytes.Buffer

	archive := zip.NewWriter(&buf)

	for i := range pages {
		w, err := archive.Create(pages[i].Slug + ".md")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export pages"})
		}

		if _, err := w.Write([]byte(renderMarkdown(&pages[i]))); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export pages"})
		}
	}

	if err := archive.Close(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export pages"})
	}

	filename := fmt.Sprintf("wiki-export-%s.zip", time.Now().Format("2006-01-02"))

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	return c.Send(buf.Bytes())
}

// renderMarkdown produces the export representation with a metadata header.
func renderMarkdown(page *models.Page) string {
	var sb strings.Builder

	sb.WriteString("# " + page.Title + "\n\n")

	if len(page.Tags) > 0 {
		names := make([]string, 0, len(page.Tags))
		for _, tag := range page.Tags {
			names = append(names, tag.Name)
		}

		sb.WriteString("Tags: " + strings.Join(names, ", ") + "\n")
	}

	sb.WriteString("Updated: " + page.UpdatedAt.Format("2006-01-02 15:04") + "\n\n")
	sb.WriteString("---\n\n")
	sb.WriteString(page.Content)
	sb.WriteString("\n")

	return sb.String()
}

const (
	pdfTitleSize = 18
	pdfBodySize  = 11
	pdfLineHt    = 6
)

func renderPDF(page *models.Page) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", pdfTitleSize)
	pdf.MultiCell(0, 10, tr(page.Title), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", pdfBodySize)

	for _, line := range strings.Split(page.Content, "\n") {
		pdf.MultiCell(0, pdfLineHt, tr(line), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
