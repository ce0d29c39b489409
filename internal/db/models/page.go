package models

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugDash     = regexp.MustCompile(`[-\s]+`)
	markdownJunk = regexp.MustCompile("[#*`\\[\\]()]")
	whitespace   = regexp.MustCompile(`\n+`)
)

// Page represents a wiki page with Markdown content.
type Page struct {
	ID      uint64 `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"size:200;not null;index" json:"title"`
	Slug    string `gorm:"uniqueIndex;size:200;not null" json:"slug"`
	Content string `gorm:"type:text;not null" json:"content,omitempty"`
	Summary string `gorm:"size:500" json:"summary"`

	// Version is incremented on every content update.
	Version int `gorm:"default:1" json:"version"`

	IsPublished bool `gorm:"default:true" json:"is_published"`
	IsArchived  bool `gorm:"default:false" json:"is_archived"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AuthorID uint64 `gorm:"not null" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"-"`

	Tags  []Tag  `gorm:"many2many:page_tags" json:"tags"`
	Files []File `gorm:"foreignKey:PageID" json:"-"`
}

// WordCount counts words in the content with Markdown punctuation stripped.
func (p *Page) WordCount() int {
	if p.Content == "" {
		return 0
	}

	return len(strings.Fields(markdownJunk.ReplaceAllString(p.Content, "")))
}

// ReadingTime estimates reading time in minutes, assuming 200 words per minute.
func (p *Page) ReadingTime() int {
	if t := p.WordCount() / 200; t > 1 {
		return t
	}

	return 1
}

// ExtractSummary derives a plain-text summary from the Markdown content.
func (p *Page) ExtractSummary(length int) string {
	if p.Content == "" {
		return ""
	}

	text := markdownJunk.ReplaceAllString(p.Content, "")
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	if len(text) <= length {
		return text
	}

	truncated := text[:length]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		return truncated[:lastSpace] + "..."
	}

	return truncated + "..."
}

// Slugify converts a title to its URL form without checking uniqueness.
func Slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	slug = slugDash.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}

// UniqueSlug generates a URL-friendly slug from the title, appending a
// numeric suffix until no other page uses it.
func UniqueSlug(db *gorm.DB, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		return "", errors.New("title produces an empty slug")
	}

	slug := base

	for counter := 1; ; counter++ {
		var count int64
		if err := db.Model(&Page{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}

		if count == 0 {
			return slug, nil
		}

		slug = base + "-" + strconv.Itoa(counter)
	}
}
