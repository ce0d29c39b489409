package models

import (
	"path/filepath"
	"strings"
	"time"
)

// File represents an uploaded attachment on disk.
type File struct {
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Filename is the randomized name used on disk.
	Filename string `gorm:"size:255;not null" json:"filename"`
	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string `gorm:"size:255;not null" json:"original_filename"`
	FilePath         string `gorm:"size:500;not null" json:"-"`
	FileSize         int64  `gorm:"not null" json:"file_size"`
	MimeType         string `gorm:"size:100" json:"mime_type"`
	// FileHash is the SHA-256 of the content, used to detect duplicates.
	FileHash string `gorm:"size:64" json:"file_hash"`

	Description string `gorm:"type:text" json:"description"`
	AltText     string `gorm:"size:255" json:"alt_text"`

	IsArchived bool `gorm:"default:false" json:"is_archived"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UploaderID uint64  `gorm:"not null" json:"uploader_id"`
	Uploader   User    `gorm:"foreignKey:UploaderID" json:"-"`
	PageID     *uint64 `json:"page_id"`
}

// Extension returns the lower-cased file extension including the dot.
func (f *File) Extension() string {
	return strings.ToLower(filepath.Ext(f.OriginalFilename))
}

// Type returns a coarse file type category derived from the extension.
func (f *File) Type() string {
	switch f.Extension() {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg":
		return "image"
	case ".pdf":
		return "pdf"
	case ".doc", ".docx":
		return "document"
	case ".xls", ".xlsx":
		return "spreadsheet"
	case ".txt", ".md", ".rst":
		return "text"
	case ".zip", ".tar", ".gz", ".bz2", ".7z":
		return "archive"
	case ".mp4", ".avi", ".mov", ".wmv", ".flv":
		return "video"
	case ".mp3", ".wav", ".flac", ".ogg":
		return "audio"
	default:
		return "other"
	}
}

// IsImage reports whether the file can be thumbnailed. SVG is categorized
// as an image but stays out: it is vector data the thumbnailer cannot decode.
func (f *File) IsImage() bool {
	return f.Type() == "image" && f.Extension() != ".svg"
}
