package models

import "time"

// Tag labels pages for filtering and search.
type Tag struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	Pages []Page `gorm:"many2many:page_tags" json:"-"`
}
