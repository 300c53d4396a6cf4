package models

import (
	"gorm.io/gorm"
)

// Category groups public-site posts.
type Category struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"not null;uniqueIndex" json:"slug"`

	Posts []Post `gorm:"foreignKey:CategoryID" json:"posts,omitempty"`
}

// Post is a public-site content entry managed through the admin screens.
type Post struct {
	gorm.Model
	CategoryID *uint  `gorm:"index" json:"category_id,omitempty"`
	Title      string `gorm:"not null" json:"title"`
	Slug       string `gorm:"not null;uniqueIndex" json:"slug"`
	BodyHTML   string `gorm:"type:text" json:"body_html"`
	Published  bool   `gorm:"default:false" json:"published"`

	Category *Category `json:"category,omitempty"`
}
