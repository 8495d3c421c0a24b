package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a campus feed entry.
type Post struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `json:"image_url"`
}

type PostResponse struct {
	ID        uint         `json:"id"`
	Author    UserResponse `json:"author"`
	Content   string       `json:"content"`
	ImageURL  string       `json:"image_url"`
	CreatedAt time.Time    `json:"created_at"`
}

func (p *Post) ToResponse() PostResponse {
	return PostResponse{
		ID:        p.ID,
		Author:    p.Author.ToResponse(),
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		CreatedAt: p.CreatedAt,
	}
}
