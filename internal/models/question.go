package models

import (
	"time"

	"gorm.io/gorm"
)

// Question is a Q&A board entry; Answer replies to exactly one question.
type Question struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	AuthorID uint     `gorm:"not null;index" json:"author_id"`
	Author   User     `gorm:"foreignKey:AuthorID" json:"author"`
	Title    string   `gorm:"not null" json:"title"`
	Body     string   `gorm:"type:text" json:"body"`
	Tags     string   `json:"tags"`
	Answers  []Answer `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
}

type Answer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	AuthorID   uint   `gorm:"not null;index" json:"author_id"`
	Author     User   `gorm:"foreignKey:AuthorID" json:"author"`
	Body       string `gorm:"type:text;not null" json:"body"`
}
