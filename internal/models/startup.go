package models

import (
	"time"

	"gorm.io/gorm"
)

// Startup is a listing in the campus startups hub.
type Startup struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	FounderID uint    `gorm:"not null;index" json:"founder_id"`
	Founder   User    `gorm:"foreignKey:FounderID" json:"founder"`
	Name      string  `gorm:"not null" json:"name"`
	Pitch     string  `gorm:"type:text" json:"pitch"`
	Website   string  `json:"website"`
	Stage     string  `json:"stage"`
	Offers    []Offer `gorm:"foreignKey:StartupID" json:"offers,omitempty"`
}

// Offer is a role or collaboration opening attached to a startup listing.
type Offer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	StartupID   uint   `gorm:"not null;index" json:"startup_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Contact     string `json:"contact"`
}
