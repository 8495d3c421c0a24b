package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a campus account. Credentials live with the external identity
// provider; we only mirror the profile fields the app renders.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
	Major    string `json:"major"`
	Year     int    `json:"year"`
	Bio      string `gorm:"type:text" json:"bio"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
	Major    string `json:"major"`
	Year     int    `json:"year"`
	Bio      string `json:"bio"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Avatar:   u.Avatar,
		Major:    u.Major,
		Year:     u.Year,
		Bio:      u.Bio,
	}
}
