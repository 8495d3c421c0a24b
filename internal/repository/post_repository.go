package repository

import (
	"github.com/campuslink/campuslink-backend/internal/models"
	"gorm.io/gorm"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

func (r *PostRepository) FindByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("Author").First(&post, id).Error
	return &post, err
}

func (r *PostRepository) ListRecent(cursor uint, limit int) ([]models.Post, error) {
	q := r.db.Preload("Author")
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var posts []models.Post
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

// Delete removes a post only when authorID owns it.
func (r *PostRepository) Delete(id uint, authorID uint) error {
	res := r.db.Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
