package repository

import (
	"github.com/campuslink/campuslink-backend/internal/models"
	"gorm.io/gorm"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Create(question *models.Question) error {
	return r.db.Create(question).Error
}

func (r *QuestionRepository) FindByID(id uint) (*models.Question, error) {
	var question models.Question
	err := r.db.Preload("Author").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.created_at ASC")
		}).
		Preload("Answers.Author").
		First(&question, id).Error
	return &question, err
}

func (r *QuestionRepository) ListRecent(cursor uint, limit int) ([]models.Question, error) {
	q := r.db.Preload("Author")
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var questions []models.Question
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) Delete(id uint, authorID uint) error {
	res := r.db.Where("id = ? AND author_id = ?", id, authorID).Delete(&models.Question{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *QuestionRepository) CreateAnswer(answer *models.Answer) error {
	return r.db.Create(answer).Error
}
