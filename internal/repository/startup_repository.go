package repository

import (
	"github.com/campuslink/campuslink-backend/internal/models"
	"gorm.io/gorm"
)

type StartupRepository struct {
	db *gorm.DB
}

func NewStartupRepository(db *gorm.DB) *StartupRepository {
	return &StartupRepository{db: db}
}

func (r *StartupRepository) Create(startup *models.Startup) error {
	return r.db.Create(startup).Error
}

func (r *StartupRepository) FindByID(id uint) (*models.Startup, error) {
	var startup models.Startup
	err := r.db.Preload("Founder").
		Preload("Offers").
		First(&startup, id).Error
	return &startup, err
}

func (r *StartupRepository) List(limit int) ([]models.Startup, error) {
	if limit <= 0 {
		limit = 50
	}
	var startups []models.Startup
	err := r.db.Preload("Founder").
		Order("created_at DESC").
		Limit(limit).
		Find(&startups).Error
	return startups, err
}

func (r *StartupRepository) Update(startup *models.Startup) error {
	return r.db.Save(startup).Error
}

func (r *StartupRepository) Delete(id uint, founderID uint) error {
	res := r.db.Where("id = ? AND founder_id = ?", id, founderID).Delete(&models.Startup{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *StartupRepository) CreateOffer(offer *models.Offer) error {
	return r.db.Create(offer).Error
}

// DeleteOffer removes an offer only when founderID owns the parent startup.
func (r *StartupRepository) DeleteOffer(offerID uint, founderID uint) error {
	res := r.db.Exec(`
		DELETE FROM offers
		USING startups
		WHERE offers.id = ? AND startups.id = offers.startup_id AND startups.founder_id = ?
	`, offerID, founderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
