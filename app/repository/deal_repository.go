package repository

import (
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	"gorm.io/gorm"
)

// dealRepository implements the DealRepository interface
type dealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository instance
func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

// Create creates a new deal in the database
func (r *dealRepository) Create(deal *models.Deal) error {
	return r.db.Create(deal).Error
}

// GetByID retrieves a deal by its ID
func (r *dealRepository) GetByID(id uint) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.First(&deal, id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// GetByUUID retrieves a deal by its public UUID
func (r *dealRepository) GetByUUID(uuid string) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.Where("uuid = ?", uuid).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Update saves an administrative correction to an existing deal
func (r *dealRepository) Update(deal *models.Deal) error {
	return r.db.Save(deal).Error
}

// Delete soft deletes a deal by its ID
func (r *dealRepository) Delete(id uint) error {
	return r.db.Delete(&models.Deal{}, id).Error
}

// GetCurrentByOriginCity returns unexpired deals departing from the given
// city, newest discovery first. Expired rows are excluded in the query, not
// filtered afterwards.
func (r *dealRepository) GetCurrentByOriginCity(city string, at time.Time, limit int) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Where("origin_city = ? AND valid_until > ?", city, at).
		Order("discovered_at DESC").Limit(limit).Find(&deals).Error
	return deals, err
}

// GetCurrent returns unexpired deals from all origin cities, newest
// discovery first. Used as the multi-city fallback for subscribers without
// a home city.
func (r *dealRepository) GetCurrent(at time.Time, limit int) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Where("valid_until > ?", at).
		Order("discovered_at DESC").Limit(limit).Find(&deals).Error
	return deals, err
}

// List retrieves a paginated list of deals, newest first
func (r *dealRepository) List(offset, limit int) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Order("discovered_at DESC").Offset(offset).Limit(limit).Find(&deals).Error
	return deals, err
}

// Count returns the total number of deals
func (r *dealRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Deal{}).Count(&count).Error
	return count, err
}
