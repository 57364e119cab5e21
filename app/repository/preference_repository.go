package repository

import (
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	"gorm.io/gorm"
)

// preferenceRepository implements the PreferenceRepository interface
type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new email preference repository instance
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// GetByUserID retrieves the preference row for a user
func (r *preferenceRepository) GetByUserID(userID uint) (*models.EmailPreference, error) {
	var pref models.EmailPreference
	err := r.db.Where("user_id = ?", userID).First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// GetOrCreate returns existing preferences or creates defaults
func (r *preferenceRepository) GetOrCreate(userID uint) (*models.EmailPreference, error) {
	return models.GetOrCreateEmailPreference(r.db, userID)
}

// Save persists the preference row
func (r *preferenceRepository) Save(pref *models.EmailPreference) error {
	return r.db.Save(pref).Error
}

// ListSubscribedByCadence returns every subscribed preference row for the
// given cadence. This is the dispatcher's recipient selection.
func (r *preferenceRepository) ListSubscribedByCadence(cadence string) ([]models.EmailPreference, error) {
	var prefs []models.EmailPreference
	err := r.db.Where("subscribed = ? AND cadence = ?", true, cadence).Find(&prefs).Error
	return prefs, err
}

// UnsubscribeByUserID flips the row into its terminal unsubscribed state and
// reports how many rows matched. Zero matched rows is not an error; the
// unsubscribe endpoint treats it as success to avoid token enumeration.
func (r *preferenceRepository) UnsubscribeByUserID(userID uint) (int64, error) {
	tx := r.db.Model(&models.EmailPreference{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"subscribed": false,
			"cadence":    models.CadenceNever,
		})
	return tx.RowsAffected, tx.Error
}

// TouchLastSent stamps the advisory last-sent timestamp for a user
func (r *preferenceRepository) TouchLastSent(userID uint, at time.Time) error {
	return r.db.Model(&models.EmailPreference{}).
		Where("user_id = ?", userID).
		Update("last_sent_at", at).Error
}
