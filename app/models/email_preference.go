package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CadenceNever       = "never"
	CadenceDaily       = "daily"
	CadenceThreeWeekly = "three_weekly"
	CadenceTwiceWeekly = "twice_weekly"
	CadenceWeekly      = "weekly"
)

// EmailPreference stores per-user digest cadence and subscription state.
// One row per user, created lazily on first send or preference update.
type EmailPreference struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"uniqueIndex" json:"user_id"`
	Cadence    string         `gorm:"type:varchar(20);default:'daily';index" json:"cadence"`
	Subscribed bool           `gorm:"default:true;index" json:"subscribed"`
	LastSentAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_sent_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Cadences lists every accepted cadence value, in display order.
func Cadences() []string {
	return []string{CadenceNever, CadenceDaily, CadenceThreeWeekly, CadenceTwiceWeekly, CadenceWeekly}
}

// IsValidCadence reports whether s is a member of the closed cadence set.
func IsValidCadence(s string) bool {
	switch s {
	case CadenceNever, CadenceDaily, CadenceThreeWeekly, CadenceTwiceWeekly, CadenceWeekly:
		return true
	default:
		return false
	}
}

// GetOrCreateEmailPreference returns existing preferences or creates defaults
func GetOrCreateEmailPreference(db *gorm.DB, userID uint) (*EmailPreference, error) {
	var pref EmailPreference
	if err := db.Where("user_id = ?", userID).First(&pref).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			pref = EmailPreference{UserID: userID, Cadence: CadenceDaily, Subscribed: true}
			if err := db.Create(&pref).Error; err != nil {
				return nil, err
			}
			return &pref, nil
		}
		return nil, err
	}
	return &pref, nil
}

// Unsubscribe flips the preference into its terminal state. Cadence "never"
// with subscribed=false is idempotent; applying it twice is a no-op.
func (p *EmailPreference) Unsubscribe() {
	p.Subscribed = false
	p.Cadence = CadenceNever
}

// TouchLastSent stamps the advisory last-sent timestamp.
func (p *EmailPreference) TouchLastSent(t time.Time) {
	p.LastSentAt = &t
}
