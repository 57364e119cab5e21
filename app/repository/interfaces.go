package repository

import (
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for subscriber-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	UpdatePlan(id uint, plan string) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// DealRepository defines the interface for deal-related database operations.
// Expiry is enforced in the queries themselves: an elapsed validity window
// means the row is never returned, regardless of caller.
type DealRepository interface {
	Create(deal *models.Deal) error
	GetByID(id uint) (*models.Deal, error)
	GetByUUID(uuid string) (*models.Deal, error)
	Update(deal *models.Deal) error
	Delete(id uint) error
	GetCurrentByOriginCity(city string, at time.Time, limit int) ([]models.Deal, error)
	GetCurrent(at time.Time, limit int) ([]models.Deal, error)
	List(offset, limit int) ([]models.Deal, error)
	Count() (int64, error)
}

// PreferenceRepository defines the interface for email preference operations
type PreferenceRepository interface {
	GetByUserID(userID uint) (*models.EmailPreference, error)
	GetOrCreate(userID uint) (*models.EmailPreference, error)
	Save(pref *models.EmailPreference) error
	ListSubscribedByCadence(cadence string) ([]models.EmailPreference, error)
	UnsubscribeByUserID(userID uint) (int64, error)
	TouchLastSent(userID uint, at time.Time) error
}

// SubscriptionRepository defines the interface for billing subscription rows
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	Upsert(sub *models.Subscription) error
	GetLatestByUserID(userID uint) (*models.Subscription, error)
	ListByUserID(userID uint) ([]models.Subscription, error)
	MarkCanceled(id uint, reason string, at time.Time) error
	FindActivePlanMapping(provider, priceRef, interval string) (*models.BillingPlanMapping, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Deal         DealRepository
	Preference   PreferenceRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Deal:         NewDealRepository(db),
		Preference:   NewPreferenceRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
