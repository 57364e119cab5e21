package billing

import (
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	apprepo "github.com/tomsflightclub/flightclub/app/repository"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetUser(id uint) (*models.User, error)
	UpdateUserPlan(id uint, plan string) error
	FindActivePlanMapping(provider, priceRef, interval string) (*models.BillingPlanMapping, error)
	UpsertSubscription(sub *models.Subscription) error
	CreateSubscription(sub *models.Subscription) error
	GetLatestSubscriptionByUser(userID uint) (*models.Subscription, error)
	MarkSubscriptionCanceled(id uint, reason string, at time.Time) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	users UserStore
	subs  apprepo.SubscriptionRepository
}

// UserStore is the subset of the user repository the billing service needs.
type UserStore interface {
	GetByID(id uint) (*models.User, error)
	UpdatePlan(id uint, plan string) error
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{
		users: apprepo.NewUserRepository(db),
		subs:  apprepo.NewSubscriptionRepository(db),
	}
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	return r.users.GetByID(id)
}

func (r *gormRepository) UpdateUserPlan(id uint, plan string) error {
	return r.users.UpdatePlan(id, plan)
}

func (r *gormRepository) FindActivePlanMapping(provider, priceRef, interval string) (*models.BillingPlanMapping, error) {
	return r.subs.FindActivePlanMapping(provider, priceRef, interval)
}

func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	return r.subs.Upsert(sub)
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.subs.Create(sub)
}

func (r *gormRepository) GetLatestSubscriptionByUser(userID uint) (*models.Subscription, error) {
	return r.subs.GetLatestByUserID(userID)
}

func (r *gormRepository) MarkSubscriptionCanceled(id uint, reason string, at time.Time) error {
	return r.subs.MarkCanceled(id, reason, at)
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	return r.subs.CreateWebhookEventIfNotExists(event)
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	return r.subs.MarkWebhookProcessed(id, processingError)
}
