package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deal is a priced itinerary discovered by the aggregation side. Rows are
// append-mostly: immutable after creation except for admin corrections.
type Deal struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	UUID               string         `gorm:"type:char(36) CHARACTER SET utf8 COLLATE utf8_bin;uniqueIndex;not null" json:"uuid"`
	OriginCity         string         `gorm:"type:varchar(100);not null;index:idx_deals_origin_discovered,priority:1" json:"origin_city" validate:"required,max=100"`
	OriginAirport      string         `gorm:"type:char(3);not null" json:"origin_airport" validate:"required,len=3"`
	DestinationCity    string         `gorm:"type:varchar(100);not null" json:"destination_city" validate:"required,max=100"`
	DestinationAirport string         `gorm:"type:char(3);not null" json:"destination_airport" validate:"required,len=3"`
	PriceMinor         int64          `gorm:"type:bigint;not null" json:"price_minor" validate:"gt=0"`
	Currency           string         `gorm:"type:char(3);not null;default:'GBP'" json:"currency" validate:"required,len=3"`
	Premium            bool           `gorm:"default:false;index" json:"premium"`
	ValidFrom          time.Time      `gorm:"type:timestamp;not null" json:"valid_from"`
	ValidUntil         time.Time      `gorm:"type:timestamp;not null;index" json:"valid_until"`
	DiscoveredAt       time.Time      `gorm:"type:timestamp;not null;index:idx_deals_origin_discovered,priority:2" json:"discovered_at"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Deal model
func (Deal) TableName() string {
	return "deals"
}

// BeforeCreate fills defaults for rows created without them.
func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == "" {
		d.UUID = uuid.New().String()
	}
	if d.DiscoveredAt.IsZero() {
		d.DiscoveredAt = time.Now()
	}
	return nil
}

// IsExpired reports whether the validity window has elapsed at the given time.
func (d *Deal) IsExpired(now time.Time) bool {
	return !d.ValidUntil.After(now)
}
