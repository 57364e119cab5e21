package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/internal/pkg/cache"
	"github.com/tomsflightclub/flightclub/internal/pkg/database"
	"github.com/tomsflightclub/flightclub/internal/pkg/entitlements"
)

const (
	CacheKeySubscribers        = "statistics:subscribers:total"
	CacheKeyPremiumSubscribers = "statistics:subscribers:premium"
	CacheKeyCurrentDeals       = "statistics:deals:current"
	CacheExpiration            = 30 * time.Minute
)

// StatisticsData holds the headline numbers for the landing page.
type StatisticsData struct {
	TotalSubscribers   int
	PremiumSubscribers int
	CurrentDeals       int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached numbers are due a refresh.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when the interval elapsed.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("statistics: cache refresh failed: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all statistics and stores them in Redis.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalSubscribers int64
	if err := db.Model(&models.User{}).Count(&totalSubscribers).Error; err != nil {
		log.Printf("statistics: error counting subscribers: %v", err)
		return err
	}

	var premiumSubscribers int64
	if err := db.Model(&models.User{}).Where("plan = ?", entitlements.PlanPremium).Count(&premiumSubscribers).Error; err != nil {
		log.Printf("statistics: error counting premium subscribers: %v", err)
		return err
	}

	var currentDeals int64
	if err := db.Model(&models.Deal{}).Where("valid_until > ?", time.Now()).Count(&currentDeals).Error; err != nil {
		log.Printf("statistics: error counting current deals: %v", err)
		return err
	}

	if err := cache.Set(CacheKeySubscribers, strconv.FormatInt(totalSubscribers, 10), CacheExpiration); err != nil {
		log.Printf("statistics: error caching subscriber count: %v", err)
		return err
	}
	if err := cache.Set(CacheKeyPremiumSubscribers, strconv.FormatInt(premiumSubscribers, 10), CacheExpiration); err != nil {
		log.Printf("statistics: error caching premium count: %v", err)
		return err
	}
	if err := cache.Set(CacheKeyCurrentDeals, strconv.FormatInt(currentDeals, 10), CacheExpiration); err != nil {
		log.Printf("statistics: error caching deal count: %v", err)
		return err
	}

	log.Printf("statistics: cache updated, subscribers=%d premium=%d current_deals=%d",
		totalSubscribers, premiumSubscribers, currentDeals)

	return nil
}

func cachedOrCount(key string, count func() (int64, error)) int {
	if val, err := cache.Get(key); err == nil {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return int(n)
		}
	}

	n, err := count()
	if err != nil {
		log.Printf("statistics: fallback count for %s failed: %v", key, err)
		return 0
	}
	if err := cache.Set(key, strconv.FormatInt(n, 10), CacheExpiration); err != nil {
		log.Printf("statistics: error caching %s: %v", key, err)
	}
	return int(n)
}

// GetStatisticsData returns all landing-page numbers, refreshing the cache
// when it is stale.
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	db := database.GetDB()

	return StatisticsData{
		TotalSubscribers: cachedOrCount(CacheKeySubscribers, func() (int64, error) {
			var n int64
			err := db.Model(&models.User{}).Count(&n).Error
			return n, err
		}),
		PremiumSubscribers: cachedOrCount(CacheKeyPremiumSubscribers, func() (int64, error) {
			var n int64
			err := db.Model(&models.User{}).Where("plan = ?", entitlements.PlanPremium).Count(&n).Error
			return n, err
		}),
		CurrentDeals: cachedOrCount(CacheKeyCurrentDeals, func() (int64, error) {
			var n int64
			err := db.Model(&models.Deal{}).Where("valid_until > ?", time.Now()).Count(&n).Error
			return n, err
		}),
	}
}
