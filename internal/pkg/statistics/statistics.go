package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/cache"
)

const (
	CacheKeyUsersTotal   = "statistics:users:total"
	CacheKeyTrialsActive = "statistics:trials:active"
	CacheKeyTrialsToday  = "statistics:trials:today"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the admin dashboard snapshot
type StatisticsData struct {
	TotalUsers   int
	ActiveTrials int
	TrialsToday  int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the snapshot is due for a refresh
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the snapshot when the interval has elapsed
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next UpdateCacheIfNeeded call to refresh
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all statistics and stores them in the cache
func UpdateStatisticsCache() error {
	factory := repository.GetGlobalFactory()
	if factory == nil {
		return nil
	}

	totalUsers, err := factory.GetUserRepository().Count()
	if err != nil {
		log.Printf("Error counting users: %v", err)
		return err
	}

	activeTrials, err := factory.GetTrialRepository().CountActive()
	if err != nil {
		log.Printf("Error counting active trials: %v", err)
		return err
	}

	todayStart := time.Now().UTC().Truncate(24 * time.Hour)
	trialsToday, err := factory.GetTrialRepository().CountCreatedSince(todayStart)
	if err != nil {
		log.Printf("Error counting today's trials: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsersTotal, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyTrialsActive, strconv.FormatInt(activeTrials, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyTrialsToday, strconv.FormatInt(trialsToday, 10), CacheExpiration); err != nil {
		return err
	}

	log.Printf("Statistics updated in cache: Users: %d, Active Trials: %d, Trials Today: %d",
		totalUsers, activeTrials, trialsToday)

	return nil
}

// GetStatistics returns the cached snapshot, falling back to live counts
func GetStatistics() StatisticsData {
	return StatisticsData{
		TotalUsers:   getCachedCount(CacheKeyUsersTotal, liveUserCount),
		ActiveTrials: getCachedCount(CacheKeyTrialsActive, liveActiveTrialCount),
		TrialsToday:  getCachedCount(CacheKeyTrialsToday, liveTrialsTodayCount),
	}
}

func getCachedCount(key string, fallback func() int64) int {
	val, err := cache.Get(key)
	if err != nil {
		count := fallback()
		if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching %s: %v", key, err)
		}
		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return int(count)
}

func liveUserCount() int64 {
	factory := repository.GetGlobalFactory()
	if factory == nil {
		return 0
	}
	count, err := factory.GetUserRepository().Count()
	if err != nil {
		return 0
	}
	return count
}

func liveActiveTrialCount() int64 {
	factory := repository.GetGlobalFactory()
	if factory == nil {
		return 0
	}
	count, err := factory.GetTrialRepository().CountActive()
	if err != nil {
		return 0
	}
	return count
}

func liveTrialsTodayCount() int64 {
	factory := repository.GetGlobalFactory()
	if factory == nil {
		return 0
	}
	todayStart := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := factory.GetTrialRepository().CountCreatedSince(todayStart)
	if err != nil {
		return 0
	}
	return count
}
