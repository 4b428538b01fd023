package counter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/cache"
)

const (
	logsKeyPrefix       = "usage:counters:logs"
	recordingsKeyPrefix = "usage:counters:recordings"

	// Counters for a day stay readable long enough to be flushed.
	counterTTL = 48 * time.Hour
)

func dayKey(prefix, day string) string {
	return fmt.Sprintf("%s:%s", prefix, day)
}

// Today returns the UTC day string used as the counter window.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// AddLogCapture increments the pending log counter for a subject (user or
// installation) in Redis. Today's hash is authoritative for limit checks.
func AddLogCapture(subject string) (int64, error) {
	ctx := context.Background()
	key := dayKey(logsKeyPrefix, Today())
	rdb := cache.GetClient()
	count, err := rdb.HIncrBy(ctx, key, subject, 1).Result()
	if err != nil {
		return 0, err
	}
	rdb.Expire(ctx, key, counterTTL)
	return count, nil
}

// AddRecording increments the pending recording counter for a subject in Redis
func AddRecording(subject string) (int64, error) {
	ctx := context.Background()
	key := dayKey(recordingsKeyPrefix, Today())
	rdb := cache.GetClient()
	count, err := rdb.HIncrBy(ctx, key, subject, 1).Result()
	if err != nil {
		return 0, err
	}
	rdb.Expire(ctx, key, counterTTL)
	return count, nil
}

// GetTodayUsage returns the subject's current-day log and recording counts.
// Missing fields count as zero.
func GetTodayUsage(subject string) (logs int64, recordings int64, err error) {
	ctx := context.Background()
	rdb := cache.GetClient()
	day := Today()

	logs, err = rdb.HGet(ctx, dayKey(logsKeyPrefix, day), subject).Int64()
	if err == redis.Nil {
		logs, err = 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	recordings, err = rdb.HGet(ctx, dayKey(recordingsKeyPrefix, day), subject).Int64()
	if err == redis.Nil {
		recordings, err = 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return logs, recordings, nil
}

// FlushDay drains both counter hashes for the given day into usage_stats.
// Today's counters are left alone; they still back live limit checks.
func FlushDay(usage repository.UsageRepository, day string) error {
	logs, err := drainHash(dayKey(logsKeyPrefix, day))
	if err != nil {
		return err
	}
	recordings, err := drainHash(dayKey(recordingsKeyPrefix, day))
	if err != nil {
		return err
	}

	subjects := make(map[string]struct{}, len(logs)+len(recordings))
	for s := range logs {
		subjects[s] = struct{}{}
	}
	for s := range recordings {
		subjects[s] = struct{}{}
	}

	for subject := range subjects {
		if err := usage.AddUsage(subject, day, logs[subject], recordings[subject]); err != nil {
			return err
		}
	}
	return nil
}

// FlushPrevious flushes yesterday's counters. Intended to run from the
// scheduled flush job shortly after the UTC day rolls over.
func FlushPrevious(usage repository.UsageRepository) error {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	return FlushDay(usage, yesterday)
}

// drainHash atomically moves a hash to a temp key and returns its parsed
// contents. Uses RENAME so in-flight increments are never lost.
func drainHash(redisKey string) (map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil, nil
		}
		if err == redis.Nil || err.Error() == "redis: nil" {
			return nil, nil
		}
		return nil, err
	}

	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(data))
	for subject, raw := range data {
		var n int64
		if _, err := fmt.Sscan(raw, &n); err != nil || n == 0 {
			continue
		}
		out[subject] = n
	}
	return out, nil
}
