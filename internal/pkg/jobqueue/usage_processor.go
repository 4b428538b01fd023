package jobqueue

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/metrics/counter"
)

// processUsageFlushJob drains a day's usage counters from Redis into the database
func (q *Queue) processUsageFlushJob(job *Job) error {
	payload, err := UsageFlushJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid usage flush payload: %w", err)
	}

	factory := repository.GetGlobalFactory()
	if factory == nil {
		return fmt.Errorf("repository factory not initialized")
	}
	usage := factory.GetUsageRepository()

	day := payload.Day
	if day == "" {
		day = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}

	if err := counter.FlushDay(usage, day); err != nil {
		return fmt.Errorf("failed to flush usage counters for %s: %w", day, err)
	}

	log.Infof("[JobQueue] Flushed usage counters for %s", day)
	return nil
}
