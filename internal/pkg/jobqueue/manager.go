package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/loglens/loglens/internal/pkg/env"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue            *Queue
	usageFlushTicker *time.Ticker
	stopCh           chan struct{}
	wg               sync.WaitGroup
	mu               sync.Mutex
	running          bool

	lastFlushedDay string
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 5
		if v, err := strconv.Atoi(env.GetEnv("JOB_QUEUE_WORKERS", "5")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Check hourly whether the previous day's counters still need flushing
	m.usageFlushTicker = time.NewTicker(time.Hour)
	m.wg.Add(1)
	go m.usageFlushWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.usageFlushTicker != nil {
		m.usageFlushTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// usageFlushWorker enqueues a usage flush job once per UTC day
func (m *Manager) usageFlushWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started usage flush worker")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Usage flush worker stopping")
			return
		case <-m.usageFlushTicker.C:
			previousDay := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
			if previousDay == m.lastFlushedDay {
				continue
			}
			payload := UsageFlushJobPayload{Day: previousDay}
			if _, err := m.queue.EnqueueJob(JobTypeUsageFlush, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Failed to enqueue usage flush: %v", err)
				continue
			}
			m.lastFlushedDay = previousDay
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
