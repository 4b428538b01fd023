package counter

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/app/models"
	"github.com/loglens/loglens/internal/pkg/cache"
)

type recordedUsage struct {
	subject    string
	day        string
	logs       int64
	recordings int64
}

type fakeUsageRepo struct {
	rows []recordedUsage
}

func (f *fakeUsageRepo) AddUsage(subject, day string, logs, recordings int64) error {
	f.rows = append(f.rows, recordedUsage{subject, day, logs, recordings})
	return nil
}

func (f *fakeUsageRepo) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	return nil, nil
}

func setupRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})
}

func TestAddAndGetTodayUsage(t *testing.T) {
	setupRedis(t)

	for i := 0; i < 3; i++ {
		_, err := AddLogCapture("42")
		require.NoError(t, err)
	}
	count, err := AddRecording("42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	logs, recordings, err := GetTodayUsage("42")
	require.NoError(t, err)
	assert.Equal(t, int64(3), logs)
	assert.Equal(t, int64(1), recordings)

	// Unknown subjects read as zero.
	logs, recordings, err = GetTodayUsage("inst-unknown")
	require.NoError(t, err)
	assert.Zero(t, logs)
	assert.Zero(t, recordings)
}

func TestFlushDayDrainsCounters(t *testing.T) {
	setupRedis(t)

	day := Today()
	_, err := AddLogCapture("42")
	require.NoError(t, err)
	_, err = AddLogCapture("42")
	require.NoError(t, err)
	_, err = AddRecording("inst-abcdef0123")
	require.NoError(t, err)

	repo := &fakeUsageRepo{}
	require.NoError(t, FlushDay(repo, day))

	bySubject := make(map[string]recordedUsage)
	for _, row := range repo.rows {
		bySubject[row.subject] = row
	}
	require.Len(t, bySubject, 2)
	assert.Equal(t, int64(2), bySubject["42"].logs)
	assert.Equal(t, int64(0), bySubject["42"].recordings)
	assert.Equal(t, int64(1), bySubject["inst-abcdef0123"].recordings)
	assert.Equal(t, day, bySubject["42"].day)

	// Counters were drained; live reads start over.
	logs, recordings, err := GetTodayUsage("42")
	require.NoError(t, err)
	assert.Zero(t, logs)
	assert.Zero(t, recordings)
}

func TestFlushDayNoData(t *testing.T) {
	setupRedis(t)

	repo := &fakeUsageRepo{}
	require.NoError(t, FlushDay(repo, "2020-01-01"))
	assert.Empty(t, repo.rows)
}
