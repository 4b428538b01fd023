package jobqueue

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/loglens/loglens/internal/pkg/cache"
)

// newTestQueue returns a queue backed by an in-process Redis.
func newTestQueue(t *testing.T, workers int) *Queue {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})

	return NewQueue(workers)
}
