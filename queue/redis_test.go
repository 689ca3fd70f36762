package queue_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-account/queue"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisClient connects to REDIS_ADDR, tests are skipped without it
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisQueue(t *testing.T) {
	client := newRedisClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := "test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	q := queue.NewRedis[job](client, key, queue.WithPollTimeout(100*time.Millisecond))
	assert.Equal(t, key, q.Key())

	require.NoError(t, q.Dispatch(ctx, job{ID: 1}))
	require.NoError(t, q.Dispatch(ctx, job{ID: 2}))
	require.NoError(t, client.LPush(ctx, key, "{not json").Err())

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got := make(chan int, 2)
	consumeCtx, stop := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() {
		errc <- q.Consume(consumeCtx, func(_ context.Context, j job) error {
			got <- j.ID
			return nil
		})
	}()

	assert.Equal(t, 1, <-got)
	assert.Equal(t, 2, <-got)

	stop()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestNewRedisRequiresClient(t *testing.T) {
	assert.Panics(t, func() { queue.NewRedis[job](nil, "k") })
}
