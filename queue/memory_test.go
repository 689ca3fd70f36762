package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-account/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	ID int `json:"id"`
}

func TestMemoryDispatchAndConsume(t *testing.T) {
	q := queue.NewMemory[job](4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})

	go func() {
		_ = q.Consume(ctx, func(_ context.Context, j job) error {
			mu.Lock()
			got = append(got, j.ID)
			n := len(got)
			mu.Unlock()
			if n == 3 {
				close(done)
			}
			if j.ID == 2 {
				return errors.New("handler failed")
			}
			return nil
		})
	}()

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.Dispatch(ctx, job{ID: i}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not consumed")
	}

	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, got)
	mu.Unlock()

	assert.Len(t, q.Jobs(), 3)
	q.Reset()
	assert.Empty(t, q.Jobs())
}

func TestMemoryFullBufferStillRecords(t *testing.T) {
	q := queue.NewMemory[job](1)
	ctx := context.Background()

	require.NoError(t, q.Dispatch(ctx, job{ID: 1}))
	require.NoError(t, q.Dispatch(ctx, job{ID: 2}))
	assert.Equal(t, []job{{ID: 1}, {ID: 2}}, q.Jobs())
}

func TestMemoryCancelled(t *testing.T) {
	q := queue.NewMemory[job](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, q.Dispatch(ctx, job{ID: 1}), context.Canceled)
	assert.ErrorIs(t, q.Consume(ctx, func(context.Context, job) error { return nil }), context.Canceled)
	assert.Empty(t, q.Jobs())
}
