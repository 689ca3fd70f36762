package queue

import (
	"context"
	"sync"
)

// Memory is an in process queue. It also remembers every dispatched
// job which makes it handy in tests.
type Memory[T any] struct {
	mu     sync.Mutex
	jobs   []T
	ch     chan T
	logger Logger
}

// NewMemory returns a queue buffering up to size pending jobs
func NewMemory[T any](size int) *Memory[T] {
	if size <= 0 {
		size = 64
	}
	return &Memory[T]{
		ch:     make(chan T, size),
		logger: nopLogger{},
	}
}

// WithLogger sets the logger used to report dropped jobs
func (q *Memory[T]) WithLogger(l Logger) *Memory[T] {
	if l != nil {
		q.logger = l
	}
	return q
}

// Dispatch records the job and buffers it for Consume. When the buffer
// is full the job is only recorded.
func (q *Memory[T]) Dispatch(ctx context.Context, job T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case q.ch <- job:
	default:
		q.logger.Error("memory queue full, job not buffered")
	}
	return nil
}

// Consume handles buffered jobs until ctx is cancelled
func (q *Memory[T]) Consume(ctx context.Context, handle Handler[T]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.ch:
			if err := handle(ctx, job); err != nil {
				q.logger.Error("queue job failed", "error", err)
			}
		}
	}
}

// Jobs returns a copy of every job dispatched so far
func (q *Memory[T]) Jobs() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.jobs))
	copy(out, q.jobs)
	return out
}

// Reset forgets recorded jobs
func (q *Memory[T]) Reset() {
	q.mu.Lock()
	q.jobs = nil
	q.mu.Unlock()
}
