package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultPollTimeout bounds a single BRPOP so shutdown is noticed
const DefaultPollTimeout = 5 * time.Second

// Redis is a list backed queue. Producers LPUSH and consumers BRPOP,
// so jobs are handled in the order they were pushed.
type Redis[T any] struct {
	client  *redis.Client
	key     string
	timeout time.Duration
	logger  Logger
}

type RedisOption func(*redisOptions)

type redisOptions struct {
	timeout time.Duration
	logger  Logger
}

// WithPollTimeout sets the BRPOP timeout
func WithPollTimeout(d time.Duration) RedisOption {
	return func(o *redisOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the queue logger
func WithLogger(l Logger) RedisOption {
	return func(o *redisOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewRedis returns a queue stored under key
func NewRedis[T any](client *redis.Client, key string, opts ...RedisOption) *Redis[T] {
	if client == nil {
		panic("redis queue requires a client")
	}

	o := redisOptions{timeout: DefaultPollTimeout, logger: nopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}

	return &Redis[T]{
		client:  client,
		key:     key,
		timeout: o.timeout,
		logger:  o.logger,
	}
}

// Key returns the redis list name
func (q *Redis[T]) Key() string {
	return q.key
}

func (q *Redis[T]) Dispatch(ctx context.Context, job T) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode job").
			WithMetadata(map[string]any{"queue": q.key})
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to push job").
			WithMetadata(map[string]any{"queue": q.key})
	}
	return nil
}

// Len returns the number of pending jobs
func (q *Redis[T]) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Consume blocks handling jobs until ctx is cancelled. Handler errors
// are logged and the job is dropped.
func (q *Redis[T]) Consume(ctx context.Context, handle Handler[T]) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := q.client.BRPop(ctx, q.timeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Error("queue pop failed", "queue", q.key, "error", err)
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		// BRPOP replies with [key, value]
		if len(res) != 2 {
			continue
		}

		var job T
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			q.logger.Error("queue dropped malformed job", "queue", q.key, "error", err)
			continue
		}

		if err := handle(ctx, job); err != nil {
			q.logger.Error("queue job failed", "queue", q.key, "error", err)
			continue
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
