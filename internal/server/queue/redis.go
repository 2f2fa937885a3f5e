package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// ErrNoTask is returned by Consume when no task arrived within the
// blocking window.
var ErrNoTask = errors.New("no task available")

// RedisQueue is a durable list-backed queue on Redis. LPUSH on publish,
// BRPOP on consume.
type RedisQueue struct {
	pool    *redis.Pool
	listKey string
}

func NewRedisQueue(redisURL, listKey string) *RedisQueue {
	pool := &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialURLContext(ctx, redisURL)
		},
	}
	return &RedisQueue{pool: pool, listKey: listKey}
}

func (q *RedisQueue) PublishAnalysis(ctx context.Context, task AnalysisTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("LPUSH", q.listKey, payload); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Consume blocks for up to timeout waiting for the next task.
// Returns ErrNoTask when the window elapses with an empty list.
func (q *RedisQueue) Consume(ctx context.Context, timeout time.Duration) (*AnalysisTask, error) {
	conn, err := q.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis conn: %w", err)
	}
	defer conn.Close()

	values, err := redis.Values(conn.Do("BRPOP", q.listKey, int(timeout.Seconds())))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, ErrNoTask
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply length: %d", len(values))
	}

	payload, err := redis.Bytes(values[1], nil)
	if err != nil {
		return nil, fmt.Errorf("brpop payload: %w", err)
	}

	task := &AnalysisTask{}
	if err := json.Unmarshal(payload, task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return task, nil
}

func (q *RedisQueue) Close() error {
	return q.pool.Close()
}
