// Package publish fans statistics summaries out to Redis.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rtsched/internal/sched"
)

// Channel is the pub/sub channel summaries are published on.
const Channel = "rtsched:summaries"

// RedisPublisher stores the latest summary per task in a hash and
// publishes every summary as JSON.
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// message is the JSON payload published on Channel.
type message struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"`
	AtUS  uint64 `json:"at_us"`
	sched.Summary
}

// NewRedisPublisher connects to addr. Keys expire after ttl; zero keeps them.
func NewRedisPublisher(ctx context.Context, addr string, ttl time.Duration) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{client: client, ttl: ttl}, nil
}

// Key returns the hash key holding the latest summary of task in run.
func Key(runID, task string) string {
	return fmt.Sprintf("rtsched:%s:task:%s", runID, task)
}

// Handle implements sched.Sink.
func (p *RedisPublisher) Handle(ctx context.Context, ev sched.Event) error {
	if ev.Summary == nil {
		return nil
	}
	sum := ev.Summary
	key := Key(ev.RunID, sum.Task)

	payload, err := json.Marshal(message{RunID: ev.RunID, Kind: ev.Kind.String(), AtUS: ev.At, Summary: *sum})
	if err != nil {
		return err
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, key,
		"kind", ev.Kind.String(),
		"at_us", ev.At,
		"period_us", sum.Period,
		"runs", sum.Runs,
		"avg_us", sum.Avg,
		"min_us", sum.Min,
		"max_us", sum.Max,
		"misses", sum.Misses,
		"worst_lateness_us", sum.WorstLateness,
	)
	if p.ttl > 0 {
		pipe.Expire(ctx, key, p.ttl)
	}
	pipe.Publish(ctx, Channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish summary %s: %w", sum.Task, err)
	}
	return nil
}

// Close releases the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
