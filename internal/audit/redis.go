package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSinkConfig configures a Redis-backed sink.
type RedisSinkConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix for the event list and ID counter
	Options  *redis.Options
}

// RedisSink persists events as JSON entries in a Redis list, with a
// dedicated counter key handing out monotonic event IDs.
type RedisSink struct {
	client  *redis.Client
	mu      sync.RWMutex
	closed  bool
	listKey string
	ctrKey  string
}

// NewRedisSink dials Redis and verifies connectivity before returning.
func NewRedisSink(config RedisSinkConfig) (*RedisSink, error) {
	var client *redis.Client
	if config.Options != nil {
		client = redis.NewClient(config.Options)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("audit: connect to redis: %w", err)
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = "audit:"
	}

	return &RedisSink{
		client:  client,
		listKey: prefix + "events",
		ctrKey:  prefix + "seq",
	}, nil
}

func (r *RedisSink) Record(ctx context.Context, event Event) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrSinkClosed
	}
	r.mu.RUnlock()

	id, err := r.client.Incr(ctx, r.ctrKey).Result()
	if err != nil {
		return fmt.Errorf("audit: assign event id: %w", err)
	}
	event.ID = uint64(id)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	if err := r.client.RPush(ctx, r.listKey, data).Err(); err != nil {
		return fmt.Errorf("audit: append event: %w", err)
	}
	return nil
}

func (r *RedisSink) List(ctx context.Context, limit int) ([]Event, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrSinkClosed
	}
	r.mu.RUnlock()

	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	raw, err := r.client.LRange(ctx, r.listKey, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: list events: %w", err)
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var event Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("audit: decode event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *RedisSink) Count(ctx context.Context) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return 0, ErrSinkClosed
	}
	r.mu.RUnlock()

	count, err := r.client.LLen(ctx, r.listKey).Result()
	if err != nil {
		return 0, fmt.Errorf("audit: count events: %w", err)
	}
	return count, nil
}

func (r *RedisSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSinkClosed
	}

	r.closed = true
	return r.client.Close()
}
