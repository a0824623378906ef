package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTrackerKey is the hash holding one field per resource.
const DefaultRedisTrackerKey = "marketdash:refresh_tracker"

// RedisTracker is a TrackerStore backed by a single Redis hash.
type RedisTracker struct {
	client *redis.Client
	key    string
}

// OpenRedisTracker connects to addr and verifies the connection.
func OpenRedisTracker(ctx context.Context, addr, password string, db int) (*RedisTracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisTracker(client, DefaultRedisTrackerKey), nil
}

// NewRedisTracker wraps an existing client.
func NewRedisTracker(client *redis.Client, key string) *RedisTracker {
	if key == "" {
		key = DefaultRedisTrackerKey
	}
	return &RedisTracker{client: client, key: key}
}

func (r *RedisTracker) LoadTracker(ctx context.Context) ([]TrackerEntry, error) {
	n, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrStoreMissing
	}
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]TrackerEntry, 0, len(fields))
	for id, raw := range fields {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			slog.Warn("tracker: skipping field", "resource", id, "err", err)
			continue
		}
		out = append(out, TrackerEntry{ResourceID: id, LastUpdate: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, nil
}

// SaveTracker replaces the hash inside a MULTI/EXEC block.
func (r *RedisTracker) SaveTracker(ctx context.Context, entries []TrackerEntry) error {
	values := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		values[e.ResourceID] = e.LastUpdate.Format(time.RFC3339Nano)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) > 0 {
			pipe.HSet(ctx, r.key, values)
		}
		return nil
	})
	return err
}

func (r *RedisTracker) Close() error { return r.client.Close() }
