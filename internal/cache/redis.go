// Package cache keeps the slow-moving dashboard lookups (machine list and
// temperature bounds) in Redis. Readings and anomaly flags are never cached.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duckworks/sensor-analytics/internal/domain"
	"github.com/duckworks/sensor-analytics/internal/storage"
)

// Observer is notified of cache hits and misses.
type Observer interface {
	CacheHit()
	CacheMiss()
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Repository wraps a storage.Repository and caches MachineIDs and
// TemperatureBounds. Redis failures fall through to the wrapped repository.
type Repository struct {
	storage.Repository
	client *redis.Client
	ttl    time.Duration
	obs    Observer
}

// NewRepository creates a caching Repository. obs may be nil.
func NewRepository(next storage.Repository, client *redis.Client, ttl time.Duration, obs Observer) *Repository {
	return &Repository{Repository: next, client: client, ttl: ttl, obs: obs}
}

func (r *Repository) MachineIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if r.get(ctx, MachinesKey(), &ids) {
		return ids, nil
	}
	ids, err := r.Repository.MachineIDs(ctx)
	if err != nil {
		return nil, err
	}
	r.set(ctx, MachinesKey(), ids)
	return ids, nil
}

func (r *Repository) TemperatureBounds(ctx context.Context) (domain.TemperatureRange, error) {
	var tr domain.TemperatureRange
	if r.get(ctx, BoundsKey(), &tr) {
		return tr, nil
	}
	tr, err := r.Repository.TemperatureBounds(ctx)
	if err != nil {
		return domain.TemperatureRange{}, err
	}
	r.set(ctx, BoundsKey(), tr)
	return tr, nil
}

// Invalidate drops every cached lookup.
func (r *Repository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, MachinesKey(), BoundsKey()).Err()
}

func (r *Repository) get(ctx context.Context, key string, out interface{}) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache get %s: %v", key, err)
		}
		r.miss()
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("cache decode %s: %v", key, err)
		r.miss()
		return false
	}
	if r.obs != nil {
		r.obs.CacheHit()
	}
	return true
}

func (r *Repository) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("cache encode %s: %v", key, err)
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

func (r *Repository) miss() {
	if r.obs != nil {
		r.obs.CacheMiss()
	}
}
