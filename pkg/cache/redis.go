package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Incr bumps a counter and returns its new value. The window starts on
	// the first increment.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	GenerateKey(operation, key string) string
}

type redisCache struct {
	client      *redis.Client
	serviceName string
}

func NewRedisCache(addr, password string, db int, serviceName string) (Cache, func() error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &redisCache{client: client, serviceName: serviceName}, client.Close
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, r.GenerateKey("kv", key), value, ttl).Err()
}

// Get returns "" with a nil error on a miss.
func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.GenerateKey("kv", key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.GenerateKey("counter", key)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.serviceName, operation, key)
}

type entry struct {
	value     string
	expiresAt time.Time
}

// memoryCache is the in-process fallback when Redis is disabled.
type memoryCache struct {
	mu          sync.Mutex
	items       map[string]entry
	serviceName string
	now         func() time.Time
}

func NewMemoryCache(serviceName string) Cache {
	return &memoryCache{items: make(map[string]entry), serviceName: serviceName, now: time.Now}
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[m.GenerateKey("kv", key)] = entry{value: fmt.Sprint(value), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.GenerateKey("kv", key)
	e, ok := m.items[k]
	if !ok {
		return "", nil
	}
	if m.now().After(e.expiresAt) {
		delete(m.items, k)
		return "", nil
	}
	return e.value, nil
}

func (m *memoryCache) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.GenerateKey("counter", key)
	e, ok := m.items[k]
	if !ok || m.now().After(e.expiresAt) {
		e = entry{value: "0", expiresAt: m.now().Add(window)}
	}
	n, _ := strconv.ParseInt(e.value, 10, 64)
	n++
	e.value = strconv.FormatInt(n, 10)
	m.items[k] = e
	return n, nil
}

func (m *memoryCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", m.serviceName, operation, key)
}
