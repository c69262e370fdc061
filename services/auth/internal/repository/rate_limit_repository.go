package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/cache"
)

type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error)
}

type rateLimitRepository struct {
	cache cache.Cache
}

// NewRateLimitRepository counts attempts in fixed windows held in c.
func NewRateLimitRepository(c cache.Cache) RateLimitRepository {
	return &rateLimitRepository{cache: c}
}

func (r *rateLimitRepository) CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	// Hash the key for privacy
	hashedKey := fmt.Sprintf("ratelimit:%x", sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	count, err := r.cache.Incr(ctx, hashedKey, window)
	if err != nil {
		return true, err
	}
	return count <= int64(requests), nil
}
