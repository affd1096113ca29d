package redis

import (
	"context"
	"errors"
	"time"

	"spotvibe-backend/internal/domain"
	"spotvibe-backend/internal/domain/model"

	"github.com/go-redis/redis/v8"
)

const statusKeyPrefix = "payment:status:"

// StatusCache keeps the last known payment status per client-facing
// reference, so hot status polls skip Postgres. Entries expire on TTL and
// are overwritten on every transition; the database stays the source of
// truth.
type StatusCache struct {
	cli *redis.Client
	ttl time.Duration
}

func NewStatusCache(c *Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatusCache{cli: c.cli, ttl: ttl}
}

func (s *StatusCache) Get(ctx context.Context, reference string) (model.PaymentStatus, error) {
	v, err := s.cli.Get(ctx, statusKeyPrefix+reference).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return model.PaymentStatus(v), nil
}

func (s *StatusCache) Set(ctx context.Context, reference string, status model.PaymentStatus) error {
	return s.cli.Set(ctx, statusKeyPrefix+reference, string(status), s.ttl).Err()
}

func (s *StatusCache) Invalidate(ctx context.Context, reference string) error {
	return s.cli.Del(ctx, statusKeyPrefix+reference).Err()
}
