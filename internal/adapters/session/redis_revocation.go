package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/config"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

const revokedKeyPrefix = "carelog:revoked:"

// RedisClient is the subset of *redis.Client the revocation store needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RevocationStore remembers logged-out token IDs until they expire.
type RevocationStore struct {
	client RedisClient
	cb     *gobreaker.CircuitBreaker
}

var _ ports.TokenRevoker = (*RevocationStore)(nil)

func NewRevocationStore(client RedisClient, logger *zap.Logger) *RevocationStore {
	return &RevocationStore{
		client: client,
		cb:     config.NewCircuitBreaker("Redis-Revocation", logger),
	}
}

func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
	})
	return err
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	})
	if err != nil {
		return false, err
	}
	return out.(int64) > 0, nil
}
