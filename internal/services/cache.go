package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/optimizer"
)

var ErrCacheMiss = errors.New("key not found")

type CacheService struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{
		client: client,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := s.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func (s *CacheService) Exists(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache existence: %w", err)
	}
	return val > 0, nil
}

func (s *CacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SetWithRetry retries transient failures with a linear backoff.
func (s *CacheService) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = s.Set(ctx, key, value, expiration); err == nil {
			return nil
		}
		logrus.WithError(err).WithField("attempt", i+1).Warn("Cache set failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 100 * time.Duration(i+1)):
		}
	}
	return err
}

// OptimizationCacheKey hashes everything that determines an optimizer result:
// the mode, the lineup shape and every candidate in order.
func OptimizationCacheKey(mode string, roster []optimizer.Candidate, cfg optimizer.Config) string {
	payload := struct {
		Mode          string                `json:"mode"`
		Budget        int                   `json:"budget"`
		Multiplier    float64               `json:"multiplier"`
		PremiumCount  int                   `json:"premium_count"`
		StandardCount int                   `json:"standard_count"`
		Roster        []optimizer.Candidate `json:"roster"`
	}{mode, cfg.Budget, cfg.PremiumMultiplier, cfg.PremiumCount, cfg.StandardCount, roster}

	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return "optimization:" + hex.EncodeToString(sum[:])
}

func PredictionsCacheKey(date string) string {
	return fmt.Sprintf("over_under:%s", date)
}
