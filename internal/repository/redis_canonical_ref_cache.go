package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"worthy-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	refsCacheKey       = "canonical_refs:active"
	refsCacheKeyByType = "canonical_refs:type:%s"
)

var _ CanonicalRefRepository = (*redisCanonicalRefCache)(nil)

// redisCanonicalRefCache — read-through кеш поверх CanonicalRefRepository.
// Референсы почти не меняются, но читаются при каждой сборке контекста,
// поэтому активный набор держится в Redis с TTL. Ошибки кеша не фатальны:
// при недоступном Redis чтение уходит напрямую в Postgres.
type redisCanonicalRefCache struct {
	inner  CanonicalRefRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCanonicalRefCache оборачивает репозиторий референсов кешем в Redis.
func NewRedisCanonicalRefCache(inner CanonicalRefRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) CanonicalRefRepository {
	return &redisCanonicalRefCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisRefCache"),
	}
}

func (c *redisCanonicalRefCache) ListActive(ctx context.Context) ([]models.CanonicalReference, error) {
	cached, err := c.client.Get(ctx, refsCacheKey).Bytes()
	if err == nil {
		refs := make([]models.CanonicalReference, 0)
		if unmarshalErr := json.Unmarshal(cached, &refs); unmarshalErr == nil {
			c.logger.Debug("Canonical refs served from cache", zap.Int("count", len(refs)))
			return refs, nil
		}
		// Поврежденное значение переписывается свежим ниже.
		c.logger.Warn("Corrupted canonical refs cache entry, refetching", zap.String("key", refsCacheKey))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Failed to read canonical refs cache, falling back to database", zap.Error(err))
	}

	refs, err := c.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(refs); marshalErr == nil {
		if setErr := c.client.Set(ctx, refsCacheKey, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("Failed to cache canonical refs", zap.Error(setErr))
		}
	}
	return refs, nil
}

func (c *redisCanonicalRefCache) GetByType(ctx context.Context, refType string) (*models.CanonicalReference, error) {
	key := fmt.Sprintf(refsCacheKeyByType, refType)
	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		ref := &models.CanonicalReference{}
		if unmarshalErr := json.Unmarshal(cached, ref); unmarshalErr == nil {
			return ref, nil
		}
		c.logger.Warn("Corrupted canonical ref cache entry, refetching", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Failed to read canonical ref cache, falling back to database",
			zap.String("refType", refType), zap.Error(err))
	}

	ref, err := c.inner.GetByType(ctx, refType)
	if err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(ref); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("Failed to cache canonical ref", zap.String("refType", refType), zap.Error(setErr))
		}
	}
	return ref, nil
}

// Upsert пишет в базу и сбрасывает кеш, чтобы следующее чтение увидело
// обновленный набор.
func (c *redisCanonicalRefCache) Upsert(ctx context.Context, ref *models.CanonicalReference) error {
	if err := c.inner.Upsert(ctx, ref); err != nil {
		return err
	}

	keys := []string{refsCacheKey, fmt.Sprintf(refsCacheKeyByType, ref.RefType)}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Failed to invalidate canonical refs cache", zap.Strings("keys", keys), zap.Error(err))
	}
	return nil
}
