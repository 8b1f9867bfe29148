package repository_test

import (
	"context"
	"testing"
	"time"

	"worthy-server/internal/models"
	"worthy-server/internal/repository"
	"worthy-server/internal/repository/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRefCache(t *testing.T) (repository.CanonicalRefRepository, *mocks.CanonicalRefRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := new(mocks.CanonicalRefRepository)
	cache := repository.NewRedisCanonicalRefCache(inner, client, time.Minute, zap.NewNop())
	return cache, inner, mr
}

func TestRedisCanonicalRefCache_ListActive(t *testing.T) {
	ctx := context.Background()
	refs := []models.CanonicalReference{
		{ID: "story-bible", RefType: "story_bible", Title: "Story Bible", Content: "...", Version: "1.0", Active: true},
		{ID: "world-rules", RefType: "world_rules", Title: "World Rules", Content: "...", Version: "1.0", Active: true},
	}

	t.Run("cache miss falls through and populates", func(t *testing.T) {
		cache, inner, mr := setupRefCache(t)
		inner.On("ListActive", ctx).Return(refs, nil).Once()

		got, err := cache.ListActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, refs, got)
		assert.True(t, mr.Exists("canonical_refs:active"))

		// Второе чтение обслуживается кешем: inner больше не вызывается.
		got, err = cache.ListActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, refs, got)
		inner.AssertExpectations(t)
	})

	t.Run("corrupted cache entry is refetched", func(t *testing.T) {
		cache, inner, mr := setupRefCache(t)
		require.NoError(t, mr.Set("canonical_refs:active", "{not json"))
		inner.On("ListActive", ctx).Return(refs, nil).Once()

		got, err := cache.ListActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, refs, got)
		inner.AssertExpectations(t)
	})
}

func TestRedisCanonicalRefCache_Upsert_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	cache, inner, mr := setupRefCache(t)

	inner.On("ListActive", ctx).Return([]models.CanonicalReference{}, nil).Twice()
	_, err := cache.ListActive(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("canonical_refs:active"))

	ref := &models.CanonicalReference{ID: "story-bible", RefType: "story_bible", Title: "Story Bible", Active: true}
	inner.On("Upsert", ctx, ref).Return(nil).Once()
	require.NoError(t, cache.Upsert(ctx, ref))

	assert.False(t, mr.Exists("canonical_refs:active"))

	// После инвалидации чтение снова идет в базу.
	_, err = cache.ListActive(ctx)
	require.NoError(t, err)
	inner.AssertExpectations(t)
}
