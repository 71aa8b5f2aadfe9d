package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scancheckout/backend/internal/domain/scan"
)

func sampleRecord(id string) *scan.Record {
	return &scan.Record{
		ID:          id,
		StoreID:     "store-1",
		DeviceID:    "ipad-3",
		ImageKey:    id + ".jpg",
		ImageURI:    "file:///tmp/" + id + ".jpg",
		ContentType: "image/jpeg",
		SizeBytes:   1234,
		CreatedAt:   time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
}

var sampleDetections = []scan.Detection{{
	BBox: scan.FullFrame,
	Candidates: []scan.Candidate{
		{SKU: "BREAD-001", Name: "Croissant", Score: 0.9312},
		{SKU: "BREAD-002", Name: "Baguette", Score: 0.8011},
	},
}}

// exerciseRepository runs the behaviour every scan.Repository shares.
func exerciseRepository(t *testing.T, repo scan.Repository) {
	ctx := context.Background()

	t.Run("save and find", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, sampleRecord("a")))
		got, err := repo.FindByID(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "store-1", got.StoreID)
		assert.Equal(t, "ipad-3", got.DeviceID)
		assert.Equal(t, int64(1234), got.SizeBytes)
		assert.True(t, got.CreatedAt.Equal(sampleRecord("a").CreatedAt))
		assert.Empty(t, got.Detections)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, scan.ErrScanNotFound)
	})

	t.Run("save detections", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, sampleRecord("b")))
		updated, err := repo.SaveDetections(ctx, "b", sampleDetections, "dummy-hash-v1")
		require.NoError(t, err)
		assert.Equal(t, "dummy-hash-v1", updated.ModelVersion)
		assert.Equal(t, sampleDetections, updated.Detections)

		got, err := repo.FindByID(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, sampleDetections, got.Detections)
		assert.Equal(t, "dummy-hash-v1", got.ModelVersion)
	})

	t.Run("save detections on missing scan", func(t *testing.T) {
		_, err := repo.SaveDetections(ctx, "missing", sampleDetections, "v")
		assert.ErrorIs(t, err, scan.ErrScanNotFound)
	})
}

func TestInMemoryScanRepository(t *testing.T) {
	repo := NewInMemoryScanRepository()
	exerciseRepository(t, repo)

	t.Run("returned records are copies", func(t *testing.T) {
		got, err := repo.FindByID(context.Background(), "b")
		require.NoError(t, err)
		got.Detections[0].Candidates[0].SKU = "CHANGED"

		again, err := repo.FindByID(context.Background(), "b")
		require.NoError(t, err)
		assert.Equal(t, "BREAD-001", again.Detections[0].Candidates[0].SKU)
	})
	assert.Equal(t, 2, repo.Len())
}

func TestRedisScanRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisScanRepositoryWithClient(client, "", time.Hour)
	t.Cleanup(func() { _ = repo.Close() })

	exerciseRepository(t, repo)

	t.Run("keys are prefixed and expire", func(t *testing.T) {
		assert.True(t, mr.Exists(defaultScanKeyPrefix+"a"))
		assert.Equal(t, time.Hour, mr.TTL(defaultScanKeyPrefix+"a"))

		mr.FastForward(2 * time.Hour)
		_, err := repo.FindByID(context.Background(), "a")
		assert.ErrorIs(t, err, scan.ErrScanNotFound)
	})
}

func TestNewRedisScanRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	repo, err := NewRedisScanRepository(RedisConfig{Host: mr.Host(), Port: atoi(t, mr.Port())})
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}

func TestScanRepositoryFactory(t *testing.T) {
	t.Run("falls back to memory", func(t *testing.T) {
		f := NewScanRepositoryFactory(RedisConfig{Host: "127.0.0.1", Port: 1})
		repo, err := f.Create()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryScanRepository{}, repo)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		f := NewScanRepositoryFactory(RedisConfig{Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))
		_, err := f.Create()
		assert.Error(t, err)
	})

	t.Run("uses redis when reachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		f := NewScanRepositoryFactory(RedisConfig{Host: mr.Host(), Port: atoi(t, mr.Port())})
		repo, err := f.Create()
		require.NoError(t, err)
		assert.IsType(t, &RedisScanRepository{}, repo)
	})
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
