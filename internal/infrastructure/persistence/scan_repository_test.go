package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scancheckout/backend/internal/domain/scan"
	"github.com/scancheckout/backend/internal/infrastructure/config"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver: config.DatabaseDriverSQLite,
		Path:   ":memory:",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRecord(id string) *scan.Record {
	return &scan.Record{
		ID:          id,
		StoreID:     "store-1",
		DeviceID:    "dev-1",
		ImageKey:    id + ".png",
		ImageURI:    "/data/" + id + ".png",
		ContentType: "image/png",
		SizeBytes:   128,
		CreatedAt:   time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestGormScanRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormScanRepository(db.DB)

	t.Run("find unknown returns not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, scan.ErrScanNotFound)
	})

	t.Run("save and find", func(t *testing.T) {
		record := newRecord("scan-1")
		require.NoError(t, repo.Save(ctx, record))

		got, err := repo.FindByID(ctx, "scan-1")
		require.NoError(t, err)
		assert.Equal(t, "store-1", got.StoreID)
		assert.Equal(t, "dev-1", got.DeviceID)
		assert.Equal(t, int64(128), got.SizeBytes)
		assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
		assert.Empty(t, got.Detections)
	})

	t.Run("save detections", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, newRecord("scan-2")))
		dets := []scan.Detection{{
			BBox: scan.FullFrame,
			Candidates: []scan.Candidate{
				{SKU: "SKU-1", Name: "Water", Score: 0.93},
				{SKU: "SKU-2", Name: "Chips", Score: 0.81},
			},
		}}

		updated, err := repo.SaveDetections(ctx, "scan-2", dets, "dummy-hash-v1")
		require.NoError(t, err)
		assert.Equal(t, dets, updated.Detections)
		assert.Equal(t, "dummy-hash-v1", updated.ModelVersion)

		reloaded, err := repo.FindByID(ctx, "scan-2")
		require.NoError(t, err)
		assert.Equal(t, dets, reloaded.Detections)
		assert.Equal(t, "dummy-hash-v1", reloaded.ModelVersion)
	})

	t.Run("save detections for unknown scan", func(t *testing.T) {
		_, err := repo.SaveDetections(ctx, "missing", nil, "v")
		assert.ErrorIs(t, err, scan.ErrScanNotFound)
	})
}
