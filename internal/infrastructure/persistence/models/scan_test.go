package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scancheckout/backend/internal/domain/scan"
)

func TestScanModel_RoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record := &scan.Record{
		ID:          "abc",
		StoreID:     "store-1",
		DeviceID:    "dev-1",
		ImageKey:    "abc.jpg",
		ImageURI:    "/tmp/abc.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   42,
		CreatedAt:   created,
		Detections: []scan.Detection{{
			BBox:       scan.FullFrame,
			Candidates: []scan.Candidate{{SKU: "SKU-1", Name: "Water", Score: 0.9}},
		}},
		ModelVersion: "dummy-hash-v1",
	}

	got := ScanModelFromDomain(record).ToDomain()
	assert.Equal(t, record, got)
}

func TestDetectionsColumn_ValueAndScan(t *testing.T) {
	t.Run("nil stores NULL", func(t *testing.T) {
		var c DetectionsColumn
		v, err := c.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("scans json text", func(t *testing.T) {
		var c DetectionsColumn
		require.NoError(t, c.Scan(`[{"bbox":[0,0,1,1],"candidates":[{"sku":"A","name":"a","score":0.5}]}]`))
		require.Len(t, c, 1)
		assert.Equal(t, "A", c[0].Candidates[0].SKU)
	})

	t.Run("scans bytes and nil", func(t *testing.T) {
		var c DetectionsColumn
		require.NoError(t, c.Scan([]byte(`[]`)))
		assert.Empty(t, c)
		require.NoError(t, c.Scan(nil))
		assert.Nil(t, c)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		var c DetectionsColumn
		assert.Error(t, c.Scan(42))
	})
}
