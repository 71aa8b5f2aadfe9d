package scan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scancheckout/backend/internal/domain/scan"
	"github.com/scancheckout/backend/internal/infrastructure/cache"
	"github.com/scancheckout/backend/internal/infrastructure/storage"
	"github.com/scancheckout/backend/internal/infrastructure/vision"
)

// MockImageStorage is a mock implementation of scan.ImageStorage
type MockImageStorage struct {
	mock.Mock
}

func (m *MockImageStorage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, key, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *MockImageStorage) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newTestService(t *testing.T) (*Service, *cache.InMemoryScanRepository) {
	t.Helper()
	images, err := storage.NewLocalImageStorage(t.TempDir())
	require.NoError(t, err)
	repo := cache.NewInMemoryScanRepository()
	svc := NewService(repo, images, vision.NewHashRecognizer(vision.DefaultCatalog), nil)
	svc.newID = func() string { return "scan-1" }
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, repo
}

func validInput() CreateInput {
	return CreateInput{
		StoreID:     "store-1",
		DeviceID:    "dev-9",
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("not really a jpeg"),
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores image and record", func(t *testing.T) {
		svc, repo := newTestService(t)

		rec, err := svc.Create(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, "scan-1", rec.ID)
		assert.Equal(t, "scan-1.jpg", rec.ImageKey)
		assert.True(t, strings.HasSuffix(rec.ImageURI, "scan-1.jpg"))
		assert.Equal(t, int64(len("not really a jpeg")), rec.SizeBytes)
		assert.Equal(t, "dev-9", rec.DeviceID)
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("validation", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*CreateInput)
			want   error
		}{
			{"missing filename", func(in *CreateInput) { in.Filename = " " }, scan.ErrInvalidImage},
			{"not an image", func(in *CreateInput) { in.ContentType = "text/plain" }, scan.ErrInvalidImage},
			{"empty file", func(in *CreateInput) { in.Data = nil }, scan.ErrInvalidImage},
			{"too large", func(in *CreateInput) { in.Data = make([]byte, scan.MaxImageBytes+1) }, scan.ErrImageTooLarge},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				svc, repo := newTestService(t)
				in := validInput()
				tc.mutate(&in)
				_, err := svc.Create(ctx, in)
				assert.ErrorIs(t, err, tc.want)
				assert.Equal(t, 0, repo.Len())
			})
		}
	})

	t.Run("storage failure is not recorded", func(t *testing.T) {
		images := new(MockImageStorage)
		images.On("Put", mock.Anything, mock.Anything, "image/jpeg", mock.Anything).
			Return("", errors.New("disk full"))
		repo := cache.NewInMemoryScanRepository()
		svc := NewService(repo, images, vision.NewHashRecognizer(vision.DefaultCatalog), nil)

		_, err := svc.Create(ctx, validInput())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, 0, repo.Len())
		images.AssertExpectations(t)
	})
}

func TestImageExt(t *testing.T) {
	assert.Equal(t, ".png", imageExt("a.png"))
	assert.Equal(t, ".jpeg", imageExt("dir/a.b.jpeg"))
	assert.Equal(t, ".bin", imageExt("noext"))
	assert.Equal(t, ".bin", imageExt("trailing."))
	assert.Equal(t, ".bin", imageExt("a.verylongextension"))
	assert.Equal(t, ".abcdefghi", imageExt("a.abcdefghi"))
}

func TestService_Infer(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a full frame detection", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Create(ctx, validInput())
		require.NoError(t, err)

		rec, err := svc.Infer(ctx, "scan-1", scan.DefaultTopK)
		require.NoError(t, err)
		assert.Equal(t, vision.HashModelVersion, rec.ModelVersion)
		require.Len(t, rec.Detections, 1)
		assert.Equal(t, scan.FullFrame, rec.Detections[0].BBox)
		assert.Len(t, rec.Detections[0].Candidates, 3)

		stored, err := svc.Get(ctx, "scan-1")
		require.NoError(t, err)
		assert.Equal(t, rec.Detections, stored.Detections)
	})

	t.Run("deterministic for the same image", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Create(ctx, validInput())
		require.NoError(t, err)

		first, err := svc.Infer(ctx, "scan-1", 5)
		require.NoError(t, err)
		second, err := svc.Infer(ctx, "scan-1", 5)
		require.NoError(t, err)
		assert.Equal(t, first.Detections, second.Detections)
	})

	t.Run("top_k out of range", func(t *testing.T) {
		svc, _ := newTestService(t)
		for _, k := range []int{0, 6, -1} {
			_, err := svc.Infer(ctx, "scan-1", k)
			assert.ErrorIs(t, err, scan.ErrInvalidTopK)
		}
	})

	t.Run("unknown scan", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Infer(ctx, "missing", 3)
		assert.ErrorIs(t, err, scan.ErrScanNotFound)
	})
}
