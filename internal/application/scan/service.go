// Package scan handles image intake and candidate inference for scans.
package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scancheckout/backend/internal/domain/scan"
	"github.com/scancheckout/backend/internal/infrastructure/telemetry"
)

const fallbackExt = ".bin"

// CreateInput is one uploaded image.
type CreateInput struct {
	StoreID     string
	DeviceID    string
	Filename    string
	ContentType string
	Data        []byte
}

// Service stores scans and runs the recognizer over them.
type Service struct {
	repo       scan.Repository
	images     scan.ImageStorage
	recognizer scan.Recognizer
	logger     *zap.Logger
	newID      func() string
	now        func() time.Time
}

// NewService creates a scan service.
func NewService(repo scan.Repository, images scan.ImageStorage, recognizer scan.Recognizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		images:     images,
		recognizer: recognizer,
		logger:     logger.Named("scan"),
		newID:      func() string { return uuid.New().String() },
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores an uploaded image and records the scan.
func (s *Service) Create(ctx context.Context, in CreateInput) (*scan.Record, error) {
	if strings.TrimSpace(in.Filename) == "" {
		return nil, fmt.Errorf("%w: missing filename", scan.ErrInvalidImage)
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %q", scan.ErrInvalidImage, in.ContentType)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", scan.ErrInvalidImage)
	}
	if len(in.Data) > scan.MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", scan.ErrImageTooLarge, len(in.Data), scan.MaxImageBytes)
	}

	ctx, span := telemetry.StartSpan(ctx, "scan.create",
		telemetry.WithAttribute("scan.store_id", in.StoreID),
		telemetry.WithAttribute("scan.size_bytes", len(in.Data)),
	)
	defer span.End()

	id := s.newID()
	key := id + imageExt(in.Filename)

	uri, err := s.images.Put(ctx, key, in.ContentType, in.Data)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	record := &scan.Record{
		ID:          id,
		StoreID:     in.StoreID,
		DeviceID:    in.DeviceID,
		ImageKey:    key,
		ImageURI:    uri,
		ContentType: in.ContentType,
		SizeBytes:   int64(len(in.Data)),
		CreatedAt:   s.now(),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}

	s.logger.Info("Scan created",
		zap.String("scan_id", id),
		zap.String("store_id", in.StoreID),
		zap.String("device_id", in.DeviceID),
		zap.Int64("size_bytes", record.SizeBytes),
	)
	return record, nil
}

// Get returns the stored scan or scan.ErrScanNotFound.
func (s *Service) Get(ctx context.Context, id string) (*scan.Record, error) {
	return s.repo.FindByID(ctx, id)
}

// Infer ranks topK candidates for the scan's image and stores them as a
// single full-frame detection.
func (s *Service) Infer(ctx context.Context, id string, topK int) (*scan.Record, error) {
	if topK < scan.MinTopK || topK > scan.MaxTopK {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", scan.ErrInvalidTopK, topK, scan.MinTopK, scan.MaxTopK)
	}

	ctx, span := telemetry.StartSpan(ctx, "scan.infer",
		telemetry.WithAttribute("scan.id", id),
		telemetry.WithAttribute("scan.top_k", topK),
	)
	defer span.End()

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	image, err := s.images.Get(ctx, record.ImageKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load image for scan %s: %w", id, err)
	}

	candidates, err := s.recognizer.TopK(ctx, image, topK)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("recognizer failed: %w", err)
	}

	detections := []scan.Detection{{BBox: scan.FullFrame, Candidates: candidates}}
	updated, err := s.repo.SaveDetections(ctx, id, detections, s.recognizer.ModelVersion())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Scan inferred",
		zap.String("scan_id", id),
		zap.String("model_version", updated.ModelVersion),
		zap.Int("candidates", len(candidates)),
	)
	return updated, nil
}

func imageExt(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) < 2 || len(ext) > 10 {
		return fallbackExt
	}
	return ext
}
