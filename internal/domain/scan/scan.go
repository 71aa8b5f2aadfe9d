// Package scan contains the Scan bounded context: photographed merchandise,
// the candidates a recognizer proposes for it, and the ports used to keep
// both.
package scan

import (
	"context"
	"errors"
	"time"
)

// Upload and inference limits.
const (
	MaxImageBytes = 10 * 1024 * 1024
	MinTopK       = 1
	MaxTopK       = 5
	DefaultTopK   = 3
)

var (
	ErrScanNotFound  = errors.New("scan: not found")
	ErrInvalidImage  = errors.New("scan: invalid image")
	ErrImageTooLarge = errors.New("scan: image too large")
	ErrInvalidTopK   = errors.New("scan: top_k out of range")
)

// Record is one uploaded scan.
type Record struct {
	ID           string
	StoreID      string
	DeviceID     string
	ImageKey     string
	ImageURI     string
	ContentType  string
	SizeBytes    int64
	CreatedAt    time.Time
	Detections   []Detection
	ModelVersion string
}

// Detection is one region of the image with its ranked candidates.
// BBox is normalized [x1, y1, x2, y2].
type Detection struct {
	BBox       [4]float64
	Candidates []Candidate
}

// Candidate is one proposed SKU with a confidence in [0, 1].
type Candidate struct {
	SKU   string
	Name  string
	Score float64
}

// FullFrame is the bounding box covering the whole image.
var FullFrame = [4]float64{0, 0, 1, 1}

// Repository persists scan records.
type Repository interface {
	Save(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, id string) (*Record, error)
	// SaveDetections replaces the detections of a stored record.
	SaveDetections(ctx context.Context, id string, detections []Detection, modelVersion string) (*Record, error)
}

// ImageStorage keeps the raw image bytes.
type ImageStorage interface {
	// Put stores data under key and returns a URI describing where it went.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Recognizer proposes ranked candidates for an image.
type Recognizer interface {
	ModelVersion() string
	TopK(ctx context.Context, image []byte, k int) ([]Candidate, error)
}
