package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/scancheckout/backend/internal/domain/scan"
)

// ScanModel is the persistence model for scan.Record.
type ScanModel struct {
	ID           string           `gorm:"type:varchar(36);primary_key"`
	StoreID      string           `gorm:"column:store_id;type:varchar(100);not null;index"`
	DeviceID     string           `gorm:"column:device_id;type:varchar(100)"`
	ImageKey     string           `gorm:"column:image_key;type:varchar(255);not null"`
	ImageURI     string           `gorm:"column:image_uri;type:text;not null"`
	ContentType  string           `gorm:"column:content_type;type:varchar(100);not null"`
	SizeBytes    int64            `gorm:"column:size_bytes;type:bigint;not null"`
	Detections   DetectionsColumn `gorm:"column:detections;type:text"`
	ModelVersion string           `gorm:"column:model_version;type:varchar(50)"`
	CreatedAt    time.Time        `gorm:"not null"`
	UpdatedAt    time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ScanModel) TableName() string {
	return "scans"
}

// ToDomain converts the persistence model to a scan.Record.
func (m *ScanModel) ToDomain() *scan.Record {
	return &scan.Record{
		ID:           m.ID,
		StoreID:      m.StoreID,
		DeviceID:     m.DeviceID,
		ImageKey:     m.ImageKey,
		ImageURI:     m.ImageURI,
		ContentType:  m.ContentType,
		SizeBytes:    m.SizeBytes,
		CreatedAt:    m.CreatedAt.UTC(),
		Detections:   m.Detections.toDomain(),
		ModelVersion: m.ModelVersion,
	}
}

// ScanModelFromDomain converts a scan.Record to its persistence model.
func ScanModelFromDomain(r *scan.Record) *ScanModel {
	return &ScanModel{
		ID:           r.ID,
		StoreID:      r.StoreID,
		DeviceID:     r.DeviceID,
		ImageKey:     r.ImageKey,
		ImageURI:     r.ImageURI,
		ContentType:  r.ContentType,
		SizeBytes:    r.SizeBytes,
		Detections:   DetectionsFromDomain(r.Detections),
		ModelVersion: r.ModelVersion,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.CreatedAt,
	}
}

// DetectionRow is the stored JSON form of a scan.Detection.
type DetectionRow struct {
	BBox       [4]float64     `json:"bbox"`
	Candidates []CandidateRow `json:"candidates"`
}

// CandidateRow is the stored JSON form of a scan.Candidate.
type CandidateRow struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// DetectionsColumn stores detections as a JSON text column.
type DetectionsColumn []DetectionRow

// DetectionsFromDomain converts domain detections to their column form.
func DetectionsFromDomain(dets []scan.Detection) DetectionsColumn {
	if dets == nil {
		return nil
	}
	out := make(DetectionsColumn, len(dets))
	for i, d := range dets {
		cands := make([]CandidateRow, len(d.Candidates))
		for j, c := range d.Candidates {
			cands[j] = CandidateRow{SKU: c.SKU, Name: c.Name, Score: c.Score}
		}
		out[i] = DetectionRow{BBox: d.BBox, Candidates: cands}
	}
	return out
}

func (c DetectionsColumn) toDomain() []scan.Detection {
	if c == nil {
		return nil
	}
	out := make([]scan.Detection, len(c))
	for i, d := range c {
		cands := make([]scan.Candidate, len(d.Candidates))
		for j, cand := range d.Candidates {
			cands[j] = scan.Candidate{SKU: cand.SKU, Name: cand.Name, Score: cand.Score}
		}
		out[i] = scan.Detection{BBox: d.BBox, Candidates: cands}
	}
	return out
}

// Value implements driver.Valuer
func (c DetectionsColumn) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detections: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (c *DetectionsColumn) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("detections: unsupported column type")
	}
	if len(data) == 0 {
		*c = nil
		return nil
	}
	return json.Unmarshal(data, c)
}
