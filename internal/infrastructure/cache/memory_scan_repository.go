// Package cache holds the process-local and Redis backed scan repositories.
package cache

import (
	"context"
	"sync"

	"github.com/scancheckout/backend/internal/domain/scan"
)

// InMemoryScanRepository keeps scan records in a map. Records are lost on
// restart.
type InMemoryScanRepository struct {
	mu      sync.RWMutex
	records map[string]*scan.Record
}

// NewInMemoryScanRepository creates an empty repository.
func NewInMemoryScanRepository() *InMemoryScanRepository {
	return &InMemoryScanRepository{records: make(map[string]*scan.Record)}
}

// Save implements scan.Repository
func (r *InMemoryScanRepository) Save(_ context.Context, record *scan.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = cloneRecord(record)
	return nil
}

// FindByID implements scan.Repository
func (r *InMemoryScanRepository) FindByID(_ context.Context, id string) (*scan.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, scan.ErrScanNotFound
	}
	return cloneRecord(record), nil
}

// SaveDetections implements scan.Repository
func (r *InMemoryScanRepository) SaveDetections(_ context.Context, id string, detections []scan.Detection, modelVersion string) (*scan.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, scan.ErrScanNotFound
	}
	record.Detections = cloneDetections(detections)
	record.ModelVersion = modelVersion
	return cloneRecord(record), nil
}

// Len returns the number of stored records.
func (r *InMemoryScanRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func cloneRecord(record *scan.Record) *scan.Record {
	c := *record
	c.Detections = cloneDetections(record.Detections)
	return &c
}

func cloneDetections(detections []scan.Detection) []scan.Detection {
	if detections == nil {
		return nil
	}
	out := make([]scan.Detection, len(detections))
	for i, d := range detections {
		out[i] = scan.Detection{
			BBox:       d.BBox,
			Candidates: append([]scan.Candidate(nil), d.Candidates...),
		}
	}
	return out
}

var _ scan.Repository = (*InMemoryScanRepository)(nil)
