package dto

import (
	"time"

	"github.com/scancheckout/backend/internal/domain/scan"
)

// ScanResponse describes a stored scan.
type ScanResponse struct {
	ScanID       string              `json:"scan_id"`
	StoreID      string              `json:"store_id"`
	DeviceID     *string             `json:"device_id"`
	ImageURI     string              `json:"image_uri"`
	ContentType  string              `json:"content_type"`
	SizeBytes    int64               `json:"size_bytes"`
	CreatedAt    string              `json:"created_at"`
	ModelVersion *string             `json:"model_version,omitempty"`
	Detections   []DetectionResponse `json:"detections,omitempty"`
}

// NewScanResponse converts a scan.Record.
func NewScanResponse(r *scan.Record) ScanResponse {
	resp := ScanResponse{
		ScanID:      r.ID,
		StoreID:     r.StoreID,
		ImageURI:    r.ImageURI,
		ContentType: r.ContentType,
		SizeBytes:   r.SizeBytes,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339Nano),
		Detections:  newDetectionResponses(r.Detections),
	}
	if r.DeviceID != "" {
		deviceID := r.DeviceID
		resp.DeviceID = &deviceID
	}
	if r.ModelVersion != "" {
		version := r.ModelVersion
		resp.ModelVersion = &version
	}
	return resp
}

// InferRequest is the body of POST /scans/{id}/infer.
type InferRequest struct {
	TopK *int `json:"top_k" binding:"omitempty,min=1,max=5"`
}

// TopKOrDefault returns the requested top_k or scan.DefaultTopK.
func (r InferRequest) TopKOrDefault() int {
	if r.TopK == nil {
		return scan.DefaultTopK
	}
	return *r.TopK
}

// InferResponse is returned by POST /scans/{id}/infer.
type InferResponse struct {
	ScanID       string              `json:"scan_id"`
	ModelVersion string              `json:"model_version"`
	Detections   []DetectionResponse `json:"detections"`
}

// DetectionResponse is one detected region.
type DetectionResponse struct {
	BBox       []float64           `json:"bbox"`
	Candidates []CandidateResponse `json:"candidates"`
}

// CandidateResponse is one proposed SKU.
type CandidateResponse struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// NewInferResponse converts an inferred scan.Record.
func NewInferResponse(r *scan.Record) InferResponse {
	dets := newDetectionResponses(r.Detections)
	if dets == nil {
		dets = []DetectionResponse{}
	}
	return InferResponse{
		ScanID:       r.ID,
		ModelVersion: r.ModelVersion,
		Detections:   dets,
	}
}

func newDetectionResponses(dets []scan.Detection) []DetectionResponse {
	if len(dets) == 0 {
		return nil
	}
	out := make([]DetectionResponse, len(dets))
	for i, d := range dets {
		cands := make([]CandidateResponse, len(d.Candidates))
		for j, c := range d.Candidates {
			cands[j] = CandidateResponse{SKU: c.SKU, Name: c.Name, Score: c.Score}
		}
		out[i] = DetectionResponse{BBox: d.BBox[:], Candidates: cands}
	}
	return out
}
