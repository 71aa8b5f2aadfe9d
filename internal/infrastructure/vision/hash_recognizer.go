// Package vision holds candidate recognizers for scanned images.
package vision

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/scancheckout/backend/internal/domain/scan"
)

// HashModelVersion identifies HashRecognizer output.
const HashModelVersion = "dummy-hash-v1"

// CatalogItem is one SKU the recognizer can propose.
type CatalogItem struct {
	SKU  string
	Name string
}

// DefaultCatalog is the fixed demo catalog.
var DefaultCatalog = []CatalogItem{
	{SKU: "TEST-SVC", Name: "Demo Service SKU"},
	{SKU: "TEST-SKU", Name: "Demo Product TEST"},
	{SKU: "BREAD-001", Name: "Croissant"},
	{SKU: "BREAD-002", Name: "Baguette"},
	{SKU: "CAKE-001", Name: "Cheese Cake"},
}

// HashRecognizer derives repeatable candidates from the SHA-256 of the
// image. It stands in for a trained model: the same bytes always produce
// the same ranking.
type HashRecognizer struct {
	catalog []CatalogItem
}

// NewHashRecognizer creates a recognizer over catalog, or DefaultCatalog
// when catalog is empty.
func NewHashRecognizer(catalog []CatalogItem) *HashRecognizer {
	if len(catalog) == 0 {
		catalog = DefaultCatalog
	}
	return &HashRecognizer{catalog: catalog}
}

// ModelVersion implements scan.Recognizer
func (r *HashRecognizer) ModelVersion() string {
	return HashModelVersion
}

// TopK implements scan.Recognizer. The ranking starts at catalog index
// digest[0] mod len(catalog); rank r scores 0.95 - 0.12r minus a hash
// jitter of up to 0.1, clamped to [0.01, 0.99] and rounded to 4 places.
func (r *HashRecognizer) TopK(_ context.Context, image []byte, k int) ([]scan.Candidate, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", scan.ErrInvalidTopK, k)
	}
	if len(image) == 0 {
		image = []byte("empty-image")
	}

	digest := sha256.Sum256(image)
	n := len(r.catalog)
	start := int(digest[0]) % n
	count := min(k, n)

	out := make([]scan.Candidate, 0, count)
	for rank := 0; rank < count; rank++ {
		item := r.catalog[(start+rank)%n]
		jitter := float64(digest[(rank+1)%len(digest)]) / 2550.0
		raw := 0.95 - float64(rank)*0.12 - jitter
		score := decimal.NewFromFloat(max(0.01, min(0.99, raw))).Round(4).InexactFloat64()
		out = append(out, scan.Candidate{SKU: item.SKU, Name: item.Name, Score: score})
	}
	return out, nil
}

var _ scan.Recognizer = (*HashRecognizer)(nil)
