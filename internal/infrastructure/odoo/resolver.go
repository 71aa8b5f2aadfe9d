package odoo

import (
	"context"
	"encoding/json"

	"github.com/scancheckout/backend/internal/domain/checkout"
)

// Resolver maps SKUs to product.product records.
type Resolver struct {
	client *Client
	field  string
}

// NewResolver creates a resolver matching SKUs against field.
func NewResolver(client *Client, field string) *Resolver {
	if field == "" {
		field = DefaultSKUField
	}
	return &Resolver{client: client, field: field}
}

// ResolveBySKU looks up all skus in one search_read. SKUs Odoo does not
// know are absent from the result; an empty input makes no call.
func (r *Resolver) ResolveBySKU(ctx context.Context, skus []string) (map[string]checkout.Product, error) {
	unique := dedupe(skus)
	if len(unique) == 0 {
		return map[string]checkout.Product{}, nil
	}

	var rows []map[string]json.RawMessage
	err := r.client.CallInto(ctx, checkout.ModelProduct, "search_read",
		[]any{
			[]any{[]any{r.field, "in", unique}},
			[]string{"id", r.field, "name", "list_price"},
		},
		map[string]any{"limit": max(1, len(unique))},
		&rows,
	)
	if err != nil {
		return nil, err
	}

	out := make(map[string]checkout.Product, len(rows))
	for _, row := range rows {
		sku, ok := parseString(row[r.field])
		if !ok || sku == "" {
			continue
		}
		id, ok := parseID(row["id"])
		if !ok {
			return nil, checkout.NewRemoteError(checkout.ErrUnexpectedShape,
				"unexpected product.product row for %s: missing id", sku)
		}
		name, _ := parseString(row["name"])
		price, _ := parseDecimal(row["list_price"])
		out[sku] = checkout.Product{ID: id, SKU: sku, Name: name, ListPrice: price}
	}
	return out, nil
}

func dedupe(skus []string) []string {
	seen := make(map[string]struct{}, len(skus))
	out := make([]string, 0, len(skus))
	for _, sku := range skus {
		if _, ok := seen[sku]; ok {
			continue
		}
		seen[sku] = struct{}{}
		out = append(out, sku)
	}
	return out
}
