package odoo

import (
	"github.com/scancheckout/backend/internal/domain/checkout"
)

type saleOrderLineValues struct {
	ProductID     int64    `json:"product_id"`
	ProductUOMQty float64  `json:"product_uom_qty"`
	PriceUnit     *float64 `json:"price_unit,omitempty"`
}

type saleOrderValues struct {
	PartnerID   int64                                `json:"partner_id"`
	OrderLine   []createCommand[saleOrderLineValues] `json:"order_line"`
	PricelistID *int64                               `json:"pricelist_id,omitempty"`
	Note        string                               `json:"note,omitempty"`
}

// buildSaleOrderValues builds sale.order create values. Prices are only
// sent when overridden; Odoo computes the rest from its pricelist.
func buildSaleOrderValues(draft checkout.SaleOrderDraft, products map[string]checkout.Product) (*saleOrderValues, error) {
	lines := make([]createCommand[saleOrderLineValues], 0, len(draft.Lines))
	for _, line := range draft.Lines {
		product, ok := products[line.SKU]
		if !ok {
			return nil, checkout.NewRemoteError(checkout.ErrUnknownSKU, "Unknown SKU: %s", line.SKU)
		}

		vals := saleOrderLineValues{
			ProductID:     product.ID,
			ProductUOMQty: line.Quantity.InexactFloat64(),
		}
		if line.PriceUnit != nil {
			price := line.PriceUnit.InexactFloat64()
			vals.PriceUnit = &price
		}
		lines = append(lines, createCommand[saleOrderLineValues]{Values: vals})
	}

	return &saleOrderValues{
		PartnerID:   draft.PartnerID,
		OrderLine:   lines,
		PricelistID: draft.PricelistID,
		Note:        draft.Note,
	}, nil
}
