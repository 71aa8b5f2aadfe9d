package odoo

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scancheckout/backend/internal/domain/checkout"
)

// odooDatetimeLayout is the server datetime format Odoo stores in UTC.
const odooDatetimeLayout = "2006-01-02 15:04:05"

// POS order states sent to create_from_ui.
const (
	posStateDraft = "draft"
	posStatePaid  = "paid"
)

type posOrderLine struct {
	ProductID         int64            `json:"product_id"`
	Qty               float64          `json:"qty"`
	PriceUnit         float64          `json:"price_unit"`
	PriceSubtotal     float64          `json:"price_subtotal"`
	PriceSubtotalIncl float64          `json:"price_subtotal_incl"`
	TaxIDs            []replaceCommand `json:"tax_ids"`
	Discount          float64          `json:"discount"`
}

type posOrderData struct {
	Name         string                        `json:"name"`
	UID          string                        `json:"uid"`
	SessionID    int64                         `json:"pos_session_id"`
	PartnerID    int64                         `json:"partner_id"`
	Lines        []createCommand[posOrderLine] `json:"lines"`
	StatementIDs []any                         `json:"statement_ids"`
	AmountTotal  float64                       `json:"amount_total"`
	AmountTax    float64                       `json:"amount_tax"`
	AmountPaid   float64                       `json:"amount_paid"`
	AmountReturn float64                       `json:"amount_return"`
	State        string                        `json:"state"`
	CreationDate string                        `json:"creation_date"`
	Note         string                        `json:"note,omitempty"`
}

// posOrder is one element of the create_from_ui orders list.
type posOrder struct {
	ID        string       `json:"id"`
	ToInvoice bool         `json:"to_invoice"`
	Data      posOrderData `json:"data"`
}

// round2 rounds a money amount to cents, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// buildPOSOrder builds one create_from_ui order. Every SKU must be resolved.
// Each line subtotal is rounded, and the total is the rounded sum of the
// rounded subtotals. Taxes and payments are left empty.
func buildPOSOrder(draft checkout.POSOrderDraft, products map[string]checkout.Product, uid string, now time.Time) (*posOrder, error) {
	lines := make([]createCommand[posOrderLine], 0, len(draft.Lines))
	total := decimal.Zero

	for _, line := range draft.Lines {
		product, ok := products[line.SKU]
		if !ok {
			return nil, checkout.NewRemoteError(checkout.ErrUnknownSKU, "Unknown SKU: %s", line.SKU)
		}

		price := product.ListPrice
		if line.PriceUnit != nil {
			price = *line.PriceUnit
		}
		subtotal := round2(price.Mul(line.Quantity))
		total = total.Add(subtotal)

		lines = append(lines, createCommand[posOrderLine]{Values: posOrderLine{
			ProductID:         product.ID,
			Qty:               line.Quantity.InexactFloat64(),
			PriceUnit:         price.InexactFloat64(),
			PriceSubtotal:     subtotal.InexactFloat64(),
			PriceSubtotalIncl: subtotal.InexactFloat64(),
			TaxIDs:            []replaceCommand{{}},
			Discount:          0,
		}})
	}

	state := posStateDraft
	if !draft.Draft {
		state = posStatePaid
	}

	return &posOrder{
		ID:        uid,
		ToInvoice: false,
		Data: posOrderData{
			Name:         "Order " + uid,
			UID:          uid,
			SessionID:    draft.SessionID,
			PartnerID:    draft.PartnerID,
			Lines:        lines,
			StatementIDs: []any{},
			AmountTotal:  round2(total).InexactFloat64(),
			State:        state,
			CreationDate: now.UTC().Format(odooDatetimeLayout),
			Note:         draft.Note,
		},
	}, nil
}

// parsePOSSubmission reads create_from_ui's answer. Odoo versions return
// either a list of ids or a list of {"id": ...} objects.
func parsePOSSubmission(raw json.RawMessage) (*checkout.POSSubmission, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, checkout.WrapRemoteError(checkout.ErrUnexpectedShape, err,
			"unexpected pos.order.create_from_ui result: %s", truncate(raw))
	}

	sub := &checkout.POSSubmission{Raw: raw}
	if len(items) == 0 {
		return sub, nil
	}
	if id, ok := parseID(items[0]); ok {
		sub.RecordID = &id
		return sub, nil
	}
	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(items[0], &obj); err == nil {
		if id, ok := parseID(obj.ID); ok {
			sub.RecordID = &id
		}
	}
	return sub, nil
}
