package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/scancheckout/backend/internal/domain/checkout"
)

// CheckoutLineRequest is one line of POST /pos/checkout.
type CheckoutLineRequest struct {
	SKU       string   `json:"sku" binding:"required"`
	Qty       float64  `json:"qty" binding:"required,gt=0"`
	PriceUnit *float64 `json:"price_unit" binding:"omitempty,gt=0"`
}

// CheckoutRequest is the body of POST /pos/checkout.
type CheckoutRequest struct {
	StoreID    string                `json:"store_id" binding:"required"`
	OperatorID string                `json:"operator_id"`
	Mode       string                `json:"mode"`
	Lines      []CheckoutLineRequest `json:"lines" binding:"required,min=1,dive"`
	Note       string                `json:"note"`
	// POS mode only. 0 means unset.
	POSSessionID *int64 `json:"pos_session_id" binding:"omitempty,gte=0"`
	PartnerID    *int64 `json:"partner_id" binding:"omitempty,gte=0"`
}

// POSOverrides returns the POS session and partner ids, nil when absent or 0.
func (r CheckoutRequest) POSOverrides() (sessionID, partnerID *int64) {
	return positiveOrNil(r.POSSessionID), positiveOrNil(r.PartnerID)
}

func positiveOrNil(v *int64) *int64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// ToDomain converts the request to a checkout.Request.
func (r CheckoutRequest) ToDomain() checkout.Request {
	lines := make([]checkout.Line, len(r.Lines))
	for i, l := range r.Lines {
		line := checkout.Line{
			SKU:      l.SKU,
			Quantity: decimal.NewFromFloat(l.Qty),
		}
		if l.PriceUnit != nil {
			p := decimal.NewFromFloat(*l.PriceUnit)
			line.PriceUnit = &p
		}
		lines[i] = line
	}
	return checkout.Request{
		StoreID:    r.StoreID,
		OperatorID: r.OperatorID,
		Lines:      lines,
		Note:       r.Note,
	}
}

// CheckoutResponse is the body returned by POST /pos/checkout.
type CheckoutResponse struct {
	OK       bool            `json:"ok"`
	Target   string          `json:"target"`
	RecordID *int64          `json:"record_id"`
	Raw      json.RawMessage `json:"raw"`
	Message  *string         `json:"message"`
}

// NewCheckoutResponse converts a checkout.Result.
func NewCheckoutResponse(r *checkout.Result) CheckoutResponse {
	resp := CheckoutResponse{
		OK:       r.OK,
		Target:   r.Target,
		RecordID: r.RecordID,
		Raw:      r.Raw,
	}
	if len(resp.Raw) == 0 {
		resp.Raw = json.RawMessage("null")
	}
	if r.Message != "" {
		msg := r.Message
		resp.Message = &msg
	}
	return resp
}
