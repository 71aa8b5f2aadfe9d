package checkout

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeSale, false},
		{"sale", ModeSale, false},
		{"POS", ModePOS, false},
		{"invoice", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLine_Validate(t *testing.T) {
	zero := decimal.Zero
	price := dec("1.50")

	tests := []struct {
		name    string
		line    Line
		wantErr bool
	}{
		{"valid", Line{SKU: "A", Quantity: dec("1")}, false},
		{"valid with price", Line{SKU: "A", Quantity: dec("0.5"), PriceUnit: &price}, false},
		{"blank sku", Line{SKU: "  ", Quantity: dec("1")}, true},
		{"zero quantity", Line{SKU: "A", Quantity: zero}, true},
		{"negative quantity", Line{SKU: "A", Quantity: dec("-1")}, true},
		{"zero price", Line{SKU: "A", Quantity: dec("1"), PriceUnit: &zero}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLine)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequest(t *testing.T) {
	req := Request{StoreID: "s1", Lines: []Line{
		{SKU: "A", Quantity: dec("1")},
		{SKU: "B", Quantity: dec("2")},
	}}
	assert.NoError(t, req.Validate())
	assert.Equal(t, []string{"A", "B"}, SKUs(req.Lines))

	assert.ErrorIs(t, Request{StoreID: "s1"}.Validate(), ErrInvalidLine)
}

func TestTargets(t *testing.T) {
	var target Target = SaleOrderTarget{PartnerID: 1}
	assert.Equal(t, ModelSaleOrder, target.Model())

	target = POSOrderTarget{SessionID: 3, PartnerID: 1, Draft: true}
	assert.Equal(t, ModelPOSOrder, target.Model())
}

func TestSessionState_IsWritable(t *testing.T) {
	assert.True(t, SessionOpeningControl.IsWritable())
	assert.True(t, SessionOpened.IsWritable())
	assert.False(t, SessionClosingControl.IsWritable())
	assert.False(t, SessionClosed.IsWritable())
}

func TestRemoteError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapRemoteError(ErrTransport, cause, "odoo request failed: %v", cause)

	assert.Equal(t, "odoo request failed: connection refused", err.Error())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("create sale order: %w", err)
	assert.True(t, IsRemoteError(wrapped))
	assert.False(t, IsRemoteError(cause))

	unknown := NewRemoteError(ErrUnknownSKU, "Unknown SKU: %s", "X-1")
	assert.Equal(t, "Unknown SKU: X-1", unknown.Error())
	assert.ErrorIs(t, unknown, ErrUnknownSKU)
}
