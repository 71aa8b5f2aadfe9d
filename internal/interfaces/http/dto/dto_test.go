package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scancheckout/backend/internal/domain/checkout"
	"github.com/scancheckout/backend/internal/domain/scan"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusUnprocessableEntity},
		{ErrCodeUnsupportedMode, http.StatusBadRequest},
		{ErrCodeMissingSession, http.StatusBadRequest},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeUpstream, http.StatusBadGateway},
		{ErrCodeNotConfigured, http.StatusInternalServerError},
		{"ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "scan not found", "req-1")
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_NOT_FOUND","message":"scan not found","request_id":"req-1"}}`, string(data))
}

func TestCheckoutRequest_ToDomain(t *testing.T) {
	price := 3.335
	req := CheckoutRequest{
		StoreID:    "store-1",
		OperatorID: "op-7",
		Lines: []CheckoutLineRequest{
			{SKU: "A", Qty: 2, PriceUnit: &price},
			{SKU: "B", Qty: 0.5},
		},
		Note: "bag",
	}

	got := req.ToDomain()
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "3.335", got.Lines[0].PriceUnit.String())
	assert.Equal(t, "2", got.Lines[0].Quantity.String())
	assert.Nil(t, got.Lines[1].PriceUnit)
	assert.Equal(t, "0.5", got.Lines[1].Quantity.String())
	assert.Equal(t, "op-7", got.OperatorID)
	assert.Equal(t, "bag", got.Note)
	assert.NoError(t, got.Validate())
}

func TestNewCheckoutResponse(t *testing.T) {
	t.Run("failure has null record and raw", func(t *testing.T) {
		resp := NewCheckoutResponse(&checkout.Result{
			OK:      false,
			Target:  checkout.ModelSaleOrder,
			Message: "confirm failed",
		})
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":false,"target":"sale.order","record_id":null,"raw":null,"message":"confirm failed"}`, string(data))
	})

	t.Run("success carries id and raw", func(t *testing.T) {
		id := int64(42)
		resp := NewCheckoutResponse(&checkout.Result{
			OK:       true,
			Target:   checkout.ModelSaleOrder,
			RecordID: &id,
			Raw:      json.RawMessage(`{"confirm_result":true}`),
		})
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true,"target":"sale.order","record_id":42,"raw":{"confirm_result":true},"message":null}`, string(data))
	})
}

func TestNewInferResponse(t *testing.T) {
	rec := &scan.Record{
		ID:           "s1",
		CreatedAt:    time.Now(),
		ModelVersion: "dummy-hash-v1",
		Detections: []scan.Detection{{
			BBox:       scan.FullFrame,
			Candidates: []scan.Candidate{{SKU: "BREAD-001", Name: "Croissant", Score: 0.9}},
		}},
	}
	data, err := json.Marshal(NewInferResponse(rec))
	require.NoError(t, err)
	assert.JSONEq(t, `{"scan_id":"s1","model_version":"dummy-hash-v1","detections":[{"bbox":[0,0,1,1],"candidates":[{"sku":"BREAD-001","name":"Croissant","score":0.9}]}]}`, string(data))
}

func TestInferRequest_TopKOrDefault(t *testing.T) {
	assert.Equal(t, scan.DefaultTopK, InferRequest{}.TopKOrDefault())
	k := 5
	assert.Equal(t, 5, InferRequest{TopK: &k}.TopKOrDefault())
}

func TestCheckoutRequest_POSOverrides(t *testing.T) {
	zero, five := int64(0), int64(5)

	session, partner := CheckoutRequest{POSSessionID: &zero, PartnerID: &five}.POSOverrides()
	assert.Nil(t, session)
	require.NotNil(t, partner)
	assert.Equal(t, int64(5), *partner)

	session, partner = CheckoutRequest{}.POSOverrides()
	assert.Nil(t, session)
	assert.Nil(t, partner)
}
