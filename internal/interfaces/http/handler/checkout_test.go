package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	checkoutapp "github.com/scancheckout/backend/internal/application/checkout"
	"github.com/scancheckout/backend/internal/domain/checkout"
	"github.com/scancheckout/backend/internal/infrastructure/config"
	"github.com/scancheckout/backend/internal/interfaces/http/dto"
	"github.com/scancheckout/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockCheckoutService is a mock implementation of CheckoutService
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Target(mode checkout.Mode, o checkoutapp.Overrides) (checkout.Target, error) {
	args := m.Called(mode, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(checkout.Target), args.Error(1)
}

func (m *MockCheckoutService) Checkout(ctx context.Context, req checkout.Request, target checkout.Target) (*checkout.Result, error) {
	args := m.Called(ctx, req, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Result), args.Error(1)
}

func newCheckoutRouter(svc CheckoutService, adapter string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	h := NewCheckoutHandler(svc, adapter)
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

func postCheckout(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/pos/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

const saleBody = `{"store_id":"store-1","operator_id":"op-1","lines":[{"sku":"SKU-1","qty":2}]}`

var saleTarget = checkout.SaleOrderTarget{PartnerID: 1}

func TestCheckoutHandler_Sale(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockCheckoutService)
		id := int64(42)
		svc.On("Target", checkout.ModeSale, checkoutapp.Overrides{}).Return(saleTarget, nil)
		svc.On("Checkout", mock.Anything, mock.MatchedBy(func(req checkout.Request) bool {
			return req.StoreID == "store-1" && req.OperatorID == "op-1" && len(req.Lines) == 1
		}), saleTarget).Return(&checkout.Result{
			OK:       true,
			Target:   checkout.ModelSaleOrder,
			RecordID: &id,
			Raw:      json.RawMessage(`{"confirm_result":true}`),
		}, nil)

		w := postCheckout(t, newCheckoutRouter(svc, config.POSAdapterOdoo), saleBody)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"target":"sale.order","record_id":42,"raw":{"confirm_result":true},"message":null}`, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("erp rejection is a 200 with ok false", func(t *testing.T) {
		svc := new(MockCheckoutService)
		svc.On("Target", checkout.ModeSale, checkoutapp.Overrides{}).Return(saleTarget, nil)
		svc.On("Checkout", mock.Anything, mock.Anything, saleTarget).Return(&checkout.Result{
			OK:      false,
			Target:  checkout.ModelSaleOrder,
			Message: "Unknown SKU: SKU-1",
		}, nil)

		w := postCheckout(t, newCheckoutRouter(svc, config.POSAdapterOdoo), saleBody)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.CheckoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.OK)
		assert.Nil(t, resp.RecordID)
		require.NotNil(t, resp.Message)
		assert.Contains(t, *resp.Message, "Unknown SKU")
	})
}

func TestCheckoutHandler_StatusMapping(t *testing.T) {
	sessionID := int64(5)
	posTarget := checkout.POSOrderTarget{SessionID: sessionID, PartnerID: 1, Draft: true}

	tests := []struct {
		name     string
		body     string
		adapter  string
		setup    func(*MockCheckoutService)
		nilSvc   bool
		wantCode int
		wantErr  string
		wantMsg  string
	}{
		{
			name:     "missing lines",
			body:     `{"store_id":"s","lines":[]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  dto.ErrCodeValidation,
		},
		{
			name:     "non-positive qty",
			body:     `{"store_id":"s","lines":[{"sku":"A","qty":-1}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  dto.ErrCodeValidation,
		},
		{
			name:     "non-positive price",
			body:     `{"store_id":"s","lines":[{"sku":"A","qty":1,"price_unit":0}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  dto.ErrCodeValidation,
		},
		{
			name:     "missing store",
			body:     `{"lines":[{"sku":"A","qty":1}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  dto.ErrCodeValidation,
		},
		{
			name:     "unknown mode",
			body:     `{"store_id":"s","mode":"invoice","lines":[{"sku":"A","qty":1}]}`,
			wantCode: http.StatusBadRequest,
			wantErr:  dto.ErrCodeUnsupportedMode,
		},
		{
			name:     "unsupported adapter",
			body:     saleBody,
			adapter:  "dummy",
			wantCode: http.StatusBadRequest,
			wantErr:  dto.ErrCodeUnsupportedAdapter,
			wantMsg:  "dummy",
		},
		{
			name:     "erp not configured",
			body:     saleBody,
			nilSvc:   true,
			wantCode: http.StatusInternalServerError,
			wantErr:  dto.ErrCodeNotConfigured,
		},
		{
			name: "pos without session",
			body: `{"store_id":"s","mode":"pos","lines":[{"sku":"A","qty":1}]}`,
			setup: func(m *MockCheckoutService) {
				m.On("Target", checkout.ModePOS, checkoutapp.Overrides{}).Return(nil, checkout.ErrMissingSession)
			},
			wantCode: http.StatusBadRequest,
			wantErr:  dto.ErrCodeMissingSession,
		},
		{
			name:     "negative session id",
			body:     `{"store_id":"s","mode":"pos","pos_session_id":-1,"lines":[{"sku":"A","qty":1}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  dto.ErrCodeValidation,
		},
		{
			name: "pos remote error",
			body: `{"store_id":"s","mode":"pos","pos_session_id":5,"lines":[{"sku":"A","qty":1}]}`,
			setup: func(m *MockCheckoutService) {
				m.On("Target", checkout.ModePOS, checkoutapp.Overrides{POSSessionID: &sessionID}).Return(posTarget, nil)
				m.On("Checkout", mock.Anything, mock.Anything, posTarget).
					Return(nil, checkout.NewRemoteError(checkout.ErrPOSSessionNotWritable, "POS session 5 is closed"))
			},
			wantCode: http.StatusBadGateway,
			wantErr:  dto.ErrCodeUpstream,
			wantMsg:  "odoo error: POS session 5 is closed",
		},
		{
			name: "unexpected error",
			body: saleBody,
			setup: func(m *MockCheckoutService) {
				m.On("Target", checkout.ModeSale, checkoutapp.Overrides{}).Return(saleTarget, nil)
				m.On("Checkout", mock.Anything, mock.Anything, saleTarget).Return(nil, errors.New("boom"))
			},
			wantCode: http.StatusInternalServerError,
			wantErr:  dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCheckoutService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			adapter := tt.adapter
			if adapter == "" {
				adapter = config.POSAdapterOdoo
			}
			var service CheckoutService = svc
			if tt.nilSvc {
				service = nil
			}

			w := postCheckout(t, newCheckoutRouter(service, adapter), tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			info := decodeError(t, w)
			assert.Equal(t, tt.wantErr, info.Code)
			assert.NotEmpty(t, info.RequestID)
			if tt.wantMsg != "" {
				assert.Contains(t, info.Message, tt.wantMsg)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestCheckoutHandler_ZeroIDsMeanUnset(t *testing.T) {
	posTarget := checkout.POSOrderTarget{SessionID: 9, PartnerID: 1, Draft: true}
	id := int64(77)
	svc := new(MockCheckoutService)
	svc.On("Target", checkout.ModePOS, checkoutapp.Overrides{}).Return(posTarget, nil)
	svc.On("Checkout", mock.Anything, mock.Anything, posTarget).Return(&checkout.Result{
		OK:       true,
		Target:   checkout.ModelPOSOrder,
		RecordID: &id,
	}, nil)

	body := `{"store_id":"s","mode":"pos","pos_session_id":0,"partner_id":0,"lines":[{"sku":"A","qty":1}]}`
	w := postCheckout(t, newCheckoutRouter(svc, config.POSAdapterOdoo), body)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}
