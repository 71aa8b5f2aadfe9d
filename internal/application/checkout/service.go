// Package checkout orchestrates a point-of-sale checkout against the ERP
// gateway: draft sale order then confirmation, or a POS session order.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/scancheckout/backend/internal/domain/checkout"
	"github.com/scancheckout/backend/internal/infrastructure/telemetry"
)

// Defaults fill in what a checkout request leaves out.
type Defaults struct {
	PartnerID      int64
	PricelistID    *int64
	POSSessionID   *int64
	CreatePOSDraft bool
}

// Overrides are the per-request values that take precedence over Defaults
// in POS mode.
type Overrides struct {
	POSSessionID *int64
	PartnerID    *int64
}

// Service runs checkouts through a checkout.Gateway.
type Service struct {
	gateway  checkout.Gateway
	defaults Defaults
	logger   *zap.Logger
}

// NewService creates a checkout service.
func NewService(gateway checkout.Gateway, defaults Defaults, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:  gateway,
		defaults: defaults,
		logger:   logger.Named("checkout"),
	}
}

// Target maps a mode and request overrides to a checkout target. Sale
// orders always use the configured partner and pricelist. POS orders
// require a session id from the request or the defaults.
func (s *Service) Target(mode checkout.Mode, o Overrides) (checkout.Target, error) {
	switch mode {
	case checkout.ModeSale:
		return checkout.SaleOrderTarget{
			PartnerID:   s.defaults.PartnerID,
			PricelistID: s.defaults.PricelistID,
		}, nil
	case checkout.ModePOS:
		sessionID := firstPositive(o.POSSessionID, s.defaults.POSSessionID)
		if sessionID == 0 {
			return nil, checkout.ErrMissingSession
		}
		partnerID := firstPositive(o.PartnerID, &s.defaults.PartnerID)
		return checkout.POSOrderTarget{
			SessionID: sessionID,
			PartnerID: partnerID,
			Draft:     s.defaults.CreatePOSDraft,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", checkout.ErrUnsupportedMode, mode)
	}
}

// Checkout runs req against target.
//
// The sale order flow reports gateway failures as a Result with OK false.
// The POS flow returns them as errors. Errors that are not
// *checkout.RemoteError are always returned.
func (s *Service) Checkout(ctx context.Context, req checkout.Request, target checkout.Target) (*checkout.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "checkout."+target.Model(),
		telemetry.WithAttribute("checkout.store_id", req.StoreID),
		telemetry.WithAttribute("checkout.lines", len(req.Lines)),
	)
	defer span.End()

	logger := s.logger.With(
		zap.String("store_id", req.StoreID),
		zap.String("operator_id", req.OperatorID),
		zap.String("target", target.Model()),
	)

	var (
		result *checkout.Result
		err    error
	)
	switch t := target.(type) {
	case checkout.SaleOrderTarget:
		result, err = s.checkoutSaleOrder(ctx, req, t)
	case checkout.POSOrderTarget:
		result, err = s.checkoutPOSOrder(ctx, req, t)
	default:
		err = fmt.Errorf("%w: %T", checkout.ErrUnsupportedMode, target)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.ObserveCheckout(target.Model(), false)
		logger.Warn("Checkout failed", zap.Error(err))
		return nil, err
	}

	telemetry.ObserveCheckout(target.Model(), result.OK)
	if result.OK {
		fields := []zap.Field{}
		if result.RecordID != nil {
			fields = append(fields, zap.Int64("record_id", *result.RecordID))
		}
		logger.Info("Checkout recorded", fields...)
	} else {
		telemetry.SetAttributes(span, "checkout.message", result.Message)
		logger.Warn("Checkout rejected by ERP", zap.String("message", result.Message))
	}
	return result, nil
}

func (s *Service) checkoutSaleOrder(ctx context.Context, req checkout.Request, t checkout.SaleOrderTarget) (*checkout.Result, error) {
	id, err := s.gateway.CreateSaleOrder(ctx, checkout.SaleOrderDraft{
		PartnerID:   t.PartnerID,
		PricelistID: t.PricelistID,
		Note:        req.Note,
		Lines:       req.Lines,
	})
	if err != nil {
		return saleOrderFailure(err)
	}

	confirmed, err := s.gateway.ConfirmSaleOrder(ctx, id)
	if err != nil {
		return saleOrderFailure(err)
	}

	raw, err := json.Marshal(map[string]json.RawMessage{"confirm_result": orNull(confirmed)})
	if err != nil {
		return nil, fmt.Errorf("encode confirm result: %w", err)
	}
	return &checkout.Result{
		OK:       true,
		Target:   checkout.ModelSaleOrder,
		RecordID: &id,
		Raw:      raw,
	}, nil
}

// saleOrderFailure converts a RemoteError into a failed Result. Partial
// state in the ERP is left as is.
func saleOrderFailure(err error) (*checkout.Result, error) {
	if !checkout.IsRemoteError(err) {
		return nil, err
	}
	return &checkout.Result{
		OK:      false,
		Target:  checkout.ModelSaleOrder,
		Message: err.Error(),
	}, nil
}

func (s *Service) checkoutPOSOrder(ctx context.Context, req checkout.Request, t checkout.POSOrderTarget) (*checkout.Result, error) {
	if !t.Draft {
		return nil, checkout.NewPOSFinalizeUnsupportedError()
	}

	session, err := s.gateway.GetPOSSession(ctx, t.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.State.IsWritable() {
		return nil, checkout.NewRemoteError(checkout.ErrPOSSessionNotWritable,
			"POS session %d is %s and cannot accept orders", session.ID, session.State)
	}

	sub, err := s.gateway.SubmitPOSOrder(ctx, checkout.POSOrderDraft{
		SessionID: t.SessionID,
		PartnerID: t.PartnerID,
		Draft:     t.Draft,
		Note:      req.Note,
		Lines:     req.Lines,
	})
	if err != nil {
		return nil, err
	}
	return &checkout.Result{
		OK:       true,
		Target:   checkout.ModelPOSOrder,
		RecordID: sub.RecordID,
		Raw:      sub.Raw,
	}, nil
}

func firstPositive(values ...*int64) int64 {
	for _, v := range values {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
