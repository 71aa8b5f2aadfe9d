// Package odoo implements the checkout gateway against Odoo's web JSON-RPC
// endpoints: session authentication, call_kw, SKU resolution and the two
// order shapes (sale.order drafts and pos.order session orders).
package odoo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scancheckout/backend/internal/domain/checkout"
)

// Adapter is the Odoo implementation of checkout.Gateway.
type Adapter struct {
	client   *Client
	resolver *Resolver
	logger   *zap.Logger

	newOrderUID func() string
	now         func() time.Time
}

// NewAdapter creates an adapter and its JSON-RPC client.
func NewAdapter(cfg *Config, logger *zap.Logger, opts ...ClientOption) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("odoo")

	client, err := NewClient(cfg, append([]ClientOption{WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		client:      client,
		resolver:    NewResolver(client, cfg.SKUField),
		logger:      logger,
		newOrderUID: func() string { return uuid.NewString() },
		now:         time.Now,
	}, nil
}

// Close releases the HTTP session.
func (a *Adapter) Close() {
	a.client.Close()
}

// ---------------------------------------------------------------------------
// Sale orders
// ---------------------------------------------------------------------------

// CreateSaleOrder implements checkout.Gateway
func (a *Adapter) CreateSaleOrder(ctx context.Context, draft checkout.SaleOrderDraft) (int64, error) {
	products, err := a.resolver.ResolveBySKU(ctx, checkout.SKUs(draft.Lines))
	if err != nil {
		return 0, err
	}
	values, err := buildSaleOrderValues(draft, products)
	if err != nil {
		return 0, err
	}

	raw, err := a.client.Call(ctx, checkout.ModelSaleOrder, "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}
	id, ok := parseID(raw)
	if !ok {
		return 0, checkout.NewRemoteError(checkout.ErrUnexpectedShape,
			"unexpected sale.order.create result: %s", truncate(raw))
	}

	a.logger.Info("Sale order draft created",
		zap.Int64("sale_order_id", id),
		zap.Int("lines", len(draft.Lines)),
	)
	return id, nil
}

// ConfirmSaleOrder implements checkout.Gateway
func (a *Adapter) ConfirmSaleOrder(ctx context.Context, id int64) (json.RawMessage, error) {
	return a.client.Call(ctx, checkout.ModelSaleOrder, "action_confirm", []any{[]int64{id}}, nil)
}

// ---------------------------------------------------------------------------
// POS orders
// ---------------------------------------------------------------------------

type posSessionRow struct {
	ID    json.RawMessage `json:"id"`
	Name  json.RawMessage `json:"name"`
	State string          `json:"state"`
}

// GetPOSSession implements checkout.Gateway
func (a *Adapter) GetPOSSession(ctx context.Context, id int64) (*checkout.POSSession, error) {
	var rows []posSessionRow
	err := a.client.CallInto(ctx, checkout.ModelPOSSession, "search_read",
		[]any{
			[]any{[]any{"id", "=", id}},
			[]string{"id", "name", "state"},
		},
		map[string]any{"limit": 1},
		&rows,
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, checkout.NewRemoteError(checkout.ErrPOSSessionNotFound, "POS session %d not found", id)
	}

	name, _ := parseString(rows[0].Name)
	return &checkout.POSSession{
		ID:    id,
		Name:  name,
		State: checkout.SessionState(rows[0].State),
	}, nil
}

// SubmitPOSOrder implements checkout.Gateway
func (a *Adapter) SubmitPOSOrder(ctx context.Context, draft checkout.POSOrderDraft) (*checkout.POSSubmission, error) {
	if !draft.Draft {
		return nil, checkout.NewPOSFinalizeUnsupportedError()
	}

	products, err := a.resolver.ResolveBySKU(ctx, checkout.SKUs(draft.Lines))
	if err != nil {
		return nil, err
	}
	order, err := buildPOSOrder(draft, products, a.newOrderUID(), a.now())
	if err != nil {
		return nil, err
	}

	raw, err := a.client.Call(ctx, checkout.ModelPOSOrder, "create_from_ui",
		[]any{[]any{order}, draft.Draft}, nil)
	if err != nil {
		return nil, err
	}
	sub, err := parsePOSSubmission(raw)
	if err != nil {
		return nil, err
	}

	a.logger.Info("POS order submitted",
		zap.String("order_uid", order.ID),
		zap.Int64("pos_session_id", draft.SessionID),
		zap.Float64("amount_total", order.Data.AmountTotal),
	)
	return sub, nil
}

var _ checkout.Gateway = (*Adapter)(nil)
