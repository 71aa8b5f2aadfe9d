package checkout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ERP model names used as checkout targets.
const (
	ModelSaleOrder  = "sale.order"
	ModelPOSOrder   = "pos.order"
	ModelPOSSession = "pos.session"
	ModelProduct    = "product.product"
)

// Mode is the integration mode requested by the caller.
type Mode string

const (
	ModeSale Mode = "sale"
	ModePOS  Mode = "pos"
)

// IsValid returns true if the mode is supported
func (m Mode) IsValid() bool {
	return m == ModeSale || m == ModePOS
}

// String returns the string representation
func (m Mode) String() string {
	return string(m)
}

// ParseMode maps the caller's mode string to a Mode. An empty string selects
// the draft sale order flow.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeSale, nil
	}
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMode, s)
	}
	return m, nil
}

// Line is one purchased item.
type Line struct {
	SKU      string
	Quantity decimal.Decimal
	// PriceUnit overrides the ERP list price when set.
	PriceUnit *decimal.Decimal
}

// Validate checks the line invariants: non-empty SKU, positive quantity and,
// when present, a positive price override.
func (l Line) Validate() error {
	if strings.TrimSpace(l.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidLine)
	}
	if !l.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive for sku %s", ErrInvalidLine, l.SKU)
	}
	if l.PriceUnit != nil && !l.PriceUnit.IsPositive() {
		return fmt.Errorf("%w: price_unit must be positive for sku %s", ErrInvalidLine, l.SKU)
	}
	return nil
}

// Request is one checkout call. StoreID and OperatorID are carried as
// metadata only.
type Request struct {
	StoreID    string
	OperatorID string
	Lines      []Line
	Note       string
}

// Validate checks that the request has at least one valid line.
func (r Request) Validate() error {
	if len(r.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalidLine)
	}
	for _, line := range r.Lines {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SKUs returns the SKUs of lines in order.
func SKUs(lines []Line) []string {
	skus := make([]string, 0, len(lines))
	for _, line := range lines {
		skus = append(skus, line.SKU)
	}
	return skus
}

// Result is the terminal output of one checkout attempt.
type Result struct {
	OK       bool
	Target   string
	RecordID *int64
	Raw      json.RawMessage
	Message  string
}

// Product is an ERP product resolved from a SKU.
type Product struct {
	ID        int64
	SKU       string
	Name      string
	ListPrice decimal.Decimal
}

// Target selects which ERP order shape a checkout produces.
// Implementations: SaleOrderTarget, POSOrderTarget.
type Target interface {
	Model() string
	isTarget()
}

// SaleOrderTarget creates a draft sale.order and confirms it.
type SaleOrderTarget struct {
	PartnerID   int64
	PricelistID *int64
}

// Model implements Target
func (SaleOrderTarget) Model() string { return ModelSaleOrder }

func (SaleOrderTarget) isTarget() {}

// POSOrderTarget submits a pos.order inside an open POS session.
type POSOrderTarget struct {
	SessionID int64
	PartnerID int64
	// Draft submits an unpaid order. Paid orders are not supported.
	Draft bool
}

// Model implements Target
func (POSOrderTarget) Model() string { return ModelPOSOrder }

func (POSOrderTarget) isTarget() {}

// SessionState is the lifecycle state of a POS session.
type SessionState string

const (
	SessionOpeningControl SessionState = "opening_control"
	SessionOpened         SessionState = "opened"
	SessionClosingControl SessionState = "closing_control"
	SessionClosed         SessionState = "closed"
)

// IsWritable reports whether orders may still be added to the session.
func (s SessionState) IsWritable() bool {
	return s != SessionClosingControl && s != SessionClosed
}

// POSSession is the subset of pos.session the checkout needs.
type POSSession struct {
	ID    int64
	Name  string
	State SessionState
}

// SaleOrderDraft is the input for creating a draft sale order.
type SaleOrderDraft struct {
	PartnerID   int64
	PricelistID *int64
	Note        string
	Lines       []Line
}

// POSOrderDraft is the input for submitting a POS session order.
type POSOrderDraft struct {
	SessionID int64
	PartnerID int64
	Draft     bool
	Note      string
	Lines     []Line
}

// POSSubmission is what the ERP answered to a POS order submission.
type POSSubmission struct {
	RecordID *int64
	Raw      json.RawMessage
}
