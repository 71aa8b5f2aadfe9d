package checkout

import (
	"context"
	"encoding/json"
)

// Gateway is the port to the ERP system of record. Every method returns a
// *RemoteError for vendor, transport and business-rule failures.
type Gateway interface {
	// CreateSaleOrder resolves the draft's SKUs and creates an unconfirmed
	// sale order, returning its id.
	CreateSaleOrder(ctx context.Context, draft SaleOrderDraft) (int64, error)

	// ConfirmSaleOrder confirms a draft sale order and returns the ERP's
	// answer verbatim.
	ConfirmSaleOrder(ctx context.Context, id int64) (json.RawMessage, error)

	// GetPOSSession reads a POS session.
	GetPOSSession(ctx context.Context, id int64) (*POSSession, error)

	// SubmitPOSOrder resolves the draft's SKUs, builds a session order and
	// submits it.
	SubmitPOSOrder(ctx context.Context, draft POSOrderDraft) (*POSSubmission, error)
}
