package odoo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// sessionExpiredName is the exception Odoo reports when the session cookie
// is no longer valid.
const sessionExpiredName = "odoo.http.SessionExpiredException"

// rpcRequest is the JSON-RPC 2.0 envelope of the Odoo web client.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// IsSuccess returns true if the response carries no error object
func (r *rpcResponse) IsSuccess() bool {
	return r.Error == nil
}

type rpcError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    rpcErrorData `json:"data"`
}

type rpcErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Debug   string `json:"debug,omitempty"`
}

func (e *rpcError) String() string {
	s := fmt.Sprintf("%s (code %d)", e.Message, e.Code)
	if e.Data.Name != "" {
		s += " " + e.Data.Name
	}
	if e.Data.Message != "" {
		s += ": " + e.Data.Message
	}
	return s
}

func (e *rpcError) sessionExpired() bool {
	return e.Code == 100 || e.Data.Name == sessionExpiredName
}

type authParams struct {
	DB       string `json:"db"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

type authResult struct {
	UID json.RawMessage `json:"uid"`
}

type callKWParams struct {
	Model  string         `json:"model"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// parseID decodes an Odoo record id. Odoo answers false where a record is
// absent, which is reported as !ok.
func parseID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseString decodes a char field. Odoo sends false for empty char fields.
func parseString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// parseDecimal decodes a float field without a float64 round trip.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// truncate shortens a payload quoted in an error message.
func truncate(raw []byte) string {
	const limit = 512
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
