package odoo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSessionCookie = "session_id"

// recordedCall is one call_kw request seen by fakeOdoo.
type recordedCall struct {
	Model  string
	Method string
	Args   json.RawMessage
	Kwargs map[string]any
}

type callHandler func(call recordedCall) (any, *rpcError)

// fakeOdoo is an httptest server answering the two web JSON-RPC endpoints.
type fakeOdoo struct {
	server *httptest.Server

	mu        sync.Mutex
	authCalls int
	authDelay time.Duration
	authReply func() (any, *rpcError)
	calls     []recordedCall
	handlers  map[string]callHandler
	// expireNext makes the next call_kw answer with a session expiry error.
	expireNext bool
}

func newFakeOdoo(t *testing.T) *fakeOdoo {
	f := &fakeOdoo{
		handlers: map[string]callHandler{},
		authReply: func() (any, *rpcError) {
			return map[string]any{"uid": 2, "db": "test"}, nil
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(pathAuthenticate, f.handleAuthenticate)
	mux.HandleFunc(pathCallKW, f.handleCallKW)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOdoo) on(model, method string, h callHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[model+"."+method] = h
}

func (f *fakeOdoo) authCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

func (f *fakeOdoo) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeOdoo) config() *Config {
	cfg := NewConfig(f.server.URL, "test", "admin", "secret")
	cfg.Timeout = 2 * time.Second
	return cfg
}

func (f *fakeOdoo) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JSONRPC string     `json:"jsonrpc"`
		Method  string     `json:"method"`
		Params  authParams `json:"params"`
		ID      int64      `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.authCalls++
	delay := f.authDelay
	reply := f.authReply
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	result, rpcErr := reply()
	if rpcErr == nil {
		http.SetCookie(w, &http.Cookie{Name: testSessionCookie, Value: "abc123", Path: "/"})
	}
	writeRPC(w, req.ID, result, rpcErr)
}

func (f *fakeOdoo) handleCallKW(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     int64 `json:"id"`
		Params struct {
			Model  string          `json:"model"`
			Method string          `json:"method"`
			Args   json.RawMessage `json:"args"`
			Kwargs map[string]any  `json:"kwargs"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := r.Cookie(testSessionCookie); err != nil {
		writeRPC(w, req.ID, nil, &rpcError{Code: 100, Message: "Odoo Session Expired",
			Data: rpcErrorData{Name: sessionExpiredName, Message: "Session expired"}})
		return
	}

	call := recordedCall{
		Model:  req.Params.Model,
		Method: req.Params.Method,
		Args:   req.Params.Args,
		Kwargs: req.Params.Kwargs,
	}

	f.mu.Lock()
	if f.expireNext {
		f.expireNext = false
		f.mu.Unlock()
		writeRPC(w, req.ID, nil, &rpcError{Code: 100, Message: "Odoo Session Expired",
			Data: rpcErrorData{Name: sessionExpiredName, Message: "Session expired"}})
		return
	}
	f.calls = append(f.calls, call)
	h, ok := f.handlers[call.Model+"."+call.Method]
	f.mu.Unlock()

	if !ok {
		writeRPC(w, req.ID, nil, &rpcError{Code: 200, Message: "Odoo Server Error",
			Data: rpcErrorData{Name: "builtins.AttributeError", Message: "no handler for " + call.Model + "." + call.Method}})
		return
	}
	result, rpcErr := h(call)
	writeRPC(w, req.ID, result, rpcErr)
}

func writeRPC(w http.ResponseWriter, id int64, result any, rpcErr *rpcError) {
	body := map[string]any{"jsonrpc": "2.0", "id": id}
	if rpcErr != nil {
		body["error"] = rpcErr
	} else {
		body["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// decodeArgs unmarshals a recorded call's positional args.
func decodeArgs(t *testing.T, call recordedCall) []any {
	t.Helper()
	var args []any
	require.NoError(t, json.Unmarshal(call.Args, &args))
	return args
}

func newTestClient(t *testing.T, f *fakeOdoo) *Client {
	t.Helper()
	c, err := NewClient(f.config())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func newTestAdapter(t *testing.T, f *fakeOdoo) *Adapter {
	t.Helper()
	a, err := NewAdapter(f.config(), nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// productRows answers product.product.search_read from a fixed catalog.
func productRows(catalog map[string]map[string]any) callHandler {
	return func(call recordedCall) (any, *rpcError) {
		var args []json.RawMessage
		_ = json.Unmarshal(call.Args, &args)
		var domain [][]any
		_ = json.Unmarshal(args[0], &domain)
		rows := []map[string]any{}
		for _, v := range domain[0][2].([]any) {
			if row, ok := catalog[v.(string)]; ok {
				rows = append(rows, row)
			}
		}
		return rows, nil
	}
}
