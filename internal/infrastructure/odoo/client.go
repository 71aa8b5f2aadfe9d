package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/scancheckout/backend/internal/domain/checkout"
	"github.com/scancheckout/backend/internal/infrastructure/telemetry"
)

// maxResponseSize caps how much of an Odoo response body is read.
const maxResponseSize = 10 * 1024 * 1024

// Client speaks the Odoo web JSON-RPC dialect. It keeps one cookie session
// and one authenticated uid, both shared by concurrent callers.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger

	mu   sync.RWMutex
	uid  int64
	auth singleflight.Group

	nextID atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client's logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client. A cookie jar is attached when the
// given client has none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient validates cfg and creates a client. No request is sent until
// the first call.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, ErrOdooConfigMissingURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("odoo: create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// UID returns the authenticated user id, or 0 before authentication.
func (c *Client) UID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uid
}

func (c *Client) setUID(uid int64) {
	c.mu.Lock()
	c.uid = uid
	c.mu.Unlock()
}

// clearUID drops the uid only while it still equals stale, so a session
// another caller already re-established is kept.
func (c *Client) clearUID(stale int64) {
	c.mu.Lock()
	if c.uid == stale {
		c.uid = 0
	}
	c.mu.Unlock()
}

// Authenticate opens a web session and stores the returned uid.
func (c *Client) Authenticate(ctx context.Context) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "odoo.authenticate",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("odoo.db", c.config.Database),
	)
	defer span.End()

	resp, err := c.post(ctx, pathAuthenticate, authParams{
		DB:       c.config.Database,
		Login:    c.config.Username,
		Password: c.config.Password,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	if !resp.IsSuccess() {
		err := checkout.NewRemoteError(errors.Join(checkout.ErrAuthFailed, checkout.ErrRemoteProtocol),
			"authenticate error: %s", resp.Error)
		telemetry.RecordError(span, err)
		return 0, err
	}

	var result authResult
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			err := checkout.WrapRemoteError(checkout.ErrAuthFailed, err,
				"authenticate failed: %s: %v", truncate(resp.Result), err)
			telemetry.RecordError(span, err)
			return 0, err
		}
	}
	uid, ok := parseID(result.UID)
	if !ok {
		err := checkout.NewRemoteError(checkout.ErrAuthFailed, "authenticate failed: %s", truncate(resp.Result))
		telemetry.RecordError(span, err)
		return 0, err
	}

	c.setUID(uid)
	c.logger.Debug("Odoo session authenticated",
		zap.String("db", c.config.Database),
		zap.Int64("uid", uid),
	)
	return uid, nil
}

// ensureAuthenticated returns the current uid, authenticating first when
// there is none. Concurrent callers share one in-flight request, which is
// detached from any single caller's cancellation.
func (c *Client) ensureAuthenticated(ctx context.Context) (int64, error) {
	if uid := c.UID(); uid != 0 {
		return uid, nil
	}
	ch := c.auth.DoChan("authenticate", func() (any, error) {
		if uid := c.UID(); uid != 0 {
			return uid, nil
		}
		return c.Authenticate(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	}
}

// Call invokes model.method through call_kw and returns the raw result.
// When Odoo reports an expired session the uid is dropped, the session is
// re-established and the call is sent once more.
func (c *Client) Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	ctx, span := telemetry.StartSpan(ctx, "odoo.call_kw",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("odoo.model", model),
		telemetry.WithAttribute("odoo.method", method),
	)
	defer span.End()

	start := time.Now()
	result, usedUID, err := c.callKW(ctx, model, method, args, kwargs)
	if errors.Is(err, checkout.ErrSessionExpired) {
		c.logger.Info("Odoo session expired, re-authenticating",
			zap.String("model", model),
			zap.String("method", method),
		)
		c.clearUID(usedUID)
		result, _, err = c.callKW(ctx, model, method, args, kwargs)
	}

	telemetry.ObserveERPCall(model, method, outcomeOf(err), time.Since(start))
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Warn("Odoo call failed",
			zap.String("model", model),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}
	c.logger.Debug("Odoo call succeeded",
		zap.String("model", model),
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// CallInto invokes model.method and decodes the result into out. A result
// that does not decode fails with ErrUnexpectedShape.
func (c *Client) CallInto(ctx context.Context, model, method string, args []any, kwargs map[string]any, out any) error {
	raw, err := c.Call(ctx, model, method, args, kwargs)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return checkout.WrapRemoteError(checkout.ErrUnexpectedShape, err,
			"unexpected %s.%s result: %s", model, method, truncate(raw))
	}
	return nil
}

func (c *Client) callKW(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, int64, error) {
	uid, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, 0, err
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	resp, err := c.post(ctx, pathCallKW, callKWParams{
		Model:  model,
		Method: method,
		Args:   args,
		Kwargs: kwargs,
	})
	if err != nil {
		return nil, uid, err
	}
	if !resp.IsSuccess() {
		kind := checkout.ErrRemoteProtocol
		if resp.Error.sessionExpired() {
			kind = checkout.ErrSessionExpired
		}
		return nil, uid, checkout.NewRemoteError(kind, "call_kw error: %s", resp.Error)
	}
	return resp.Result, uid, nil
}

// post sends one JSON-RPC envelope and decodes the reply envelope.
func (c *Client) post(ctx context.Context, path string, params any) (*rpcResponse, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("odoo: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("odoo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, checkout.WrapRemoteError(checkout.ErrTransport, err, "odoo request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, checkout.WrapRemoteError(checkout.ErrTransport, err, "odoo response from %s unreadable: %v", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		cause := fmt.Errorf("HTTP %d", resp.StatusCode)
		return nil, checkout.WrapRemoteError(checkout.ErrTransport, cause, "odoo request to %s failed: HTTP %d", path, resp.StatusCode)
	}

	var out rpcResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, checkout.WrapRemoteError(checkout.ErrUnexpectedShape, err,
			"odoo response from %s is not JSON-RPC: %s", path, truncate(data))
	}
	return &out, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, checkout.ErrTransport):
		return "transport_error"
	case errors.Is(err, checkout.ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, checkout.ErrUnexpectedShape):
		return "unexpected_shape"
	default:
		return "remote_error"
	}
}
