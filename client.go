package securesheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 * 1024 * 1024

	// rateLimitRemainingHeader is the advisory quota header the backend sets.
	rateLimitRemainingHeader = "X-RateLimit-Remaining"

	// signatureHeader mirrors the body signature on POST requests.
	signatureHeader = "X-Signature"
)

// Unmarshaler customizes payload decoding for Response.Decode.
type Unmarshaler interface {
	Unmarshal(data []byte, v interface{}) error
}

// Client signs and executes requests against a SecureSheets backend. Every
// request carries the authentication parameters and an HMAC signature over
// their canonical form; responses are normalized, optionally checksum
// verified, and GET results are cached. It is safe for concurrent use.
//
// A zero-value Client rejects every operation with a not_configured error;
// construct one with New or bring it up with Configure.
type Client struct {
	mu         sync.RWMutex
	config     Config
	configured bool
	endpoint   *url.URL
	sign       signer
	window     *rateWindow

	protocol    Protocol
	httpClient  *http.Client
	cache       Cache
	nonces      *nonceTracker
	csrf        *csrfCell
	metrics     *MetricsCollector
	debug       *DebugConfig
	logger      Logger
	unmarshaler Unmarshaler

	infoMu sync.RWMutex
	info   ServerInfo

	nonceCapacity int
	discoverOnNew bool
	cacheOff      bool
}

// callState is the per-request snapshot of the reconfigurable pieces, taken
// once so a concurrent Configure cannot tear a request in half.
type callState struct {
	cfg      Config
	endpoint *url.URL
	sign     signer
	window   *rateWindow
}

// New constructs a configured Client. cfg is merged over the hardened
// defaults and validated; a validation failure returns a configuration error
// and no client.
func New(cfg Config, options ...Option) (*Client, error) {
	client := &Client{
		httpClient:    &http.Client{},
		protocol:      DefaultProtocol(),
		cache:         NewInMemoryCache(),
		csrf:          newCSRFCell(),
		debug:         DefaultDebugConfig(),
		nonceCapacity: DefaultNonceCapacity,
	}

	for _, option := range options {
		option(client)
	}

	if err := client.validateOptions(); err != nil {
		return nil, err
	}

	client.nonces = newNonceTracker(client.nonceCapacity)

	if err := client.Configure(cfg); err != nil {
		return nil, err
	}

	if client.discoverOnNew {
		if _, err := client.Discover(context.Background()); err != nil {
			client.logDiscovery("Discovery on configure failed", "error", err.Error())
		}
	}

	return client, nil
}

// Configure merges cfg over the active configuration and swaps it in. String
// fields win when non-empty, numbers when positive, booleans only when
// cfg.HasToggles is set. On validation failure the previous configuration
// stays live. Configure also brings up a zero-value Client.
func (c *Client) Configure(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureRuntime()

	base := c.config
	if !c.configured {
		base = DefaultConfig()
	}
	merged := base.merge(cfg)
	if err := merged.validate(); err != nil {
		return err
	}

	endpoint, err := url.Parse(merged.Endpoint)
	if err != nil {
		return &Error{Code: ErrCodeConfiguration, Message: "endpoint is not a valid URL", Cause: err}
	}

	if !c.configured || merged.MaxRequestsPerHour != c.config.MaxRequestsPerHour {
		c.window = newRateWindow(merged.MaxRequestsPerHour)
	}
	if merged.Secret != c.config.Secret || merged.Origin != c.config.Origin {
		c.csrf.clear()
	}
	if cfg.HasToggles {
		c.debug.Enabled = merged.Debug
	}

	c.config = merged
	c.endpoint = endpoint
	c.sign = signer{protocol: c.protocol, secret: merged.Secret}
	c.configured = true

	return nil
}

// ensureRuntime creates whatever a zero-value Client is missing. Callers hold
// the write lock.
func (c *Client) ensureRuntime() {
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.protocol.Algorithm == "" {
		c.protocol = DefaultProtocol()
	}
	if c.cache == nil && !c.cacheOff {
		c.cache = NewInMemoryCache()
	}
	if c.csrf == nil {
		c.csrf = newCSRFCell()
	}
	if c.nonces == nil {
		c.nonces = newNonceTracker(c.nonceCapacity)
	}
	if c.debug == nil {
		c.debug = DefaultDebugConfig()
	}
}

// Get executes a signed read action. Successful responses may be served from
// and stored into the response cache.
func (c *Client) Get(ctx context.Context, action string, params Params) (*Response, error) {
	return c.do(ctx, http.MethodGet, action, params)
}

// Post executes a signed write action. Responses are never cached; a CSRF
// token is attached when enabled.
func (c *Client) Post(ctx context.Context, action string, params Params) (*Response, error) {
	return c.do(ctx, http.MethodPost, action, params)
}

// GetJSON executes a signed read action and decodes the data payload into v.
func (c *Client) GetJSON(ctx context.Context, action string, params Params, v interface{}) error {
	resp, err := c.Get(ctx, action, params)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

// PostJSON executes a signed write action and decodes the data payload into v.
func (c *Client) PostJSON(ctx context.Context, action string, params Params, v interface{}) error {
	resp, err := c.Post(ctx, action, params)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

func (c *Client) do(ctx context.Context, method, action string, params Params) (*Response, error) {
	st, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	if action == "" {
		return nil, &Error{Code: ErrCodeConfiguration, Message: "action must not be empty"}
	}

	start := time.Now()
	requestID := c.newRequestID()

	c.logRequests("Starting request", "requestID", requestID, "method", method, "action", action)

	c.metrics.RecordRequestStart(action, method)
	defer c.metrics.RecordRequestEnd(action, method)

	key := cacheKey(c.protocol, action, params)
	useCache, ttl := c.cachePolicy(ctx, method, st.cfg)

	if useCache {
		if entry, found := c.cache.Get(key); found {
			c.logCache("Cache hit", "requestID", requestID, "cacheKey", key)
			c.metrics.RecordCacheHit(action)
			c.metrics.RecordRequest(action, method, http.StatusOK, time.Since(start))
			resp := *entry.Response
			return &resp, nil
		}
		c.metrics.RecordCacheMiss(action)
		c.logCache("Cache miss", "requestID", requestID, "cacheKey", key)
	}

	if ok, resetAt := st.window.allow(); !ok {
		c.warnRateLimit("Rate limit exceeded", "requestID", requestID, "action", action, "resetAt", resetAt)
		return nil, c.fail(&Error{
			Code:    ErrCodeRateLimited,
			Message: fmt.Sprintf("request ceiling of %d per hour reached", st.cfg.MaxRequestsPerHour),
			ResetAt: resetAt,
		}, requestID, action, method, start)
	}
	c.metrics.RecordRateLimitRemaining(st.window.state().Remaining())

	signed, serr := c.buildSignedParams(st, method, action, params)
	if serr != nil {
		return nil, c.fail(serr, requestID, action, method, start)
	}

	c.logSigning("Request signed", "requestID", requestID, "action", action, "fieldCount", len(signed))

	resp, statusCode, xerr := c.execute(ctx, st, method, signed)
	c.metrics.RecordRequest(action, method, statusCode, time.Since(start))
	if xerr != nil {
		return nil, c.fail(xerr, requestID, action, method, start)
	}

	if st.cfg.ValidateChecksums {
		if verr := resp.VerifyChecksum(); verr != nil {
			return nil, c.fail(asError(verr), requestID, action, method, start)
		}
	}

	if c.unmarshaler != nil {
		resp.unmarshal = c.unmarshaler.Unmarshal
	}

	if useCache {
		stored := *resp
		c.cache.Set(key, &CacheEntry{Response: &stored}, ttl)
		if mem, ok := c.cache.(*InMemoryCache); ok {
			c.metrics.RecordCacheSize(mem.Len())
		}
		c.logCache("Response cached", "requestID", requestID, "cacheKey", key, "ttl", ttl)
	}

	c.logRequests("Request complete", "requestID", requestID, "action", action, "status", statusCode, "duration", time.Since(start))

	return resp, nil
}

// snapshot gates unconfigured clients and captures the reconfigurable state.
func (c *Client) snapshot() (callState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.configured {
		return callState{}, &Error{
			Code:    ErrCodeNotConfigured,
			Message: "client is not configured; call New or Configure first",
		}
	}

	return callState{cfg: c.config, endpoint: c.endpoint, sign: c.sign, window: c.window}, nil
}

// cachePolicy resolves whether this call uses the cache and with which TTL,
// honoring a per-request CacheControl override. Only GETs are ever cached.
func (c *Client) cachePolicy(ctx context.Context, method string, cfg Config) (bool, time.Duration) {
	if c.cache == nil || method != http.MethodGet {
		return false, 0
	}
	ttl := cfg.CacheTTL
	if cc, ok := ctx.Value(CacheControlKey).(*CacheControl); ok {
		if cc.TTL > 0 {
			ttl = cc.TTL
		}
		return cc.Enabled, ttl
	}
	return true, ttl
}

// buildSignedParams assembles the full parameter set: caller params, the
// protocol's authentication fields, the CSRF token for writes, and finally
// the signature over all of it.
func (c *Client) buildSignedParams(st callState, method, action string, params Params) (Params, *Error) {
	signed := params.clone()
	signed["action"] = action
	signed["token"] = st.cfg.Token
	signed["origin"] = st.cfg.Origin
	signed["timestamp"] = unixTimestamp(time.Now())

	if st.cfg.EnableNonce {
		nonce, err := c.nonces.next()
		if err != nil {
			return nil, asError(err)
		}
		signed["nonce"] = nonce
	}

	if method == http.MethodPost && st.cfg.EnableCSRF {
		token, err := c.csrf.get(st.sign, st.cfg.Origin)
		if err != nil {
			return nil, asError(err)
		}
		signed[csrfField] = token
	}

	sig, err := st.sign.sign(signed)
	if err != nil {
		return nil, asError(err)
	}
	signed[st.sign.protocol.SignatureField] = sig

	return signed, nil
}

// execute performs one HTTP round trip and normalizes the result.
func (c *Client) execute(ctx context.Context, st callState, method string, signed Params) (*Response, int, *Error) {
	reqCtx, cancel := context.WithTimeout(ctx, st.cfg.Timeout)
	defer cancel()

	req, rerr := c.newHTTPRequest(reqCtx, st, method, signed)
	if rerr != nil {
		return nil, 0, rerr
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, classifyTransport(ctx, err, st.cfg.Timeout)
	}
	defer httpResp.Body.Close()

	c.consumeHeaders(httpResp.Header)

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, httpResp.StatusCode, &Error{
			Code:       ErrCodeNetwork,
			Message:    "reading response body failed",
			Cause:      err,
			StatusCode: httpResp.StatusCode,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, httpResp.StatusCode, errorFromHTTP(httpResp.StatusCode, httpResp.Status, body)
	}

	resp, fault, derr := decodeEnvelope(body)
	if derr != nil {
		return nil, httpResp.StatusCode, &Error{
			Code:       ErrCodeAPI,
			Message:    "server returned an unparseable response",
			Cause:      derr,
			StatusCode: httpResp.StatusCode,
		}
	}
	if fault != nil {
		return nil, httpResp.StatusCode, &Error{
			Code:       ErrCodeAPI,
			Message:    fault.Message,
			ServerCode: fault.Code,
			Details:    fault.Details,
			StatusCode: httpResp.StatusCode,
		}
	}

	return resp, httpResp.StatusCode, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, st callState, method string, signed Params) (*http.Request, *Error) {
	switch method {
	case http.MethodGet:
		u := *st.endpoint
		q := u.Query()
		for k, v := range signed {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, &Error{Code: ErrCodeConfiguration, Message: "building request failed", Cause: err}
		}
		return req, nil

	case http.MethodPost:
		body, err := json.Marshal(signed)
		if err != nil {
			return nil, &Error{Code: ErrCodeConfiguration, Message: "encoding request body failed", Cause: err}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, st.endpoint.String(), bytes.NewReader(body))
		if err != nil {
			return nil, &Error{Code: ErrCodeConfiguration, Message: "building request failed", Cause: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(signatureHeader, signed[st.sign.protocol.SignatureField])
		if token, ok := signed[csrfField]; ok {
			req.Header.Set(csrfHeader, token)
		}
		return req, nil

	default:
		return nil, &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf("unsupported method %q", method)}
	}
}

// classifyTransport maps a transport failure: expiry of the per-request
// timeout becomes a timeout error, while the caller's own context ending
// stays the caller's error.
func classifyTransport(callerCtx context.Context, err error, timeout time.Duration) *Error {
	if cerr := callerCtx.Err(); cerr != nil {
		return &Error{Code: ErrCodeNetwork, Message: "request aborted by caller", Cause: cerr}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Code:    ErrCodeTimeout,
			Message: fmt.Sprintf("request exceeded the %s timeout", timeout),
			Cause:   err,
		}
	}

	return &Error{Code: ErrCodeNetwork, Message: "network request failed", Cause: err}
}

// errorFromHTTP builds the error for a non-2xx response, preferring the
// structured error body when one decodes.
func errorFromHTTP(statusCode int, status string, body []byte) *Error {
	if _, fault, err := decodeEnvelope(body); err == nil && fault != nil {
		return &Error{
			Code:       ErrCodeAPI,
			Message:    fault.Message,
			ServerCode: fault.Code,
			Details:    fault.Details,
			StatusCode: statusCode,
		}
	}
	return &Error{
		Code:       ErrCodeAPI,
		Message:    fmt.Sprintf("server returned %s", status),
		StatusCode: statusCode,
	}
}

// consumeHeaders folds advisory response headers into the server info.
func (c *Client) consumeHeaders(h http.Header) {
	if v := h.Get(rateLimitRemainingHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.setServerRemaining(n)
		}
	}
}

// fail finalizes e with request context and feeds the error metrics. The
// endpoint label never includes the query string, so signed parameters stay
// out of error payloads.
func (c *Client) fail(e *Error, requestID, action, method string, start time.Time) error {
	e.RequestID = requestID
	e.Action = action
	e.Method = method
	e.Endpoint = c.endpointLabel()
	e.Timestamp = time.Now()
	e.Duration = time.Since(start)

	if e.Code == ErrCodeIntegrity {
		c.metrics.RecordIntegrityFailure(action)
	}
	if e.Code == ErrCodeRateLimited {
		c.metrics.RecordRateLimitRejection(action)
	}
	c.metrics.RecordError(string(e.Code), action, method)

	c.warnFailure("Request failed", "requestID", requestID, "action", action, "code", string(e.Code), "error", e.Message)

	return e
}

// asError normalizes internal errors to *Error.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: ErrCodeNetwork, Message: "request failed", Cause: err}
}

// endpointLabel is the endpoint identity errors and logs carry: host and
// path, never the query string.
func (c *Client) endpointLabel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.endpoint == nil {
		return ""
	}
	path := c.endpoint.Path
	if path == "" {
		path = "/"
	}
	return c.endpoint.Host + path
}

func (c *Client) newRequestID() string {
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return ""
}

// RateLimitState reports the client-side request window.
func (c *Client) RateLimitState() RateLimitState {
	c.mu.RLock()
	w := c.window
	c.mu.RUnlock()

	if w == nil {
		return RateLimitState{}
	}
	return w.state()
}

// ResetRateLimit starts a fresh request window.
func (c *Client) ResetRateLimit() {
	c.mu.RLock()
	w := c.window
	c.mu.RUnlock()

	if w != nil {
		w.reset()
	}
}

// ClearCache wipes the response cache.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// ClearNonces empties the tracked nonce set.
func (c *Client) ClearNonces() {
	if c.nonces != nil {
		c.nonces.clear()
	}
}

// ClearCSRFToken drops the cached CSRF token; the next write mints a new one.
func (c *Client) ClearCSRFToken() {
	if c.csrf != nil {
		c.csrf.clear()
	}
}

// Config returns a copy of the active configuration. Serialize it with
// String or MarshalJSON to keep credentials masked.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// IsConfigured reports whether the client can execute requests.
func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configured
}

func (c *Client) logRequests(msg string, keysAndValues ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logCache(msg string, keysAndValues ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logSigning(msg string, keysAndValues ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogSigning && c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) logDiscovery(msg string, keysAndValues ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogDiscovery && c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

func (c *Client) warnRateLimit(msg string, keysAndValues ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

func (c *Client) warnFailure(msg string, keysAndValues ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}
